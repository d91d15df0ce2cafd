// Package store persists scraped posts and their analyses in SQLite. It is
// the boundary to the acquisition/transcription stages: they fill rows in,
// the monitor classifies the pending ones.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"reel-monitor-go/internal/types"
)

// Post mirrors one row of the posts table. Transcript may be empty when
// speech-to-text failed; classification then falls back to the caption.
type Post struct {
	ID         int64
	Username   string
	URL        string
	Caption    string
	Likes      int64
	Timestamp  string
	ScrapedAt  string
	MediaURL   string
	Transcript string
}

// Store wraps the posts database. All methods are safe for concurrent use
// via an internal mutex.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the database at dbPath and applies the schema.
// ":memory:" is supported for tests.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		url TEXT NOT NULL,
		caption TEXT,
		likes INTEGER,
		timestamp TEXT,
		scraped_at TEXT NOT NULL,
		media_url TEXT,
		transcript TEXT,
		analysis_json TEXT,
		analyzed_at TEXT,
		classifier_version TEXT,
		UNIQUE(username, url)
	);

	CREATE INDEX IF NOT EXISTS idx_posts_username ON posts(username);
	CREATE INDEX IF NOT EXISTS idx_posts_timestamp ON posts(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InsertPosts saves posts, silently skipping duplicates by (username, url).
// It returns the posts actually inserted, with their row IDs filled in.
func (s *Store) InsertPosts(posts []Post) ([]Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	var inserted []Post
	for _, p := range posts {
		if p.Username == "" || p.URL == "" {
			continue
		}
		res, err := s.db.Exec(
			`INSERT OR IGNORE INTO posts
				(username, url, caption, likes, timestamp, scraped_at, media_url, transcript)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Username, p.URL, p.Caption, p.Likes, p.Timestamp, now, p.MediaURL, p.Transcript,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert post %s: %w", p.URL, err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			p.ID, _ = res.LastInsertId()
			p.ScrapedAt = now
			inserted = append(inserted, p)
		}
	}
	return inserted, nil
}

// SetTranscript stores the speech-to-text result for a post.
func (s *Store) SetTranscript(id int64, transcript string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE posts SET transcript = ? WHERE id = ?`, transcript, id)
	return err
}

// Pending returns posts that have text to classify (transcript or caption)
// and no analysis yet.
func (s *Store) Pending() ([]Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, username, url, COALESCE(caption,''), COALESCE(likes,0),
			COALESCE(timestamp,''), scraped_at, COALESCE(media_url,''), COALESCE(transcript,'')
		 FROM posts
		 WHERE analysis_json IS NULL
		   AND (COALESCE(transcript,'') != '' OR COALESCE(caption,'') != '')
		 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Username, &p.URL, &p.Caption, &p.Likes,
			&p.Timestamp, &p.ScrapedAt, &p.MediaURL, &p.Transcript); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// SaveAnalysis attaches a classification result to a post.
func (s *Store) SaveAnalysis(id int64, a *types.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	_, err = s.db.Exec(
		`UPDATE posts SET analysis_json = ?, analyzed_at = ?, classifier_version = ? WHERE id = ?`,
		string(data), a.AnalyzedAt, a.ClassifierVersion, id,
	)
	return err
}

// Analyses returns the most recent stored analyses, newest first. Rows with
// unparseable analysis_json are skipped.
func (s *Store) Analyses(limit int) ([]types.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT analysis_json FROM posts
		 WHERE analysis_json IS NOT NULL
		 ORDER BY analyzed_at DESC, id DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var out []types.Analysis
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		var a types.Analysis
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			continue
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
