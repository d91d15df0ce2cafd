package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reel-monitor-go/internal/store"
	"reel-monitor-go/internal/types"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "posts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func post(username, url, caption, transcript string) store.Post {
	return store.Post{
		Username:   username,
		URL:        url,
		Caption:    caption,
		Likes:      10,
		Timestamp:  "2025-12-01T09:00:00Z",
		Transcript: transcript,
	}
}

func TestInsertPosts_Dedup(t *testing.T) {
	s := openStore(t)

	first, err := s.InsertPosts([]store.Post{
		post("critic", "https://instagram.com/p/1", "cap", "text"),
		post("critic", "https://instagram.com/p/2", "cap", "text"),
	})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.NotZero(t, first[0].ID)
	assert.NotEmpty(t, first[0].ScrapedAt)

	// same (username, url) again: skipped, not an error
	second, err := s.InsertPosts([]store.Post{
		post("critic", "https://instagram.com/p/1", "cap", "text"),
		post("critic", "https://instagram.com/p/3", "cap", "text"),
	})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "https://instagram.com/p/3", second[0].URL)
}

func TestInsertPosts_SkipsIncompleteRows(t *testing.T) {
	s := openStore(t)
	inserted, err := s.InsertPosts([]store.Post{
		post("", "https://instagram.com/p/1", "", ""),
		post("critic", "", "", ""),
	})
	require.NoError(t, err)
	assert.Empty(t, inserted)
}

func TestPending_RequiresTextAndNoAnalysis(t *testing.T) {
	s := openStore(t)

	inserted, err := s.InsertPosts([]store.Post{
		post("a", "https://instagram.com/p/1", "", "transcribed speech"),
		post("b", "https://instagram.com/p/2", "caption only", ""),
		post("c", "https://instagram.com/p/3", "", ""),
	})
	require.NoError(t, err)
	require.Len(t, inserted, 3)

	pending, err := s.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 2, "the post with neither transcript nor caption is not classifiable")
	assert.Equal(t, "a", pending[0].Username)
	assert.Equal(t, "b", pending[1].Username)

	// analysed posts leave the pending set
	require.NoError(t, s.SaveAnalysis(pending[0].ID, sampleAnalysis("a", pending[0].URL, "2025-12-05T10:00:00Z")))
	pending, err = s.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].Username)
}

func TestSetTranscript(t *testing.T) {
	s := openStore(t)
	inserted, err := s.InsertPosts([]store.Post{post("a", "https://instagram.com/p/1", "cap", "")})
	require.NoError(t, err)

	require.NoError(t, s.SetTranscript(inserted[0].ID, "now transcribed"))
	pending, err := s.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "now transcribed", pending[0].Transcript)
}

func TestAnalyses_NewestFirst(t *testing.T) {
	s := openStore(t)
	inserted, err := s.InsertPosts([]store.Post{
		post("a", "https://instagram.com/p/1", "", "x"),
		post("b", "https://instagram.com/p/2", "", "y"),
	})
	require.NoError(t, err)
	require.Len(t, inserted, 2)

	require.NoError(t, s.SaveAnalysis(inserted[0].ID, sampleAnalysis("a", inserted[0].URL, "2025-12-05T08:00:00Z")))
	require.NoError(t, s.SaveAnalysis(inserted[1].ID, sampleAnalysis("b", inserted[1].URL, "2025-12-05T09:00:00Z")))

	analyses, err := s.Analyses(10)
	require.NoError(t, err)
	require.Len(t, analyses, 2)
	assert.Equal(t, "b", analyses[0].Username)
	assert.Equal(t, "a", analyses[1].Username)

	limited, err := s.Analyses(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "b", limited[0].Username)
}

func sampleAnalysis(username, url, analyzedAt string) *types.Analysis {
	sev := 8.0
	return &types.Analysis{
		Username: username,
		URL:      url,
		CacheEntry: types.CacheEntry{
			PrimaryTopic:         "Política Institucional",
			SecondaryTopics:      []string{},
			ContentType:          types.ContentAttack,
			SeverityScore:        &sev,
			ConfidenceScore:      0.9,
			KeyQuotes:            []string{},
			ActionRecommendation: types.ActionRespondUrgent,
			Reasoning:            "r",
			AnalyzedAt:           analyzedAt,
			ClassifierVersion:    types.ClassifierVersion,
		},
	}
}
