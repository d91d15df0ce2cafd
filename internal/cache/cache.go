// Package cache persists classification results on disk, keyed by the
// transcript content hash. The store never fails its caller: read problems
// degrade to an empty cache and write problems are logged and swallowed.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"reel-monitor-go/internal/types"
)

const DefaultPath = "classifier_cache.json"

// Store is a whole-file JSON cache. One mutex serializes Load/Save within
// the process; across processes the only guarantee is the atomic rename on
// Save, so concurrent processes can race on read-then-write (last full-file
// writer wins). That race, and the fact that the cache never evicts, are
// accepted properties of this design, not bugs.
type Store struct {
	path string
	mu   sync.Mutex
	log  *logrus.Entry
}

func NewStore(path string, log *logrus.Entry) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path, log: log.WithField("component", "cache")}
}

// Load returns the full hash -> entry mapping. A missing file yields an
// empty map; a corrupt or unreadable file yields an empty map and a warning.
func (s *Store) Load() map[string]types.CacheEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).WithField("error_tag", "cache_read_error").Warn("cache unreadable, starting empty")
		}
		return map[string]types.CacheEntry{}
	}

	entries := map[string]types.CacheEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.WithError(err).WithField("error_tag", "cache_read_error").Warn("cache corrupt, starting empty")
		return map[string]types.CacheEntry{}
	}
	return entries
}

// Save persists the full mapping. It writes to a temp file in the target
// directory and renames it over the cache path, so a concurrent reader never
// sees a half-written file. Write failures are logged, never returned.
func (s *Store) Save(entries map[string]types.CacheEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		s.log.WithError(err).WithField("error_tag", "cache_write_error").Error("cache marshal failed")
		return
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".cache-*.tmp")
	if err != nil {
		s.log.WithError(err).WithField("error_tag", "cache_write_error").Error("cache temp file failed")
		return
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		s.log.WithError(err).WithField("error_tag", "cache_write_error").Error("cache write failed")
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		s.log.WithError(err).WithField("error_tag", "cache_write_error").Error("cache close failed")
		return
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		s.log.WithError(err).WithField("error_tag", "cache_write_error").Error("cache replace failed")
	}
}
