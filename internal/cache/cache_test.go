package cache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reel-monitor-go/internal/cache"
	"reel-monitor-go/internal/logger"
	"reel-monitor-go/internal/types"
)

func newStore(t *testing.T) (*cache.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.json")
	return cache.NewStore(path, logger.New().Entry), path
}

func sampleEntry() types.CacheEntry {
	sev := 8.5
	target := "Renan Santos"
	return types.CacheEntry{
		PrimaryTopic:         "Política Institucional",
		SecondaryTopics:      []string{"Mídia/Narrativa"},
		ContentType:          types.ContentAttack,
		SeverityScore:        &sev,
		ConfidenceScore:      0.9,
		Target:               &target,
		KeyQuotes:            []string{"nunca pisou numa favela"},
		ActionRecommendation: types.ActionRespondUrgent,
		Reasoning:            "ataque direto",
		AnalyzedAt:           "2025-12-05T10:00:00Z",
		ClassifierVersion:    types.ClassifierVersion,
	}
}

func TestStore_MissingFileIsEmpty(t *testing.T) {
	s, _ := newStore(t)
	assert.Empty(t, s.Load())
}

func TestStore_RoundTrip(t *testing.T) {
	s, _ := newStore(t)
	entry := sampleEntry()

	s.Save(map[string]types.CacheEntry{"abc123": entry})

	loaded := s.Load()
	require.Len(t, loaded, 1)
	got := loaded["abc123"]
	assert.Equal(t, entry.PrimaryTopic, got.PrimaryTopic)
	assert.Equal(t, entry.ContentType, got.ContentType)
	require.NotNil(t, got.SeverityScore)
	assert.Equal(t, *entry.SeverityScore, *got.SeverityScore)
	assert.Nil(t, got.AmplificationScore)
	assert.Equal(t, entry.KeyQuotes, got.KeyQuotes)
	assert.Equal(t, entry.AnalyzedAt, got.AnalyzedAt)
}

func TestStore_CorruptFileDegradesToEmpty(t *testing.T) {
	s, path := newStore(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	assert.Empty(t, s.Load())

	// a save after corruption recovers the file
	s.Save(map[string]types.CacheEntry{"k": sampleEntry()})
	assert.Len(t, s.Load(), 1)
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	s, path := newStore(t)
	s.Save(map[string]types.CacheEntry{"k": sampleEntry()})

	names, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, "cache.json", names[0].Name())
}

func TestNewStore_DefaultPath(t *testing.T) {
	require.NotNil(t, cache.NewStore("", logger.New().Entry))
	assert.Equal(t, "classifier_cache.json", cache.DefaultPath)
}
