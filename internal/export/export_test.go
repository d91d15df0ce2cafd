package export_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"reel-monitor-go/internal/export"
	"reel-monitor-go/internal/types"
)

func TestWrite_RoundTrip(t *testing.T) {
	sev := 8.5
	analyses := []types.Analysis{
		{
			Username: "critic",
			URL:      "https://instagram.com/p/1",
			CacheEntry: types.CacheEntry{
				PrimaryTopic:         "Política Institucional",
				SecondaryTopics:      []string{"Mídia/Narrativa", "Política Local"},
				ContentType:          types.ContentAttack,
				SeverityScore:        &sev,
				ConfidenceScore:      0.9,
				ActionRecommendation: types.ActionRespondUrgent,
				Reasoning:            "ataque direto",
				AnalyzedAt:           "2025-12-05T10:00:00Z",
				ClassifierVersion:    types.ClassifierVersion,
			},
		},
		{
			Username: "bystander",
			URL:      "https://instagram.com/p/2",
			CacheEntry: types.CacheEntry{
				PrimaryTopic:         types.FallbackTopic,
				SecondaryTopics:      []string{},
				ContentType:          types.ContentNeutral,
				ConfidenceScore:      0.6,
				ActionRecommendation: types.ActionArchive,
				AnalyzedAt:           "2025-12-05T11:00:00Z",
				ClassifierVersion:    types.ClassifierVersion,
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, analyses))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Analyses"}, f.GetSheetList(), "the default sheet is replaced")

	rows, err := f.GetRows("Analyses")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "username", rows[0][0])
	assert.Equal(t, "severity_score", rows[0][5])

	assert.Equal(t, "critic", rows[1][0])
	assert.Equal(t, "ATAQUE", rows[1][2])
	assert.Equal(t, "Mídia/Narrativa, Política Local", rows[1][4])
	assert.Equal(t, "8.5", rows[1][5])

	assert.Equal(t, "bystander", rows[2][0])
	// nullable scores come out as empty cells, never zeros
	if len(rows[2]) > 5 {
		assert.Empty(t, rows[2][5])
	}
}

func TestWrite_EmptyBatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Analyses")
	require.NoError(t, err)
	require.Len(t, rows, 1, "header row only")
}
