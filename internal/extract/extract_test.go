package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reel-monitor-go/internal/extract"
)

func TestFromText_PureJSON(t *testing.T) {
	obj, ok := extract.FromText(`{"content_type": "NEUTRO", "confidence_score": 0.4}`)
	require.True(t, ok)
	assert.Equal(t, "NEUTRO", obj["content_type"])
	assert.Equal(t, 0.4, obj["confidence_score"])
}

func TestFromText_MarkdownFence(t *testing.T) {
	raw := "```json\n{\"content_type\": \"ATAQUE\", \"severity_score\": 8.5}\n```"
	obj, ok := extract.FromText(raw)
	require.True(t, ok)
	assert.Equal(t, "ATAQUE", obj["content_type"])
	assert.Equal(t, 8.5, obj["severity_score"])
}

func TestFromText_FenceWithSurroundingProse(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"content_type\":\"NEUTRO\", \"reasoning\":\"ok\"}\n```\nThanks"
	obj, ok := extract.FromText(raw)
	require.True(t, ok)
	assert.Equal(t, "NEUTRO", obj["content_type"])
	assert.Equal(t, "ok", obj["reasoning"])
}

func TestFromText_BalancedBlockInProse(t *testing.T) {
	raw := `The analysis follows. {"content_type": "COLLAB", "nested": {"a": 1}} Hope that helps.`
	obj, ok := extract.FromText(raw)
	require.True(t, ok)
	assert.Equal(t, "COLLAB", obj["content_type"])

	nested, ok := obj["nested"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1.0, nested["a"])
}

func TestFromText_RegexFallbackSkipsBrokenSpan(t *testing.T) {
	// The first brace span is unbalanced garbage; the scan must move on to
	// the later parseable one.
	raw := `prefix {not json at all} middle {"content_type": "INFORMATIVO"} suffix`
	obj, ok := extract.FromText(raw)
	require.True(t, ok)
	assert.Equal(t, "INFORMATIVO", obj["content_type"])
}

func TestFromText_NoJSON(t *testing.T) {
	for _, raw := range []string{
		"",
		"there is no JSON here",
		"{broken",
		"[1, 2, 3]",
	} {
		_, ok := extract.FromText(raw)
		assert.False(t, ok, "raw=%q", raw)
	}
}
