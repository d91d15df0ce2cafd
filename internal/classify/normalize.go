package classify

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"reel-monitor-go/internal/types"
)

const (
	maxSecondaryTopics = 2
	maxQuotes          = 3
	maxQuoteChars      = 200
)

// Normalize turns the raw object recovered from the model into a
// schema-complete record. It is a pure function: every step tolerates
// missing or malformed input and falls back to the field's default, so raw
// model output never leaks past this point.
func Normalize(raw map[string]any) types.CacheEntry {
	entry := types.CacheEntry{
		SecondaryTopics:   []string{},
		KeyQuotes:         []string{},
		ClassifierVersion: types.ClassifierVersion,
	}

	entry.PrimaryTopic = asString(raw["primary_topic"])
	if !types.IsValidTopic(entry.PrimaryTopic) {
		entry.PrimaryTopic = types.FallbackTopic
	}

	for _, v := range asSlice(raw["secondary_topics"]) {
		topic := asString(v)
		if !types.IsValidTopic(topic) {
			continue
		}
		entry.SecondaryTopics = append(entry.SecondaryTopics, topic)
		if len(entry.SecondaryTopics) == maxSecondaryTopics {
			break
		}
	}

	entry.ContentType = asString(raw["content_type"])
	if !types.IsValidContentType(entry.ContentType) {
		entry.ContentType = types.ContentNeutral
	}

	entry.ActionRecommendation = asString(raw["action_recommendation"])
	if !types.IsValidAction(entry.ActionRecommendation) {
		entry.ActionRecommendation = types.ActionArchive
	}

	// Exactly one of severity/amplification survives, chosen by the
	// already-validated content type.
	switch entry.ContentType {
	case types.ContentAttack:
		score := clampRound(toFloat(raw["severity_score"], 0), 0, 10, 1)
		entry.SeverityScore = &score
	case types.ContentCollab:
		score := clampRound(toFloat(raw["amplification_score"], 0), 0, 10, 1)
		entry.AmplificationScore = &score
	}

	entry.ConfidenceScore = clampRound(toFloat(raw["confidence_score"], 0.5), 0, 1, 2)

	for _, v := range asSlice(raw["key_quotes"]) {
		quote := strings.TrimSpace(stringify(v))
		if runes := []rune(quote); len(runes) > maxQuoteChars {
			quote = string(runes[:maxQuoteChars])
		}
		entry.KeyQuotes = append(entry.KeyQuotes, quote)
		if len(entry.KeyQuotes) == maxQuotes {
			break
		}
	}

	entry.Target = asOptString(raw["target"])
	entry.AttackAngle = asOptString(raw["attack_angle"])
	entry.Alignment = asOptString(raw["alignment"])
	entry.ProposalSummary = asOptString(raw["proposal_summary"])
	entry.AlignmentStatus = asOptString(raw["alignment_status"])
	entry.InfoSummary = asOptString(raw["info_summary"])
	entry.Reasoning = asString(raw["reasoning"])

	return entry
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asOptString maps absent/empty/non-string values to nil.
func asOptString(v any) *string {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// stringify coerces any JSON value to text the way a quote field should
// read, so a model that returns a number or object still yields something.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// toFloat attempts numeric conversion of a JSON value, accepting numbers
// and numeric strings. Anything else yields the default.
func toFloat(v any, def float64) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return def
}

func clampRound(v, lo, hi float64, decimals int) float64 {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
