// Package extract recovers a JSON object from free-form model output. The
// model is asked for pure JSON but not trusted to return it, so extraction
// runs an ordered chain of strategies and stops at the first that parses.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fenceOpenRe  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceCloseRe = regexp.MustCompile("\\s*```$")
	braceSpanRe  = regexp.MustCompile(`\{(?s:.)*?\}`)
)

type strategy func(string) (map[string]any, bool)

var strategies = []strategy{direct, balancedBlock, anySpan}

// FromText returns the first JSON object recoverable from raw, or ok=false
// when every strategy fails. A false here is a parse failure, a different
// failure class from a transport error.
func FromText(raw string) (map[string]any, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = fenceOpenRe.ReplaceAllString(cleaned, "")
	cleaned = fenceCloseRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	for _, try := range strategies {
		if obj, ok := try(cleaned); ok {
			return obj, true
		}
	}
	return nil, false
}

// direct parses the fence-stripped text as-is.
func direct(s string) (map[string]any, bool) {
	return parse(s)
}

// balancedBlock finds the first '{' and the matching close brace by depth
// counting, then parses that one span. If the span does not parse the
// strategy gives up rather than hunting for other brace pairs.
func balancedBlock(s string) (map[string]any, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return nil, false
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return parse(s[start : i+1])
			}
		}
	}
	return nil, false
}

// anySpan tries every non-overlapping {...} span in order of appearance and
// returns the first that parses.
func anySpan(s string) (map[string]any, bool) {
	for _, span := range braceSpanRe.FindAllString(s, -1) {
		if obj, ok := parse(span); ok {
			return obj, true
		}
	}
	return nil, false
}

func parse(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}
