package assessment

import (
	"encoding/json"
	"log/slog"
	"strings"
	"unicode"
)

const parseFailureReason = "JSON parsing failed"

// Normalize extracts the JSON object from raw model output, tolerating a
// surrounding markdown code fence, and fills every missing or invalid field
// with its default. Unparseable output yields Fallback.
func Normalize(raw string) Assessment {
	text := stripCodeFence(strings.TrimSpace(raw))

	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil || fields == nil {
		slog.Error("failed to parse model response as JSON", "error", err, "length", len(raw))
		return Fallback(parseFailureReason)
	}

	return Assessment{
		Severity:                ParseSeverity(stringField(fields, "severity", string(SeverityMedium))),
		Category:                stringField(fields, "category", defaultCategory),
		Summary:                 stringField(fields, "summary", defaultSummary),
		Impact:                  stringField(fields, "impact", defaultImpact),
		Recommendations:         listField(fields, "recommendations", defaultRecommendations),
		RequiresImmediateAction: boolField(fields, "requires_immediate_action", true),
		EstimatedResolutionTime: stringField(fields, "estimated_resolution_time", defaultResolutionTime),
	}
}

// stripCodeFence removes ``` markers and an optional language tag on the
// opening fence. Text without a leading fence is returned unchanged.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body := text[3:]
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	if line, rest, found := strings.Cut(body, "\n"); found && isLanguageTag(strings.TrimSpace(line)) {
		body = rest
	} else {
		body = strings.TrimLeftFunc(body, isTagRune)
	}
	return strings.TrimSpace(body)
}

func isLanguageTag(s string) bool {
	for _, r := range s {
		if !isTagRune(r) {
			return false
		}
	}
	return true
}

func isTagRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '+' || r == '.'
}

func stringField(fields map[string]any, key, def string) string {
	v, ok := fields[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func listField(fields map[string]any, key string, def []string) []string {
	items, _ := fields[key].([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), def...)
	}
	return out
}

// boolField treats a missing, non-boolean or false value as unset.
func boolField(fields map[string]any, key string, def bool) bool {
	v, ok := fields[key].(bool)
	if !ok || !v {
		return def
	}
	return v
}
