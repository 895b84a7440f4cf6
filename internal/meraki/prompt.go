package meraki

import (
	"encoding/json"
	"fmt"
	"regexp"
)

const maxPromptFieldLength = 1000

const analysisPromptTemplate = `
You are a network infrastructure expert analyzing Cisco Meraki webhook alerts.

Analyze this alert and respond in JSON format:

Alert Details:
- Alert Type: %s
- Alert Context: %s
- Organization: %s
- Network: %s
- Alert Data: %s

Respond with ONLY a JSON object in this exact format:
{
    "severity": "CRITICAL|HIGH|MEDIUM|LOW|INFO",
    "category": "Security|Connectivity|Performance|Configuration|Hardware|Informational",
    "summary": "Clear description of what happened",
    "impact": "Potential impact on network operations",
    "recommendations": ["Action 1", "Action 2", "Action 3"],
    "requires_immediate_action": true/false,
    "estimated_resolution_time": "Time estimate"
}
`

// unsafePromptChars matches everything outside word characters, whitespace
// and - . @ : /
var unsafePromptChars = regexp.MustCompile(`[^\p{L}\p{N}_\s\-.@:/]`)

// BuildPrompt renders the analysis prompt for p. Alert data is sanitized
// before it is embedded.
func BuildPrompt(p Payload) (string, error) {
	data := p.AlertData
	if data == nil {
		data = map[string]any{}
	}
	alertData, err := json.MarshalIndent(Sanitize(data, maxPromptFieldLength), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal alert data: %w", err)
	}

	info := p.Info()
	return fmt.Sprintf(analysisPromptTemplate,
		info.AlertType,
		AlertContext(info.AlertType),
		info.OrganizationName,
		info.NetworkName,
		string(alertData),
	), nil
}

// Sanitize strips characters that could be used to steer the model from
// every string in v, recursing through maps and slices, and truncates each
// string to maxLen runes. Other values are returned unchanged.
func Sanitize(v any, maxLen int) any {
	switch val := v.(type) {
	case string:
		clean := []rune(unsafePromptChars.ReplaceAllString(val, ""))
		if len(clean) > maxLen {
			clean = clean[:maxLen]
		}
		return string(clean)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Sanitize(item, maxLen)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Sanitize(item, maxLen)
		}
		return out
	default:
		return v
	}
}
