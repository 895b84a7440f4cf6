// Package assessment defines the structured alert assessment and turns raw
// model output into one that is always complete.
package assessment

import "strings"

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	default:
		return false
	}
}

// ParseSeverity upper-cases s and maps anything outside the enum to MEDIUM.
func ParseSeverity(s string) Severity {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	if !sev.Valid() {
		return SeverityMedium
	}
	return sev
}

type Assessment struct {
	Severity                Severity `json:"severity"`
	Category                string   `json:"category"`
	Summary                 string   `json:"summary"`
	Impact                  string   `json:"impact"`
	Recommendations         []string `json:"recommendations"`
	RequiresImmediateAction bool     `json:"requires_immediate_action"`
	EstimatedResolutionTime string   `json:"estimated_resolution_time"`
}

const (
	defaultCategory       = "Unknown"
	defaultSummary        = "Alert received but analysis incomplete"
	defaultImpact         = "Unable to determine impact"
	defaultResolutionTime = "Unknown"
)

var defaultRecommendations = []string{
	"Manual review required",
	"Check Meraki dashboard",
}

var fallbackRecommendations = []string{
	"Manual review required",
	"Check Meraki dashboard for details",
	"Contact system administrator if issues persist",
}

// Fallback is the degraded assessment used when no model produced a usable
// answer. reason is embedded in the summary.
func Fallback(reason string) Assessment {
	return Assessment{
		Severity:                SeverityHigh,
		Category:                "System Error",
		Summary:                 "Alert received but analysis failed: " + reason,
		Impact:                  "Unable to determine impact - manual review required",
		Recommendations:         append([]string(nil), fallbackRecommendations...),
		RequiresImmediateAction: true,
		EstimatedResolutionTime: "Unknown",
	}
}

// IsFallback reports whether a was produced by Fallback.
func (a Assessment) IsFallback() bool {
	return a.Category == "System Error" && strings.HasPrefix(a.Summary, "Alert received but analysis failed: ")
}
