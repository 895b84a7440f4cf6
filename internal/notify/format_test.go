package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meraki-alert-receiver/internal/assessment"
)

func TestChatText(t *testing.T) {
	text := ChatText(sampleMessage())

	assert.True(t, strings.HasPrefix(text, "🔴 *NETWORK ALERT*"))
	assert.Contains(t, text, "*Severity:* CRITICAL")
	assert.Contains(t, text, "*Category:* Connectivity")
	assert.Contains(t, text, "• Check ISP circuit\n• Verify cellular modem")
	assert.Contains(t, text, "*Urgent:* *YES*")
	assert.Contains(t, text, "*ETA:* 1-2 hours")
}

func TestChatTextNotUrgent(t *testing.T) {
	msg := sampleMessage()
	msg.Assessment.Severity = assessment.SeverityLow
	msg.Assessment.RequiresImmediateAction = false

	text := ChatText(msg)
	assert.True(t, strings.HasPrefix(text, "🟢"))
	assert.Contains(t, text, "*Urgent:* No")
}

func TestEmailSubject(t *testing.T) {
	tests := []struct {
		severity assessment.Severity
		prefix   string
	}{
		{assessment.SeverityCritical, "[URGENT] 🔴"},
		{assessment.SeverityHigh, "[HIGH] 🟠"},
		{assessment.SeverityMedium, "[MEDIUM] 🟡"},
		{assessment.SeverityLow, "[LOW] 🟢"},
		{assessment.SeverityInfo, "[INFO] ℹ️"},
		{"SEVERE", "[ALERT] ⚪"},
	}
	for _, tc := range tests {
		msg := sampleMessage()
		msg.Assessment.Severity = tc.severity
		assert.Equal(t, tc.prefix+" Meraki Alert: Uplink status changed - Acme/HQ", EmailSubject(msg))
	}
}

func TestTextBody(t *testing.T) {
	body := TextBody(sampleMessage())

	assert.Contains(t, body, "SEVERITY: CRITICAL")
	assert.Contains(t, body, "TIMESTAMP: 2025-03-04 05:06:07 UTC")
	assert.Contains(t, body, "1. Check ISP circuit\n2. Verify cellular modem\n")
	assert.Contains(t, body, "IMMEDIATE ACTION REQUIRED")
}

func TestHTMLBodyEscapesModelText(t *testing.T) {
	msg := sampleMessage()
	msg.Assessment.Summary = `<script>alert("x")</script>`

	body, err := HTMLBody(msg)
	require.NoError(t, err)

	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.Contains(t, body, "background-color: #dc3545")
	assert.Contains(t, body, "<li>Check ISP circuit</li>")
	assert.Contains(t, body, "IMMEDIATE ACTION REQUIRED")
}

func TestHTMLBodyNoActionRequired(t *testing.T) {
	msg := sampleMessage()
	msg.Assessment.Severity = assessment.SeverityInfo
	msg.Assessment.RequiresImmediateAction = false

	body, err := HTMLBody(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "No immediate action required")
	assert.Contains(t, body, "background-color: #17a2b8; color: white")
}
