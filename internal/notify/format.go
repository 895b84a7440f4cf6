package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"meraki-alert-receiver/internal/assessment"
)

var severityEmoji = map[assessment.Severity]string{
	assessment.SeverityCritical: "🔴",
	assessment.SeverityHigh:     "🟠",
	assessment.SeverityMedium:   "🟡",
	assessment.SeverityLow:      "🟢",
	assessment.SeverityInfo:     "ℹ️",
}

var severityColor = map[assessment.Severity]string{
	assessment.SeverityCritical: "#dc3545",
	assessment.SeverityHigh:     "#fd7e14",
	assessment.SeverityMedium:   "#ffc107",
	assessment.SeverityLow:      "#28a745",
	assessment.SeverityInfo:     "#17a2b8",
}

var subjectPrefix = map[assessment.Severity]string{
	assessment.SeverityCritical: "[URGENT] 🔴",
	assessment.SeverityHigh:     "[HIGH] 🟠",
	assessment.SeverityMedium:   "[MEDIUM] 🟡",
	assessment.SeverityLow:      "[LOW] 🟢",
	assessment.SeverityInfo:     "[INFO] ℹ️",
}

func lookup(m map[assessment.Severity]string, sev assessment.Severity, def string) string {
	if v, ok := m[assessment.Severity(strings.ToUpper(string(sev)))]; ok {
		return v
	}
	return def
}

const timestampLayout = "2006-01-02 15:04:05 UTC"

// ChatText renders the Google Chat message body.
func ChatText(msg Message) string {
	a := msg.Assessment
	var recs []string
	for _, rec := range a.Recommendations {
		recs = append(recs, "• "+rec)
	}
	urgent := "No"
	if a.RequiresImmediateAction {
		urgent = "*YES*"
	}

	return fmt.Sprintf(`%s *NETWORK ALERT*

*Severity:* %s
*Category:* %s

*Summary:* %s

*Impact:* %s

*Recommended Actions:*
%s

*Urgent:* %s
*ETA:* %s`,
		lookup(severityEmoji, a.Severity, "⚪"),
		a.Severity,
		a.Category,
		a.Summary,
		a.Impact,
		strings.Join(recs, "\n"),
		urgent,
		a.EstimatedResolutionTime,
	)
}

// EmailSubject prefixes the subject with an urgency marker for the severity.
func EmailSubject(msg Message) string {
	return fmt.Sprintf("%s Meraki Alert: %s - %s/%s",
		lookup(subjectPrefix, msg.Assessment.Severity, "[ALERT] ⚪"),
		msg.Alert.AlertType,
		msg.Alert.OrganizationName,
		msg.Alert.NetworkName,
	)
}

func TextBody(msg Message) string {
	a := msg.Assessment
	var b strings.Builder
	fmt.Fprintf(&b, "MERAKI NETWORK ALERT\n==================\n\n")
	fmt.Fprintf(&b, "SEVERITY: %s\n", strings.ToUpper(string(a.Severity)))
	fmt.Fprintf(&b, "ORGANIZATION: %s\n", msg.Alert.OrganizationName)
	fmt.Fprintf(&b, "NETWORK: %s\n", msg.Alert.NetworkName)
	fmt.Fprintf(&b, "ALERT TYPE: %s\n", msg.Alert.AlertType)
	fmt.Fprintf(&b, "CATEGORY: %s\n", a.Category)
	fmt.Fprintf(&b, "TIMESTAMP: %s\n\n", msg.Timestamp.UTC().Format(timestampLayout))
	fmt.Fprintf(&b, "SUMMARY\n-------\n%s\n\n", a.Summary)
	fmt.Fprintf(&b, "IMPACT ASSESSMENT\n-----------------\n%s\n\n", a.Impact)
	fmt.Fprintf(&b, "RECOMMENDED ACTIONS\n-------------------\n")
	for i, rec := range a.Recommendations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
	}
	fmt.Fprintf(&b, "\nACTION REQUIRED\n---------------\n")
	if a.RequiresImmediateAction {
		b.WriteString("IMMEDIATE ACTION REQUIRED\n")
	} else {
		b.WriteString("No immediate action required\n")
	}
	fmt.Fprintf(&b, "Estimated Resolution Time: %s\n\n", a.EstimatedResolutionTime)
	b.WriteString("---\nThis alert was automatically generated and analyzed with Amazon Bedrock.\n")
	b.WriteString("For more details, check your Meraki Dashboard or contact your network administrator.")
	return b.String()
}

var htmlBodyTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Meraki Network Alert</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background-color: {{.Color}}; color: white; padding: 15px; border-radius: 5px; margin-bottom: 20px;">
    <h1 style="margin: 0; font-size: 24px;">🚨 Meraki Network Alert</h1>
    <p style="margin: 5px 0 0 0; font-size: 18px;">Severity: {{.Severity}}</p>
  </div>
  <div style="background-color: #f8f9fa; padding: 15px; border-radius: 5px; margin-bottom: 20px;">
    <h2 style="color: #495057; margin-top: 0;">Alert Details</h2>
    <table style="width: 100%; border-collapse: collapse;">
      <tr><td style="padding: 8px; font-weight: bold;">Organization:</td><td style="padding: 8px;">{{.Alert.OrganizationName}}</td></tr>
      <tr><td style="padding: 8px; font-weight: bold;">Network:</td><td style="padding: 8px;">{{.Alert.NetworkName}}</td></tr>
      <tr><td style="padding: 8px; font-weight: bold;">Alert Type:</td><td style="padding: 8px;">{{.Alert.AlertType}}</td></tr>
      <tr><td style="padding: 8px; font-weight: bold;">Category:</td><td style="padding: 8px;">{{.Assessment.Category}}</td></tr>
      <tr><td style="padding: 8px; font-weight: bold;">Timestamp:</td><td style="padding: 8px;">{{.Timestamp}}</td></tr>
    </table>
  </div>
  <h3 style="color: #495057;">Summary</h3>
  <p style="background-color: #e9ecef; padding: 12px; border-radius: 4px;">{{.Assessment.Summary}}</p>
  <h3 style="color: #495057;">Impact Assessment</h3>
  <p style="background-color: #fff3cd; padding: 12px; border-radius: 4px; border-left: 4px solid #ffc107;">{{.Assessment.Impact}}</p>
  <h3 style="color: #495057;">Recommended Actions</h3>
  <ul style="background-color: #d1ecf1; padding: 15px; border-radius: 4px; border-left: 4px solid #17a2b8;">
    {{range .Assessment.Recommendations}}<li>{{.}}</li>{{end}}
  </ul>
  <div style="background-color: #f8f9fa; padding: 15px; border-radius: 5px; border-left: 4px solid {{.ActionColor}};">
    <h3 style="margin-top: 0; color: #495057;">Action Required</h3>
    <p style="margin: 0; font-weight: bold; color: {{.ActionColor}};">{{if .Assessment.RequiresImmediateAction}}⚠️ IMMEDIATE ACTION REQUIRED{{else}}✅ No immediate action required{{end}}</p>
    <p style="margin: 5px 0 0 0;"><strong>Estimated Resolution Time:</strong> {{.Assessment.EstimatedResolutionTime}}</p>
  </div>
  <div style="margin-top: 30px; padding: 15px; background-color: #e9ecef; border-radius: 5px; font-size: 12px; color: #6c757d;">
    <p style="margin: 0;">This alert was automatically generated and analyzed with Amazon Bedrock.</p>
    <p style="margin: 5px 0 0 0;">For more details, check your Meraki Dashboard or contact your network administrator.</p>
  </div>
</div>
</body>
</html>
`))

// HTMLBody renders the HTML email body. Model-provided text is escaped.
func HTMLBody(msg Message) (string, error) {
	actionColor := "#28a745"
	if msg.Assessment.RequiresImmediateAction {
		actionColor = "#dc3545"
	}
	var buf bytes.Buffer
	err := htmlBodyTemplate.Execute(&buf, struct {
		Message
		Severity    string
		Color       template.CSS
		ActionColor template.CSS
		Timestamp   string
	}{
		Message:     msg,
		Severity:    strings.ToUpper(string(msg.Assessment.Severity)),
		Color:       template.CSS(lookup(severityColor, msg.Assessment.Severity, "#6c757d")),
		ActionColor: template.CSS(actionColor),
		Timestamp:   msg.Timestamp.UTC().Format(timestampLayout),
	})
	if err != nil {
		return "", fmt.Errorf("render email body: %w", err)
	}
	return buf.String(), nil
}
