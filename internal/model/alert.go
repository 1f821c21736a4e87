package model

// AlertSeverity grades an abnormality alert.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AbnormalityAlert flags a vital outside its normal (not necessarily invalid)
// band. Alerts are attached to the record and surfaced to the caller but
// never block submission.
type AbnormalityAlert struct {
	Field    string        `json:"field"`
	Message  string        `json:"message"`
	Severity AlertSeverity `json:"severity"`
}
