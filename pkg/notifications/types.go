package notifications

import "context"

// Severity classifies a notification; each severity maps to a display color
// for sinks that support one.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityGood     Severity = "good"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Color returns the hex display color for the severity.
func (s Severity) Color() string {
	switch s {
	case SeverityGood:
		return "#28a745"
	case SeverityWarning:
		return "#ffc107"
	case SeverityCritical:
		return "#dc3545"
	default:
		return "#17a2b8"
	}
}

// Notification is a single alert message handed to the delivery channels.
type Notification struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Severity Severity `json:"severity"`
}

// Sender delivers notifications. Delivery is best-effort: callers log a
// returned error and continue; it must never affect their bookkeeping.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Channel is a single delivery backend (webhook, SMTP, ...).
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}
