package followup

import "time"

// NotificationPayload is what the composer produces for one matched record.
// Message is nil for status-only flows: nothing is sent but the write-back still happens.
type NotificationPayload struct {
	Message     *string
	RecipientID string
	CoachID     string
	Timestamp   time.Time
	StudentID   string
	Flow        Flow
}

func (p NotificationPayload) HasMessage() bool {
	return p.Message != nil
}
