package models

import "time"

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"

	AttemptSent   = "sent"
	AttemptFailed = "failed"
)

// NotificationAttempt is one append-only row of the delivery log.
type NotificationAttempt struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	Channel       string    `json:"channel"`
	Provider      string    `json:"provider"`
	Recipient     string    `json:"recipient,omitempty"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
