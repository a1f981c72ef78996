package relay

import (
	"context"
	"time"
)

// Message is one outward notification as the downstream relay expects it.
type Message struct {
	Message         string    `json:"message"`
	SlackID         string    `json:"slackId"`
	CoachIdentifier string    `json:"coachIdentifier"`
	Timestamp       time.Time `json:"timestamp"`
}

// Relay delivers a batch of messages in one synchronous call.
// A nil error means the relay acknowledged the whole batch.
type Relay interface {
	Deliver(ctx context.Context, batch []Message) error
}
