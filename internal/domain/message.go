package domain

import "time"

// MessageStatus enumerates the lifecycle states of a campaign message.
// Sent and failed are terminal.
type MessageStatus string

const (
	MessageQueued    MessageStatus = "queued"
	MessageSent      MessageStatus = "sent"
	MessageDeferred  MessageStatus = "deferred"
	MessageFailed    MessageStatus = "failed"
	MessageCancelled MessageStatus = "cancelled"
)

// CampaignMessage is one rendered, scheduled outreach message. The ID is
// the idempotency key for delivery.
type CampaignMessage struct {
	ID              string        `json:"id" db:"id"`
	OrganizationKey string        `json:"organization_key" db:"organization_key"`
	ContactEmail    string        `json:"contact_email" db:"contact_email"`
	Channel         string        `json:"channel" db:"channel"`
	TemplateID      string        `json:"template_id" db:"template_id"`
	Subject         string        `json:"rendered_subject" db:"rendered_subject"`
	Body            string        `json:"rendered_body" db:"rendered_body"`
	Segment         Segment       `json:"segment" db:"segment"`
	PainScore       float64       `json:"pain_score" db:"pain_score"`
	ScheduledSendAt time.Time     `json:"scheduled_send_at" db:"scheduled_send_at"`
	Status          MessageStatus `json:"status" db:"status"`
	Attempts        int           `json:"attempts" db:"attempts"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
}

// IsTerminal returns true if the message is in a final state.
func (m CampaignMessage) IsTerminal() bool {
	return m.Status == MessageSent || m.Status == MessageFailed
}

// Clamp01 clamps v into [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
