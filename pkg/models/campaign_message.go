package models

import "time"

// MessageStatus defines the delivery states of one campaign message.
// scheduled -> sent -> delivered -> read, or -> failed from scheduled/sent.
type MessageStatus string

const (
	MessageStatusScheduled MessageStatus = "scheduled"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
)

// CanTransition reports whether moving from s to next is legal.
func (s MessageStatus) CanTransition(next MessageStatus) bool {
	switch s {
	case MessageStatusScheduled:
		return next == MessageStatusSent || next == MessageStatusFailed
	case MessageStatusSent:
		return next == MessageStatusDelivered || next == MessageStatusFailed
	case MessageStatusDelivered:
		return next == MessageStatusRead
	default:
		return false
	}
}

// CampaignMessage is one row per (campaign, contact, channel step): the
// rendered content, resolved media, scheduled time and delivery state. At most
// one scheduled message exists per (campaign, contact, channel); re-preparing
// a campaign updates the existing scheduled row instead of duplicating it.
type CampaignMessage struct {
	ID                string        `json:"id"`
	CampaignID        string        `json:"campaign_id" validate:"required"`
	ContactID         string        `json:"contact_id"  validate:"required"`
	Channel           string        `json:"channel"     validate:"required"`
	Content           string        `json:"content"`
	MediaURL          string        `json:"media_url,omitempty"`
	Status            MessageStatus `json:"status"`
	ScheduledAt       time.Time     `json:"scheduled_at"`
	SentAt            *time.Time    `json:"sent_at,omitempty"`
	ProviderMessageID string        `json:"provider_message_id,omitempty"`
	ErrorMessage      string        `json:"error_message,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}
