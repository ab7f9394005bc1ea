// Package notify provides operator-facing notifications with multi-channel
// delivery: stored records fanned out to email, chat and SMS transports.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// Channels a notification can be delivered on. The first configured
// channel of a notification is its primary channel; delivery counts as
// successful when the primary channel went through.
const (
	ChannelEmail = "email"
	ChannelChat  = "chat"
	ChannelSMS   = "sms"
)

// Notification types.
const (
	TypeHighPriorityLead = "high_priority_lead"
	TypeSLAEscalation    = "sla_escalation"
	TypeSystem           = "system"
)

// Recipients addresses a notification per channel.
type Recipients struct {
	Emails []string `json:"emails,omitempty"`
	Phones []string `json:"phones,omitempty"`
}

// ChannelResult records one channel's delivery outcome.
type ChannelResult struct {
	OK     bool      `json:"ok"`
	Error  string    `json:"error,omitempty"`
	SentAt time.Time `json:"sentAt"`
}

// Notification is one stored alert.
type Notification struct {
	ID             uuid.UUID                `json:"id"`
	Type           string                   `json:"type"`
	Priority       int                      `json:"priority"`
	Channels       []string                 `json:"channels"`
	Recipients     Recipients               `json:"recipients"`
	Subject        string                   `json:"subject"`
	Body           string                   `json:"body"`
	LeadID         *uuid.UUID               `json:"leadId,omitempty"`
	ExpiresAt      *time.Time               `json:"expiresAt,omitempty"`
	Sent           bool                     `json:"sent"`
	Read           bool                     `json:"read"`
	SentAt         *time.Time               `json:"sentAt,omitempty"`
	ChannelResults map[string]ChannelResult `json:"channelResults,omitempty"`
	CreatedAt      time.Time                `json:"createdAt"`
}

// Expired reports whether the notification's delivery window has passed.
// Expired notifications are kept for the record but never delivered.
func (n Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && now.After(*n.ExpiresAt)
}

// Primary returns the primary channel, empty when none are configured.
func (n Notification) Primary() string {
	if len(n.Channels) == 0 {
		return ""
	}
	return n.Channels[0]
}
