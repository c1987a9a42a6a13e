package models

import (
	"time"

	"github.com/google/uuid"
)

// InviteEmail delivery status.
const (
	InviteEmailPending = "pending"
	InviteEmailSent    = "sent"
	InviteEmailFailed  = "failed"
)

// InviteEmail logs one partner-invitation email for a session.
type InviteEmail struct {
	ID        uuid.UUID  `json:"id"`
	SessionID uuid.UUID  `json:"session_id"`
	Recipient string     `json:"recipient"`
	Subject   string     `json:"subject"`
	BodyHTML  string     `json:"body_html"`
	Status    string     `json:"status"`
	Error     string     `json:"error,omitempty"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
