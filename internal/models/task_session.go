package models

import (
	"time"

	"github.com/google/uuid"
)

// PartnerStatus tracks how far the invited partner has progressed.
type PartnerStatus string

const (
	PartnerNone       PartnerStatus = "none"
	PartnerInvited    PartnerStatus = "invited"
	PartnerRegistered PartnerStatus = "registered"
	PartnerApproved   PartnerStatus = "approved"
	PartnerReady      PartnerStatus = "ready"
)

// SessionStatus is the authoritative status of a two-party recording task.
type SessionStatus string

const (
	StatusInvitingPartner SessionStatus = "inviting_partner"
	StatusWaitingApproval SessionStatus = "waiting_approval"
	StatusReadyToRecord   SessionStatus = "ready_to_record"
	StatusRoomCreated     SessionStatus = "room_created"
	StatusInProgress      SessionStatus = "in_progress"
	StatusPendingReview   SessionStatus = "pending_review"
	StatusCompleted       SessionStatus = "completed"
)

// ReviewerStatus is the admin review verdict, orthogonal to SessionStatus.
type ReviewerStatus string

const (
	ReviewApproved ReviewerStatus = "approved"
	ReviewRejected ReviewerStatus = "rejected"
	ReviewUnsure   ReviewerStatus = "unsure"
)

// TaskSession is one paired recording task. It is mutated only through the
// session state machine; room_id is set at most once and never cleared.
type TaskSession struct {
	ID             uuid.UUID      `json:"id"`
	TaskTypeID     string         `json:"task_type_id"`
	UserID         uuid.UUID      `json:"user_id"`
	PartnerID      *uuid.UUID     `json:"partner_id,omitempty"`
	PartnerEmail   string         `json:"partner_email,omitempty"`
	PartnerStatus  PartnerStatus  `json:"partner_status"`
	Status         SessionStatus  `json:"status"`
	RoomID         string         `json:"room_id,omitempty"`
	ReviewerStatus ReviewerStatus `json:"reviewer_status,omitempty"`
	Paid           bool           `json:"paid"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Active reports whether the session still occupies the initiator's slot for
// its task type (idempotent create returns active sessions instead of
// creating duplicates).
func (s *TaskSession) Active() bool {
	return s.Status != StatusCompleted
}

// IsParty reports whether the user is the initiator or the resolved partner.
func (s *TaskSession) IsParty(userID uuid.UUID) bool {
	if s.UserID == userID {
		return true
	}
	return s.PartnerID != nil && *s.PartnerID == userID
}
