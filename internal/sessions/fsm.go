package sessions

import (
	"fmt"

	"github.com/pairtalk/backend/internal/models"
)

// Action is one state-machine input. Every status mutation on a session goes
// through Apply with one of these, so the legality of each transition is
// enforced in one place instead of per endpoint.
type Action string

const (
	ActionPartnerRegistered Action = "partner_registered"
	ActionPartnerApproved   Action = "partner_approved"
	ActionCreateRoom        Action = "create_room"
	ActionStartRecording    Action = "start_recording"
	ActionComplete          Action = "complete"
	ActionAdminApprove      Action = "admin_approve"
	ActionAdminReject       Action = "admin_reject"
)

// statusRank orders statuses along the forward path. Transitions may only
// increase rank; the single sanctioned backward edge is admin_reject
// (pending_review -> room_created).
var statusRank = map[models.SessionStatus]int{
	models.StatusInvitingPartner: 0,
	models.StatusWaitingApproval: 1,
	models.StatusReadyToRecord:   2,
	models.StatusRoomCreated:     3,
	models.StatusInProgress:      4,
	models.StatusPendingReview:   5,
	models.StatusCompleted:       6,
}

type transition struct {
	from map[models.SessionStatus]bool // nil = any status before completed
	to   models.SessionStatus
	// noopFrom lists statuses where the action is re-entrant: already at or
	// past the target, return the session unchanged instead of rejecting.
	noopFrom map[models.SessionStatus]bool
}

func statuses(ss ...models.SessionStatus) map[models.SessionStatus]bool {
	m := make(map[models.SessionStatus]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

var transitions = map[Action]transition{
	ActionPartnerRegistered: {
		from:     statuses(models.StatusInvitingPartner),
		to:       models.StatusWaitingApproval,
		noopFrom: statuses(models.StatusWaitingApproval),
	},
	ActionPartnerApproved: {
		from:     statuses(models.StatusInvitingPartner, models.StatusWaitingApproval),
		to:       models.StatusReadyToRecord,
		noopFrom: statuses(models.StatusReadyToRecord),
	},
	ActionCreateRoom: {
		from: statuses(models.StatusReadyToRecord),
		to:   models.StatusRoomCreated,
		// Re-invoking with room_id already set is a no-op handled by the
		// service before Apply; room_created itself is still a valid no-op.
		noopFrom: statuses(models.StatusRoomCreated),
	},
	ActionStartRecording: {
		from:     statuses(models.StatusRoomCreated),
		to:       models.StatusInProgress,
		noopFrom: statuses(models.StatusInProgress),
	},
	ActionComplete: {
		from:     nil, // any active status: "I finished recording" is always acceptable
		to:       models.StatusPendingReview,
		noopFrom: statuses(models.StatusPendingReview),
	},
	ActionAdminApprove: {
		from: statuses(models.StatusPendingReview),
		to:   models.StatusCompleted,
	},
	ActionAdminReject: {
		from: statuses(models.StatusPendingReview),
		to:   models.StatusRoomCreated, // sent back for a redo, room stays reusable
	},
}

// Apply returns the status the session moves to under action, or a typed
// rejection. It never mutates the session. changed=false means the action is
// a legal no-op from the current status.
func Apply(current models.SessionStatus, action Action) (next models.SessionStatus, changed bool, err error) {
	t, ok := transitions[action]
	if !ok {
		return "", false, fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}
	if t.noopFrom != nil && t.noopFrom[current] {
		return current, false, nil
	}
	if t.from == nil {
		if current == models.StatusCompleted {
			return "", false, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, current)
		}
		return t.to, true, nil
	}
	if !t.from[current] {
		if action == ActionAdminApprove || action == ActionAdminReject {
			return "", false, fmt.Errorf("%w: status is %s", ErrNotPendingReview, current)
		}
		return "", false, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, current)
	}
	return t.to, true, nil
}

// InitialStatus returns where a freshly created session starts: partnerless
// tasks (or tasks created without an invitation email) skip straight to
// ready_to_record.
func InitialStatus(requiresPartner bool, partnerEmail string) (models.SessionStatus, models.PartnerStatus) {
	if !requiresPartner || partnerEmail == "" {
		return models.StatusReadyToRecord, models.PartnerNone
	}
	return models.StatusInvitingPartner, models.PartnerInvited
}

// Rank exposes the forward ordering of a status (used by tests and by the
// reconciler's monotonicity guard).
func Rank(s models.SessionStatus) int {
	return statusRank[s]
}
