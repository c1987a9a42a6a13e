package sessions

import "errors"

// Typed rejections returned by the session state machine. Validation errors
// are returned synchronously with no partial mutation.
var (
	ErrInvalidTaskType    = errors.New("invalid task type")
	ErrPartnerIsSelf      = errors.New("partner email matches initiator")
	ErrPartnerNotApproved = errors.New("partner not yet approved")
	ErrInvalidTransition  = errors.New("transition not legal from current state")
	ErrNotPendingReview   = errors.New("session is not pending review")
	ErrNotParty           = errors.New("actor is not a party to this session")
	ErrNotInitiator       = errors.New("actor is not the session initiator")
	ErrSessionNotFound    = errors.New("session not found")
)
