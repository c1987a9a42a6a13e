package sessions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pairtalk/backend/internal/models"
)

// Store is the session persistence contract (implemented by Repository).
type Store interface {
	Create(ctx context.Context, s *models.TaskSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TaskSession, error)
	FindActiveByUserAndType(ctx context.Context, userID uuid.UUID, taskTypeID string) (*models.TaskSession, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.TaskSession, error)
	ListByStatus(ctx context.Context, status models.SessionStatus) ([]models.TaskSession, error)
	FindByPartnerEmailUnresolved(ctx context.Context, email string) ([]models.TaskSession, error)
	FindByPartnerID(ctx context.Context, partnerID uuid.UUID) ([]models.TaskSession, error)
	UpdatePartner(ctx context.Context, id uuid.UUID, partnerID *uuid.UUID, email string, ps models.PartnerStatus, status models.SessionStatus) error
	ClaimRoom(ctx context.Context, id uuid.UUID, roomID string) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.SessionStatus) (bool, error)
	SetReviewerStatus(ctx context.Context, id uuid.UUID, rs models.ReviewerStatus) error
	SetPaid(ctx context.Context, id uuid.UUID, paid bool) error
}

// PartnerRecord is the slice of the identity collaborator the state machine
// needs: who the user is and whether an admin has approved them.
type PartnerRecord struct {
	ID       uuid.UUID
	Email    string
	Approved bool
}

// UserDirectory resolves partner records from the identity collaborator.
// Lookups return nil (no error) when the user is not registered.
type UserDirectory interface {
	LookupByEmail(ctx context.Context, email string) (*PartnerRecord, error)
	LookupByID(ctx context.Context, id uuid.UUID) (*PartnerRecord, error)
}

// Catalog exposes the static task-type catalog.
type Catalog interface {
	Get(id string) (models.TaskType, bool)
}

// RoomAllocator allocates a call room with the conferencing collaborator.
type RoomAllocator interface {
	Allocate(ctx context.Context, sessionID uuid.UUID) (roomID string, err error)
}

// InviteSender delivers an out-of-band invitation to an unregistered partner.
type InviteSender interface {
	SendInvite(ctx context.Context, session *models.TaskSession, recipient string) error
}

// Publisher pushes advisory session events to connected clients. Optional.
type Publisher interface {
	PublishSessionEvent(sessionID uuid.UUID, event string, payload []byte) error
}

// Service is the task-session state machine: every status mutation flows
// through it and is validated by the transition table in fsm.go.
type Service struct {
	store     Store
	users     UserDirectory
	catalog   Catalog
	rooms     RoomAllocator
	invites   InviteSender
	publisher Publisher
	logger    *zap.Logger
}

// NewService creates the session service.
func NewService(store Store, users UserDirectory, catalog Catalog, rooms RoomAllocator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, users: users, catalog: catalog, rooms: rooms, logger: logger}
}

// SetInviteSender sets the optional invitation delivery collaborator.
func (s *Service) SetInviteSender(inv InviteSender) { s.invites = inv }

// SetPublisher sets the optional realtime event publisher.
func (s *Service) SetPublisher(p Publisher) { s.publisher = p }

// Create starts a new task session for the initiator, or returns the existing
// active session of this task type (idempotent create).
func (s *Service) Create(ctx context.Context, taskTypeID string, initiatorID uuid.UUID, partnerEmail string) (*models.TaskSession, error) {
	tt, ok := s.catalog.Get(taskTypeID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTaskType, taskTypeID)
	}

	if existing, err := s.store.FindActiveByUserAndType(ctx, initiatorID, taskTypeID); err != nil {
		return nil, err
	} else if existing != nil {
		return s.Reconcile(ctx, existing)
	}

	partnerEmail = strings.TrimSpace(strings.ToLower(partnerEmail))
	if partnerEmail != "" {
		initiator, err := s.users.LookupByID(ctx, initiatorID)
		if err != nil {
			return nil, err
		}
		if initiator != nil && strings.EqualFold(initiator.Email, partnerEmail) {
			return nil, ErrPartnerIsSelf
		}
	}

	status, partnerStatus := InitialStatus(tt.RequiresPartner, partnerEmail)
	session := &models.TaskSession{
		TaskTypeID:    taskTypeID,
		UserID:        initiatorID,
		PartnerEmail:  partnerEmail,
		PartnerStatus: partnerStatus,
		Status:        status,
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Info("session created",
		zap.String("session_id", session.ID.String()),
		zap.String("task_type", taskTypeID),
		zap.String("status", string(session.Status)))

	if partnerEmail != "" {
		return s.InvitePartner(ctx, session.ID, partnerEmail, initiatorID)
	}
	return session, nil
}

// InvitePartner resolves the invitation target and advances the session
// according to the partner's registration/approval state. Only the initiator
// may invite, and only before a room exists.
func (s *Service) InvitePartner(ctx context.Context, sessionID uuid.UUID, email string, actorID uuid.UUID) (*models.TaskSession, error) {
	session, err := s.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != actorID {
		return nil, ErrNotInitiator
	}
	if session.RoomID != "" || Rank(session.Status) > Rank(models.StatusReadyToRecord) {
		return nil, fmt.Errorf("%w: invite from %s", ErrInvalidTransition, session.Status)
	}

	email = strings.TrimSpace(strings.ToLower(email))
	initiator, err := s.users.LookupByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if initiator != nil && strings.EqualFold(initiator.Email, email) {
		return nil, ErrPartnerIsSelf
	}

	partner, err := s.users.LookupByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	ps, status, partnerID := inviteOutcome(partner)
	if err := s.store.UpdatePartner(ctx, session.ID, partnerID, email, ps, status); err != nil {
		return nil, err
	}

	if partner == nil && s.invites != nil {
		if err := s.invites.SendInvite(ctx, session, email); err != nil {
			// Delivery is out-of-band; the invitation state is already durable.
			s.logger.Warn("invite delivery failed", zap.Error(err), zap.String("session_id", session.ID.String()))
		}
	}
	return s.refresh(ctx, session.ID)
}

// inviteOutcome maps the partner's live record to invitation statuses.
func inviteOutcome(partner *PartnerRecord) (models.PartnerStatus, models.SessionStatus, *uuid.UUID) {
	switch {
	case partner == nil:
		return models.PartnerInvited, models.StatusInvitingPartner, nil
	case partner.Approved:
		return models.PartnerApproved, models.StatusReadyToRecord, &partner.ID
	default:
		return models.PartnerRegistered, models.StatusWaitingApproval, &partner.ID
	}
}

// OnPartnerRegistered is invoked by the registration collaborator when an
// account is created: all sessions inviting this email resolve their partner.
func (s *Service) OnPartnerRegistered(ctx context.Context, email string, userID uuid.UUID) error {
	list, err := s.store.FindByPartnerEmailUnresolved(ctx, email)
	if err != nil {
		return err
	}
	for i := range list {
		session := &list[i]
		next, changed, err := Apply(session.Status, ActionPartnerRegistered)
		if err != nil {
			continue // session already progressed; registration cannot regress it
		}
		if !changed {
			next = session.Status
		}
		if err := s.store.UpdatePartner(ctx, session.ID, &userID, session.PartnerEmail, models.PartnerRegistered, next); err != nil {
			return err
		}
		s.publish(session.ID, "partner_registered")
	}
	return nil
}

// OnPartnerApproved is invoked by the approval collaborator when an admin
// approves a user: all sessions waiting on this partner become recordable.
func (s *Service) OnPartnerApproved(ctx context.Context, userID uuid.UUID) error {
	list, err := s.store.FindByPartnerID(ctx, userID)
	if err != nil {
		return err
	}
	for i := range list {
		session := &list[i]
		next, changed, err := Apply(session.Status, ActionPartnerApproved)
		if err != nil || !changed {
			continue
		}
		if err := s.store.UpdatePartner(ctx, session.ID, session.PartnerID, session.PartnerEmail, models.PartnerApproved, next); err != nil {
			return err
		}
		s.publish(session.ID, "partner_approved")
	}
	return nil
}

// reconcileOutcome is the pure reconciliation step: given the partner's live
// record it returns the advanced statuses, never regressing the session.
func reconcileOutcome(session *models.TaskSession, partner *PartnerRecord) (models.PartnerStatus, models.SessionStatus, *uuid.UUID, bool) {
	ps, status, partnerID := inviteOutcome(partner)
	if Rank(status) <= Rank(session.Status) && !(session.PartnerID == nil && partnerID != nil) {
		return session.PartnerStatus, session.Status, session.PartnerID, false
	}
	if Rank(status) < Rank(session.Status) {
		status = session.Status
	}
	return ps, status, partnerID, true
}

// Reconcile lazily re-derives partner state on read. Approval is
// polling-driven, so a session can lag the partner's live approved flag.
// Reconciliation freezes once a room exists: from room_created on, status is
// owned by the explicit transitions only.
func (s *Service) Reconcile(ctx context.Context, session *models.TaskSession) (*models.TaskSession, error) {
	if session.RoomID != "" || session.PartnerEmail == "" {
		return session, nil
	}
	var partner *PartnerRecord
	var err error
	if session.PartnerID != nil {
		partner, err = s.users.LookupByID(ctx, *session.PartnerID)
	} else {
		partner, err = s.users.LookupByEmail(ctx, session.PartnerEmail)
	}
	if err != nil {
		return nil, err
	}
	ps, status, partnerID, changed := reconcileOutcome(session, partner)
	if !changed {
		return session, nil
	}
	if err := s.store.UpdatePartner(ctx, session.ID, partnerID, session.PartnerEmail, ps, status); err != nil {
		return nil, err
	}
	return s.refresh(ctx, session.ID)
}

// CreateRoom allocates the call room once both parties are ready. Re-invoking
// when room_id is already set returns the existing session unchanged; two
// concurrent calls race on a conditional update and both observe one room.
func (s *Service) CreateRoom(ctx context.Context, sessionID, actorID uuid.UUID) (*models.TaskSession, error) {
	session, err := s.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != actorID {
		return nil, ErrNotInitiator
	}
	if session.RoomID != "" {
		return session, nil
	}

	tt, ok := s.catalog.Get(session.TaskTypeID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTaskType, session.TaskTypeID)
	}
	if tt.RequiresPartner {
		if session.PartnerID == nil || session.PartnerStatus != models.PartnerApproved {
			return nil, ErrPartnerNotApproved
		}
	}
	if _, _, err := Apply(session.Status, ActionCreateRoom); err != nil {
		return nil, err
	}

	roomID, err := s.rooms.Allocate(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("allocate room: %w", err)
	}
	claimed, err := s.store.ClaimRoom(ctx, session.ID, roomID)
	if err != nil {
		return nil, err
	}
	if claimed {
		s.logger.Info("room created", zap.String("session_id", session.ID.String()), zap.String("room_id", roomID))
		s.publish(session.ID, "room_created")
	}
	// Lost the claim: a concurrent call set the room first; return its result.
	return s.refresh(ctx, sessionID)
}

// StartRecording marks the session in progress when capture begins.
func (s *Service) StartRecording(ctx context.Context, sessionID, actorID uuid.UUID) (*models.TaskSession, error) {
	return s.transition(ctx, sessionID, actorID, ActionStartRecording, true)
}

// Complete is the "I finished recording" signal from either party.
func (s *Service) Complete(ctx context.Context, sessionID, actorID uuid.UUID) (*models.TaskSession, error) {
	return s.transition(ctx, sessionID, actorID, ActionComplete, true)
}

// AdminApprove closes a pending-review session.
func (s *Service) AdminApprove(ctx context.Context, sessionID uuid.UUID) (*models.TaskSession, error) {
	return s.transition(ctx, sessionID, uuid.Nil, ActionAdminApprove, false)
}

// AdminReject sends a pending-review session back for another take; the
// existing room stays reusable.
func (s *Service) AdminReject(ctx context.Context, sessionID uuid.UUID) (*models.TaskSession, error) {
	return s.transition(ctx, sessionID, uuid.Nil, ActionAdminReject, false)
}

func (s *Service) transition(ctx context.Context, sessionID, actorID uuid.UUID, action Action, partyChecked bool) (*models.TaskSession, error) {
	session, err := s.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if partyChecked && !session.IsParty(actorID) {
		return nil, ErrNotParty
	}
	next, changed, err := Apply(session.Status, action)
	if err != nil {
		return nil, err
	}
	if !changed {
		return session, nil
	}
	applied, err := s.store.UpdateStatus(ctx, session.ID, session.Status, next)
	if err != nil {
		return nil, err
	}
	if !applied {
		// A concurrent transition moved the session first; its edge stands.
		return nil, fmt.Errorf("%w: %s superseded by a concurrent update", ErrInvalidTransition, action)
	}
	s.logger.Info("session transition",
		zap.String("session_id", session.ID.String()),
		zap.String("action", string(action)),
		zap.String("from", string(session.Status)),
		zap.String("to", string(next)))
	s.publish(session.ID, string(action))
	return s.refresh(ctx, sessionID)
}

// Get returns the session after lazy reconciliation.
func (s *Service) Get(ctx context.Context, sessionID uuid.UUID) (*models.TaskSession, error) {
	session, err := s.get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.Reconcile(ctx, session)
}

// ListByUser returns the user's sessions, reconciling each.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.TaskSession, error) {
	list, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		updated, err := s.Reconcile(ctx, &list[i])
		if err != nil {
			return nil, err
		}
		list[i] = *updated
	}
	return list, nil
}

// ListPendingReview returns the admin review queue.
func (s *Service) ListPendingReview(ctx context.Context) ([]models.TaskSession, error) {
	return s.store.ListByStatus(ctx, models.StatusPendingReview)
}

// SetReviewerStatus records the admin verdict; valid in any state, never
// affects status.
func (s *Service) SetReviewerStatus(ctx context.Context, sessionID uuid.UUID, rs models.ReviewerStatus) (*models.TaskSession, error) {
	if _, err := s.get(ctx, sessionID); err != nil {
		return nil, err
	}
	if err := s.store.SetReviewerStatus(ctx, sessionID, rs); err != nil {
		return nil, err
	}
	return s.refresh(ctx, sessionID)
}

// SetPaid records the paid flag; valid in any state, never affects status.
func (s *Service) SetPaid(ctx context.Context, sessionID uuid.UUID, paid bool) (*models.TaskSession, error) {
	if _, err := s.get(ctx, sessionID); err != nil {
		return nil, err
	}
	if err := s.store.SetPaid(ctx, sessionID, paid); err != nil {
		return nil, err
	}
	return s.refresh(ctx, sessionID)
}

func (s *Service) get(ctx context.Context, sessionID uuid.UUID) (*models.TaskSession, error) {
	session, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *Service) refresh(ctx context.Context, sessionID uuid.UUID) (*models.TaskSession, error) {
	return s.get(ctx, sessionID)
}

func (s *Service) publish(sessionID uuid.UUID, event string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSessionEvent(sessionID, event, nil); err != nil {
		s.logger.Debug("publish session event failed", zap.Error(err), zap.String("event", event))
	}
}
