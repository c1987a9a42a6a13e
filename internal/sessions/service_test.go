package sessions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/pairtalk/backend/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.TaskSession
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[uuid.UUID]*models.TaskSession)}
}

func (f *fakeStore) Create(_ context.Context, s *models.TaskSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.TaskSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) FindActiveByUserAndType(_ context.Context, userID uuid.UUID, taskTypeID string) (*models.TaskSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.UserID == userID && s.TaskTypeID == taskTypeID && s.Active() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID uuid.UUID) ([]models.TaskSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TaskSession
	for _, s := range f.sessions {
		if s.UserID == userID || (s.PartnerID != nil && *s.PartnerID == userID) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) ListByStatus(_ context.Context, status models.SessionStatus) ([]models.TaskSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TaskSession
	for _, s := range f.sessions {
		if s.Status == status {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) FindByPartnerEmailUnresolved(_ context.Context, email string) ([]models.TaskSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TaskSession
	for _, s := range f.sessions {
		if s.PartnerEmail == email && s.PartnerID == nil {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) FindByPartnerID(_ context.Context, partnerID uuid.UUID) ([]models.TaskSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TaskSession
	for _, s := range f.sessions {
		if s.PartnerID != nil && *s.PartnerID == partnerID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdatePartner(_ context.Context, id uuid.UUID, partnerID *uuid.UUID, email string, ps models.PartnerStatus, status models.SessionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return errors.New("not found")
	}
	s.PartnerID = partnerID
	s.PartnerEmail = email
	s.PartnerStatus = ps
	s.Status = status
	return nil
}

func (f *fakeStore) ClaimRoom(_ context.Context, id uuid.UUID, roomID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return false, errors.New("not found")
	}
	if s.RoomID != "" {
		return false, nil
	}
	s.RoomID = roomID
	s.Status = models.StatusRoomCreated
	return true, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.SessionStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return false, errors.New("not found")
	}
	if s.Status != from {
		return false, nil
	}
	s.Status = to
	return true, nil
}

func (f *fakeStore) SetReviewerStatus(_ context.Context, id uuid.UUID, rs models.ReviewerStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return errors.New("not found")
	}
	s.ReviewerStatus = rs
	return nil
}

func (f *fakeStore) SetPaid(_ context.Context, id uuid.UUID, paid bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return errors.New("not found")
	}
	s.Paid = paid
	return nil
}

type fakeDirectory struct {
	mu      sync.Mutex
	byEmail map[string]*PartnerRecord
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{byEmail: make(map[string]*PartnerRecord)}
}

func (d *fakeDirectory) add(email string, approved bool) uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := uuid.New()
	d.byEmail[email] = &PartnerRecord{ID: id, Email: email, Approved: approved}
	return id
}

func (d *fakeDirectory) approve(email string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.byEmail[email]; ok {
		r.Approved = true
	}
}

func (d *fakeDirectory) LookupByEmail(_ context.Context, email string) (*PartnerRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (d *fakeDirectory) LookupByID(_ context.Context, id uuid.UUID) (*PartnerRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.byEmail {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

type fakeCatalog map[string]models.TaskType

func (c fakeCatalog) Get(id string) (models.TaskType, bool) {
	tt, ok := c[id]
	return tt, ok
}

type fakeRooms struct {
	mu    sync.Mutex
	calls int
}

func (r *fakeRooms) Allocate(_ context.Context, _ uuid.UUID) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return uuid.New().String(), nil
}

type fakeInviteSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeInviteSender) SendInvite(_ context.Context, _ *models.TaskSession, recipient string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, recipient)
	return nil
}

var testCatalog = fakeCatalog{
	"conversation": {ID: "conversation", Name: "Free conversation", RequiresPartner: true},
	"monologue":    {ID: "monologue", Name: "Solo monologue", RequiresPartner: false},
}

type fixture struct {
	svc       *Service
	store     *fakeStore
	users     *fakeDirectory
	rooms     *fakeRooms
	invites   *fakeInviteSender
	initiator uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFakeStore()
	users := newFakeDirectory()
	rooms := &fakeRooms{}
	invites := &fakeInviteSender{}
	svc := NewService(store, users, testCatalog, rooms, nil)
	svc.SetInviteSender(invites)
	initiator := users.add("initiator@example.com", true)
	return &fixture{svc: svc, store: store, users: users, rooms: rooms, invites: invites, initiator: initiator}
}

func TestCreatePartnerless(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	session, err := fx.svc.Create(ctx, "monologue", fx.initiator, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if session.Status != models.StatusReadyToRecord {
		t.Fatalf("status = %s, want %s", session.Status, models.StatusReadyToRecord)
	}
	if session.PartnerStatus != models.PartnerNone {
		t.Fatalf("partner status = %s, want %s", session.PartnerStatus, models.PartnerNone)
	}

	// A partnerless session goes straight to a room without partner state ever moving.
	roomed, err := fx.svc.CreateRoom(ctx, session.ID, fx.initiator)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if roomed.RoomID == "" || roomed.Status != models.StatusRoomCreated {
		t.Fatalf("got status %s room %q, want room_created with a room", roomed.Status, roomed.RoomID)
	}
	if roomed.PartnerStatus != models.PartnerNone {
		t.Fatalf("partner status moved to %s on a partnerless session", roomed.PartnerStatus)
	}
}

func TestCreateIdempotent(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	first, err := fx.svc.Create(ctx, "monologue", fx.initiator, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := fx.svc.Create(ctx, "monologue", fx.initiator, "")
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("second Create made a new session: %s vs %s", first.ID, second.ID)
	}
}

func TestCreateRejectsSelfInvite(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	_, err := fx.svc.Create(context.Background(), "conversation", fx.initiator, "initiator@example.com")
	if !errors.Is(err, ErrPartnerIsSelf) {
		t.Fatalf("err = %v, want ErrPartnerIsSelf", err)
	}
}

func TestCreateRejectsUnknownTaskType(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	_, err := fx.svc.Create(context.Background(), "nope", fx.initiator, "")
	if !errors.Is(err, ErrInvalidTaskType) {
		t.Fatalf("err = %v, want ErrInvalidTaskType", err)
	}
}

func TestInviteOutcomes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		setup       func(users *fakeDirectory)
		wantStatus  models.SessionStatus
		wantPartner models.PartnerStatus
		wantInvite  bool
	}{
		{
			name:        "unregistered partner gets emailed",
			setup:       func(*fakeDirectory) {},
			wantStatus:  models.StatusInvitingPartner,
			wantPartner: models.PartnerInvited,
			wantInvite:  true,
		},
		{
			name:        "registered but unapproved partner",
			setup:       func(users *fakeDirectory) { users.add("partner@example.com", false) },
			wantStatus:  models.StatusWaitingApproval,
			wantPartner: models.PartnerRegistered,
		},
		{
			name:        "approved partner",
			setup:       func(users *fakeDirectory) { users.add("partner@example.com", true) },
			wantStatus:  models.StatusReadyToRecord,
			wantPartner: models.PartnerApproved,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fx := newFixture(t)
			tt.setup(fx.users)

			session, err := fx.svc.Create(context.Background(), "conversation", fx.initiator, "partner@example.com")
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if session.Status != tt.wantStatus || session.PartnerStatus != tt.wantPartner {
				t.Fatalf("got (%s, %s), want (%s, %s)", session.Status, session.PartnerStatus, tt.wantStatus, tt.wantPartner)
			}
			gotInvite := len(fx.invites.sent) > 0
			if gotInvite != tt.wantInvite {
				t.Fatalf("invite sent = %v, want %v", gotInvite, tt.wantInvite)
			}
		})
	}
}

func TestInviteOnlyInitiator(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	session, err := fx.svc.Create(ctx, "conversation", fx.initiator, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	stranger := fx.users.add("stranger@example.com", true)
	if _, err := fx.svc.InvitePartner(ctx, session.ID, "partner@example.com", stranger); !errors.Is(err, ErrNotInitiator) {
		t.Fatalf("err = %v, want ErrNotInitiator", err)
	}
}

func TestFullPairedScenario(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	// Invite an unregistered partner.
	session, err := fx.svc.Create(ctx, "conversation", fx.initiator, "partner@example.com")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if session.Status != models.StatusInvitingPartner {
		t.Fatalf("status = %s, want %s", session.Status, models.StatusInvitingPartner)
	}

	// Room is out of reach until the partner is approved.
	if _, err := fx.svc.CreateRoom(ctx, session.ID, fx.initiator); !errors.Is(err, ErrPartnerNotApproved) {
		t.Fatalf("CreateRoom err = %v, want ErrPartnerNotApproved", err)
	}

	// Partner registers.
	partnerID := fx.users.add("partner@example.com", false)
	if err := fx.svc.OnPartnerRegistered(ctx, "partner@example.com", partnerID); err != nil {
		t.Fatalf("OnPartnerRegistered: %v", err)
	}
	session, err = fx.svc.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if session.Status != models.StatusWaitingApproval || session.PartnerID == nil {
		t.Fatalf("after registration: status %s partner %v", session.Status, session.PartnerID)
	}

	// Admin approves the partner.
	fx.users.approve("partner@example.com")
	if err := fx.svc.OnPartnerApproved(ctx, partnerID); err != nil {
		t.Fatalf("OnPartnerApproved: %v", err)
	}
	session, _ = fx.svc.Get(ctx, session.ID)
	if session.Status != models.StatusReadyToRecord || session.PartnerStatus != models.PartnerApproved {
		t.Fatalf("after approval: status %s partner status %s", session.Status, session.PartnerStatus)
	}

	// Room, recording, completion.
	session, err = fx.svc.CreateRoom(ctx, session.ID, fx.initiator)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	roomID := session.RoomID
	if roomID == "" || session.Status != models.StatusRoomCreated {
		t.Fatalf("after CreateRoom: status %s room %q", session.Status, roomID)
	}

	if session, err = fx.svc.StartRecording(ctx, session.ID, partnerID); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if session.Status != models.StatusInProgress {
		t.Fatalf("status = %s, want %s", session.Status, models.StatusInProgress)
	}

	// Either party may complete; here the partner does.
	if session, err = fx.svc.Complete(ctx, session.ID, partnerID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if session.Status != models.StatusPendingReview {
		t.Fatalf("status = %s, want %s", session.Status, models.StatusPendingReview)
	}

	// Admin verdict closes it out.
	if session, err = fx.svc.AdminApprove(ctx, session.ID); err != nil {
		t.Fatalf("AdminApprove: %v", err)
	}
	if session.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want %s", session.Status, models.StatusCompleted)
	}
}

func TestAdminRejectKeepsRoom(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	session, err := fx.svc.Create(ctx, "monologue", fx.initiator, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	session, err = fx.svc.CreateRoom(ctx, session.ID, fx.initiator)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	roomID := session.RoomID
	if session, err = fx.svc.Complete(ctx, session.ID, fx.initiator); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	session, err = fx.svc.AdminReject(ctx, session.ID)
	if err != nil {
		t.Fatalf("AdminReject: %v", err)
	}
	if session.Status != models.StatusRoomCreated {
		t.Fatalf("status = %s, want %s", session.Status, models.StatusRoomCreated)
	}
	if session.RoomID != roomID {
		t.Fatalf("room changed on reject: %q -> %q", roomID, session.RoomID)
	}
}

func TestAdminActionsRequirePendingReview(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	session, err := fx.svc.Create(ctx, "monologue", fx.initiator, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := fx.svc.AdminApprove(ctx, session.ID); !errors.Is(err, ErrNotPendingReview) {
		t.Fatalf("AdminApprove err = %v, want ErrNotPendingReview", err)
	}
	if _, err := fx.svc.AdminReject(ctx, session.ID); !errors.Is(err, ErrNotPendingReview) {
		t.Fatalf("AdminReject err = %v, want ErrNotPendingReview", err)
	}
}

// staleReadStore serves one read with an out-of-date status, standing in for
// a concurrent transition that lands between the read and the write.
type staleReadStore struct {
	*fakeStore
	staleID     uuid.UUID
	staleStatus models.SessionStatus
	served      bool
}

func (s *staleReadStore) GetByID(ctx context.Context, id uuid.UUID) (*models.TaskSession, error) {
	sess, err := s.fakeStore.GetByID(ctx, id)
	if sess != nil && id == s.staleID && !s.served {
		s.served = true
		sess.Status = s.staleStatus
	}
	return sess, err
}

func TestRacingAdminVerdictsSingleWinner(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	session, err := fx.svc.Create(ctx, "monologue", fx.initiator, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if session, err = fx.svc.CreateRoom(ctx, session.ID, fx.initiator); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if session, err = fx.svc.Complete(ctx, session.ID, fx.initiator); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, err = fx.svc.AdminApprove(ctx, session.ID); err != nil {
		t.Fatalf("AdminApprove: %v", err)
	}

	// A reject that read pending_review before the approve landed must lose
	// instead of dragging the completed session back to room_created.
	stale := &staleReadStore{fakeStore: fx.store, staleID: session.ID, staleStatus: models.StatusPendingReview}
	svc := NewService(stale, fx.users, testCatalog, fx.rooms, nil)
	if _, err := svc.AdminReject(ctx, session.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("stale AdminReject err = %v, want ErrInvalidTransition", err)
	}

	final, _ := fx.svc.Get(ctx, session.ID)
	if final.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want %s", final.Status, models.StatusCompleted)
	}
}

func TestCompleteRequiresParty(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	session, err := fx.svc.Create(ctx, "monologue", fx.initiator, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	stranger := fx.users.add("stranger@example.com", true)
	if _, err := fx.svc.Complete(ctx, session.ID, stranger); !errors.Is(err, ErrNotParty) {
		t.Fatalf("err = %v, want ErrNotParty", err)
	}
}

func TestCreateRoomIdempotent(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	session, err := fx.svc.Create(ctx, "monologue", fx.initiator, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	first, err := fx.svc.CreateRoom(ctx, session.ID, fx.initiator)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	second, err := fx.svc.CreateRoom(ctx, session.ID, fx.initiator)
	if err != nil {
		t.Fatalf("second CreateRoom: %v", err)
	}
	if first.RoomID == "" || first.RoomID != second.RoomID {
		t.Fatalf("room ids differ: %q vs %q", first.RoomID, second.RoomID)
	}
	if fx.rooms.calls != 1 {
		t.Fatalf("allocator called %d times, want 1", fx.rooms.calls)
	}
}

func TestCreateRoomConcurrent(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	session, err := fx.svc.Create(ctx, "monologue", fx.initiator, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	const callers = 8
	results := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := fx.svc.CreateRoom(ctx, session.ID, fx.initiator)
			if err == nil && s != nil {
				results[i] = s.RoomID
			}
		}(i)
	}
	wg.Wait()

	final, _ := fx.svc.Get(ctx, session.ID)
	if final.RoomID == "" {
		t.Fatal("no room was created")
	}
	for i, r := range results {
		if r != "" && r != final.RoomID {
			t.Fatalf("caller %d observed room %q, want %q", i, r, final.RoomID)
		}
	}
}

func TestReconcileAdvancesLazily(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	// Invite someone who registers and gets approved out of band, with no
	// hook firing. The next read must pick both changes up.
	session, err := fx.svc.Create(ctx, "conversation", fx.initiator, "partner@example.com")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	fx.users.add("partner@example.com", true)

	session, err = fx.svc.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if session.Status != models.StatusReadyToRecord || session.PartnerStatus != models.PartnerApproved {
		t.Fatalf("reconcile gave (%s, %s), want (ready_to_record, approved)", session.Status, session.PartnerStatus)
	}
	if session.PartnerID == nil {
		t.Fatal("partner id not resolved by reconcile")
	}
}

func TestReconcileNeverRegresses(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	session, err := fx.svc.Create(ctx, "conversation", fx.initiator, "partner@example.com")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	partnerID := fx.users.add("partner@example.com", true)
	_ = partnerID
	session, err = fx.svc.Get(ctx, session.ID)
	if err != nil || session.Status != models.StatusReadyToRecord {
		t.Fatalf("setup: status %s err %v", session.Status, err)
	}

	// The partner's approval flag flips back off; the session must not move
	// backward on the next read.
	fx.users.mu.Lock()
	fx.users.byEmail["partner@example.com"].Approved = false
	fx.users.mu.Unlock()

	session, err = fx.svc.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if session.Status != models.StatusReadyToRecord {
		t.Fatalf("status regressed to %s", session.Status)
	}
}

func TestReconcileFrozenAfterRoom(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	session, err := fx.svc.Create(ctx, "conversation", fx.initiator, "partner@example.com")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	fx.users.add("partner@example.com", true)
	session, err = fx.svc.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	session, err = fx.svc.CreateRoom(ctx, session.ID, fx.initiator)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := fx.svc.Complete(ctx, session.ID, fx.initiator); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	// Partner state churns after the room exists; reads must not disturb the
	// explicit status.
	fx.users.mu.Lock()
	fx.users.byEmail["partner@example.com"].Approved = false
	fx.users.mu.Unlock()

	session, err = fx.svc.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if session.Status != models.StatusPendingReview {
		t.Fatalf("status = %s, want %s", session.Status, models.StatusPendingReview)
	}
}

func TestSetReviewerStatusAndPaid(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	session, err := fx.svc.Create(ctx, "monologue", fx.initiator, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	session, err = fx.svc.SetReviewerStatus(ctx, session.ID, models.ReviewUnsure)
	if err != nil {
		t.Fatalf("SetReviewerStatus: %v", err)
	}
	if session.ReviewerStatus != models.ReviewUnsure {
		t.Fatalf("reviewer status = %s, want %s", session.ReviewerStatus, models.ReviewUnsure)
	}
	if session.Status != models.StatusReadyToRecord {
		t.Fatalf("verdict moved status to %s", session.Status)
	}

	session, err = fx.svc.SetPaid(ctx, session.ID, true)
	if err != nil {
		t.Fatalf("SetPaid: %v", err)
	}
	if !session.Paid {
		t.Fatal("paid flag not set")
	}
}
