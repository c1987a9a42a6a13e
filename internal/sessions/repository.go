package sessions

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pairtalk/backend/internal/models"
)

const sessionColumns = `id, task_type_id, user_id, partner_id, COALESCE(partner_email,''),
	partner_status, status, COALESCE(room_id,''), COALESCE(reviewer_status,''), paid, created_at, updated_at`

// Repository handles task-session persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanSession(row pgx.Row) (*models.TaskSession, error) {
	var s models.TaskSession
	err := row.Scan(&s.ID, &s.TaskTypeID, &s.UserID, &s.PartnerID, &s.PartnerEmail,
		&s.PartnerStatus, &s.Status, &s.RoomID, &s.ReviewerStatus, &s.Paid, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new session.
func (r *Repository) Create(ctx context.Context, s *models.TaskSession) error {
	const q = `INSERT INTO task_sessions (id, task_type_id, user_id, partner_email, partner_status, status)
		VALUES (gen_random_uuid(), $1, $2, NULLIF($3,''), $4, $5)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, s.TaskTypeID, s.UserID, s.PartnerEmail, s.PartnerStatus, s.Status).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// GetByID returns a session by ID, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.TaskSession, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM task_sessions WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// FindActiveByUserAndType returns the initiator's non-completed session of the
// task type, if any (idempotent create).
func (r *Repository) FindActiveByUserAndType(ctx context.Context, userID uuid.UUID, taskTypeID string) (*models.TaskSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM task_sessions
		WHERE user_id = $1 AND task_type_id = $2 AND status <> $3
		ORDER BY created_at DESC LIMIT 1`
	s, err := scanSession(r.pool.QueryRow(ctx, q, userID, taskTypeID, models.StatusCompleted))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// ListByUser returns all sessions where the user is initiator or partner.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.TaskSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM task_sessions
		WHERE user_id = $1 OR partner_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, q, userID)
}

// ListByStatus returns all sessions in the given status (admin review queue).
func (r *Repository) ListByStatus(ctx context.Context, status models.SessionStatus) ([]models.TaskSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM task_sessions WHERE status = $1 ORDER BY updated_at ASC`
	return r.list(ctx, q, status)
}

// FindByPartnerEmailUnresolved returns sessions inviting this email whose
// partner account has not been resolved yet.
func (r *Repository) FindByPartnerEmailUnresolved(ctx context.Context, email string) ([]models.TaskSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM task_sessions
		WHERE lower(partner_email) = lower($1) AND partner_id IS NULL`
	return r.list(ctx, q, email)
}

// FindByPartnerID returns sessions whose resolved partner is the user.
func (r *Repository) FindByPartnerID(ctx context.Context, partnerID uuid.UUID) ([]models.TaskSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM task_sessions WHERE partner_id = $1`
	return r.list(ctx, q, partnerID)
}

func (r *Repository) list(ctx context.Context, q string, args ...any) ([]models.TaskSession, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.TaskSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// UpdatePartner sets the resolved partner and the matching statuses.
func (r *Repository) UpdatePartner(ctx context.Context, id uuid.UUID, partnerID *uuid.UUID, email string, ps models.PartnerStatus, status models.SessionStatus) error {
	const q = `UPDATE task_sessions SET partner_id = $1, partner_email = NULLIF($2,''),
		partner_status = $3, status = $4, updated_at = NOW() WHERE id = $5`
	_, err := r.pool.Exec(ctx, q, partnerID, email, ps, status, id)
	return err
}

// ClaimRoom sets room_id if and only if it is still unset. Returns whether
// this call claimed it; a concurrent createRoom loses the claim and re-reads.
func (r *Repository) ClaimRoom(ctx context.Context, id uuid.UUID, roomID string) (bool, error) {
	const q = `UPDATE task_sessions SET room_id = $1, status = $2, updated_at = NOW()
		WHERE id = $3 AND room_id IS NULL`
	tag, err := r.pool.Exec(ctx, q, roomID, models.StatusRoomCreated, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateStatus sets the session status only if it still holds the value the
// transition was computed from. Returns whether the write applied, so a lost
// race surfaces instead of overwriting a concurrent transition.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.SessionStatus) (bool, error) {
	const q = `UPDATE task_sessions SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	tag, err := r.pool.Exec(ctx, q, to, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetReviewerStatus sets the admin review verdict without touching status.
func (r *Repository) SetReviewerStatus(ctx context.Context, id uuid.UUID, rs models.ReviewerStatus) error {
	const q = `UPDATE task_sessions SET reviewer_status = NULLIF($1,''), updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, rs, id)
	return err
}

// SetPaid sets the paid flag without touching status.
func (r *Repository) SetPaid(ctx context.Context, id uuid.UUID, paid bool) error {
	const q = `UPDATE task_sessions SET paid = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, paid, id)
	return err
}
