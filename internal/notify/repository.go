package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pairtalk/backend/internal/models"
)

// Repository handles invitation email log persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notify repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a pending invitation email log row.
func (r *Repository) Create(ctx context.Context, e *models.InviteEmail) error {
	const q = `INSERT INTO invite_emails (id, session_id, recipient, subject, body_html, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, e.SessionID, e.Recipient, e.Subject, e.BodyHTML, models.InviteEmailPending).
		Scan(&e.ID, &e.CreatedAt)
}

// GetByID returns an invitation email by ID, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.InviteEmail, error) {
	const q = `SELECT id, session_id, recipient, subject, body_html, status, COALESCE(error,''), sent_at, created_at
		FROM invite_emails WHERE id = $1`
	var e models.InviteEmail
	err := r.pool.QueryRow(ctx, q, id).Scan(&e.ID, &e.SessionID, &e.Recipient, &e.Subject, &e.BodyHTML,
		&e.Status, &e.Error, &e.SentAt, &e.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// MarkSent records successful delivery.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE invite_emails SET status = $1, error = NULL, sent_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, models.InviteEmailSent, id)
	return err
}

// MarkFailed records a delivery failure.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	const q = `UPDATE invite_emails SET status = $1, error = $2 WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, models.InviteEmailFailed, reason, id)
	return err
}
