package recordings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pairtalk/backend/internal/models"
)

const recordingColumns = `id, room_id, user_id, recording_type, COALESCE(speaker_id,''),
	file_name, raw_key, COALESCE(format,''), sample_rate, channels, duration, file_size,
	COALESCE(processed_folder,''), COALESCE(wav_key,''), status, created_at, updated_at`

// Repository handles recording persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a recordings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanRecording(row pgx.Row) (*models.Recording, error) {
	var rec models.Recording
	err := row.Scan(&rec.ID, &rec.RoomID, &rec.UserID, &rec.RecordingType, &rec.SpeakerID,
		&rec.FileName, &rec.RawKey, &rec.Format, &rec.SampleRate, &rec.Channels, &rec.Duration, &rec.FileSize,
		&rec.ProcessedFolder, &rec.WavKey, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts a new recording row (metadata written before bytes exist in storage).
func (r *Repository) Create(ctx context.Context, rec *models.Recording) error {
	const q = `INSERT INTO recordings (id, room_id, user_id, recording_type, speaker_id,
			file_name, raw_key, format, sample_rate, channels, duration, file_size, status)
		VALUES (gen_random_uuid(), $1, $2, $3, NULLIF($4,''), $5, $6, NULLIF($7,''), $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, rec.RoomID, rec.UserID, rec.RecordingType, rec.SpeakerID,
		rec.FileName, rec.RawKey, rec.Format, rec.SampleRate, rec.Channels, rec.Duration, rec.FileSize, rec.Status).
		Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
}

// GetByID returns a recording by ID, or nil if absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	rec, err := scanRecording(r.pool.QueryRow(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// ListByRoom returns all recordings captured in a room, oldest first.
func (r *Repository) ListByRoom(ctx context.Context, roomID string) ([]models.Recording, error) {
	const q = `SELECT ` + recordingColumns + ` FROM recordings WHERE room_id = $1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *rec)
	}
	return list, rows.Err()
}

// MarkUploaded records that the raw bytes arrived in storage.
func (r *Repository) MarkUploaded(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE recordings SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	_, err := r.pool.Exec(ctx, q, models.RecordingStatusUploaded, id, models.RecordingStatusPendingUpload)
	return err
}

// SetProcessed persists the processed descriptor if and only if the recording
// has not been processed yet. Returns whether this call claimed it, so a
// concurrent second process observes the first result instead of overwriting.
func (r *Repository) SetProcessed(ctx context.Context, id uuid.UUID, folder, wavKey string) (bool, error) {
	const q = `UPDATE recordings SET processed_folder = $1, wav_key = $2, status = $3, updated_at = NOW()
		WHERE id = $4 AND processed_folder IS NULL`
	tag, err := r.pool.Exec(ctx, q, folder, wavKey, models.RecordingStatusProcessed, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// FindSiblingUnprocessed returns the other uploaded-but-unprocessed track of
// the same take, if any (the remote track of a two-track capture).
func (r *Repository) FindSiblingUnprocessed(ctx context.Context, roomID string, excludeID uuid.UUID) (*models.Recording, error) {
	const q = `SELECT ` + recordingColumns + ` FROM recordings
		WHERE room_id = $1 AND id <> $2 AND status = $3 AND processed_folder IS NULL
		ORDER BY created_at ASC LIMIT 1`
	rec, err := scanRecording(r.pool.QueryRow(ctx, q, roomID, excludeID, models.RecordingStatusUploaded))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// FindSiblingProcessed returns the already-archived other track of the same
// take, if any, so a late track joins its folder instead of allocating one.
func (r *Repository) FindSiblingProcessed(ctx context.Context, roomID string, excludeID uuid.UUID) (*models.Recording, error) {
	const q = `SELECT ` + recordingColumns + ` FROM recordings
		WHERE room_id = $1 AND id <> $2 AND processed_folder IS NOT NULL
		ORDER BY updated_at DESC LIMIT 1`
	rec, err := scanRecording(r.pool.QueryRow(ctx, q, roomID, excludeID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// WithRoomLock runs fn while holding a room-scoped advisory lock, serializing
// take processing across the server's in-process worker and cmd/worker
// instances consuming the same queue.
func (r *Repository) WithRoomLock(ctx context.Context, roomID string, fn func(context.Context) error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn for room lock: %w", err)
	}
	defer conn.Release()
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtext($1))`, roomID); err != nil {
		return fmt.Errorf("acquire room lock: %w", err)
	}
	defer conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock(hashtext($1))`, roomID)
	return fn(ctx)
}
