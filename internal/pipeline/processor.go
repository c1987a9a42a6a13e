// Package pipeline turns raw uploaded tracks into canonical archival
// artifacts: download, transcode, upload the canonical WAV, archive the raw
// original next to it, persist the descriptor once.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pairtalk/backend/internal/folders"
	"github.com/pairtalk/backend/internal/models"
	"github.com/pairtalk/backend/pkg/storage"
)

// ErrRecordingNotFound is returned when the recording row does not exist.
var ErrRecordingNotFound = errors.New("recording not found")

const (
	uploadAttempts = 3
	uploadBackoff  = 500 * time.Millisecond
)

// RecordingStore is the slice of recording persistence the pipeline needs.
type RecordingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error)
	SetProcessed(ctx context.Context, id uuid.UUID, folder, wavKey string) (bool, error)
	FindSiblingUnprocessed(ctx context.Context, roomID string, excludeID uuid.UUID) (*models.Recording, error)
	FindSiblingProcessed(ctx context.Context, roomID string, excludeID uuid.UUID) (*models.Recording, error)
	WithRoomLock(ctx context.Context, roomID string, fn func(context.Context) error) error
}

// ObjectStore is the object-storage slice the pipeline needs.
type ObjectStore interface {
	DownloadToFile(ctx context.Context, key, dst string) error
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) error
	Copy(ctx context.Context, srcKey, dstKey string) error
}

// Transcoder converts a raw file into the canonical WAV.
type Transcoder interface {
	ScratchDir(job string) (string, error)
	ToCanonicalWAV(ctx context.Context, in, out string) error
}

// Processor orchestrates recording processing.
type Processor struct {
	store     RecordingStore
	objects   ObjectStore
	transcode Transcoder
	allocator folders.Allocator
	logger    *zap.Logger
}

// NewProcessor creates a recording processor.
func NewProcessor(store RecordingStore, objects ObjectStore, tc Transcoder, alloc folders.Allocator, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{store: store, objects: objects, transcode: tc, allocator: alloc, logger: logger}
}

// Process transcodes and archives one recording. folderOverride > 0 forces the
// archival folder (second track of a take); 0 allocates the next folder.
// Re-invoking on an already-processed recording is a no-op returning the
// existing descriptor. Any failure before the final persist leaves the row
// exactly as it was, so a retry of the same call is always safe.
func (p *Processor) Process(ctx context.Context, recordingID uuid.UUID, folderOverride int) (*models.Recording, error) {
	rec, err := p.store.GetByID(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordingNotFound, recordingID)
	}
	if rec.Processed() {
		return rec, nil
	}

	folderNum := folderOverride
	if folderNum <= 0 {
		// A second track always joins its already-archived sibling's folder
		// instead of allocating a new one.
		sibling, err := p.store.FindSiblingProcessed(ctx, rec.RoomID, rec.ID)
		if err != nil {
			return nil, err
		}
		if sibling != nil {
			folderNum, err = strconv.Atoi(sibling.ProcessedFolder)
			if err != nil {
				return nil, fmt.Errorf("parse sibling folder %q: %w", sibling.ProcessedFolder, err)
			}
		} else {
			folderNum, err = p.allocator.Next(ctx)
			if err != nil {
				return nil, fmt.Errorf("allocate folder: %w", err)
			}
		}
	}
	folder := folders.Format(folderNum)

	scratch, err := p.transcode.ScratchDir(rec.ID.String())
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)

	rawExt := path.Ext(rec.RawKey)
	rawPath := filepath.Join(scratch, "raw"+rawExt)
	wavPath := filepath.Join(scratch, folder+".wav")

	if err := p.objects.DownloadToFile(ctx, rec.RawKey, rawPath); err != nil {
		return nil, fmt.Errorf("download raw: %w", err)
	}
	if err := p.transcode.ToCanonicalWAV(ctx, rawPath, wavPath); err != nil {
		return nil, err
	}

	wavKey := storage.ProcessedWavKey(folder)
	if err := p.uploadFile(ctx, wavKey, wavPath); err != nil {
		return nil, fmt.Errorf("upload canonical: %w", err)
	}
	if err := p.copyRaw(ctx, rec.RawKey, storage.ProcessedRawKey(folder, rawExt)); err != nil {
		return nil, fmt.Errorf("archive raw: %w", err)
	}

	claimed, err := p.store.SetProcessed(ctx, rec.ID, folder, wavKey)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// A concurrent process finished first; its descriptor wins.
		return p.store.GetByID(ctx, rec.ID)
	}

	p.logger.Info("recording processed",
		zap.String("recording_id", rec.ID.String()),
		zap.String("folder", folder),
		zap.String("wav_key", wavKey))

	updated := *rec
	updated.ProcessedFolder = folder
	updated.WavKey = wavKey
	updated.Status = models.RecordingStatusProcessed
	return &updated, nil
}

// ProcessTake processes one track and, when the take has a second uploaded
// track, processes it into the same archival folder. The first track
// allocates the folder; the sibling receives it as an override. A one-track
// take is complete on its own. The work runs under a per-room lock so the
// two tracks of one take never allocate separate folders when their jobs
// land on different worker instances.
func (p *Processor) ProcessTake(ctx context.Context, recordingID uuid.UUID) (*models.Recording, error) {
	rec, err := p.store.GetByID(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordingNotFound, recordingID)
	}
	var out *models.Recording
	if err := p.store.WithRoomLock(ctx, rec.RoomID, func(ctx context.Context) error {
		var err error
		out, err = p.processTake(ctx, recordingID)
		return err
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Processor) processTake(ctx context.Context, recordingID uuid.UUID) (*models.Recording, error) {
	rec, err := p.Process(ctx, recordingID, 0)
	if err != nil {
		return nil, err
	}
	folderNum, err := strconv.Atoi(rec.ProcessedFolder)
	if err != nil {
		return nil, fmt.Errorf("parse folder %q: %w", rec.ProcessedFolder, err)
	}
	sibling, err := p.store.FindSiblingUnprocessed(ctx, rec.RoomID, rec.ID)
	if err != nil {
		return nil, err
	}
	if sibling != nil {
		if _, err := p.Process(ctx, sibling.ID, folderNum); err != nil {
			return nil, fmt.Errorf("process sibling track: %w", err)
		}
	}
	return rec, nil
}

func (p *Processor) uploadFile(ctx context.Context, key, path string) error {
	return p.withRetry(ctx, func() error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		return p.objects.Upload(ctx, key, "audio/wav", f, info.Size())
	})
}

func (p *Processor) copyRaw(ctx context.Context, srcKey, dstKey string) error {
	return p.withRetry(ctx, func() error {
		return p.objects.Copy(ctx, srcKey, dstKey)
	})
}

// withRetry retries transient storage I/O with exponential backoff and a
// small fixed attempt cap.
func (p *Processor) withRetry(ctx context.Context, fn func() error) error {
	var err error
	backoff := uploadBackoff
	for attempt := 0; attempt < uploadAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if err = fn(); err == nil {
			return nil
		}
		p.logger.Warn("storage I/O retry", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return err
}
