// Package capture coordinates the dual-track audio capture of one take:
// the local microphone plus, when present, the remote party's conference
// track. Both recorders start back to back and are joined on stop so a
// take is never surfaced with a half-flushed track.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pairtalk/backend/internal/models"
)

// State is the capture lifecycle state of a single take.
type State string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateStopping     State = "stopping"
	StateReady        State = "ready_to_upload"
	StateUploading    State = "uploading"
	StateUploaded     State = "uploaded"
	StateUploadFailed State = "upload_failed"
	StateFailed       State = "failed"
)

var (
	ErrNotIdle      = errors.New("capture already in progress")
	ErrNotRecording = errors.New("no capture in progress")
	ErrNotReady     = errors.New("no take ready to upload")
	ErrNotAudio     = errors.New("track source is not audio")
)

const (
	uploadMaxAttempts = 3
	uploadBackoff     = 200 * time.Millisecond
)

// TrackSource delivers media samples for one audio track. ReadSample blocks
// until a sample is available, returns io.EOF when the track ends, and must
// honor ctx cancellation.
type TrackSource interface {
	Kind() webrtc.RTPCodecType
	MimeType() string
	ReadSample(ctx context.Context) (media.Sample, error)
}

// Blob is one flushed track of a take, tagged with its speaker slot.
type Blob struct {
	SpeakerID string
	MimeType  string
	Data      []byte
	Duration  time.Duration
}

// Uploader sends a finished take to the backend. All blobs of one take go
// up as a unit.
type Uploader interface {
	UploadTake(ctx context.Context, blobs []Blob) error
}

type trackRecorder struct {
	source  TrackSource
	speaker string
	buf     bytes.Buffer
	dur     time.Duration
}

// run buffers samples until the source ends or recCtx is cancelled by Stop.
// Any other read error fails the whole take.
func (r *trackRecorder) run(recCtx context.Context) error {
	for {
		sample, err := r.source.ReadSample(recCtx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("track %s: %w", r.speaker, err)
		}
		r.buf.Write(sample.Data)
		r.dur += sample.Duration
	}
}

func (r *trackRecorder) blob() Blob {
	return Blob{
		SpeakerID: r.speaker,
		MimeType:  r.source.MimeType(),
		Data:      r.buf.Bytes(),
		Duration:  r.dur,
	}
}

// Controller runs one take at a time through
// idle -> recording -> stopping -> ready_to_upload -> uploading ->
// uploaded | upload_failed. A recorder error moves the take to failed;
// Reset returns either terminal state to idle.
type Controller struct {
	uploader Uploader
	logger   *zap.Logger

	mu        sync.Mutex
	state     State
	recorders []*trackRecorder
	cancelRec context.CancelFunc
	group     *errgroup.Group
	blobs     []Blob
}

// NewController creates an idle capture controller.
func NewController(uploader Uploader, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{uploader: uploader, logger: logger, state: StateIdle}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins buffering the local track and, when remote is non-nil, the
// remote track in lockstep. A nil remote is the degraded local-only mode:
// the partner may join audio after recording has begun.
func (c *Controller) Start(ctx context.Context, local TrackSource, remote TrackSource) error {
	if local == nil {
		return errors.New("local track source required")
	}
	if local.Kind() != webrtc.RTPCodecTypeAudio {
		return ErrNotAudio
	}
	if remote != nil && remote.Kind() != webrtc.RTPCodecTypeAudio {
		return ErrNotAudio
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return ErrNotIdle
	}

	recorders := []*trackRecorder{{source: local, speaker: models.SpeakerLocal}}
	if remote != nil {
		recorders = append(recorders, &trackRecorder{source: remote, speaker: models.SpeakerRemote})
	}

	recCtx, cancel := context.WithCancel(ctx)
	g, recCtx := errgroup.WithContext(recCtx)
	for _, r := range recorders {
		r := r
		g.Go(func() error { return r.run(recCtx) })
	}

	c.state = StateRecording
	c.recorders = recorders
	c.cancelRec = cancel
	c.group = g
	c.blobs = nil
	c.logger.Info("capture started", zap.Int("tracks", len(recorders)))
	return nil
}

// Stop ends the take and waits for every active recorder to flush. Only
// after the join does the take become ready. A recorder error fails the
// whole take: no partial blobs survive. A Cancel that lands while the
// flush is in progress wins; the take stays discarded and Stop returns
// no blobs.
func (c *Controller) Stop(ctx context.Context) ([]Blob, error) {
	c.mu.Lock()
	if c.state != StateRecording {
		c.mu.Unlock()
		return nil, ErrNotRecording
	}
	c.state = StateStopping
	cancel := c.cancelRec
	g := c.group
	recorders := c.recorders
	c.mu.Unlock()

	cancel()
	err := g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateStopping {
		// A Cancel landed during the flush and discarded the take.
		return nil, nil
	}
	c.cancelRec = nil
	c.group = nil
	c.recorders = nil
	if err != nil {
		c.state = StateFailed
		c.logger.Error("capture failed", zap.Error(err))
		return nil, err
	}

	blobs := make([]Blob, 0, len(recorders))
	for _, r := range recorders {
		blobs = append(blobs, r.blob())
	}
	c.blobs = blobs
	c.state = StateReady
	c.logger.Info("take ready", zap.Int("tracks", len(blobs)))
	return blobs, nil
}

// Cancel aborts the take and discards every buffer without uploading.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateRecording, StateStopping:
		if c.cancelRec != nil {
			c.cancelRec()
		}
		if c.group != nil {
			_ = c.group.Wait()
		}
	case StateReady, StateUploadFailed:
		// discard the retained blobs
	default:
		return ErrNotRecording
	}
	c.cancelRec = nil
	c.group = nil
	c.recorders = nil
	c.blobs = nil
	c.state = StateIdle
	c.logger.Info("capture cancelled")
	return nil
}

// Upload sends the ready take to the backend with bounded retry. On
// failure the blobs stay retained so a later Upload call reuses them
// without re-recording.
func (c *Controller) Upload(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateReady && c.state != StateUploadFailed {
		c.mu.Unlock()
		return ErrNotReady
	}
	c.state = StateUploading
	blobs := c.blobs
	c.mu.Unlock()

	var err error
	backoff := uploadBackoff
	for attempt := 1; attempt <= uploadMaxAttempts; attempt++ {
		if err = c.uploader.UploadTake(ctx, blobs); err == nil {
			break
		}
		c.logger.Warn("take upload failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt < uploadMaxAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				err = ctx.Err()
				attempt = uploadMaxAttempts
			}
			backoff *= 2
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateUploadFailed
		return fmt.Errorf("upload take: %w", err)
	}
	c.blobs = nil
	c.state = StateUploaded
	return nil
}

// Reset returns a terminal controller (uploaded or failed) to idle for the
// next take.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateUploaded || c.state == StateFailed {
		c.blobs = nil
		c.state = StateIdle
	}
}
