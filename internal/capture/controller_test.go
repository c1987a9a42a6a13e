package capture

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
)

type fakeSource struct {
	kind    webrtc.RTPCodecType
	samples chan media.Sample
	readErr error
}

func newFakeSource(chunks ...string) *fakeSource {
	s := &fakeSource{
		kind:    webrtc.RTPCodecTypeAudio,
		samples: make(chan media.Sample, len(chunks)),
	}
	for _, c := range chunks {
		s.samples <- media.Sample{Data: []byte(c), Duration: 20 * time.Millisecond}
	}
	close(s.samples)
	return s
}

func (s *fakeSource) Kind() webrtc.RTPCodecType { return s.kind }
func (s *fakeSource) MimeType() string          { return "audio/opus" }

func (s *fakeSource) ReadSample(ctx context.Context) (media.Sample, error) {
	if s.readErr != nil {
		return media.Sample{}, s.readErr
	}
	select {
	case <-ctx.Done():
		return media.Sample{}, ctx.Err()
	case sample, ok := <-s.samples:
		if !ok {
			// drained; block until stop like a live track would
			<-ctx.Done()
			return media.Sample{}, ctx.Err()
		}
		return sample, nil
	}
}

type fakeUploader struct {
	mu       sync.Mutex
	failures int
	takes    [][]Blob
}

func (u *fakeUploader) UploadTake(_ context.Context, blobs []Blob) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.failures > 0 {
		u.failures--
		return errors.New("backend unavailable")
	}
	u.takes = append(u.takes, blobs)
	return nil
}

func blobBySpeaker(blobs []Blob, speaker string) *Blob {
	for i := range blobs {
		if blobs[i].SpeakerID == speaker {
			return &blobs[i]
		}
	}
	return nil
}

func TestDualTrackTake(t *testing.T) {
	t.Parallel()
	uploader := &fakeUploader{}
	c := NewController(uploader, nil)
	ctx := context.Background()

	local := newFakeSource("aa", "bb")
	remote := newFakeSource("cc")
	if err := c.Start(ctx, local, remote); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.State() != StateRecording {
		t.Fatalf("state = %s, want %s", c.State(), StateRecording)
	}

	// Give both recorders time to drain their buffered samples.
	time.Sleep(50 * time.Millisecond)
	blobs, err := c.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(blobs) != 2 {
		t.Fatalf("got %d blobs, want 2", len(blobs))
	}
	lb := blobBySpeaker(blobs, "spk0")
	rb := blobBySpeaker(blobs, "spk1")
	if lb == nil || rb == nil {
		t.Fatalf("missing speaker blob: %+v", blobs)
	}
	if !bytes.Equal(lb.Data, []byte("aabb")) {
		t.Fatalf("local blob = %q", lb.Data)
	}
	if !bytes.Equal(rb.Data, []byte("cc")) {
		t.Fatalf("remote blob = %q", rb.Data)
	}
	if lb.Duration != 40*time.Millisecond || rb.Duration != 20*time.Millisecond {
		t.Fatalf("durations = %v / %v", lb.Duration, rb.Duration)
	}
	if c.State() != StateReady {
		t.Fatalf("state = %s, want %s", c.State(), StateReady)
	}

	if err := c.Upload(ctx); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if c.State() != StateUploaded {
		t.Fatalf("state = %s, want %s", c.State(), StateUploaded)
	}
	if len(uploader.takes) != 1 || len(uploader.takes[0]) != 2 {
		t.Fatalf("uploader received %+v", uploader.takes)
	}
}

func TestLocalOnlyTake(t *testing.T) {
	t.Parallel()
	c := NewController(&fakeUploader{}, nil)
	ctx := context.Background()

	if err := c.Start(ctx, newFakeSource("solo"), nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	blobs, err := c.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(blobs) != 1 || blobs[0].SpeakerID != "spk0" {
		t.Fatalf("blobs = %+v, want one spk0 blob", blobs)
	}
}

func TestRecorderErrorFailsClosed(t *testing.T) {
	t.Parallel()
	c := NewController(&fakeUploader{}, nil)
	ctx := context.Background()

	broken := &fakeSource{kind: webrtc.RTPCodecTypeAudio, readErr: errors.New("device lost")}
	if err := c.Start(ctx, broken, newFakeSource("cc")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	blobs, err := c.Stop(ctx)
	if err == nil {
		t.Fatal("Stop succeeded despite recorder error")
	}
	if blobs != nil {
		t.Fatalf("partial take surfaced: %+v", blobs)
	}
	if c.State() != StateFailed {
		t.Fatalf("state = %s, want %s", c.State(), StateFailed)
	}
	if err := c.Upload(ctx); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Upload err = %v, want ErrNotReady", err)
	}

	// The whole take is retryable after a reset.
	c.Reset()
	if c.State() != StateIdle {
		t.Fatalf("state after Reset = %s", c.State())
	}
}

func TestCancelDiscardsBuffers(t *testing.T) {
	t.Parallel()
	uploader := &fakeUploader{}
	c := NewController(uploader, nil)
	ctx := context.Background()

	if err := c.Start(ctx, newFakeSource("aa"), nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %s, want %s", c.State(), StateIdle)
	}
	if err := c.Upload(ctx); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Upload err = %v, want ErrNotReady", err)
	}
	if len(uploader.takes) != 0 {
		t.Fatalf("cancelled take was uploaded: %+v", uploader.takes)
	}
}

// slowFlushSource keeps flushing for flushDelay after the recording context
// is cancelled, holding the take in the stopping state.
type slowFlushSource struct {
	flushDelay time.Duration
}

func (s *slowFlushSource) Kind() webrtc.RTPCodecType { return webrtc.RTPCodecTypeAudio }
func (s *slowFlushSource) MimeType() string          { return "audio/opus" }

func (s *slowFlushSource) ReadSample(ctx context.Context) (media.Sample, error) {
	<-ctx.Done()
	time.Sleep(s.flushDelay)
	return media.Sample{}, ctx.Err()
}

func TestCancelDuringStopDiscardsTake(t *testing.T) {
	t.Parallel()
	uploader := &fakeUploader{}
	c := NewController(uploader, nil)
	ctx := context.Background()

	if err := c.Start(ctx, &slowFlushSource{flushDelay: 150 * time.Millisecond}, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var stopBlobs []Blob
	var stopErr error
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		stopBlobs, stopErr = c.Stop(ctx)
	}()

	for c.State() != StateStopping {
		time.Sleep(5 * time.Millisecond)
	}
	if err := c.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	<-stopped

	if stopErr != nil {
		t.Fatalf("Stop: %v", stopErr)
	}
	if stopBlobs != nil {
		t.Fatalf("cancelled take surfaced blobs: %+v", stopBlobs)
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %s, want %s", c.State(), StateIdle)
	}
	if err := c.Upload(ctx); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Upload err = %v, want ErrNotReady", err)
	}
	if len(uploader.takes) != 0 {
		t.Fatalf("cancelled take was uploaded: %+v", uploader.takes)
	}
}

func TestUploadRetryReusesBlobs(t *testing.T) {
	t.Parallel()
	uploader := &fakeUploader{failures: 3}
	c := NewController(uploader, nil)
	ctx := context.Background()

	if err := c.Start(ctx, newFakeSource("take-one"), nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// Every attempt fails; the blobs must survive for a later retry.
	if err := c.Upload(ctx); err == nil {
		t.Fatal("Upload succeeded with backend down")
	}
	if c.State() != StateUploadFailed {
		t.Fatalf("state = %s, want %s", c.State(), StateUploadFailed)
	}

	if err := c.Upload(ctx); err != nil {
		t.Fatalf("retry Upload: %v", err)
	}
	if len(uploader.takes) != 1 {
		t.Fatalf("uploader received %d takes, want 1", len(uploader.takes))
	}
	if !bytes.Equal(uploader.takes[0][0].Data, []byte("take-one")) {
		t.Fatalf("retried blob = %q", uploader.takes[0][0].Data)
	}
}

func TestStartWhileRecording(t *testing.T) {
	t.Parallel()
	c := NewController(&fakeUploader{}, nil)
	ctx := context.Background()

	if err := c.Start(ctx, newFakeSource("aa"), nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Start(ctx, newFakeSource("bb"), nil); !errors.Is(err, ErrNotIdle) {
		t.Fatalf("second Start err = %v, want ErrNotIdle", err)
	}
	if _, err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestRejectsNonAudioTrack(t *testing.T) {
	t.Parallel()
	c := NewController(&fakeUploader{}, nil)

	video := &fakeSource{kind: webrtc.RTPCodecTypeVideo, samples: make(chan media.Sample)}
	if err := c.Start(context.Background(), video, nil); !errors.Is(err, ErrNotAudio) {
		t.Fatalf("err = %v, want ErrNotAudio", err)
	}
}
