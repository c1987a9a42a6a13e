// Package transcode converts raw captured audio into the canonical archival
// format by driving ffmpeg as a child process.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"
)

// Canonical PCM parameters: every archived take is 48 kHz mono 16-bit WAV
// regardless of the raw container/codec.
const (
	CanonicalSampleRate = 48000
	CanonicalChannels   = 1
)

// ErrTranscodeFailed wraps a non-zero ffmpeg exit. The caller must treat the
// recording as unprocessed and retryable.
var ErrTranscodeFailed = errors.New("transcode failed")

// FFmpeg runs the external transcoding process.
type FFmpeg struct {
	binary     string
	scratchDir string
	logger     *zap.Logger
}

// NewFFmpeg creates a transcoder. binary empty = "ffmpeg" from PATH;
// scratchDir empty = os.TempDir().
func NewFFmpeg(binary, scratchDir string, logger *zap.Logger) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpeg{binary: binary, scratchDir: scratchDir, logger: logger}
}

// ScratchDir returns a per-job scratch directory; the caller removes it on
// every exit path.
func (f *FFmpeg) ScratchDir(job string) (string, error) {
	dir := filepath.Join(f.scratchDir, "pairtalk-transcode")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	return os.MkdirTemp(dir, job+"-*")
}

// Args builds the ffmpeg invocation converting in to the canonical WAV at out.
func Args(in, out string) []string {
	return []string{
		"-i", in,
		"-ar", fmt.Sprintf("%d", CanonicalSampleRate),
		"-ac", fmt.Sprintf("%d", CanonicalChannels),
		"-c:a", "pcm_s16le",
		"-y",
		out,
	}
}

// ToCanonicalWAV transcodes the raw file at in to a canonical PCM WAV at out.
// stderr is buffered so a failure is diagnosable; a non-zero exit returns
// ErrTranscodeFailed and out is removed.
func (f *FFmpeg) ToCanonicalWAV(ctx context.Context, in, out string) error {
	cmd := exec.CommandContext(ctx, f.binary, Args(in, out)...)
	var stderr bytes.Buffer
	cmd.Stdout = nil
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(out)
		f.logger.Error("ffmpeg failed",
			zap.Error(err),
			zap.String("input", in),
			zap.String("stderr", tail(stderr.String(), 2048)))
		return fmt.Errorf("%w: %v", ErrTranscodeFailed, err)
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
