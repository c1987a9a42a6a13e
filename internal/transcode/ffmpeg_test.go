package transcode

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestArgs(t *testing.T) {
	t.Parallel()
	got := Args("/tmp/in.webm", "/tmp/out.wav")
	want := []string{"-i", "/tmp/in.webm", "-ar", "48000", "-ac", "1", "-c:a", "pcm_s16le", "-y", "/tmp/out.wav"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Args = %v, want %v", got, want)
	}
}

func TestScratchDirIsolatesJobs(t *testing.T) {
	t.Parallel()
	f := NewFFmpeg("", t.TempDir(), nil)

	a, err := f.ScratchDir("job-a")
	if err != nil {
		t.Fatalf("ScratchDir: %v", err)
	}
	b, err := f.ScratchDir("job-a")
	if err != nil {
		t.Fatalf("second ScratchDir: %v", err)
	}
	if a == b {
		t.Fatalf("same scratch dir handed to two jobs: %q", a)
	}
	if !strings.HasPrefix(filepath.Base(a), "job-a-") {
		t.Fatalf("scratch dir %q not tagged with job", a)
	}
}

func TestTail(t *testing.T) {
	t.Parallel()
	if got := tail("hello", 10); got != "hello" {
		t.Fatalf("tail short = %q", got)
	}
	if got := tail("hello world", 5); got != "world" {
		t.Fatalf("tail long = %q", got)
	}
}
