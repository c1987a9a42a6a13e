package storage

import "testing"

func TestRawKey(t *testing.T) {
	t.Parallel()
	got := RawKey("room-1", "rec-1", "Take One.WEBM")
	if got != "raw/room-1/rec-1.webm" {
		t.Fatalf("RawKey = %q", got)
	}
}

func TestProcessedKeys(t *testing.T) {
	t.Parallel()
	if got := ProcessedWavKey("0042"); got != "processed/0042/0042.wav" {
		t.Fatalf("ProcessedWavKey = %q", got)
	}
	if got := ProcessedRawKey("0042", ".webm"); got != "processed/0042/0042.webm" {
		t.Fatalf("ProcessedRawKey = %q", got)
	}
	if got := ProcessedRawKey("0042", "webm"); got != "processed/0042/0042.webm" {
		t.Fatalf("ProcessedRawKey without dot = %q", got)
	}
}

func TestValidateAudioFileType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		contentType string
		filename    string
		want        bool
	}{
		{"audio/webm", "take.webm", true},
		{"video/webm", "take.webm", true},
		{"", "take.opus", true},
		{"application/pdf", "take.pdf", false},
		{"", "notes.txt", false},
		{"audio/mpeg", "unknown.bin", true},
	}
	for _, tt := range tests {
		if got := ValidateAudioFileType(tt.contentType, tt.filename); got != tt.want {
			t.Errorf("ValidateAudioFileType(%q, %q) = %v, want %v", tt.contentType, tt.filename, got, tt.want)
		}
	}
}

func TestContentTypeForFilename(t *testing.T) {
	t.Parallel()
	if got := ContentTypeForFilename("take.M4A"); got != "audio/mp4" {
		t.Fatalf("ContentTypeForFilename = %q", got)
	}
	if got := ContentTypeForFilename("blob"); got != "application/octet-stream" {
		t.Fatalf("ContentTypeForFilename fallback = %q", got)
	}
}
