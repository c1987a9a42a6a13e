package models

import (
	"time"

	"github.com/google/uuid"
)

// RecordingType identifies how a track was captured.
const (
	RecordingTypeLocal  = "local"
	RecordingTypeRemote = "remote"
	RecordingTypeCloud  = "cloud"
)

// Speaker slot labels distinguishing simultaneous tracks of one take.
const (
	SpeakerLocal  = "spk0"
	SpeakerRemote = "spk1"
)

// Recording lifecycle. The row is created when an upload URL is issued,
// before any bytes exist in storage.
const (
	RecordingStatusPendingUpload = "pending_upload"
	RecordingStatusUploaded      = "uploaded"
	RecordingStatusProcessed     = "processed"
)

// Recording is one captured audio track. Two simultaneous tracks of the same
// take share a room and, once processed, a processed folder. ProcessedFolder
// and WavKey are set together exactly once.
type Recording struct {
	ID            uuid.UUID `json:"id"`
	RoomID        string    `json:"room_id"`
	UserID        uuid.UUID `json:"user_id"`
	RecordingType string    `json:"recording_type"`
	SpeakerID     string    `json:"speaker_id,omitempty"`

	// Raw artifact descriptor (client-reported, not re-verified server-side).
	FileName   string  `json:"file_name"`
	RawKey     string  `json:"raw_key"`
	Format     string  `json:"format"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Duration   float64 `json:"duration"`
	FileSize   int64   `json:"file_size"`

	// Processed artifact descriptor.
	ProcessedFolder string `json:"processed_folder,omitempty"`
	WavKey          string `json:"wav_key,omitempty"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Processed reports whether the canonical artifact exists.
func (r *Recording) Processed() bool {
	return r.ProcessedFolder != ""
}
