package models

import (
	"time"

	"github.com/google/uuid"
)

// RecordingStatus represents recording lifecycle. A recording only moves
// forward (recording → completed/failed, completed → available) and never
// returns to recording.
const (
	RecordingStatusRecording  = "recording"
	RecordingStatusProcessing = "processing"
	RecordingStatusAvailable  = "available"
	RecordingStatusFailed     = "failed"
	RecordingStatusDeleted    = "deleted"
	RecordingStatusCompleted  = "completed"
)

// Recording is one provider-side archive tied to a meeting session.
type Recording struct {
	ID              uuid.UUID  `json:"id"`
	MeetingID       uuid.UUID  `json:"meeting_id"`
	SessionID       string     `json:"session_id"`
	ArchiveID       string     `json:"archive_id"`
	FileName        string     `json:"file_name,omitempty"`
	FileURL         string     `json:"file_url,omitempty"`
	FileSizeBytes   int64      `json:"file_size_bytes"`
	DurationSeconds int        `json:"duration_seconds"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Status          string     `json:"status"`
}

// IsInProgress reports whether the archive is still being captured.
func (r *Recording) IsInProgress() bool { return r.Status == RecordingStatusRecording }
