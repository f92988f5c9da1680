package models

import (
	"time"

	"github.com/google/uuid"
)

// MeetingStatus represents meeting lifecycle state.
const (
	MeetingStatusScheduled = "scheduled"
	MeetingStatusActive    = "active"
	MeetingStatusEnded     = "ended"
	MeetingStatusCancelled = "cancelled"
)

// DefaultMaxParticipants bounds a meeting when the creator does not set a capacity.
const DefaultMaxParticipants = 15

// Meeting represents a scheduled or in-progress video room.
type Meeting struct {
	ID                     uuid.UUID  `json:"id"`
	Title                  string     `json:"title"`
	Description            string     `json:"description,omitempty"`
	RoomCode               string     `json:"room_code"`
	SessionID              string     `json:"session_id,omitempty"` // provider session, empty until first host joins
	ScheduledAt            time.Time  `json:"scheduled_at"`
	StartedAt              *time.Time `json:"started_at,omitempty"`
	EndedAt                *time.Time `json:"ended_at,omitempty"`
	IsRecordingEnabled     bool       `json:"is_recording_enabled"`
	IsScreenSharingEnabled bool       `json:"is_screen_sharing_enabled"`
	MaxParticipants        int        `json:"max_participants"`
	Status                 string     `json:"status"`
	CreatedBy              uuid.UUID  `json:"created_by"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// IsActive reports whether the meeting is currently in progress.
func (m *Meeting) IsActive() bool { return m.Status == MeetingStatusActive }

// MeetingProjection is a Meeting plus its live active-participant count.
type MeetingProjection struct {
	Meeting
	ActiveParticipantCount int `json:"active_participant_count"`
}
