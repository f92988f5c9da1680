package models

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantRole represents a participant's role within one meeting.
const (
	ParticipantRoleHost        = "host"
	ParticipantRoleModerator   = "moderator"
	ParticipantRoleParticipant = "participant"
	ParticipantRoleGuest       = "guest"
)

// Participant is one caller's membership record in one meeting.
// UserID is nil for guests; guests are identified by (meeting, name, email).
type Participant struct {
	ID              uuid.UUID  `json:"id"`
	MeetingID       uuid.UUID  `json:"meeting_id"`
	UserID          *uuid.UUID `json:"user_id,omitempty"`
	DisplayName     string     `json:"display_name"`
	Email           string     `json:"email,omitempty"`
	JoinedAt        time.Time  `json:"joined_at"`
	LeftAt          *time.Time `json:"left_at,omitempty"`
	Role            string     `json:"role"`
	IsMuted         bool       `json:"is_muted"`
	IsVideoEnabled  bool       `json:"is_video_enabled"`
	IsScreenSharing bool       `json:"is_screen_sharing"`
	JoinCount       int        `json:"join_count"`
}

// IsGuest reports whether this participant joined without an account.
func (p *Participant) IsGuest() bool { return p.UserID == nil }

// IsActive reports whether the participant is currently in the meeting.
func (p *Participant) IsActive() bool { return p.LeftAt == nil }

// ParticipantIdentity is the tagged identity of a joining caller:
// an authenticated user (UserID set) or a guest (name + optional email).
type ParticipantIdentity struct {
	UserID *uuid.UUID
	Name   string
	Email  string
}

// UserIdentity builds the identity of an authenticated caller.
func UserIdentity(id uuid.UUID, name, email string) ParticipantIdentity {
	return ParticipantIdentity{UserID: &id, Name: name, Email: email}
}

// GuestIdentity builds the identity of an unauthenticated guest.
func GuestIdentity(name, email string) ParticipantIdentity {
	return ParticipantIdentity{Name: name, Email: email}
}

// IsGuest reports whether the identity has no backing user account.
func (i ParticipantIdentity) IsGuest() bool { return i.UserID == nil }

// ParticipantProjection is what join operations return to the caller:
// the membership record plus provider access data when granted.
type ParticipantProjection struct {
	Participant
	SessionID     string `json:"session_id,omitempty"`
	Token         string `json:"token,omitempty"`
	ProviderAppID string `json:"provider_app_id,omitempty"`
}
