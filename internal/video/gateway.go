// Package video talks to the Vonage-style video provider: session creation,
// client access tokens, archive (recording) control and in-session signaling.
package video

import (
	"context"
)

// Role is the access level embedded in a client token.
type Role string

const (
	RoleModerator  Role = "moderator"
	RolePublisher  Role = "publisher"
	RoleSubscriber Role = "subscriber"
)

// Archive statuses reported by the provider.
const (
	ArchiveStatusStarted   = "started"
	ArchiveStatusStopped   = "stopped"
	ArchiveStatusUploaded  = "uploaded"
	ArchiveStatusAvailable = "available"
	ArchiveStatusFailed    = "failed"
)

// Archive is the provider's recording artifact for a session.
type Archive struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Size      int64  `json:"size"`
	Duration  int    `json:"duration"` // seconds
}

// Gateway is the provider surface the meeting engine depends on.
// StartArchive owns the retry policy; StartArchive and StopArchive are
// mutually exclusive within one client because the provider rejects
// overlapping archive mutations from the same credential.
type Gateway interface {
	CreateSession(ctx context.Context) (string, error)
	GenerateToken(sessionID string, role Role, displayName string) (string, error)
	StartArchive(ctx context.Context, sessionID string) (*Archive, error)
	StopArchive(ctx context.Context, archiveID string) error
	GetArchive(ctx context.Context, archiveID string) (*Archive, error)
	ListArchives(ctx context.Context, sessionID string) ([]Archive, error)
	SignalHostDisconnect(ctx context.Context, sessionID string) error
	AppID() string
}
