package meetings

import (
	"context"

	"github.com/google/uuid"

	"github.com/assesshub/backend/internal/models"
)

// Store is the persistence surface the lifecycle engine consumes. Lookups
// return (nil, nil) when the record does not exist; the engine owns the
// classification into NotFound.
type Store interface {
	FindMeetingByRoomCode(ctx context.Context, roomCode string) (*models.Meeting, error)
	// FindMeetingByRoomCodeForUpdate locks the meeting row for the rest of
	// the transaction; concurrent joins/leaves against one meeting serialize
	// on this lock.
	FindMeetingByRoomCodeForUpdate(ctx context.Context, roomCode string) (*models.Meeting, error)
	FindMeetingByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error)
	InsertMeeting(ctx context.Context, m *models.Meeting) error
	UpdateMeeting(ctx context.Context, m *models.Meeting) error
	ListMeetingsByCreator(ctx context.Context, userID uuid.UUID) ([]models.MeetingProjection, error)

	// FindParticipant resolves per identity variant: by (meeting, user id)
	// for users, by (meeting, name, email) for guests. Active or not.
	FindParticipant(ctx context.Context, meetingID uuid.UUID, identity models.ParticipantIdentity) (*models.Participant, error)
	InsertParticipant(ctx context.Context, p *models.Participant) error
	UpdateParticipant(ctx context.Context, p *models.Participant) error
	ListActiveParticipants(ctx context.Context, meetingID uuid.UUID) ([]models.Participant, error)
	CountActiveParticipants(ctx context.Context, meetingID uuid.UUID) (int, error)

	InsertRecording(ctx context.Context, r *models.Recording) error
	UpdateRecording(ctx context.Context, r *models.Recording) error
	FindRecording(ctx context.Context, meetingID, recordingID uuid.UUID) (*models.Recording, error)
	ListRecordings(ctx context.Context, meetingID uuid.UUID) ([]models.Recording, error)
	ListRecordingsByStatus(ctx context.Context, meetingID uuid.UUID, status string) ([]models.Recording, error)
}

// TxStore is a Store that can run a closure against a transaction-bound
// Store with atomic commit.
type TxStore interface {
	Store
	InTx(ctx context.Context, fn func(Store) error) error
}
