package meetings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/assesshub/backend/internal/auth"
	"github.com/assesshub/backend/internal/models"
	"github.com/assesshub/backend/internal/video"
	"github.com/assesshub/backend/pkg/queue"
)

// cleanupTimeout bounds post-commit provider cleanup during host failover so
// a slow provider cannot block the disconnect response.
const cleanupTimeout = 10 * time.Second

// ArchiveQueue hands finished recordings to the background worker for
// metadata sync. It is optional; a nil queue skips enqueueing.
type ArchiveQueue interface {
	EnqueueArchiveSync(ctx context.Context, payload queue.ArchiveSyncPayload) error
}

// Service is the meeting lifecycle engine. It owns every mutation of
// meetings, participants and recordings; the store only persists what the
// engine computes.
type Service struct {
	store   TxStore
	gateway video.Gateway
	queue   ArchiveQueue
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates the lifecycle engine. archiveQueue may be nil.
func NewService(store TxStore, gateway video.Gateway, archiveQueue ArchiveQueue, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		gateway: gateway,
		queue:   archiveQueue,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateMeetingInput carries everything needed to create or upsert a meeting.
type CreateMeetingInput struct {
	Title                string
	Description          string
	ScheduledAt          time.Time
	ScreenSharingEnabled bool
	MaxParticipants      int
	RoomCode             string
	CreatedBy            uuid.UUID
}

// CreateMeeting creates a meeting, or updates the existing one when the
// caller supplies a room code that is already taken (upsert by room code).
func (s *Service) CreateMeeting(ctx context.Context, in CreateMeetingInput) (*models.MeetingProjection, error) {
	if in.Title == "" {
		return nil, Errf(KindValidation, "title is required")
	}
	roomCode, err := NewRoomCode(in.RoomCode)
	if err != nil {
		return nil, err
	}
	if in.MaxParticipants <= 0 {
		in.MaxParticipants = models.DefaultMaxParticipants
	}

	if in.RoomCode != "" {
		existing, err := s.store.FindMeetingByRoomCode(ctx, roomCode)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			existing.Title = in.Title
			existing.Description = in.Description
			existing.ScheduledAt = in.ScheduledAt
			existing.IsScreenSharingEnabled = in.ScreenSharingEnabled
			existing.MaxParticipants = in.MaxParticipants
			if err := s.store.UpdateMeeting(ctx, existing); err != nil {
				return nil, err
			}
			count, err := s.store.CountActiveParticipants(ctx, existing.ID)
			if err != nil {
				return nil, err
			}
			return &models.MeetingProjection{Meeting: *existing, ActiveParticipantCount: count}, nil
		}
	}

	m := &models.Meeting{
		Title:                  in.Title,
		Description:            in.Description,
		RoomCode:               roomCode,
		ScheduledAt:            in.ScheduledAt,
		IsRecordingEnabled:     true,
		IsScreenSharingEnabled: in.ScreenSharingEnabled,
		MaxParticipants:        in.MaxParticipants,
		Status:                 models.MeetingStatusScheduled,
		CreatedBy:              in.CreatedBy,
	}
	if err := s.store.InsertMeeting(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info("meeting created",
		zap.String("meeting_id", m.ID.String()),
		zap.String("room_code", m.RoomCode))
	return &models.MeetingProjection{Meeting: *m, ActiveParticipantCount: 0}, nil
}

// JoinMeeting admits an authenticated caller into a meeting. Hosts may join a
// scheduled meeting and thereby start it; everyone else needs the meeting to
// already be active. Token minting failure is not fatal once admission has
// committed.
func (s *Service) JoinMeeting(ctx context.Context, roomCode string, caller *auth.Identity) (*models.ParticipantProjection, error) {
	meeting, err := s.store.FindMeetingByRoomCode(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if meeting == nil {
		return nil, Errf(KindNotFound, "meeting not found")
	}
	if err := joinGuard(meeting, caller.HostCapable); err != nil {
		return nil, err
	}

	// Provider session creation happens outside the transaction: it is a slow
	// remote call and must not extend the row lock. A losing racer's session
	// is simply discarded.
	createdSessionID := ""
	if caller.HostCapable && meeting.SessionID == "" {
		createdSessionID, err = s.gateway.CreateSession(ctx)
		if err != nil {
			return nil, WrapErr(KindProvider, err, "could not create media session")
		}
	}

	identity := models.UserIdentity(caller.UserID, caller.FullName, caller.Email)
	role := models.ParticipantRoleParticipant
	if caller.HostCapable {
		role = models.ParticipantRoleHost
	}

	var participant *models.Participant
	var sessionID string
	err = s.store.InTx(ctx, func(tx Store) error {
		m, err := tx.FindMeetingByRoomCodeForUpdate(ctx, roomCode)
		if err != nil {
			return err
		}
		if m == nil {
			return Errf(KindNotFound, "meeting not found")
		}
		if err := joinGuard(m, caller.HostCapable); err != nil {
			return err
		}
		if createdSessionID != "" {
			if m.SessionID == "" {
				m.SessionID = createdSessionID
			} else {
				s.logger.Warn("discarding session created by losing racer",
					zap.String("meeting_id", m.ID.String()),
					zap.String("session_id", createdSessionID))
			}
		}
		p, err := s.admit(ctx, tx, m, identity, role)
		if err != nil {
			return err
		}
		participant = p
		sessionID = m.SessionID
		return nil
	})
	if err != nil {
		return nil, err
	}

	projection := &models.ParticipantProjection{
		Participant:   *participant,
		SessionID:     sessionID,
		ProviderAppID: s.gateway.AppID(),
	}
	if sessionID != "" {
		tokenRole := video.RolePublisher
		if participant.Role == models.ParticipantRoleHost {
			tokenRole = video.RoleModerator
		}
		token, err := s.gateway.GenerateToken(sessionID, tokenRole, participant.DisplayName)
		if err != nil {
			s.logger.Warn("token generation failed after admission",
				zap.String("meeting_id", meeting.ID.String()),
				zap.Error(err))
		} else {
			projection.Token = token
		}
	}
	return projection, nil
}

// JoinMeetingAsGuest admits an unauthenticated guest. Guests never create
// sessions, never receive provider access and are always assigned the guest
// role; their identity is (meeting, name, email).
func (s *Service) JoinMeetingAsGuest(ctx context.Context, roomCode, guestName, guestEmail string) (*models.ParticipantProjection, error) {
	if guestName == "" {
		return nil, Errf(KindValidation, "guest name is required")
	}
	identity := models.GuestIdentity(guestName, guestEmail)

	var participant *models.Participant
	err := s.store.InTx(ctx, func(tx Store) error {
		m, err := tx.FindMeetingByRoomCodeForUpdate(ctx, roomCode)
		if err != nil {
			return err
		}
		if m == nil {
			return Errf(KindNotFound, "meeting not found")
		}
		if m.Status == models.MeetingStatusEnded || m.Status == models.MeetingStatusCancelled {
			return Errf(KindInvalidState, "meeting is %s", m.Status)
		}
		p, err := s.admit(ctx, tx, m, identity, models.ParticipantRoleGuest)
		if err != nil {
			return err
		}
		participant = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &models.ParticipantProjection{Participant: *participant}, nil
}

// admit applies the shared admission steps inside a transaction holding the
// meeting row lock: idempotent re-entry, capacity check, reactivate-or-insert,
// and the scheduled-to-active transition.
func (s *Service) admit(ctx context.Context, tx Store, m *models.Meeting, identity models.ParticipantIdentity, role string) (*models.Participant, error) {
	existing, err := tx.FindParticipant(ctx, m.ID, identity)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.IsActive() {
		// Re-entrant join: no state change, no count bump.
		return existing, nil
	}

	count, err := tx.CountActiveParticipants(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	if count >= m.MaxParticipants {
		return nil, Errf(KindCapacityExceeded, "meeting is full")
	}

	now := s.now()
	var participant *models.Participant
	if existing != nil {
		existing.JoinedAt = now
		existing.LeftAt = nil
		existing.JoinCount++
		existing.Role = role
		existing.DisplayName = identity.Name
		existing.Email = identity.Email
		existing.IsMuted = false
		existing.IsVideoEnabled = true
		existing.IsScreenSharing = false
		if err := tx.UpdateParticipant(ctx, existing); err != nil {
			return nil, err
		}
		participant = existing
	} else {
		participant = &models.Participant{
			MeetingID:      m.ID,
			UserID:         identity.UserID,
			DisplayName:    identity.Name,
			Email:          identity.Email,
			JoinedAt:       now,
			Role:           role,
			IsVideoEnabled: true,
			JoinCount:      1,
		}
		if err := tx.InsertParticipant(ctx, participant); err != nil {
			return nil, err
		}
	}

	if !m.IsActive() {
		m.Status = models.MeetingStatusActive
		if m.StartedAt == nil {
			m.StartedAt = &now
		}
		m.IsRecordingEnabled = true
	}
	if err := tx.UpdateMeeting(ctx, m); err != nil {
		return nil, err
	}
	return participant, nil
}

// joinGuard rejects authenticated joins that are illegal for the meeting's
// current status. Hosts may enter a scheduled meeting; everyone else waits
// for it to be active.
func joinGuard(m *models.Meeting, hostCapable bool) error {
	if m.IsActive() {
		return nil
	}
	if hostCapable && m.Status == models.MeetingStatusScheduled {
		return nil
	}
	return Errf(KindInvalidState, "meeting is %s", m.Status)
}

// StartRecording starts a provider archive for an active meeting. Only an
// active host may record.
func (s *Service) StartRecording(ctx context.Context, roomCode string, callerID uuid.UUID, recordingName string) (*models.Recording, error) {
	meeting, err := s.store.FindMeetingByRoomCode(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if meeting == nil {
		return nil, Errf(KindNotFound, "meeting not found")
	}
	if !meeting.IsActive() || !meeting.IsRecordingEnabled {
		return nil, Errf(KindInvalidState, "meeting is not recordable")
	}
	if meeting.SessionID == "" {
		return nil, Errf(KindInvalidState, "meeting has no media session")
	}
	if err := s.requireActiveHost(ctx, meeting.ID, callerID); err != nil {
		return nil, err
	}

	archive, err := s.gateway.StartArchive(ctx, meeting.SessionID)
	if err != nil {
		return nil, WrapErr(KindProvider, err, "could not start recording")
	}

	name := recordingName
	if name == "" {
		name = archive.Name
	}
	recording := &models.Recording{
		MeetingID: meeting.ID,
		SessionID: meeting.SessionID,
		ArchiveID: archive.ID,
		FileName:  name,
		StartedAt: s.now(),
		Status:    models.RecordingStatusRecording,
	}
	if err := s.store.InsertRecording(ctx, recording); err != nil {
		return nil, err
	}
	s.logger.Info("recording started",
		zap.String("meeting_id", meeting.ID.String()),
		zap.String("archive_id", archive.ID))
	return recording, nil
}

// StopRecording completes a recording. Local completion commits before the
// provider stop call; a provider failure is surfaced to the caller but the
// recording stays completed and the worker reconciles the archive later.
func (s *Service) StopRecording(ctx context.Context, meetingID, recordingID, callerID uuid.UUID) (*models.Recording, error) {
	meeting, err := s.store.FindMeetingByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if meeting == nil {
		return nil, Errf(KindNotFound, "meeting not found")
	}
	recording, err := s.store.FindRecording(ctx, meetingID, recordingID)
	if err != nil {
		return nil, err
	}
	if recording == nil {
		return nil, Errf(KindNotFound, "recording not found")
	}
	if !recording.IsInProgress() {
		return nil, Errf(KindInvalidState, "recording is %s", recording.Status)
	}
	if err := s.requireActiveHost(ctx, meetingID, callerID); err != nil {
		return nil, err
	}

	now := s.now()
	recording.Status = models.RecordingStatusCompleted
	recording.CompletedAt = &now
	if err := s.store.UpdateRecording(ctx, recording); err != nil {
		return nil, err
	}
	s.enqueueArchiveSync(ctx, recording)

	if err := s.gateway.StopArchive(ctx, recording.ArchiveID); err != nil {
		s.logger.Error("provider archive stop failed",
			zap.String("archive_id", recording.ArchiveID),
			zap.Error(err))
		return recording, WrapErr(KindProvider, err, "recording marked complete but provider stop failed")
	}
	return recording, nil
}

// requireActiveHost verifies the caller is currently in the meeting with the
// host role.
func (s *Service) requireActiveHost(ctx context.Context, meetingID, callerID uuid.UUID) error {
	p, err := s.store.FindParticipant(ctx, meetingID, models.ParticipantIdentity{UserID: &callerID})
	if err != nil {
		return err
	}
	if p == nil || !p.IsActive() || p.Role != models.ParticipantRoleHost {
		return Errf(KindUnauthorized, "only an active host may manage recordings")
	}
	return nil
}

// DisconnectFromMeeting marks the caller as left. If the last host leaves,
// the whole meeting is torn down: remaining participants are forced out,
// in-progress recordings are completed, the session is released and the
// meeting ends. Provider cleanup runs after commit and never fails the call.
func (s *Service) DisconnectFromMeeting(ctx context.Context, roomCode string, callerID uuid.UUID) error {
	var (
		completed       []models.Recording
		signalSessionID string
	)
	err := s.store.InTx(ctx, func(tx Store) error {
		m, err := tx.FindMeetingByRoomCodeForUpdate(ctx, roomCode)
		if err != nil {
			return err
		}
		if m == nil {
			return Errf(KindNotFound, "meeting not found")
		}
		leaver, err := tx.FindParticipant(ctx, m.ID, models.ParticipantIdentity{UserID: &callerID})
		if err != nil {
			return err
		}
		if leaver == nil || !leaver.IsActive() {
			return Errf(KindNotFound, "not an active participant of this meeting")
		}

		now := s.now()
		leaver.LeftAt = &now
		if err := tx.UpdateParticipant(ctx, leaver); err != nil {
			return err
		}

		remaining, err := tx.ListActiveParticipants(ctx, m.ID)
		if err != nil {
			return err
		}
		hostsLeft := 0
		for i := range remaining {
			if remaining[i].Role == models.ParticipantRoleHost {
				hostsLeft++
			}
		}

		if leaver.Role == models.ParticipantRoleHost && hostsLeft == 0 {
			inProgress, err := tx.ListRecordingsByStatus(ctx, m.ID, models.RecordingStatusRecording)
			if err != nil {
				return err
			}
			for i := range inProgress {
				rec := &inProgress[i]
				rec.Status = models.RecordingStatusCompleted
				rec.CompletedAt = &now
				if err := tx.UpdateRecording(ctx, rec); err != nil {
					return err
				}
				completed = append(completed, *rec)
			}
			for i := range remaining {
				p := &remaining[i]
				p.LeftAt = &now
				if err := tx.UpdateParticipant(ctx, p); err != nil {
					return err
				}
			}
			signalSessionID = m.SessionID
			m.SessionID = ""
			m.Status = models.MeetingStatusEnded
			m.EndedAt = &now
			if err := tx.UpdateMeeting(ctx, m); err != nil {
				return err
			}
			s.logger.Info("host failover: meeting torn down",
				zap.String("meeting_id", m.ID.String()),
				zap.Int("participants_disconnected", len(remaining)),
				zap.Int("recordings_completed", len(inProgress)))
			return nil
		}

		if len(remaining) == 0 && m.IsActive() {
			m.Status = models.MeetingStatusEnded
			m.EndedAt = &now
			if err := tx.UpdateMeeting(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(completed) > 0 || signalSessionID != "" {
		// Detached from the request context: caller cancellation must not
		// block or abort cleanup.
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		for i := range completed {
			rec := &completed[i]
			if err := s.gateway.StopArchive(cleanupCtx, rec.ArchiveID); err != nil {
				s.logger.Warn("failover archive stop failed",
					zap.String("archive_id", rec.ArchiveID),
					zap.Error(err))
			}
			s.enqueueArchiveSync(cleanupCtx, rec)
		}
		if signalSessionID != "" {
			if err := s.gateway.SignalHostDisconnect(cleanupCtx, signalSessionID); err != nil {
				s.logger.Warn("host disconnect signal failed",
					zap.String("session_id", signalSessionID),
					zap.Error(err))
			}
		}
	}
	return nil
}

// GetMeetingByID returns a meeting with its live participant count.
func (s *Service) GetMeetingByID(ctx context.Context, id uuid.UUID) (*models.MeetingProjection, error) {
	m, err := s.store.FindMeetingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, Errf(KindNotFound, "meeting not found")
	}
	return s.project(ctx, m)
}

// GetMeetingByRoomCode returns a meeting with its live participant count.
func (s *Service) GetMeetingByRoomCode(ctx context.Context, roomCode string) (*models.MeetingProjection, error) {
	m, err := s.store.FindMeetingByRoomCode(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, Errf(KindNotFound, "meeting not found")
	}
	return s.project(ctx, m)
}

func (s *Service) project(ctx context.Context, m *models.Meeting) (*models.MeetingProjection, error) {
	count, err := s.store.CountActiveParticipants(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	return &models.MeetingProjection{Meeting: *m, ActiveParticipantCount: count}, nil
}

// GetUserMeetings lists meetings created by a user, newest first.
func (s *Service) GetUserMeetings(ctx context.Context, userID uuid.UUID) ([]models.MeetingProjection, error) {
	return s.store.ListMeetingsByCreator(ctx, userID)
}

// GetMeetingParticipants lists the currently active participants.
func (s *Service) GetMeetingParticipants(ctx context.Context, meetingID uuid.UUID) ([]models.Participant, error) {
	m, err := s.store.FindMeetingByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, Errf(KindNotFound, "meeting not found")
	}
	return s.store.ListActiveParticipants(ctx, meetingID)
}

// GetMeetingRecordings lists all recordings of a meeting, newest first.
func (s *Service) GetMeetingRecordings(ctx context.Context, meetingID uuid.UUID) ([]models.Recording, error) {
	m, err := s.store.FindMeetingByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, Errf(KindNotFound, "meeting not found")
	}
	return s.store.ListRecordings(ctx, meetingID)
}

func (s *Service) enqueueArchiveSync(ctx context.Context, rec *models.Recording) {
	if s.queue == nil {
		return
	}
	payload := queue.ArchiveSyncPayload{
		RecordingID: rec.ID,
		MeetingID:   rec.MeetingID,
		ArchiveID:   rec.ArchiveID,
	}
	if err := s.queue.EnqueueArchiveSync(ctx, payload); err != nil {
		s.logger.Warn("archive sync enqueue failed",
			zap.String("recording_id", rec.ID.String()),
			zap.Error(err))
	}
}
