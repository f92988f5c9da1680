package meetings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/assesshub/backend/internal/models"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the pgx-backed Store implementation.
type Repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository creates a meeting repository over a connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

// InTx runs fn against a transaction-bound Store and commits if fn returns nil.
func (r *Repository) InTx(ctx context.Context, fn func(Store) error) error {
	if r.pool == nil {
		return fmt.Errorf("nested transactions are not supported")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Repository{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgError(err)
	}
	return nil
}

const meetingColumns = `id, title, description, room_code, session_id, scheduled_at, started_at, ended_at,
	is_recording_enabled, is_screen_sharing_enabled, max_participants, status, created_by, created_at, updated_at`

func scanMeeting(row pgx.Row) (*models.Meeting, error) {
	var m models.Meeting
	err := row.Scan(&m.ID, &m.Title, &m.Description, &m.RoomCode, &m.SessionID, &m.ScheduledAt, &m.StartedAt, &m.EndedAt,
		&m.IsRecordingEnabled, &m.IsScreenSharingEnabled, &m.MaxParticipants, &m.Status, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// FindMeetingByRoomCode returns the meeting with the given room code, or nil.
func (r *Repository) FindMeetingByRoomCode(ctx context.Context, roomCode string) (*models.Meeting, error) {
	q := `SELECT ` + meetingColumns + ` FROM meetings WHERE room_code = $1`
	return scanMeeting(r.db.QueryRow(ctx, q, roomCode))
}

// FindMeetingByRoomCodeForUpdate locks the meeting row until the transaction ends.
func (r *Repository) FindMeetingByRoomCodeForUpdate(ctx context.Context, roomCode string) (*models.Meeting, error) {
	q := `SELECT ` + meetingColumns + ` FROM meetings WHERE room_code = $1 FOR UPDATE`
	return scanMeeting(r.db.QueryRow(ctx, q, roomCode))
}

// FindMeetingByID returns a meeting by ID, or nil.
func (r *Repository) FindMeetingByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	q := `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1`
	return scanMeeting(r.db.QueryRow(ctx, q, id))
}

// InsertMeeting inserts a new meeting.
func (r *Repository) InsertMeeting(ctx context.Context, m *models.Meeting) error {
	const q = `INSERT INTO meetings (id, title, description, room_code, session_id, scheduled_at,
			is_recording_enabled, is_screen_sharing_enabled, max_participants, status, created_by)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, q, m.Title, m.Description, m.RoomCode, m.SessionID, m.ScheduledAt,
		m.IsRecordingEnabled, m.IsScreenSharingEnabled, m.MaxParticipants, m.Status, m.CreatedBy).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

// UpdateMeeting persists all mutable meeting fields.
func (r *Repository) UpdateMeeting(ctx context.Context, m *models.Meeting) error {
	const q = `UPDATE meetings SET title = $1, description = $2, session_id = $3, scheduled_at = $4,
			started_at = $5, ended_at = $6, is_recording_enabled = $7, is_screen_sharing_enabled = $8,
			max_participants = $9, status = $10, updated_at = NOW()
		WHERE id = $11`
	_, err := r.db.Exec(ctx, q, m.Title, m.Description, m.SessionID, m.ScheduledAt,
		m.StartedAt, m.EndedAt, m.IsRecordingEnabled, m.IsScreenSharingEnabled,
		m.MaxParticipants, m.Status, m.ID)
	return mapPgError(err)
}

// ListMeetingsByCreator returns all meetings created by a user, newest first,
// with live active-participant counts.
func (r *Repository) ListMeetingsByCreator(ctx context.Context, userID uuid.UUID) ([]models.MeetingProjection, error) {
	q := `SELECT ` + meetingColumns + `,
			(SELECT COUNT(*) FROM participants p WHERE p.meeting_id = meetings.id AND p.left_at IS NULL)
		FROM meetings WHERE created_by = $1 ORDER BY scheduled_at DESC`
	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.MeetingProjection
	for rows.Next() {
		var mp models.MeetingProjection
		if err := rows.Scan(&mp.ID, &mp.Title, &mp.Description, &mp.RoomCode, &mp.SessionID, &mp.ScheduledAt,
			&mp.StartedAt, &mp.EndedAt, &mp.IsRecordingEnabled, &mp.IsScreenSharingEnabled, &mp.MaxParticipants,
			&mp.Status, &mp.CreatedBy, &mp.CreatedAt, &mp.UpdatedAt, &mp.ActiveParticipantCount); err != nil {
			return nil, err
		}
		list = append(list, mp)
	}
	return list, rows.Err()
}

const participantColumns = `id, meeting_id, user_id, display_name, email, joined_at, left_at, role,
	is_muted, is_video_enabled, is_screen_sharing, join_count`

func scanParticipant(row pgx.Row) (*models.Participant, error) {
	var p models.Participant
	err := row.Scan(&p.ID, &p.MeetingID, &p.UserID, &p.DisplayName, &p.Email, &p.JoinedAt, &p.LeftAt, &p.Role,
		&p.IsMuted, &p.IsVideoEnabled, &p.IsScreenSharing, &p.JoinCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// FindParticipant resolves the membership record for an identity, active or not.
func (r *Repository) FindParticipant(ctx context.Context, meetingID uuid.UUID, identity models.ParticipantIdentity) (*models.Participant, error) {
	if identity.IsGuest() {
		q := `SELECT ` + participantColumns + ` FROM participants
			WHERE meeting_id = $1 AND user_id IS NULL AND display_name = $2 AND email = $3`
		return scanParticipant(r.db.QueryRow(ctx, q, meetingID, identity.Name, identity.Email))
	}
	q := `SELECT ` + participantColumns + ` FROM participants WHERE meeting_id = $1 AND user_id = $2`
	return scanParticipant(r.db.QueryRow(ctx, q, meetingID, *identity.UserID))
}

// InsertParticipant inserts a new membership record.
func (r *Repository) InsertParticipant(ctx context.Context, p *models.Participant) error {
	const q = `INSERT INTO participants (id, meeting_id, user_id, display_name, email, joined_at, left_at, role,
			is_muted, is_video_enabled, is_screen_sharing, join_count)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	err := r.db.QueryRow(ctx, q, p.MeetingID, p.UserID, p.DisplayName, p.Email, p.JoinedAt, p.LeftAt, p.Role,
		p.IsMuted, p.IsVideoEnabled, p.IsScreenSharing, p.JoinCount).Scan(&p.ID)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

// UpdateParticipant persists all mutable participant fields.
func (r *Repository) UpdateParticipant(ctx context.Context, p *models.Participant) error {
	const q = `UPDATE participants SET display_name = $1, email = $2, joined_at = $3, left_at = $4, role = $5,
			is_muted = $6, is_video_enabled = $7, is_screen_sharing = $8, join_count = $9
		WHERE id = $10`
	_, err := r.db.Exec(ctx, q, p.DisplayName, p.Email, p.JoinedAt, p.LeftAt, p.Role,
		p.IsMuted, p.IsVideoEnabled, p.IsScreenSharing, p.JoinCount, p.ID)
	return mapPgError(err)
}

// ListActiveParticipants returns participants with no departure time.
func (r *Repository) ListActiveParticipants(ctx context.Context, meetingID uuid.UUID) ([]models.Participant, error) {
	q := `SELECT ` + participantColumns + ` FROM participants
		WHERE meeting_id = $1 AND left_at IS NULL ORDER BY joined_at`
	rows, err := r.db.Query(ctx, q, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.MeetingID, &p.UserID, &p.DisplayName, &p.Email, &p.JoinedAt, &p.LeftAt,
			&p.Role, &p.IsMuted, &p.IsVideoEnabled, &p.IsScreenSharing, &p.JoinCount); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// CountActiveParticipants returns the number of participants with no departure time.
func (r *Repository) CountActiveParticipants(ctx context.Context, meetingID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM participants WHERE meeting_id = $1 AND left_at IS NULL`
	var count int
	if err := r.db.QueryRow(ctx, q, meetingID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

const recordingColumns = `id, meeting_id, session_id, archive_id, file_name, file_url, file_size_bytes,
	duration_seconds, started_at, completed_at, status`

func scanRecording(row pgx.Row) (*models.Recording, error) {
	var rec models.Recording
	err := row.Scan(&rec.ID, &rec.MeetingID, &rec.SessionID, &rec.ArchiveID, &rec.FileName, &rec.FileURL,
		&rec.FileSizeBytes, &rec.DurationSeconds, &rec.StartedAt, &rec.CompletedAt, &rec.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// InsertRecording inserts a new recording row.
func (r *Repository) InsertRecording(ctx context.Context, rec *models.Recording) error {
	const q = `INSERT INTO recordings (id, meeting_id, session_id, archive_id, file_name, file_url,
			file_size_bytes, duration_seconds, started_at, completed_at, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	err := r.db.QueryRow(ctx, q, rec.MeetingID, rec.SessionID, rec.ArchiveID, rec.FileName, rec.FileURL,
		rec.FileSizeBytes, rec.DurationSeconds, rec.StartedAt, rec.CompletedAt, rec.Status).Scan(&rec.ID)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

// UpdateRecording persists all mutable recording fields.
func (r *Repository) UpdateRecording(ctx context.Context, rec *models.Recording) error {
	const q = `UPDATE recordings SET file_name = $1, file_url = $2, file_size_bytes = $3, duration_seconds = $4,
			completed_at = $5, status = $6
		WHERE id = $7`
	_, err := r.db.Exec(ctx, q, rec.FileName, rec.FileURL, rec.FileSizeBytes, rec.DurationSeconds,
		rec.CompletedAt, rec.Status, rec.ID)
	return mapPgError(err)
}

// FindRecording returns a recording scoped to a meeting, or nil.
func (r *Repository) FindRecording(ctx context.Context, meetingID, recordingID uuid.UUID) (*models.Recording, error) {
	q := `SELECT ` + recordingColumns + ` FROM recordings WHERE id = $1 AND meeting_id = $2`
	return scanRecording(r.db.QueryRow(ctx, q, recordingID, meetingID))
}

// ListRecordings returns all recordings for a meeting, newest first.
func (r *Repository) ListRecordings(ctx context.Context, meetingID uuid.UUID) ([]models.Recording, error) {
	q := `SELECT ` + recordingColumns + ` FROM recordings WHERE meeting_id = $1 ORDER BY started_at DESC`
	return r.queryRecordings(ctx, q, meetingID)
}

// ListRecordingsByStatus returns recordings for a meeting in the given status.
func (r *Repository) ListRecordingsByStatus(ctx context.Context, meetingID uuid.UUID, status string) ([]models.Recording, error) {
	q := `SELECT ` + recordingColumns + ` FROM recordings WHERE meeting_id = $1 AND status = $2 ORDER BY started_at DESC`
	return r.queryRecordings(ctx, q, meetingID, status)
}

func (r *Repository) queryRecordings(ctx context.Context, q string, args ...any) ([]models.Recording, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Recording
	for rows.Next() {
		var rec models.Recording
		if err := rows.Scan(&rec.ID, &rec.MeetingID, &rec.SessionID, &rec.ArchiveID, &rec.FileName, &rec.FileURL,
			&rec.FileSizeBytes, &rec.DurationSeconds, &rec.StartedAt, &rec.CompletedAt, &rec.Status); err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

// mapPgError classifies unique-constraint violations as conflicts.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return WrapErr(KindConflict, err, "record already exists")
	}
	return err
}
