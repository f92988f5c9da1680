package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/assesshub/backend/internal/meetings"
	"github.com/assesshub/backend/internal/models"
	"github.com/assesshub/backend/internal/video"
	"github.com/assesshub/backend/pkg/queue"
)

type fakeStore struct {
	meetings.Store
	recording *models.Recording
	updated   *models.Recording
}

func (s *fakeStore) FindRecording(_ context.Context, meetingID, recordingID uuid.UUID) (*models.Recording, error) {
	if s.recording != nil && s.recording.ID == recordingID && s.recording.MeetingID == meetingID {
		c := *s.recording
		return &c, nil
	}
	return nil, nil
}

func (s *fakeStore) UpdateRecording(_ context.Context, r *models.Recording) error {
	c := *r
	s.updated = &c
	return nil
}

type fakeGateway struct {
	video.Gateway
	archive *video.Archive
}

func (g *fakeGateway) GetArchive(_ context.Context, archiveID string) (*video.Archive, error) {
	return g.archive, nil
}

func syncJob(t *testing.T, rec *models.Recording) *queue.Job {
	t.Helper()
	body, err := json.Marshal(queue.ArchiveSyncPayload{
		RecordingID: rec.ID,
		MeetingID:   rec.MeetingID,
		ArchiveID:   rec.ArchiveID,
	})
	require.NoError(t, err)
	return &queue.Job{ID: "job-1", Type: queue.JobTypeArchiveSync, Payload: body, CreatedAt: time.Now()}
}

func completedRecording() *models.Recording {
	return &models.Recording{
		ID:        uuid.New(),
		MeetingID: uuid.New(),
		ArchiveID: "arch-1",
		Status:    models.RecordingStatusCompleted,
		StartedAt: time.Now().Add(-time.Minute),
	}
}

func TestProcessSyncsAvailableArchive(t *testing.T) {
	rec := completedRecording()
	store := &fakeStore{recording: rec}
	gateway := &fakeGateway{archive: &video.Archive{
		ID:       rec.ArchiveID,
		Status:   video.ArchiveStatusAvailable,
		Name:     "standup.mp4",
		URL:      "https://cdn.example.com/standup.mp4",
		Size:     1 << 20,
		Duration: 90,
	}}
	p := NewProcessor(store, gateway, nil, nil)

	require.NoError(t, p.Process(context.Background(), syncJob(t, rec)))
	require.NotNil(t, store.updated)
	require.Equal(t, models.RecordingStatusAvailable, store.updated.Status)
	require.Equal(t, "https://cdn.example.com/standup.mp4", store.updated.FileURL)
	require.Equal(t, int64(1<<20), store.updated.FileSizeBytes)
	require.Equal(t, 90, store.updated.DurationSeconds)
	require.Equal(t, "standup.mp4", store.updated.FileName)
}

func TestProcessMarksFailedArchive(t *testing.T) {
	rec := completedRecording()
	store := &fakeStore{recording: rec}
	gateway := &fakeGateway{archive: &video.Archive{ID: rec.ArchiveID, Status: video.ArchiveStatusFailed}}
	p := NewProcessor(store, gateway, nil, nil)

	require.NoError(t, p.Process(context.Background(), syncJob(t, rec)))
	require.Equal(t, models.RecordingStatusFailed, store.updated.Status)
}

func TestProcessRetriesPendingArchive(t *testing.T) {
	rec := completedRecording()
	store := &fakeStore{recording: rec}
	gateway := &fakeGateway{archive: &video.Archive{ID: rec.ArchiveID, Status: video.ArchiveStatusStarted}}
	p := NewProcessor(store, gateway, nil, nil)

	err := p.Process(context.Background(), syncJob(t, rec))
	require.ErrorIs(t, err, errArchivePending)
	require.Nil(t, store.updated)
}

func TestProcessDropsUnknownRecording(t *testing.T) {
	rec := completedRecording()
	store := &fakeStore{}
	p := NewProcessor(store, &fakeGateway{}, nil, nil)

	require.NoError(t, p.Process(context.Background(), syncJob(t, rec)))
	require.Nil(t, store.updated)
}

func TestProcessSkipsTerminalRecording(t *testing.T) {
	rec := completedRecording()
	rec.Status = models.RecordingStatusAvailable
	store := &fakeStore{recording: rec}
	p := NewProcessor(store, &fakeGateway{}, nil, nil)

	require.NoError(t, p.Process(context.Background(), syncJob(t, rec)))
	require.Nil(t, store.updated)
}
