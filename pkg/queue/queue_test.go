package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewQueue(client, nil), mr
}

func TestEnqueueDequeue(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	payload := ArchiveSyncPayload{
		RecordingID: uuid.New(),
		MeetingID:   uuid.New(),
		ArchiveID:   "archive-1",
	}
	require.NoError(t, q.EnqueueArchiveSync(ctx, payload))

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	require.Equal(t, JobTypeArchiveSync, job.Type)
	require.Equal(t, 0, job.Attempt)

	var got ArchiveSyncPayload
	require.NoError(t, json.Unmarshal(job.Payload, &got))
	require.Equal(t, payload, got)
}

func TestRetryMovesToDLQAfterMaxAttempts(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	job := &Job{ID: "j1", Type: JobTypeArchiveSync, Payload: json.RawMessage(`{}`)}
	for i := 0; i < MaxRetries-1; i++ {
		require.NoError(t, q.Retry(ctx, job))
		got, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		job = got
	}

	require.NoError(t, q.Retry(ctx, job))
	require.Equal(t, MaxRetries, job.Attempt)

	dlq, err := mr.List(QueueDLQ)
	require.NoError(t, err)
	require.Len(t, dlq, 1)

	main, _ := mr.List(QueueArchiveSync)
	require.Empty(t, main)
}
