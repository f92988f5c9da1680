// Package worker runs background jobs: pulling finished archive metadata
// from the video provider and persisting it on recording rows.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/assesshub/backend/internal/meetings"
	"github.com/assesshub/backend/internal/models"
	"github.com/assesshub/backend/internal/video"
	"github.com/assesshub/backend/pkg/queue"
)

// errArchivePending marks a job whose archive the provider has not finished
// processing yet; it is retried rather than dead-lettered immediately.
var errArchivePending = errors.New("archive not ready")

// Processor consumes archive sync jobs.
type Processor struct {
	store   meetings.Store
	gateway video.Gateway
	queue   *queue.Queue
	logger  *zap.Logger
}

// NewProcessor creates an archive sync processor.
func NewProcessor(store meetings.Store, gateway video.Gateway, q *queue.Queue, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{store: store, gateway: gateway, queue: q, logger: logger}
}

// Run consumes jobs until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) {
	p.logger.Info("archive sync worker started")
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("archive sync worker stopping")
				return
			}
			p.logger.Error("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}
		if err := p.Process(ctx, job); err != nil {
			p.logger.Warn("job failed",
				zap.String("job_id", job.ID),
				zap.Int("attempt", job.Attempt),
				zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			if err := p.queue.Retry(ctx, job); err != nil {
				p.logger.Error("retry failed", zap.String("job_id", job.ID), zap.Error(err))
			}
		}
	}
}

// Process handles one job. A returned error means the job should be retried.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeArchiveSync {
		p.logger.Warn("dropping job of unknown type", zap.String("type", string(job.Type)))
		return nil
	}
	var payload queue.ArchiveSyncPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		p.logger.Warn("dropping job with invalid payload", zap.String("job_id", job.ID), zap.Error(err))
		return nil
	}

	recording, err := p.store.FindRecording(ctx, payload.MeetingID, payload.RecordingID)
	if err != nil {
		return fmt.Errorf("find recording: %w", err)
	}
	if recording == nil {
		p.logger.Warn("dropping job for unknown recording", zap.String("recording_id", payload.RecordingID.String()))
		return nil
	}
	// A recording only moves forward; terminal rows are already synced.
	if recording.Status == models.RecordingStatusAvailable || recording.Status == models.RecordingStatusFailed {
		return nil
	}

	archive, err := p.gateway.GetArchive(ctx, payload.ArchiveID)
	if err != nil {
		return fmt.Errorf("get archive %s: %w", payload.ArchiveID, err)
	}

	switch archive.Status {
	case video.ArchiveStatusAvailable, video.ArchiveStatusUploaded:
		recording.Status = models.RecordingStatusAvailable
		recording.FileURL = archive.URL
		recording.FileSizeBytes = archive.Size
		recording.DurationSeconds = archive.Duration
		if recording.FileName == "" {
			recording.FileName = archive.Name
		}
	case video.ArchiveStatusFailed:
		recording.Status = models.RecordingStatusFailed
	default:
		// Still processing on the provider side.
		return errArchivePending
	}

	if err := p.store.UpdateRecording(ctx, recording); err != nil {
		return fmt.Errorf("update recording: %w", err)
	}
	p.logger.Info("archive synced",
		zap.String("recording_id", recording.ID.String()),
		zap.String("status", recording.Status))
	return nil
}
