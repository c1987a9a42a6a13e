// Package worker runs the background job loop: recording processing and
// invitation email delivery, dequeued from Redis with bounded retry.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pairtalk/backend/internal/notify"
	"github.com/pairtalk/backend/internal/pipeline"
	"github.com/pairtalk/backend/pkg/queue"
)

// Worker dequeues jobs and dispatches them to the processing pipeline or the
// invitation mailer.
type Worker struct {
	processor *pipeline.Processor
	mailer    *notify.Mailer
	queue     *queue.Queue
	logger    *zap.Logger
}

// New creates a worker.
func New(processor *pipeline.Processor, mailer *notify.Mailer, q *queue.Queue, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{processor: processor, mailer: mailer, queue: q, logger: logger}
}

// Process executes one job.
func (w *Worker) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeRecordingProcess:
		var payload queue.RecordingProcessPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		if payload.FolderOverride > 0 {
			_, err := w.processor.Process(ctx, payload.RecordingID, payload.FolderOverride)
			return err
		}
		_, err := w.processor.ProcessTake(ctx, payload.RecordingID)
		return err
	case queue.JobTypeInviteEmail:
		var payload queue.InviteEmailPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return w.mailer.Deliver(ctx, payload.InviteEmailID)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return
		default:
		}

		job, key, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		w.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := w.Process(ctx, job); err != nil {
			w.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := w.queue.Retry(ctx, job, key); reErr != nil {
				w.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
