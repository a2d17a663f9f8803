package workflow

import (
	"context"
	"log/slog"

	"podscribe/internal/logging"
	"podscribe/internal/notifications"
	"podscribe/internal/queue"
	"podscribe/internal/services"
)

func withJobContext(ctx context.Context, workerID string, job *queue.JobRecord, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if job != nil {
		ctx = services.WithJobID(ctx, job.JobID)
	}
	ctx = services.WithWorkerID(ctx, workerID)
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}

// jobLogger returns the worker logger enriched with context fields and, for
// feed children, the parent job id.
func (w *Worker) jobLogger(ctx context.Context, job *queue.JobRecord) *slog.Logger {
	logger := logging.WithContext(ctx, w.logger)
	if job != nil {
		if parent := job.ParentID(); parent != "" {
			logger = logger.With(logging.String(logging.FieldParentJobID, parent))
		}
	}
	return logger
}

// notify publishes event for job. Delivery failures are logged and otherwise
// ignored; the job outcome is already persisted.
func (w *Worker) notify(ctx context.Context, job *queue.JobRecord, event notifications.Event, payload notifications.Payload) {
	if w.collab.Notifier == nil || ctx.Err() != nil {
		return
	}
	if payload == nil {
		payload = notifications.Payload{}
	}
	payload["title"] = job.Title
	payload["source_url"] = job.SourceURL
	if err := w.collab.Notifier.Publish(ctx, event, payload); err != nil {
		w.jobLogger(ctx, job).Warn("notification failed",
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
			logging.String(logging.FieldImpact, "job result is unaffected"))
	}
}
