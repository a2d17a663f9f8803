package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"podscribe/internal/logging"
	"podscribe/internal/notifications"
	"podscribe/internal/queue"
	"podscribe/internal/services"
)

// handleStageFailure records the job as failed. The store bumps the parent
// feed's progress in the same update when the job is a feed child.
func (w *Worker) handleStageFailure(ctx context.Context, stageName string, job *queue.JobRecord, stageErr error) {
	logger := w.jobLogger(ctx, job)
	message := failureMessage(stageName, stageErr)
	job.SetFailed(message)

	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("error_message", message),
		logging.String(logging.FieldErrorKind, string(services.Kind(stageErr))),
		logging.String(logging.FieldErrorHint, services.Hint(stageErr)),
		logging.Alert("stage_failure"),
		logging.Error(stageErr))

	if err := w.store.UpdateStatusAs(ctx, w.id, job.JobID, queue.StatusFailed, message); err != nil {
		if errors.Is(err, queue.ErrNotClaimant) {
			logger.Warn("failure not recorded; job was requeued to another worker",
				logging.String(logging.FieldEventType, "job_claim_lost"),
				logging.Error(err))
		} else if errors.Is(err, context.Canceled) {
			logger.Debug("shutting down, could not record stage failure")
		} else {
			logger.Error("failed to persist stage failure",
				logging.Error(err),
				logging.String(logging.FieldEventType, "job_failure_persist_failed"),
				logging.String(logging.FieldErrorHint, "job stays in its last status until requeued"))
		}
	} else {
		w.notify(ctx, job, notifications.EventJobFailed, notifications.Payload{"error": message})
	}
	w.recordResult(job, stageErr)
}

// handleTransitionError covers a write the store refused. A refused
// transition or a lost claim means another process owns the job now, so the
// worker walks away from it; any other error fails the job.
func (w *Worker) handleTransitionError(ctx context.Context, job *queue.JobRecord, target queue.Status, err error) {
	if errors.Is(err, queue.ErrInvalidTransition) || errors.Is(err, queue.ErrNotClaimant) {
		w.jobLogger(ctx, job).Warn("job abandoned after refused transition",
			logging.String(logging.FieldEventType, "job_transition_refused"),
			logging.String("target_status", string(target)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "job was settled by another process"),
			logging.String(logging.FieldImpact, "this worker moves on to the next job"))
		w.setLastError(err)
		return
	}
	w.handleStageFailure(ctx, string(target), job, fmt.Errorf("persist status %s: %w", target, err))
}

func failureMessage(stageName string, err error) string {
	if err == nil {
		return fmt.Sprintf("%s failed without error detail", stageName)
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		return fmt.Sprintf("%s failed", stageName)
	}
	return message
}
