package workflow

import (
	"context"
	"fmt"
	"time"

	"podscribe/internal/logging"
	"podscribe/internal/queue"
	"podscribe/internal/services"
)

func (w *Worker) loop(ctx context.Context) {
	ctx = services.WithWorkerID(ctx, w.id)
	logger := logging.WithContext(ctx, w.logger)
	logger.Info("worker started",
		logging.String(logging.FieldEventType, "worker_start"),
		logging.Duration("poll_interval", w.pollInterval))
	defer logger.Info("worker stopped", logging.String(logging.FieldEventType, "worker_stop"))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.store.Dequeue(ctx, w.id)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.handleDequeueError(ctx, err)
			continue
		}
		if job == nil {
			w.waitForJobOrShutdown(ctx)
			continue
		}
		w.processJob(ctx, job)
	}
}

// ProcessNext claims and processes at most one job. It reports whether a job
// was found.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	if err := w.validate(); err != nil {
		return false, err
	}
	job, err := w.store.Dequeue(ctx, w.id)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.processJob(ctx, job)
	return true, nil
}

func (w *Worker) handleDequeueError(ctx context.Context, err error) {
	w.setLastError(err)
	logging.WithContext(ctx, w.logger).Error("failed to dequeue next job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check queue directory permissions"))
	select {
	case <-ctx.Done():
	case <-time.After(w.errorBackoff):
	}
}

func (w *Worker) waitForJobOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.pollInterval):
	}
}

func (w *Worker) processJob(ctx context.Context, job *queue.JobRecord) {
	// The job runs to completion even if the worker is asked to stop.
	jobCtx := context.WithoutCancel(ctx)
	defer func() {
		if r := recover(); r != nil {
			w.handleStageFailure(jobCtx, string(job.Status), job, fmt.Errorf("panic: %v", r))
		}
	}()
	switch job.Kind {
	case queue.KindFeed:
		w.processFeed(jobCtx, job)
	default:
		w.processEpisode(jobCtx, job)
	}
}
