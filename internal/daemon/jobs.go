package daemon

import (
	"context"

	"podscribe/internal/api"
	"podscribe/internal/logging"
	"podscribe/internal/supervisor"
)

// Submit enqueues a URL. A job that was stored but whose workers failed to
// start is still returned; the next Submit or Retry retries the launch.
func (d *Daemon) Submit(ctx context.Context, req api.SubmitRequest) (api.Job, error) {
	rec, err := d.sup.Submit(ctx, supervisor.SubmitRequest{
		URL:            req.URL,
		Feed:           req.Feed,
		TargetLanguage: req.TargetLanguage,
	})
	if rec == nil {
		return api.Job{}, err
	}
	if err != nil {
		d.logger.Warn("job queued but workers did not start",
			logging.String(logging.FieldEventType, "worker_start_failed"),
			logging.String(logging.FieldJobID, rec.JobID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run podscribe doctor"),
			logging.String(logging.FieldImpact, "job waits in queue until a worker starts"))
	}
	return api.FromJob(*rec), nil
}

// Job returns one job view.
func (d *Daemon) Job(ctx context.Context, jobID string) (api.Job, error) {
	rec, err := d.sup.Status(ctx, jobID)
	if err != nil {
		return api.Job{}, err
	}
	return api.FromJob(*rec), nil
}

// History returns every job with feed episodes nested under their parent.
func (d *Daemon) History(ctx context.Context) (api.HistoryResponse, error) {
	entries, err := d.sup.History(ctx)
	if err != nil {
		return api.HistoryResponse{}, err
	}
	return api.FromHistory(entries), nil
}

// Episodes lists the children of a feed job.
func (d *Daemon) Episodes(ctx context.Context, jobID string) (api.EpisodesResponse, error) {
	children, err := d.sup.FeedChildren(ctx, jobID)
	if err != nil {
		return api.EpisodesResponse{}, err
	}
	return api.EpisodesResponse{ParentJobID: jobID, Episodes: api.FromJobs(children)}, nil
}

// Retry resubmits a failed job and returns the new job.
func (d *Daemon) Retry(ctx context.Context, jobID string) (api.Job, error) {
	rec, err := d.sup.Retry(ctx, jobID)
	if rec == nil {
		return api.Job{}, err
	}
	if err != nil {
		d.logger.Warn("retried job queued but workers did not start",
			logging.String(logging.FieldEventType, "worker_start_failed"),
			logging.String(logging.FieldJobID, rec.JobID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run podscribe doctor"))
	}
	return api.FromJob(*rec), nil
}
