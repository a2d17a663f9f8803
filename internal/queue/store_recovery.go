package queue

import (
	"context"

	"podscribe/internal/logging"
)

// RequeueInFlight returns every job stuck inside a stage to in_queue and
// appends it to the pending queue. Jobs that were dequeued but never started
// a stage are requeued too. Call it only while no worker is running.
func (s *Store) RequeueInFlight(ctx context.Context) ([]string, error) {
	return s.requeue(ctx, "startup", func(rec *JobRecord) bool {
		return true
	})
}

// RequeueClaimedBy requeues the unfinished jobs claimed by one worker, used
// after that worker process died.
func (s *Store) RequeueClaimedBy(ctx context.Context, workerID string) ([]string, error) {
	if workerID == "" {
		return nil, nil
	}
	return s.requeue(ctx, "worker_exit", func(rec *JobRecord) bool {
		return rec.ClaimedBy == workerID
	})
}

func (s *Store) requeue(ctx context.Context, reason string, match func(*JobRecord) bool) ([]string, error) {
	var ids []string
	err := s.mutate(ctx, func(st *state) (bool, error) {
		candidates := make([]JobRecord, 0)
		for _, rec := range st.jobs {
			orphaned := rec.Status == StatusInQueue && rec.ClaimedBy != "" && !st.isPending(rec.JobID)
			if !rec.IsProcessing() && !orphaned {
				continue
			}
			if !match(rec) {
				continue
			}
			candidates = append(candidates, *rec)
		}
		if len(candidates) == 0 {
			return false, nil
		}
		sortByCreation(candidates)
		now := s.now()
		for _, candidate := range candidates {
			rec := st.jobs[candidate.JobID]
			rec.Status = StatusInQueue
			rec.Error = ""
			rec.ClaimedBy = ""
			rec.UpdatedAt = now
			st.pending = append(st.pending, rec.Clone())
			ids = append(ids, rec.JobID)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		s.logger.Info("requeued interrupted jobs",
			logging.String(logging.FieldEventType, "jobs_requeued"),
			logging.String("reason", reason),
			logging.Int("count", len(ids)),
			logging.Any("job_ids", ids))
	}
	return ids, nil
}
