package queue

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"podscribe/internal/logging"
)

// Enqueue records a new job at in_queue and appends it to the pending queue.
// An empty JobID is assigned; a duplicate id is rejected. Both files are
// flushed before Enqueue returns.
func (s *Store) Enqueue(ctx context.Context, record JobRecord) (*JobRecord, error) {
	record.SourceURL = strings.TrimSpace(record.SourceURL)
	if record.SourceURL == "" {
		return nil, fmt.Errorf("enqueue: source url is required")
	}
	if record.Kind == "" {
		record.Kind = KindEpisode
	}
	if _, ok := ParseKind(string(record.Kind)); !ok {
		return nil, fmt.Errorf("enqueue: unknown kind %q", record.Kind)
	}
	if record.FeedLink != nil && record.FeedProgress != nil {
		return nil, fmt.Errorf("enqueue: job cannot carry both feed_link and feed_progress")
	}
	if record.JobID == "" {
		record.JobID = NewJobID()
	}

	var stored JobRecord
	err := s.mutate(ctx, func(st *state) (bool, error) {
		if _, exists := st.jobs[record.JobID]; exists {
			return false, fmt.Errorf("enqueue %s: %w", record.JobID, ErrDuplicateJob)
		}
		stored = s.insertLocked(st, record)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("job enqueued",
		logging.String(logging.FieldJobID, stored.JobID),
		logging.String("kind", string(stored.Kind)),
		logging.String("source_url", stored.SourceURL))
	return &stored, nil
}

// insertLocked stamps a fresh record and appends it to both the table and
// the pending queue. The caller holds the lock.
func (s *Store) insertLocked(st *state, record JobRecord) JobRecord {
	now := s.now()
	rec := record.Clone()
	rec.Status = StatusInQueue
	rec.Error = ""
	rec.ClaimedBy = ""
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.Seq = st.nextSeq()
	st.jobs[rec.JobID] = &rec
	st.pending = append(st.pending, rec.Clone())
	return rec.Clone()
}

// Dequeue pops the oldest pending job and records workerID as its claimant.
// It never blocks: a nil record means nothing is pending.
func (s *Store) Dequeue(ctx context.Context, workerID string) (*JobRecord, error) {
	var claimed *JobRecord
	err := s.mutate(ctx, func(st *state) (bool, error) {
		changed := false
		for len(st.pending) > 0 {
			head := st.pending[0]
			st.pending = st.pending[1:]
			changed = true

			rec, ok := st.jobs[head.JobID]
			if !ok || rec.Status != StatusInQueue {
				s.logger.Debug("dropping stale pending entry",
					logging.String(logging.FieldJobID, head.JobID))
				continue
			}
			rec.ClaimedBy = workerID
			rec.UpdatedAt = s.now()
			cp := rec.Clone()
			claimed = &cp
			break
		}
		return changed, nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// UpdateStatus moves a job to status. errMsg is kept only for failed and
// cleared otherwise. An unknown id is logged and ignored. When an episode
// with a feed link reaches a terminal status, its parent's processed count is
// incremented under the same lock.
func (s *Store) UpdateStatus(ctx context.Context, jobID string, status Status, errMsg string) error {
	return s.updateStatus(ctx, "", jobID, status, errMsg)
}

// UpdateStatusAs is UpdateStatus on behalf of workerID. It returns
// ErrNotClaimant once the job has been requeued away from that worker.
func (s *Store) UpdateStatusAs(ctx context.Context, workerID, jobID string, status Status, errMsg string) error {
	if workerID == "" {
		return fmt.Errorf("update status %s: worker id required", jobID)
	}
	return s.updateStatus(ctx, workerID, jobID, status, errMsg)
}

func (s *Store) updateStatus(ctx context.Context, workerID, jobID string, status Status, errMsg string) error {
	if _, ok := statusSet[status]; !ok {
		return fmt.Errorf("update status: unknown status %q", status)
	}
	return s.mutate(ctx, func(st *state) (bool, error) {
		rec, ok := st.jobs[jobID]
		if !ok {
			s.logger.Warn("status update for unknown job ignored",
				logging.String(logging.FieldEventType, "queue_unknown_job"),
				logging.String(logging.FieldJobID, jobID),
				logging.String("status", string(status)),
				logging.String(logging.FieldErrorHint, "job may have been written by a process that restarted"))
			return false, nil
		}
		if err := checkClaim(rec, workerID); err != nil {
			return false, err
		}
		if !CanTransition(rec.Kind, rec.Status, status) {
			return false, fmt.Errorf("%s: %s -> %s: %w", jobID, rec.Status, status, ErrInvalidTransition)
		}
		rec.Status = status
		if status == StatusFailed {
			rec.Error = errMsg
		} else {
			rec.Error = ""
		}
		rec.UpdatedAt = s.now()
		if status.IsTerminal() && rec.FeedLink != nil {
			s.incrementLocked(st, rec.FeedLink.ParentJobID)
		}
		return true, nil
	})
}

// Update writes back the descriptive and artifact fields of a worker's copy.
// Identity, kind, status, and feed linkage are owned by the store and are not
// touched. A copy carrying ClaimedBy is rejected with ErrNotClaimant when the
// job has since been claimed by someone else.
func (s *Store) Update(ctx context.Context, record *JobRecord) error {
	if record == nil {
		return fmt.Errorf("update: nil record")
	}
	return s.mutate(ctx, func(st *state) (bool, error) {
		rec, ok := st.jobs[record.JobID]
		if !ok {
			return false, fmt.Errorf("update %s: %w", record.JobID, ErrNotFound)
		}
		if err := checkClaim(rec, record.ClaimedBy); err != nil {
			return false, err
		}
		rec.DownloadPath = record.DownloadPath
		rec.TranscriptPath = record.TranscriptPath
		rec.SummaryPath = record.SummaryPath
		rec.Title = record.Title
		rec.Description = record.Description
		if record.PublishedAt != nil {
			ts := *record.PublishedAt
			rec.PublishedAt = &ts
		}
		rec.Duration = record.Duration
		rec.Language = record.Language
		rec.UpdatedAt = s.now()
		record.UpdatedAt = rec.UpdatedAt
		return true, nil
	})
}

// Get returns the job with the given id, or nil when it does not exist.
func (s *Store) Get(ctx context.Context, jobID string) (*JobRecord, error) {
	var found *JobRecord
	err := s.read(ctx, func(st *state) error {
		if rec, ok := st.jobs[jobID]; ok {
			cp := rec.Clone()
			found = &cp
		}
		return nil
	})
	return found, err
}

// ListAll returns every job ordered by creation time.
func (s *Store) ListAll(ctx context.Context) ([]JobRecord, error) {
	var records []JobRecord
	err := s.read(ctx, func(st *state) error {
		records = make([]JobRecord, 0, len(st.jobs))
		for _, rec := range st.jobs {
			records = append(records, rec.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByCreation(records)
	return records, nil
}

// Pending returns the pending queue snapshot in dequeue order.
func (s *Store) Pending(ctx context.Context) ([]JobRecord, error) {
	var records []JobRecord
	err := s.read(ctx, func(st *state) error {
		records = make([]JobRecord, 0, len(st.pending))
		for _, rec := range st.pending {
			records = append(records, rec.Clone())
		}
		return nil
	})
	return records, err
}

// FeedChildren returns the episode jobs linked to parentID ordered by
// creation time. A blank parentID matches nothing.
func (s *Store) FeedChildren(ctx context.Context, parentID string) ([]JobRecord, error) {
	if strings.TrimSpace(parentID) == "" {
		return nil, nil
	}
	var records []JobRecord
	err := s.read(ctx, func(st *state) error {
		for _, rec := range st.jobs {
			if rec.ParentID() == parentID {
				records = append(records, rec.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByCreation(records)
	return records, nil
}

// Stats counts jobs per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	counts := make(map[Status]int, len(allStatuses))
	err := s.read(ctx, func(st *state) error {
		for _, rec := range st.jobs {
			counts[rec.Status]++
		}
		return nil
	})
	return counts, err
}

func sortByCreation(records []JobRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].Seq < records[j].Seq
	})
}

func checkClaim(rec *JobRecord, workerID string) error {
	if workerID == "" || rec.ClaimedBy == workerID {
		return nil
	}
	return fmt.Errorf("%s: held by %q, write from %q: %w", rec.JobID, rec.ClaimedBy, workerID, ErrNotClaimant)
}
