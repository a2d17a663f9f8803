package supervisor

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"

	"podscribe/internal/logging"
	"podscribe/internal/queue"
	"podscribe/internal/services"
)

// SubmitRequest asks for one episode or feed to be processed.
type SubmitRequest struct {
	URL            string
	Feed           bool
	TargetLanguage string
}

// Submit validates and enqueues a job, starting the worker pool if needed.
func (s *Supervisor) Submit(ctx context.Context, req SubmitRequest) (*queue.JobRecord, error) {
	sourceURL, err := validateSourceURL(req.URL)
	if err != nil {
		return nil, err
	}
	lang, err := normalizeLanguage(req.TargetLanguage, s.defaultLanguage)
	if err != nil {
		return nil, err
	}
	if s.isClosing() {
		return nil, ErrShuttingDown
	}

	kind := queue.KindEpisode
	if req.Feed {
		kind = queue.KindFeed
	}
	rec, err := s.store.Enqueue(ctx, queue.JobRecord{SourceURL: sourceURL, Kind: kind, TargetLanguage: lang})
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	s.logger.Info("job submitted",
		logging.String(logging.FieldEventType, "job_submitted"),
		logging.String(logging.FieldJobID, rec.JobID),
		logging.String("kind", string(kind)),
		logging.String("source_url", sourceURL))

	if err := s.ensureWorkers(); err != nil {
		return rec, fmt.Errorf("start workers: %w", err)
	}
	return rec, nil
}

// Status returns one job, or an error wrapping queue.ErrNotFound.
func (s *Supervisor) Status(ctx context.Context, jobID string) (*queue.JobRecord, error) {
	rec, err := s.store.Get(ctx, strings.TrimSpace(jobID))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, queue.ErrNotFound)
	}
	return rec, nil
}

// History returns every job grouped so feed children sit under their parent.
func (s *Supervisor) History(ctx context.Context) ([]queue.HistoryEntry, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return queue.GroupHistory(records), nil
}

// FeedChildren returns the episodes expanded from a feed job.
func (s *Supervisor) FeedChildren(ctx context.Context, jobID string) ([]queue.JobRecord, error) {
	if _, err := s.Status(ctx, jobID); err != nil {
		return nil, err
	}
	return s.store.FeedChildren(ctx, jobID)
}

// Retry submits a fresh job for the same source as a failed one. The new job
// has no feed link so the original parent's totals stay accurate.
func (s *Supervisor) Retry(ctx context.Context, jobID string) (*queue.JobRecord, error) {
	prev, err := s.Status(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if prev.Status != queue.StatusFailed {
		return nil, fmt.Errorf("job %s is %s: %w", jobID, prev.Status, ErrNotRetryable)
	}
	if s.isClosing() {
		return nil, ErrShuttingDown
	}
	rec, err := s.store.Enqueue(ctx, queue.JobRecord{
		SourceURL:      prev.SourceURL,
		Kind:           prev.Kind,
		TargetLanguage: prev.TargetLanguage,
		Title:          prev.Title,
		Description:    prev.Description,
		PublishedAt:    prev.PublishedAt,
		Duration:       prev.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("retry: %w", err)
	}
	s.logger.Info("job retried",
		logging.String(logging.FieldEventType, "job_retried"),
		logging.String(logging.FieldJobID, rec.JobID),
		logging.String("previous_job_id", prev.JobID))
	if err := s.ensureWorkers(); err != nil {
		return rec, fmt.Errorf("start workers: %w", err)
	}
	return rec, nil
}

// Stats counts jobs per status.
func (s *Supervisor) Stats(ctx context.Context) (map[queue.Status]int, error) {
	return s.store.Stats(ctx)
}

func (s *Supervisor) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func validateSourceURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", services.Wrap(services.ErrValidation, "submit", "validate url", "url is required", nil)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", services.Wrap(services.ErrValidation, "submit", "validate url", fmt.Sprintf("%q is not an http(s) url", raw), nil)
	}
	return raw, nil
}

func normalizeLanguage(value, fallback string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	tag, err := language.Parse(value)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "submit", "validate language", fmt.Sprintf("%q is not a BCP 47 tag", value), err)
	}
	return tag.String(), nil
}
