package workflow

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"podscribe/internal/fetcher"
	"podscribe/internal/logging"
	"podscribe/internal/notifications"
	"podscribe/internal/queue"
	"podscribe/internal/services"
)

const feedStageName = "expanding"

// processFeed lists the feed's episodes and hands them to the store, which
// enqueues the children and completes the parent atomically.
func (w *Worker) processFeed(ctx context.Context, job *queue.JobRecord) {
	ctx = services.WithStage(withJobContext(ctx, w.id, job, uuid.NewString()), feedStageName)
	logger := w.jobLogger(ctx, job)
	start := time.Now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("feed_url", job.SourceURL))

	episodes, err := w.collab.Fetcher.ListEpisodes(ctx, job.SourceURL)
	if err != nil {
		w.handleStageFailure(ctx, feedStageName, job, err)
		return
	}

	children := feedChildren(job, episodes)
	if dropped := len(episodes) - len(children); dropped > 0 {
		logger.Warn("duplicate episode urls skipped",
			logging.String(logging.FieldEventType, "feed_duplicate_episodes"),
			logging.Int("skipped", dropped),
			logging.String(logging.FieldErrorHint, "the feed lists the same enclosure more than once"),
			logging.String(logging.FieldImpact, "each audio url is processed once"))
	}

	created, err := w.store.ExpandFeed(ctx, job.JobID, children)
	if err != nil {
		w.handleStageFailure(ctx, feedStageName, job, err)
		return
	}
	job.Status = queue.StatusCompleted
	job.FeedProgress = &queue.FeedProgress{TotalEpisodes: len(children)}
	logger.Info("feed expanded",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Int("total_episodes", len(children)),
		logging.Int("new_episodes", created),
		logging.Duration("stage_duration", time.Since(start)))
	w.notify(ctx, job, notifications.EventFeedExpanded, notifications.Payload{"episodes": strconv.Itoa(len(children))})
	w.recordResult(job, nil)
}

// feedChildren maps episode descriptors onto child records, dropping repeated
// URLs so every child id is distinct.
func feedChildren(parent *queue.JobRecord, episodes []fetcher.Episode) []queue.JobRecord {
	seen := make(map[string]struct{}, len(episodes))
	children := make([]queue.JobRecord, 0, len(episodes))
	for _, ep := range episodes {
		if ep.URL == "" {
			continue
		}
		if _, dup := seen[ep.URL]; dup {
			continue
		}
		seen[ep.URL] = struct{}{}
		child := queue.JobRecord{
			JobID:          queue.ChildJobID(parent.JobID, ep.URL),
			SourceURL:      ep.URL,
			Kind:           queue.KindEpisode,
			Title:          ep.Title,
			Description:    ep.Description,
			Duration:       ep.Duration,
			TargetLanguage: parent.TargetLanguage,
			FeedLink:       &queue.FeedLink{ParentJobID: parent.JobID},
		}
		if ep.PublishedAt != nil {
			ts := *ep.PublishedAt
			child.PublishedAt = &ts
		}
		children = append(children, child)
	}
	return children
}
