package queue

import (
	"context"
	"fmt"

	"podscribe/internal/logging"
)

// ExpandFeed inserts the episode children of a feed job, sets its progress to
// {len(children), already-terminal children} and completes the parent, all
// under one lock. Children whose id already exists are kept as they are, which
// makes a repeated expansion after a crash harmless. It returns the number of
// newly enqueued children.
func (s *Store) ExpandFeed(ctx context.Context, parentID string, children []JobRecord) (int, error) {
	created := 0
	err := s.mutate(ctx, func(st *state) (bool, error) {
		parent, ok := st.jobs[parentID]
		if !ok {
			return false, fmt.Errorf("expand feed %s: %w", parentID, ErrNotFound)
		}
		if parent.Kind != KindFeed {
			return false, fmt.Errorf("expand feed %s: job kind is %s", parentID, parent.Kind)
		}
		if !CanTransition(parent.Kind, parent.Status, StatusCompleted) {
			return false, fmt.Errorf("expand feed %s: %s -> %s: %w", parentID, parent.Status, StatusCompleted, ErrInvalidTransition)
		}

		processed := 0
		for _, child := range children {
			if child.JobID == "" {
				child.JobID = ChildJobID(parentID, child.SourceURL)
			}
			if existing, exists := st.jobs[child.JobID]; exists {
				if existing.Status.IsTerminal() {
					processed++
				}
				continue
			}
			child.Kind = KindEpisode
			child.FeedLink = &FeedLink{ParentJobID: parentID}
			child.FeedProgress = nil
			if child.TargetLanguage == "" {
				child.TargetLanguage = parent.TargetLanguage
			}
			s.insertLocked(st, child)
			created++
		}

		parent.FeedProgress = &FeedProgress{TotalEpisodes: len(children), ProcessedEpisodes: processed}
		parent.Status = StatusCompleted
		parent.Error = ""
		parent.UpdatedAt = s.now()
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("feed expanded",
		logging.String(logging.FieldEventType, "feed_expanded"),
		logging.String(logging.FieldJobID, parentID),
		logging.Int("total_episodes", len(children)),
		logging.Int("new_episodes", created))
	return created, nil
}

// IncrementFeedProgress adds one to a feed's processed count. Missing parents
// and parents without progress are logged and ignored.
func (s *Store) IncrementFeedProgress(ctx context.Context, parentID string) error {
	return s.mutate(ctx, func(st *state) (bool, error) {
		return s.incrementLocked(st, parentID), nil
	})
}

func (s *Store) incrementLocked(st *state, parentID string) bool {
	parent, ok := st.jobs[parentID]
	if !ok || parent.FeedProgress == nil {
		s.logger.Warn("feed progress increment ignored",
			logging.String(logging.FieldEventType, "feed_progress_missing"),
			logging.String(logging.FieldParentJobID, parentID),
			logging.Bool("parent_found", ok),
			logging.String(logging.FieldErrorHint, "parent feed job is missing or was never expanded"))
		return false
	}
	if parent.FeedProgress.ProcessedEpisodes < parent.FeedProgress.TotalEpisodes {
		parent.FeedProgress.ProcessedEpisodes++
	}
	parent.UpdatedAt = s.now()
	return true
}
