package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusInQueue      Status = "in_queue"
	StatusDownloading  Status = "downloading"
	StatusTranscribing Status = "transcribing"
	StatusSummarizing  Status = "summarizing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

var allStatuses = []Status{
	StatusInQueue,
	StatusDownloading,
	StatusTranscribing,
	StatusSummarizing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusDownloading:  {},
	StatusTranscribing: {},
	StatusSummarizing:  {},
}

// Kind distinguishes episode jobs from feed jobs.
type Kind string

const (
	KindEpisode Kind = "episode"
	KindFeed    Kind = "feed"
)

// ParseKind converts a string into a known Kind.
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindEpisode:
		return KindEpisode, true
	case KindFeed:
		return KindFeed, true
	default:
		return "", false
	}
}

// FeedLink ties an episode job back to the feed job that created it.
type FeedLink struct {
	ParentJobID string `json:"parent_job_id"`
}

// FeedProgress counts how many of a feed's episodes reached a terminal state.
type FeedProgress struct {
	TotalEpisodes     int `json:"total_episodes"`
	ProcessedEpisodes int `json:"processed_episodes"`
}

// Percent returns processed/total as a percentage, or 0 for an empty feed.
func (p FeedProgress) Percent() float64 {
	if p.TotalEpisodes <= 0 {
		return 0
	}
	return float64(p.ProcessedEpisodes) / float64(p.TotalEpisodes) * 100
}

// JobRecord is one unit of processing work as persisted in the status table.
type JobRecord struct {
	JobID     string    `json:"job_id"`
	SourceURL string    `json:"source_url"`
	Kind      Kind      `json:"kind"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DownloadPath   string `json:"download_path,omitempty"`
	TranscriptPath string `json:"transcript_path,omitempty"`
	SummaryPath    string `json:"summary_path,omitempty"`

	Title          string     `json:"title,omitempty"`
	Description    string     `json:"description,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	Duration       float64    `json:"duration,omitempty"` // seconds
	Language       string     `json:"language,omitempty"`
	TargetLanguage string     `json:"target_language,omitempty"`

	FeedLink     *FeedLink     `json:"feed_link,omitempty"`
	FeedProgress *FeedProgress `json:"feed_progress,omitempty"`

	// ClaimedBy is the id of the worker that dequeued the job.
	ClaimedBy string `json:"claimed_by,omitempty"`
	// Seq breaks created_at ties in insertion order.
	Seq int64 `json:"seq"`
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsProcessing returns true when the job is inside a pipeline stage.
func (j JobRecord) IsProcessing() bool {
	return IsProcessingStatus(j.Status)
}

// ParentID returns the parent feed job id, or "" for jobs without a feed link.
func (j JobRecord) ParentID() string {
	if j.FeedLink == nil {
		return ""
	}
	return j.FeedLink.ParentJobID
}

// Clone returns a deep copy safe to mutate outside the store.
func (j JobRecord) Clone() JobRecord {
	cp := j
	if j.PublishedAt != nil {
		ts := *j.PublishedAt
		cp.PublishedAt = &ts
	}
	if j.FeedLink != nil {
		link := *j.FeedLink
		cp.FeedLink = &link
	}
	if j.FeedProgress != nil {
		progress := *j.FeedProgress
		cp.FeedProgress = &progress
	}
	return cp
}

// SetFailed marks the job failed with the given message.
func (j *JobRecord) SetFailed(message string) {
	j.Status = StatusFailed
	j.Error = message
}

// CanTransition reports whether a job of the given kind may move from one
// status to another. Feeds jump from in_queue straight to completed because
// expansion is their only stage; episodes must walk every stage in order.
func CanTransition(kind Kind, from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	if from == to {
		return true
	}
	if to == StatusFailed {
		return true
	}
	switch from {
	case StatusInQueue:
		if kind == KindFeed {
			return to == StatusCompleted
		}
		return to == StatusDownloading
	case StatusDownloading:
		return to == StatusTranscribing
	case StatusTranscribing:
		return to == StatusSummarizing
	case StatusSummarizing:
		return to == StatusCompleted
	default:
		return false
	}
}
