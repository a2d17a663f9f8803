package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a job in a transport-friendly format.
type Job struct {
	JobID           string        `json:"job_id"`
	SourceURL       string        `json:"source_url"`
	Kind            string        `json:"kind"`
	Status          string        `json:"status"`
	Error           string        `json:"error,omitempty"`
	CreatedAt       string        `json:"created_at,omitempty"`
	UpdatedAt       string        `json:"updated_at,omitempty"`
	DownloadPath    string        `json:"download_path,omitempty"`
	TranscriptPath  string        `json:"transcript_path,omitempty"`
	SummaryPath     string        `json:"summary_path,omitempty"`
	Title           string        `json:"title,omitempty"`
	Description     string        `json:"description,omitempty"`
	PublishedAt     string        `json:"published_at,omitempty"`
	Duration        float64       `json:"duration,omitempty"`
	Language        string        `json:"language,omitempty"`
	TargetLanguage  string        `json:"target_language,omitempty"`
	ParentJobID     string        `json:"parent_job_id,omitempty"`
	FeedProgress    *FeedProgress `json:"feed_progress,omitempty"`
	ProgressPercent *float64      `json:"progress_percent,omitempty"`
}

// FeedProgress mirrors queue.FeedProgress.
type FeedProgress struct {
	TotalEpisodes     int `json:"total_episodes"`
	ProcessedEpisodes int `json:"processed_episodes"`
}

// HistoryEntry is one top-level job; feeds carry their episodes.
type HistoryEntry struct {
	Job
	Episodes []Job `json:"episodes,omitzero"`
}

// HistoryResponse is the grouped history payload.
type HistoryResponse struct {
	Jobs  []HistoryEntry `json:"jobs"`
	Total int            `json:"total"`
}

// SubmitRequest asks the daemon to process a URL.
type SubmitRequest struct {
	URL            string `json:"url"`
	Feed           bool   `json:"feed"`
	TargetLanguage string `json:"target_language,omitempty"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// EpisodesResponse lists the children of a feed job.
type EpisodesResponse struct {
	ParentJobID string `json:"parent_job_id"`
	Episodes    []Job  `json:"episodes"`
}

// ErrorResponse is returned by the HTTP API on failure.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Hint  string `json:"hint,omitempty"`
}

// Worker describes one pool member.
type Worker struct {
	WorkerID  string `json:"worker_id"`
	PID       int    `json:"pid"`
	Alive     bool   `json:"alive"`
	StartedAt string `json:"started_at,omitempty"`
}

// Pool summarizes the worker pool.
type Pool struct {
	Started        bool     `json:"started"`
	ShuttingDown   bool     `json:"shutting_down"`
	DesiredWorkers int      `json:"desired_workers"`
	Restarts       int      `json:"restarts"`
	Workers        []Worker `json:"workers"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Version     string `json:"version,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	StartedAt    string             `json:"started_at,omitempty"`
	QueueDir     string             `json:"queue_dir"`
	LockFilePath string             `json:"lock_file_path"`
	APIAddress   string             `json:"api_address,omitempty"`
	Pool         Pool               `json:"pool"`
	QueueStats   map[string]int     `json:"queue_stats"`
	Dependencies []DependencyStatus `json:"dependencies"`
}
