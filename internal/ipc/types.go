package ipc

import "podscribe/internal/api"

// SubmitRequest asks the daemon to process a URL.
type SubmitRequest = api.SubmitRequest

// JobResponse wraps a single job.
type JobResponse = api.JobResponse

// JobRequest names a job by id.
type JobRequest struct {
	JobID string `json:"job_id"`
}

// HistoryRequest fetches grouped history.
type HistoryRequest struct{}

// HistoryResponse is the grouped history payload.
type HistoryResponse = api.HistoryResponse

// FeedChildrenResponse lists the children of a feed job.
type FeedChildrenResponse = api.EpisodesResponse

// DaemonStatusRequest fetches daemon status.
type DaemonStatusRequest struct{}

// DaemonStatusResponse represents combined daemon and pool status.
type DaemonStatusResponse = api.DaemonStatus

// DependencyStatus describes availability of an external dependency.
type DependencyStatus = api.DependencyStatus

// StopRequest asks the daemon process to exit.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}
