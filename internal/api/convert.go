package api

import (
	"time"

	"podscribe/internal/deps"
	"podscribe/internal/queue"
	"podscribe/internal/supervisor"
)

// FromJob converts a queue record into its transport form.
func FromJob(rec queue.JobRecord) Job {
	job := Job{
		JobID:          rec.JobID,
		SourceURL:      rec.SourceURL,
		Kind:           string(rec.Kind),
		Status:         string(rec.Status),
		Error:          rec.Error,
		CreatedAt:      formatTime(rec.CreatedAt),
		UpdatedAt:      formatTime(rec.UpdatedAt),
		DownloadPath:   rec.DownloadPath,
		TranscriptPath: rec.TranscriptPath,
		SummaryPath:    rec.SummaryPath,
		Title:          rec.Title,
		Description:    rec.Description,
		Duration:       rec.Duration,
		Language:       rec.Language,
		TargetLanguage: rec.TargetLanguage,
		ParentJobID:    rec.ParentID(),
	}
	if rec.PublishedAt != nil {
		job.PublishedAt = formatTime(*rec.PublishedAt)
	}
	if rec.FeedProgress != nil {
		job.FeedProgress = &FeedProgress{
			TotalEpisodes:     rec.FeedProgress.TotalEpisodes,
			ProcessedEpisodes: rec.FeedProgress.ProcessedEpisodes,
		}
		percent := rec.FeedProgress.Percent()
		job.ProgressPercent = &percent
	}
	return job
}

// FromJobs converts a slice of records, never returning nil.
func FromJobs(records []queue.JobRecord) []Job {
	jobs := make([]Job, 0, len(records))
	for _, rec := range records {
		jobs = append(jobs, FromJob(rec))
	}
	return jobs
}

// FromHistory converts grouped history into the {jobs, total} payload.
// Feeds always carry an episodes array, possibly empty.
func FromHistory(entries []queue.HistoryEntry) HistoryResponse {
	resp := HistoryResponse{Jobs: make([]HistoryEntry, 0, len(entries)), Total: len(entries)}
	for _, entry := range entries {
		view := HistoryEntry{Job: FromJob(entry.Job)}
		if entry.Episodes != nil {
			view.Episodes = FromJobs(entry.Episodes)
		}
		resp.Jobs = append(resp.Jobs, view)
	}
	return resp
}

// FromSnapshot converts a supervisor pool snapshot.
func FromSnapshot(snap supervisor.Snapshot) Pool {
	pool := Pool{
		Started:        snap.Started,
		ShuttingDown:   snap.ShuttingDown,
		DesiredWorkers: snap.Desired,
		Restarts:       snap.Restarts,
		Workers:        make([]Worker, 0, len(snap.Workers)),
	}
	for _, w := range snap.Workers {
		pool.Workers = append(pool.Workers, Worker{
			WorkerID:  w.WorkerID,
			PID:       w.PID,
			Alive:     w.Alive,
			StartedAt: formatTime(w.StartedAt),
		})
	}
	return pool
}

// FromStats converts per-status counts, listing every status.
func FromStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime parses a timestamp produced by this package.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

// FromDependencies converts binary checks into their wire form.
func FromDependencies(checks []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(checks))
	for _, check := range checks {
		out = append(out, DependencyStatus{
			Name:        check.Name,
			Command:     check.Command,
			Description: check.Description,
			Optional:    check.Optional,
			Available:   check.Available,
			Version:     check.Version,
			Detail:      check.Detail,
		})
	}
	return out
}
