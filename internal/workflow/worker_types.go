package workflow

import (
	"context"

	"podscribe/internal/cache"
	"podscribe/internal/fetcher"
	"podscribe/internal/notifications"
	"podscribe/internal/queue"
	"podscribe/internal/summarizer"
	"podscribe/internal/transcriber"
)

// Fetcher lists feed episodes and downloads audio.
type Fetcher interface {
	ListEpisodes(ctx context.Context, feedURL string) ([]fetcher.Episode, error)
	Download(ctx context.Context, sourceURL, hintTitle string) (fetcher.DownloadResult, error)
}

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (transcriber.Result, error)
}

// Summarizer condenses a transcript.
type Summarizer interface {
	Summarize(ctx context.Context, transcript, targetLanguage string) (summarizer.Summary, error)
}

// ArtifactCache remembers downloads and transcripts across jobs. A nil
// *cache.Cache satisfies it as an always-miss cache.
type ArtifactCache interface {
	LookupDownload(ctx context.Context, sourceURL string) (*cache.Download, error)
	StoreDownload(ctx context.Context, d cache.Download) error
	LookupTranscript(ctx context.Context, audioPath string) (*cache.Transcript, error)
	StoreTranscript(ctx context.Context, tr cache.Transcript) error
}

// Collaborators bundles the external services a worker drives. Cache and
// Notifier are optional.
type Collaborators struct {
	Fetcher     Fetcher
	Transcriber Transcriber
	Summarizer  Summarizer
	Cache       ArtifactCache
	Notifier    notifications.Service
}

// episodeStage is one step of the episode pipeline.
type episodeStage struct {
	name   string
	status queue.Status
	run    func(ctx context.Context, job *queue.JobRecord) error
}

// SummaryDocument is the JSON written to the summaries directory.
type SummaryDocument struct {
	JobID          string `json:"job_id"`
	SourceURL      string `json:"source_url"`
	Title          string `json:"title"`
	Language       string `json:"language"`
	TargetLanguage string `json:"target_language"`
	summarizer.Summary
	CreatedAt string `json:"created_at"`
}
