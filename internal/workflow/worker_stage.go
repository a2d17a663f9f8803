package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"podscribe/internal/cache"
	"podscribe/internal/fileutil"
	"podscribe/internal/logging"
	"podscribe/internal/notifications"
	"podscribe/internal/queue"
	"podscribe/internal/services"
)

func (w *Worker) episodeStages() []episodeStage {
	return []episodeStage{
		{name: "downloading", status: queue.StatusDownloading, run: w.download},
		{name: "transcribing", status: queue.StatusTranscribing, run: w.transcribe},
		{name: "summarizing", status: queue.StatusSummarizing, run: w.summarize},
	}
}

func (w *Worker) processEpisode(ctx context.Context, job *queue.JobRecord) {
	ctx = withJobContext(ctx, w.id, job, uuid.NewString())
	logger := w.jobLogger(ctx, job)
	jobStart := time.Now()

	for _, stg := range w.episodeStages() {
		stageCtx := services.WithStage(ctx, stg.name)
		stageLogger := w.jobLogger(stageCtx, job)

		if err := w.store.UpdateStatusAs(stageCtx, w.id, job.JobID, stg.status, ""); err != nil {
			w.handleTransitionError(stageCtx, job, stg.status, err)
			return
		}
		job.Status = stg.status
		stageStart := time.Now()
		stageLogger.Info("stage started",
			logging.String(logging.FieldEventType, "stage_start"),
			logging.String("source_url", job.SourceURL))

		if err := stg.run(stageCtx, job); err != nil {
			w.handleStageFailure(stageCtx, stg.name, job, err)
			return
		}
		if err := w.store.Update(stageCtx, job); err != nil {
			if errors.Is(err, queue.ErrNotClaimant) {
				w.handleTransitionError(stageCtx, job, stg.status, err)
				return
			}
			w.handleStageFailure(stageCtx, stg.name, job, fmt.Errorf("persist stage result: %w", err))
			return
		}
		stageLogger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("stage_duration", time.Since(stageStart)))
	}

	if err := w.store.UpdateStatusAs(ctx, w.id, job.JobID, queue.StatusCompleted, ""); err != nil {
		w.handleTransitionError(ctx, job, queue.StatusCompleted, err)
		return
	}
	job.Status = queue.StatusCompleted
	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.String("title", job.Title),
		logging.String("summary_path", job.SummaryPath),
		logging.Duration("job_duration", time.Since(jobStart)))
	w.notify(ctx, job, notifications.EventJobCompleted, notifications.Payload{"language": job.TargetLanguage})
	w.recordResult(job, nil)
}

func (w *Worker) download(ctx context.Context, job *queue.JobRecord) error {
	if hit := w.cachedDownload(ctx, job.SourceURL); hit != nil {
		job.DownloadPath = hit.AudioPath
		if job.Title == "" {
			job.Title = hit.Title
		}
		if job.Duration == 0 {
			job.Duration = hit.Duration
		}
		w.jobLogger(ctx, job).Info("download served from cache",
			logging.String(logging.FieldEventType, "cache_hit"),
			logging.String("audio_path", hit.AudioPath))
		return nil
	}

	result, err := w.collab.Fetcher.Download(ctx, job.SourceURL, job.Title)
	if err != nil {
		return err
	}
	if strings.TrimSpace(result.Path) == "" {
		return services.Wrap(services.ErrExternalTool, "downloading", "download", "no audio obtained", nil)
	}
	job.DownloadPath = result.Path
	if job.Title == "" {
		job.Title = result.Title
	}
	if job.Duration == 0 {
		job.Duration = result.Duration
	}

	if w.collab.Cache != nil {
		if err := w.collab.Cache.StoreDownload(ctx, cache.Download{
			SourceURL: job.SourceURL,
			AudioPath: job.DownloadPath,
			Title:     job.Title,
			Duration:  job.Duration,
		}); err != nil {
			w.cacheWarning(ctx, job, "store download", err)
		}
	}
	return nil
}

func (w *Worker) transcribe(ctx context.Context, job *queue.JobRecord) error {
	if strings.TrimSpace(job.DownloadPath) == "" {
		return services.Wrap(services.ErrValidation, "transcribing", "transcribe", "job has no downloaded audio", nil)
	}
	target := w.transcriptPath(job.JobID)

	if hit := w.cachedTranscript(ctx, job.DownloadPath); hit != nil {
		if info, err := os.Stat(hit.TranscriptPath); err == nil && info.Size() > 0 {
			if err := fileutil.CopyFile(hit.TranscriptPath, target); err != nil {
				return services.Wrap(services.ErrConfiguration, "transcribing", "write transcript", "", err)
			}
			job.TranscriptPath = target
			if hit.Language != "" {
				job.Language = hit.Language
			}
			if job.Duration == 0 {
				job.Duration = hit.Duration
			}
			w.jobLogger(ctx, job).Info("transcript served from cache",
				logging.String(logging.FieldEventType, "cache_hit"),
				logging.String("cached_path", hit.TranscriptPath))
			return nil
		}
	}

	result, err := w.collab.Transcriber.Transcribe(ctx, job.DownloadPath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(result.Text) == "" {
		return services.Wrap(services.ErrExternalTool, "transcribing", "transcribe", "transcript is empty", nil)
	}
	if err := fileutil.WriteAtomic(target, []byte(result.Text)); err != nil {
		return services.Wrap(services.ErrConfiguration, "transcribing", "write transcript", "", err)
	}
	job.TranscriptPath = target
	if result.Language != "" {
		job.Language = result.Language
	}
	if job.Duration == 0 {
		job.Duration = result.Duration
	}

	if w.collab.Cache != nil {
		if err := w.collab.Cache.StoreTranscript(ctx, cache.Transcript{
			AudioPath:      job.DownloadPath,
			TranscriptPath: target,
			Language:       job.Language,
			Duration:       job.Duration,
		}); err != nil {
			w.cacheWarning(ctx, job, "store transcript", err)
		}
	}
	return nil
}

func (w *Worker) summarize(ctx context.Context, job *queue.JobRecord) error {
	if strings.TrimSpace(job.TranscriptPath) == "" {
		return services.Wrap(services.ErrValidation, "summarizing", "summarize", "job has no transcript", nil)
	}
	text, err := os.ReadFile(job.TranscriptPath)
	if err != nil {
		return services.Wrap(services.ErrNotFound, "summarizing", "read transcript", "", err)
	}
	language := strings.TrimSpace(job.TargetLanguage)
	if language == "" {
		language = w.defaultLang
	}

	summary, err := w.collab.Summarizer.Summarize(ctx, string(text), language)
	if err != nil {
		return err
	}
	doc := SummaryDocument{
		JobID:          job.JobID,
		SourceURL:      job.SourceURL,
		Title:          job.Title,
		Language:       job.Language,
		TargetLanguage: language,
		Summary:        summary,
		CreatedAt:      w.now().Format(time.RFC3339),
	}
	target := w.summaryPath(job.JobID)
	if err := writeSummary(target, doc); err != nil {
		return services.Wrap(services.ErrConfiguration, "summarizing", "write summary", "", err)
	}
	job.SummaryPath = target
	return nil
}

func (w *Worker) cachedDownload(ctx context.Context, sourceURL string) *cache.Download {
	if w.collab.Cache == nil {
		return nil
	}
	hit, err := w.collab.Cache.LookupDownload(ctx, sourceURL)
	if err != nil {
		w.cacheWarning(ctx, nil, "lookup download", err)
		return nil
	}
	return hit
}

func (w *Worker) cachedTranscript(ctx context.Context, audioPath string) *cache.Transcript {
	if w.collab.Cache == nil {
		return nil
	}
	hit, err := w.collab.Cache.LookupTranscript(ctx, audioPath)
	if err != nil {
		w.cacheWarning(ctx, nil, "lookup transcript", err)
		return nil
	}
	return hit
}

func (w *Worker) cacheWarning(ctx context.Context, job *queue.JobRecord, op string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	w.jobLogger(ctx, job).Warn("artifact cache unavailable",
		logging.String(logging.FieldEventType, "cache_error"),
		logging.String("operation", op),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the cache database path"),
		logging.String(logging.FieldImpact, "artifacts are regenerated instead of reused"))
}
