package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"podscribe/internal/config"
	"podscribe/internal/logging"
	"podscribe/internal/queue"
)

// Worker polls the job store and processes one job at a time.
type Worker struct {
	id             string
	store          *queue.Store
	collab         Collaborators
	logger         *slog.Logger
	pollInterval   time.Duration
	errorBackoff   time.Duration
	transcriptsDir string
	summariesDir   string
	defaultLang    string
	now            func() time.Time

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	lastErr   error
	lastJob   *queue.JobRecord
	processed int
	failed    int
}

// WorkerOption configures optional Worker behavior.
type WorkerOption func(*Worker)

// WithPollInterval overrides the configured poll interval.
func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithClock overrides the time source used for artifact timestamps.
func WithClock(now func() time.Time) WorkerOption {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

// NewWorker constructs a worker identified by id.
func NewWorker(id string, cfg *config.Config, store *queue.Store, collab Collaborators, logger *slog.Logger, opts ...WorkerOption) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	w := &Worker{
		id:           id,
		store:        store,
		collab:       collab,
		logger:       logging.NewComponentLogger(logger, "worker"),
		pollInterval: time.Second,
		errorBackoff: time.Second,
		now:          func() time.Time { return time.Now().UTC() },
	}
	if cfg != nil {
		w.pollInterval = cfg.PollInterval()
		w.errorBackoff = cfg.PollInterval()
		w.transcriptsDir = cfg.Paths.TranscriptsDir
		w.summariesDir = cfg.Paths.SummariesDir
		w.defaultLang = cfg.Summary.TargetLanguage
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ID returns the worker identifier recorded as claimed_by on dequeued jobs.
func (w *Worker) ID() string {
	return w.id
}

// Start begins polling in the background.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("worker already running")
	}
	if err := w.validate(); err != nil {
		w.mu.Unlock()
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()

	go func() {
		defer close(done)
		w.loop(runCtx)
	}()
	return nil
}

// Run polls until ctx is cancelled. It is the entry point of a worker
// process.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	w.Stop()
	return nil
}

// Stop cancels polling and waits for the in-flight job to settle.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	done := w.done
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	<-done
}

// Done is closed when the polling loop exits.
func (w *Worker) Done() <-chan struct{} {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return w.done
}

func (w *Worker) validate() error {
	switch {
	case w.store == nil:
		return errors.New("worker requires a job store")
	case w.collab.Fetcher == nil:
		return errors.New("worker requires a fetcher")
	case w.collab.Transcriber == nil:
		return errors.New("worker requires a transcriber")
	case w.collab.Summarizer == nil:
		return errors.New("worker requires a summarizer")
	}
	return nil
}
