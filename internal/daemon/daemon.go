package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"podscribe/internal/api"
	"podscribe/internal/config"
	"podscribe/internal/logging"
	"podscribe/internal/preflight"
	"podscribe/internal/queue"
	"podscribe/internal/supervisor"
)

// Daemon owns the store and supervisor for the lifetime of the process and
// enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	store  *queue.Store
	sup    *supervisor.Supervisor
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running   atomic.Bool
	startedAt time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, sup *supervisor.Supervisor, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || sup == nil {
		return nil, errors.New("daemon requires config, store, and supervisor")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Daemon{
		cfg:      cfg,
		store:    store,
		sup:      sup,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
		stopCh:   make(chan struct{}),
	}
	d.api = newAPIServer(cfg.Paths.APIBind, cfg.Paths.APIToken, d, d.logger)
	return d, nil
}

// Start acquires the instance lock, starts the supervisor, and opens the
// HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another podscribe daemon instance is already running")
	}

	if err := d.sup.Start(ctx); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("start supervisor: %w", err)
	}
	if err := d.api.start(ctx); err != nil {
		_ = d.sup.Shutdown(context.WithoutCancel(ctx))
		_ = d.lock.Unlock()
		return err
	}

	d.startedAt = time.Now().UTC()
	d.running.Store(true)
	d.logger.Info("podscribe daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath),
		logging.String("api_address", d.api.address()))
	return nil
}

// Stop shuts the worker pool down and releases the daemon lock. It is safe
// to call more than once.
func (d *Daemon) Stop(ctx context.Context) error {
	if !d.running.CompareAndSwap(true, false) {
		return nil
	}
	d.api.stop()
	err := d.sup.Shutdown(ctx)
	if err != nil {
		d.logger.Warn("worker shutdown incomplete",
			logging.String(logging.FieldEventType, "daemon_stop_incomplete"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "interrupted jobs are requeued on next start"))
	}
	if unlockErr := d.lock.Unlock(); unlockErr != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.String(logging.FieldEventType, "daemon_unlock_failed"),
			logging.Error(unlockErr),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"))
	}
	d.logger.Info("podscribe daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
	return err
}

// RequestStop asks the owning process to shut down. The process observes
// the request through StopRequested.
func (d *Daemon) RequestStop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
}

// StopRequested is closed once RequestStop is called.
func (d *Daemon) StopRequested() <-chan struct{} {
	return d.stopCh
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	stopErr := d.Stop(context.Background())
	return errors.Join(stopErr, d.store.Close())
}

// APIAddress returns the bound HTTP address, or "" when the API is disabled
// or not yet listening.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDir:     d.store.Dir(),
		LockFilePath: d.lockPath,
		APIAddress:   d.api.address(),
		Pool:         api.FromSnapshot(d.sup.Snapshot()),
		Dependencies: dependencyStatuses(ctx, d.cfg),
	}
	if !d.startedAt.IsZero() {
		status.StartedAt = d.startedAt.Format(time.RFC3339)
	}
	stats, err := d.sup.Stats(ctx)
	if err != nil {
		d.logger.Warn("queue stats unavailable",
			logging.String(logging.FieldEventType, "queue_stats_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue directory permissions"))
	}
	status.QueueStats = api.FromStats(stats)
	return status
}

func dependencyStatuses(ctx context.Context, cfg *config.Config) []api.DependencyStatus {
	return api.FromDependencies(preflight.CheckSystemDeps(ctx, cfg))
}
