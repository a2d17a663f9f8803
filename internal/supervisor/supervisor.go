package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"podscribe/internal/config"
	"podscribe/internal/logging"
	"podscribe/internal/queue"
)

var (
	// ErrShuttingDown is returned by Submit and Retry once Shutdown began.
	ErrShuttingDown = errors.New("supervisor is shutting down")
	// ErrNotRetryable is returned when Retry targets a job that has not failed.
	ErrNotRetryable = errors.New("only failed jobs can be retried")
)

// Supervisor owns the worker pool and fronts the job store.
type Supervisor struct {
	store    *queue.Store
	launcher Launcher
	logger   *slog.Logger

	workers         int
	healthInterval  time.Duration
	shutdownTimeout time.Duration
	requeueInFlight bool
	defaultLanguage string

	mu        sync.Mutex
	procs     []Process
	restarts  int
	started   bool
	wantPool  bool
	closing   bool
	runCtx    context.Context
	cancel    context.CancelFunc
	healthWG  sync.WaitGroup
	startedAt time.Time

	shutdownOnce sync.Once
	shutdownErr  error
}

// New constructs a Supervisor. Start must be called before use.
func New(cfg *config.Config, store *queue.Store, launcher Launcher, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Supervisor{
		store:           store,
		launcher:        launcher,
		logger:          logging.NewComponentLogger(logger, "supervisor"),
		workers:         1,
		healthInterval:  5 * time.Second,
		shutdownTimeout: 10 * time.Second,
		requeueInFlight: true,
	}
	if cfg != nil {
		s.workers = cfg.Workflow.Workers
		s.healthInterval = cfg.HealthInterval()
		s.shutdownTimeout = cfg.ShutdownTimeout()
		s.requeueInFlight = cfg.Workflow.RequeueInFlight
		s.defaultLanguage = cfg.Summary.TargetLanguage
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return s
}

// Start recovers in-flight jobs, begins health monitoring, and launches the
// pool right away when jobs are already pending. Failures abort startup.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("supervisor already started")
	}
	if s.store == nil || s.launcher == nil {
		s.mu.Unlock()
		return errors.New("supervisor requires a store and a launcher")
	}
	s.started = true
	s.startedAt = time.Now().UTC()
	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Unlock()

	if s.requeueInFlight {
		ids, err := s.store.RequeueInFlight(ctx)
		if err != nil {
			return fmt.Errorf("requeue in-flight jobs: %w", err)
		}
		if len(ids) > 0 {
			s.logger.Warn("requeued jobs interrupted by a previous shutdown",
				logging.String(logging.FieldEventType, "jobs_requeued"),
				logging.Int("count", len(ids)),
				logging.String(logging.FieldErrorHint, "jobs restart from the download stage"),
				logging.String(logging.FieldImpact, "partial stage progress is discarded"))
		}
	}

	pending, err := s.store.Pending(ctx)
	if err != nil {
		return fmt.Errorf("read pending queue: %w", err)
	}
	if len(pending) > 0 {
		if err := s.ensureWorkers(); err != nil {
			return err
		}
	}

	s.healthWG.Add(1)
	go s.healthLoop()
	s.logger.Info("supervisor started",
		logging.String(logging.FieldEventType, "supervisor_start"),
		logging.Int("workers", s.workers),
		logging.Int("pending", len(pending)),
		logging.Duration("health_interval", s.healthInterval))
	return nil
}

// ensureWorkers launches the pool on first use. Once requested, the pool
// stays wanted: slots whose launch failed are filled by the health loop.
func (s *Supervisor) ensureWorkers() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return ErrShuttingDown
	}
	s.wantPool = true
	for len(s.procs) < s.workers {
		s.procs = append(s.procs, nil)
	}
	for slot, proc := range s.procs {
		if proc != nil {
			continue
		}
		fresh, err := s.launchLocked(slot)
		if err != nil {
			return err
		}
		s.procs[slot] = fresh
	}
	return nil
}

func (s *Supervisor) launchLocked(slot int) (Process, error) {
	workerID := fmt.Sprintf("worker-%d-%s", slot+1, uuid.NewString()[:8])
	proc, err := s.launcher.Launch(s.runCtx, workerID)
	if err != nil {
		s.logger.Error("worker launch failed",
			logging.String(logging.FieldEventType, "worker_launch_failed"),
			logging.String(logging.FieldWorkerID, workerID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run podscribe doctor to check the installation"))
		return nil, fmt.Errorf("launch %s: %w", workerID, err)
	}
	s.logger.Info("worker launched",
		logging.String(logging.FieldEventType, "worker_launched"),
		logging.String(logging.FieldWorkerID, workerID),
		logging.Int("pid", proc.PID()))
	return proc, nil
}

// Shutdown terminates every worker, waits up to the shutdown timeout, then
// kills stragglers. Only the first call does any work; later calls return the
// same result.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.shutdownErr = s.shutdown(ctx)
	})
	return s.shutdownErr
}

func (s *Supervisor) shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	cancel := s.cancel
	procs := make([]Process, 0, len(s.procs))
	for _, proc := range s.procs {
		if proc != nil {
			procs = append(procs, proc)
		}
	}
	s.procs = nil
	s.wantPool = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.healthWG.Wait()

	s.logger.Info("stopping workers",
		logging.String(logging.FieldEventType, "supervisor_shutdown"),
		logging.Int("workers", len(procs)))
	for _, proc := range procs {
		if err := proc.Terminate(); err != nil {
			s.logger.Warn("worker terminate failed",
				logging.String(logging.FieldEventType, "worker_terminate_failed"),
				logging.String(logging.FieldWorkerID, proc.WorkerID()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "worker will be killed after the shutdown timeout"))
		}
	}

	timer := time.NewTimer(s.shutdownTimeout)
	defer timer.Stop()
	var errs []error
	for _, proc := range procs {
		select {
		case <-proc.Done():
			continue
		case <-timer.C:
		case <-ctx.Done():
		}
		s.logger.Warn("worker did not stop in time; killing",
			logging.String(logging.FieldEventType, "worker_killed"),
			logging.String(logging.FieldWorkerID, proc.WorkerID()),
			logging.String(logging.FieldErrorHint, "its job is requeued on next start"),
			logging.String(logging.FieldImpact, "in-flight stage progress is lost"))
		if err := proc.Kill(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WorkerInfo describes one pool member.
type WorkerInfo struct {
	WorkerID  string    `json:"worker_id"`
	PID       int       `json:"pid"`
	Alive     bool      `json:"alive"`
	StartedAt time.Time `json:"started_at"`
}

// Snapshot is a point-in-time view of the pool.
type Snapshot struct {
	Started      bool         `json:"started"`
	ShuttingDown bool         `json:"shutting_down"`
	StartedAt    time.Time    `json:"started_at"`
	Desired      int          `json:"desired_workers"`
	Restarts     int          `json:"restarts"`
	Workers      []WorkerInfo `json:"workers"`
}

// Snapshot reports pool state.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Started:      s.started,
		ShuttingDown: s.closing,
		StartedAt:    s.startedAt,
		Desired:      s.workers,
		Restarts:     s.restarts,
		Workers:      make([]WorkerInfo, 0, len(s.procs)),
	}
	for _, proc := range s.procs {
		if proc == nil {
			continue
		}
		snap.Workers = append(snap.Workers, WorkerInfo{
			WorkerID:  proc.WorkerID(),
			PID:       proc.PID(),
			Alive:     alive(proc),
			StartedAt: proc.StartedAt(),
		})
	}
	return snap
}

func alive(proc Process) bool {
	select {
	case <-proc.Done():
		return false
	default:
		return true
	}
}
