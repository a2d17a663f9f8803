package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"podscribe/internal/config"
	"podscribe/internal/daemon"
	"podscribe/internal/ipc"
	"podscribe/internal/logging"
	"podscribe/internal/preflight"
	"podscribe/internal/queue"
	"podscribe/internal/supervisor"
	"podscribe/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// ConfigPath is forwarded to worker processes.
	ConfigPath string
	LogLevel   string
	// InProcess runs workers as goroutines instead of child processes.
	InProcess bool
}

// Run starts the podscribe daemon and blocks until a signal or an IPC stop
// request arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.RequireOpenAI(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := newLogger(cfg, opts.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logDependencySnapshot(logger, cfg)
	for _, failed := range preflight.Failed(preflight.RunAll(signalCtx, cfg)) {
		logger.Warn("preflight check failed",
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldErrorHint, "run podscribe doctor for details"))
	}

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg, logger)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}

	launcher, closeLauncher, err := buildLauncher(cfg, store, opts, logger)
	if err != nil {
		_ = store.Close()
		return err
	}
	defer closeLauncher()

	sup := supervisor.New(cfg, store, launcher, logger)
	d, err := daemon.New(cfg, store, sup, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check for another running daemon and queue directory access"))
		return err
	}

	select {
	case <-signalCtx.Done():
	case <-d.StopRequested():
	}
	logger.Info("podscribe daemon shutting down",
		logging.String(logging.FieldEventType, "daemon_shutdown"))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout()+5*time.Second)
	defer stopCancel()
	return d.Stop(stopCtx)
}

// buildLauncher returns the worker launcher for opts. In-process workers
// share one set of collaborators; the returned function releases them.
func buildLauncher(cfg *config.Config, store *queue.Store, opts Options, logger *slog.Logger) (supervisor.Launcher, func(), error) {
	if !opts.InProcess {
		launcher, err := supervisor.NewProcessLauncher(opts.ConfigPath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("worker launcher: %w", err)
		}
		return launcher, func() {}, nil
	}

	collab, closeCollab, err := BuildCollaborators(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	launcher := &supervisor.InProcessLauncher{Factory: func(workerID string) (*workflow.Worker, error) {
		return workflow.NewWorker(workerID, cfg, store, collab, logger), nil
	}}
	release := func() {
		if err := closeCollab(); err != nil {
			logger.Warn("failed to close artifact cache",
				logging.String(logging.FieldEventType, "cache_close_failed"),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the cache file is reopened on next start"))
		}
	}
	return launcher, release, nil
}

// RunWorker runs one worker until SIGTERM or SIGINT. It is the body of the
// hidden `podscribe worker` command the supervisor launches.
func RunWorker(cmdCtx context.Context, cfg *config.Config, workerID string, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		return errors.New("worker id is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := newLogger(cfg, opts.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String(logging.FieldWorkerID, workerID), logging.Int("pid", os.Getpid()))

	store, err := queue.Open(cfg, logger)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	collab, closeCollab, err := BuildCollaborators(cfg, logger)
	if err != nil {
		logger.Error("worker setup failed",
			logging.String(logging.FieldEventType, "worker_setup_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "review the podscribe config file and environment"))
		return err
	}
	defer closeCollab()

	runCtx, stopWatch := exitWithParent(signalCtx, logger, os.Getppid, parentCheckInterval)
	defer stopWatch()

	worker := workflow.NewWorker(workerID, cfg, store, collab, logger)
	logger.Info("worker started", logging.String(logging.FieldEventType, "worker_start"))
	if err := worker.Run(runCtx); err != nil {
		return err
	}
	status := worker.Status()
	logger.Info("worker stopped",
		logging.String(logging.FieldEventType, "worker_stop"),
		logging.Int("processed", status.Processed),
		logging.Int("failed", status.Failed))
	return nil
}

func newLogger(cfg *config.Config, level string) (*slog.Logger, error) {
	if level = strings.TrimSpace(level); level != "" {
		override := *cfg
		override.Logging.Level = level
		return logging.NewFromConfig(&override)
	}
	return logging.NewFromConfig(cfg)
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	whisper := cfg.Transcription.WhisperCommand
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("openai_key_present", strings.TrimSpace(cfg.OpenAI.APIKey) != ""),
		logging.String("openai_model", cfg.OpenAI.Model),
		logging.Bool("ytdlp_available", binaryAvailable(cfg.Fetcher.YtDlpBinary)),
		logging.String("ytdlp_binary", cfg.Fetcher.YtDlpBinary),
		logging.Bool("ffmpeg_available", binaryAvailable("ffmpeg")),
		logging.String("transcription_backend", cfg.Transcription.Backend),
		logging.Bool("whisper_available", binaryAvailable(whisper)),
		logging.String("whisper_binary", whisper),
		logging.Bool("cache_enabled", cfg.Cache.Enabled),
		logging.Int("workers", cfg.Workflow.Workers),
	)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
