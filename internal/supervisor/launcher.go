package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"podscribe/internal/logging"
)

// Process is one running worker.
type Process interface {
	// WorkerID is the id the worker records as claimed_by.
	WorkerID() string
	PID() int
	StartedAt() time.Time
	// Done is closed once the worker has exited.
	Done() <-chan struct{}
	// Terminate asks the worker to stop after its current job.
	Terminate() error
	// Kill stops the worker immediately.
	Kill() error
}

// Launcher starts worker processes.
type Launcher interface {
	Launch(ctx context.Context, workerID string) (Process, error)
}

// ProcessLauncher re-executes the podscribe binary as `podscribe worker`.
type ProcessLauncher struct {
	Executable string
	ConfigPath string
	ExtraArgs  []string
	Logger     *slog.Logger
}

// NewProcessLauncher resolves the current executable.
func NewProcessLauncher(configPath string, logger *slog.Logger) (*ProcessLauncher, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ProcessLauncher{Executable: exe, ConfigPath: configPath, Logger: logger}, nil
}

// Args returns the command line used for a worker.
func (l *ProcessLauncher) Args(workerID string) []string {
	args := []string{"worker", "--id", workerID}
	if l.ConfigPath != "" {
		args = append(args, "--config", l.ConfigPath)
	}
	return append(args, l.ExtraArgs...)
}

// Launch implements Launcher. The worker inherits stdout and stderr and leads
// its own process group, so terminal signals reach the supervisor first and
// Terminate and Kill also reach the tools the worker runs.
func (l *ProcessLauncher) Launch(_ context.Context, workerID string) (Process, error) {
	if l.Executable == "" {
		return nil, errors.New("worker executable not configured")
	}
	cmd := exec.Command(l.Executable, l.Args(workerID)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	cmd.SysProcAttr = workerSysProcAttr()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker %s: %w", workerID, err)
	}
	proc := &osProcess{
		workerID: workerID,
		cmd:      cmd,
		started:  time.Now().UTC(),
		done:     make(chan struct{}),
	}
	go proc.wait(l.Logger)
	return proc, nil
}

type osProcess struct {
	workerID string
	cmd      *exec.Cmd
	started  time.Time
	done     chan struct{}
}

func (p *osProcess) wait(logger *slog.Logger) {
	err := p.cmd.Wait()
	close(p.done)
	if logger != nil {
		attrs := []slog.Attr{
			logging.String(logging.FieldEventType, "worker_exit"),
			logging.String(logging.FieldWorkerID, p.workerID),
			logging.Int("pid", p.PID()),
		}
		if err != nil {
			attrs = append(attrs, logging.Error(err))
		}
		logger.Debug("worker process exited", logging.Args(attrs...)...)
	}
}

func (p *osProcess) WorkerID() string      { return p.workerID }
func (p *osProcess) StartedAt() time.Time  { return p.started }
func (p *osProcess) Done() <-chan struct{} { return p.done }

func (p *osProcess) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *osProcess) Terminate() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := p.signalGroup(unix.SIGTERM); err != nil {
		return fmt.Errorf("signal worker %s: %w", p.workerID, err)
	}
	return nil
}

func (p *osProcess) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := p.signalGroup(unix.SIGKILL); err != nil {
		return fmt.Errorf("kill worker %s: %w", p.workerID, err)
	}
	return nil
}

// signalGroup signals the worker's process group, falling back to the worker
// alone when the group is already gone.
func (p *osProcess) signalGroup(sig syscall.Signal) error {
	pid := p.PID()
	if pid <= 0 {
		return nil
	}
	err := unix.Kill(-pid, sig)
	if err == nil {
		return nil
	}
	if !errors.Is(err, unix.ESRCH) {
		return err
	}
	if err := p.cmd.Process.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
