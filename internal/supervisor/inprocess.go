package supervisor

import (
	"context"
	"os"
	"sync"
	"time"

	"podscribe/internal/workflow"
)

// WorkerFactory builds a worker for the given id.
type WorkerFactory func(workerID string) (*workflow.Worker, error)

// InProcessLauncher runs workers as goroutines in the current process.
type InProcessLauncher struct {
	Factory WorkerFactory
}

// Launch implements Launcher.
func (l *InProcessLauncher) Launch(ctx context.Context, workerID string) (Process, error) {
	worker, err := l.Factory(workerID)
	if err != nil {
		return nil, err
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := worker.Start(runCtx); err != nil {
		cancel()
		return nil, err
	}
	return &inProcess{worker: worker, cancel: cancel, started: time.Now().UTC()}, nil
}

type inProcess struct {
	worker  *workflow.Worker
	cancel  context.CancelFunc
	started time.Time
	once    sync.Once
}

func (p *inProcess) WorkerID() string      { return p.worker.ID() }
func (p *inProcess) PID() int              { return os.Getpid() }
func (p *inProcess) StartedAt() time.Time  { return p.started }
func (p *inProcess) Done() <-chan struct{} { return p.worker.Done() }

func (p *inProcess) Terminate() error {
	p.once.Do(p.cancel)
	return nil
}

// Kill cannot interrupt a goroutine mid-stage; it cancels like Terminate.
func (p *inProcess) Kill() error {
	return p.Terminate()
}
