package daemonrun

import (
	"context"
	"log/slog"
	"time"

	"podscribe/internal/logging"
)

const parentCheckInterval = time.Second

// exitWithParent cancels ctx once the worker is re-parented, which is how a
// worker notices that its daemon died without stopping the pool. The worker
// then stops at its next poll boundary.
func exitWithParent(ctx context.Context, logger *slog.Logger, getppid func() int, interval time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	parent := getppid()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if current := getppid(); current != parent {
				logger.Warn("daemon exited; stopping worker",
					logging.String(logging.FieldEventType, "worker_orphaned"),
					logging.Int("parent_pid", parent),
					logging.Int("current_ppid", current),
					logging.String(logging.FieldImpact, "the next daemon requeues this worker's job"))
				cancel()
				return
			}
		}
	}()
	return ctx, cancel
}
