package testsupport

import (
	"testing"

	"podscribe/internal/config"
	"podscribe/internal/queue"
	"podscribe/internal/supervisor"
	"podscribe/internal/workflow"
)

// Pool bundles fake collaborators with an in-process launcher whose workers
// each open their own store handle.
type Pool struct {
	Fetcher     *FakeFetcher
	Transcriber *FakeTranscriber
	Summarizer  *FakeSummarizer
	Launcher    *supervisor.InProcessLauncher
}

// NewPool builds a Pool over cfg.
func NewPool(t testing.TB, cfg *config.Config) *Pool {
	t.Helper()
	p := &Pool{
		Fetcher:     NewFakeFetcher(cfg.Paths.DownloadsDir),
		Transcriber: &FakeTranscriber{},
		Summarizer:  &FakeSummarizer{},
	}
	p.Launcher = &supervisor.InProcessLauncher{Factory: func(workerID string) (*workflow.Worker, error) {
		store, err := queue.Open(cfg, nil)
		if err != nil {
			return nil, err
		}
		t.Cleanup(func() { _ = store.Close() })
		return workflow.NewWorker(workerID, cfg, store, workflow.Collaborators{
			Fetcher:     p.Fetcher,
			Transcriber: p.Transcriber,
			Summarizer:  p.Summarizer,
		}, nil), nil
	}}
	return p
}
