package daemon_test

import (
	"context"
	"testing"
	"time"

	"podscribe/internal/api"
	"podscribe/internal/config"
	"podscribe/internal/daemon"
	"podscribe/internal/queue"
	"podscribe/internal/supervisor"
	"podscribe/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *testsupport.Pool) {
	t.Helper()
	pool := testsupport.NewPool(t, cfg)
	store, err := queue.Open(cfg, nil)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	sup := supervisor.New(cfg, store, pool.Launcher, nil)
	d, err := daemon.New(cfg, store, sup, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d, pool
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	d, _ := newDaemon(t, cfg)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}
	if status.QueueDir != cfg.QueueDir() {
		t.Fatalf("unexpected queue dir %q", status.QueueDir)
	}
	if _, ok := status.QueueStats[string(queue.StatusInQueue)]; !ok {
		t.Fatalf("expected every status in queue stats, got %v", status.QueueStats)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("second Stop should be a no-op, got %v", err)
	}
}

func TestSecondDaemonCannotTakeLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	first, _ := newDaemon(t, cfg)
	second, _ := newDaemon(t, cfg)

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("expected lock contention error")
	}
}

func TestDaemonSubmitCompletesThroughPool(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	d, _ := newDaemon(t, cfg)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	job, err := d.Submit(ctx, api.SubmitRequest{URL: "https://example.com/a.mp3", TargetLanguage: "es"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != string(queue.StatusInQueue) || job.TargetLanguage != "es" {
		t.Fatalf("unexpected submitted job %+v", job)
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		got, err := d.Job(ctx, job.JobID)
		if err != nil {
			t.Fatalf("Job: %v", err)
		}
		if got.Status == string(queue.StatusCompleted) {
			if got.SummaryPath == "" || got.TranscriptPath == "" {
				t.Fatalf("expected artifact paths, got %+v", got)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck at %s", got.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	history, err := d.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if history.Total != 1 || history.Jobs[0].JobID != job.JobID {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestRequestStopClosesChannelOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	d, _ := newDaemon(t, cfg)
	d.RequestStop()
	d.RequestStop()
	select {
	case <-d.StopRequested():
	default:
		t.Fatal("expected stop request to be observable")
	}
}
