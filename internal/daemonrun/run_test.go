package daemonrun

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"podscribe/internal/logging"
	"podscribe/internal/supervisor"
	"podscribe/internal/testsupport"
)

func TestBuildCollaboratorsRequiresAPIKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.OpenAI.APIKey = ""
	if _, closeFn, err := BuildCollaborators(cfg, nil); err == nil {
		t.Fatal("expected missing api key error")
	} else if closeFn == nil {
		t.Fatal("close function must never be nil")
	}
}

func TestBuildCollaboratorsOpensCacheWhenEnabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Summary.Encoding = "not-a-real-encoding"
	collab, closeFn, err := BuildCollaborators(cfg, nil)
	if err != nil {
		t.Fatalf("BuildCollaborators: %v", err)
	}
	defer closeFn()
	if collab.Fetcher == nil || collab.Transcriber == nil || collab.Summarizer == nil {
		t.Fatalf("expected every collaborator, got %+v", collab)
	}
	if collab.Cache == nil {
		t.Fatal("expected cache when enabled")
	}
	if _, err := os.Stat(cfg.Cache.Path); err != nil {
		t.Fatalf("expected cache file: %v", err)
	}
}

func TestBuildCollaboratorsSkipsCacheWhenDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCacheDisabled())
	cfg.Summary.Encoding = "not-a-real-encoding"
	collab, closeFn, err := BuildCollaborators(cfg, nil)
	if err != nil {
		t.Fatalf("BuildCollaborators: %v", err)
	}
	defer closeFn()
	if collab.Cache != nil {
		t.Fatal("expected no cache when disabled")
	}
}

func TestBuildLauncherSelectsMode(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCacheDisabled())
	cfg.Summary.Encoding = "not-a-real-encoding"
	store := testsupport.MustOpenStore(t, cfg)

	launcher, release, err := buildLauncher(cfg, store, Options{InProcess: true}, nil)
	if err != nil {
		t.Fatalf("buildLauncher in-process: %v", err)
	}
	defer release()
	if _, ok := launcher.(*supervisor.InProcessLauncher); !ok {
		t.Fatalf("expected in-process launcher, got %T", launcher)
	}

	launcher, release2, err := buildLauncher(cfg, store, Options{ConfigPath: "/tmp/podscribe.toml"}, nil)
	if err != nil {
		t.Fatalf("buildLauncher process: %v", err)
	}
	defer release2()
	proc, ok := launcher.(*supervisor.ProcessLauncher)
	if !ok {
		t.Fatalf("expected process launcher, got %T", launcher)
	}
	args := strings.Join(proc.Args("worker-1"), " ")
	if !strings.Contains(args, "--config /tmp/podscribe.toml") {
		t.Fatalf("expected config path in worker args, got %q", args)
	}
}

func TestRunWorkerRequiresID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := RunWorker(context.Background(), cfg, "  ", Options{}); err == nil {
		t.Fatal("expected missing worker id error")
	}
}

func TestWritePIDFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := writePIDFile(cfg.PIDPath()); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	data, err := os.ReadFile(cfg.PIDPath())
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		t.Fatalf("unexpected pid file contents %q", data)
	}
}

func TestExitWithParentCancelsWhenReparented(t *testing.T) {
	var ppid atomic.Int64
	ppid.Store(100)
	ctx, cancel := exitWithParent(context.Background(), logging.NewNop(), func() int { return int(ppid.Load()) }, 5*time.Millisecond)
	defer cancel()

	select {
	case <-ctx.Done():
		t.Fatal("context cancelled while the parent is alive")
	case <-time.After(30 * time.Millisecond):
	}

	ppid.Store(1)
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context not cancelled after re-parenting")
	}
}
