package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"podscribe/internal/config"
	"podscribe/internal/daemon"
	"podscribe/internal/ipc"
	"podscribe/internal/logging"
	"podscribe/internal/queue"
	"podscribe/internal/supervisor"
	"podscribe/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	pool       *testsupport.Pool
	daemon     *daemon.Daemon
	socketPath string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(), testsupport.WithCacheDisabled())
	cfg.Paths.APIBind = ""
	t.Setenv("HOME", testsupport.BaseDir(cfg))
	configPath := filepath.Join(testsupport.BaseDir(cfg), "podscribe.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	pool := testsupport.NewPool(t, cfg)
	logger := logging.NewNop()
	sup := supervisor.New(cfg, store, pool.Launcher, logger)
	d, err := daemon.New(cfg, store, sup, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	// t.TempDir paths can exceed the unix socket path limit.
	sockDir, err := os.MkdirTemp("", "psc")
	if err != nil {
		t.Fatalf("mkdir socket dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(sockDir) })

	ctx, cancel := context.WithCancel(context.Background())
	socketPath := filepath.Join(sockDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		if strings.Contains(err.Error(), "operation not permitted") || strings.Contains(err.Error(), "invalid argument") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		_ = d.Stop(context.Background())
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		pool:       pool,
		daemon:     d,
		socketPath: socketPath,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitForStatus(t *testing.T, store *queue.Store, jobID string, want queue.Status) *queue.JobRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := testsupport.MustGet(t, store, jobID)
		if rec.Status == want {
			return rec
		}
		time.Sleep(20 * time.Millisecond)
	}
	rec := testsupport.MustGet(t, store, jobID)
	t.Fatalf("job %s stuck in %s, want %s (error %q)", jobID, rec.Status, want, rec.Error)
	return nil
}
