package daemonctl_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"podscribe/internal/daemonctl"
	"podscribe/internal/queue"
	"podscribe/internal/testsupport"
)

func TestLaunchArgs(t *testing.T) {
	tests := []struct {
		name string
		opts daemonctl.LaunchOptions
		want string
	}{
		{name: "bare", want: "daemon"},
		{name: "config", opts: daemonctl.LaunchOptions{ConfigPath: " /etc/podscribe.toml "}, want: "daemon --config /etc/podscribe.toml"},
		{name: "in-process", opts: daemonctl.LaunchOptions{InProcess: true, LogLevel: "debug"}, want: "daemon --in-process --log-level debug"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strings.Join(daemonctl.LaunchArgs(tt.opts), " "); got != tt.want {
				t.Fatalf("LaunchArgs = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := daemonctl.Launch("  ", daemonctl.LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable")
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := daemonctl.StopAndTerminate(filepath.Join(t.TempDir(), "missing.sock"), cfg, time.Second)
	if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestWaitForShutdownWithoutSocket(t *testing.T) {
	if err := daemonctl.WaitForShutdown(filepath.Join(t.TempDir(), "missing.sock"), time.Second); err != nil {
		t.Fatalf("WaitForShutdown: %v", err)
	}
}

func TestForceKillProcessRejectsUnknownPID(t *testing.T) {
	dir := t.TempDir()
	if _, err := daemonctl.ForceKillProcess(filepath.Join(dir, "podscribe.pid"), "", 0); err == nil {
		t.Fatal("expected error without pid")
	}

	pidPath := filepath.Join(dir, "self.pid")
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if _, err := daemonctl.ForceKillProcess(pidPath, "", 0); err == nil {
		t.Fatal("expected refusal to kill the current process")
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.MustEnqueue(t, store, "https://example.com/a.mp3", queue.KindEpisode)
	testsupport.MustEnqueue(t, store, "https://example.com/feed.xml", queue.KindFeed)

	status, err := daemonctl.BuildStatusSnapshot(context.Background(), cfg.SocketPath(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if status.Running {
		t.Fatal("offline snapshot must not report running")
	}
	if got := status.QueueStats[string(queue.StatusInQueue)]; got != 2 {
		t.Fatalf("expected 2 queued jobs, got %d (%v)", got, status.QueueStats)
	}
	if status.QueueDir != cfg.QueueDir() {
		t.Fatalf("queue dir = %q, want %q", status.QueueDir, cfg.QueueDir())
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("expected dependency statuses")
	}
}

func TestBuildStatusSnapshotRequiresConfig(t *testing.T) {
	if _, err := daemonctl.BuildStatusSnapshot(context.Background(), "", nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

