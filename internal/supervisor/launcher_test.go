package supervisor_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"podscribe/internal/supervisor"
	"podscribe/internal/testsupport"
)

func TestTerminateReachesWorkerChildren(t *testing.T) {
	dir := t.TempDir()
	mark := filepath.Join(dir, "child-stopped")
	t.Setenv("PODSCRIBE_TEST_MARK", mark)

	// The stand-in worker starts a child that records SIGTERM, like a
	// transcription tool the worker is waiting on.
	script := filepath.Join(dir, "worker.sh")
	testsupport.WriteFile(t, script, `#!/bin/sh
sh -c 'trap "echo stopped > \"$PODSCRIBE_TEST_MARK\"; exit 0" TERM; touch "$PODSCRIBE_TEST_MARK.ready"; while :; do sleep 0.1; done' &
wait
`)
	if err := os.Chmod(script, 0o755); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	launcher := &supervisor.ProcessLauncher{Executable: script}
	proc, err := launcher.Launch(context.Background(), "worker-1")
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	t.Cleanup(func() { _ = proc.Kill() })

	waitFor(t, "child ready", func() bool {
		_, err := os.Stat(mark + ".ready")
		return err == nil
	})
	if err := proc.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}

	select {
	case <-proc.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not exit after Terminate")
	}
	waitFor(t, "child stop marker", func() bool {
		data, err := os.ReadFile(mark)
		return err == nil && strings.TrimSpace(string(data)) == "stopped"
	})
}
