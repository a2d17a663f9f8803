package testsupport

import (
	"context"
	"testing"

	"podscribe/internal/config"
	"podscribe/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, nil)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustEnqueue submits an episode or feed job and fails the test on error.
func MustEnqueue(t testing.TB, store *queue.Store, url string, kind queue.Kind) *queue.JobRecord {
	t.Helper()

	rec, err := store.Enqueue(context.Background(), queue.JobRecord{SourceURL: url, Kind: kind})
	if err != nil {
		t.Fatalf("Enqueue %s: %v", url, err)
	}
	return rec
}

// MustGet fetches a job that must exist.
func MustGet(t testing.TB, store *queue.Store, id string) *queue.JobRecord {
	t.Helper()

	rec, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get %s: %v", id, err)
	}
	if rec == nil {
		t.Fatalf("job %s not found", id)
	}
	return rec
}
