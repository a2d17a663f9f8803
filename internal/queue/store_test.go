package queue_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"podscribe/internal/queue"
	"podscribe/internal/testsupport"
)

func TestEnqueueAssignsIDAndPersistsBothFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	rec := testsupport.MustEnqueue(t, store, "https://example.com/ep1.mp3", queue.KindEpisode)
	if rec.JobID == "" {
		t.Fatal("expected job id to be assigned")
	}
	if rec.Status != queue.StatusInQueue {
		t.Fatalf("expected in_queue, got %s", rec.Status)
	}
	if rec.CreatedAt.IsZero() || !rec.UpdatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("unexpected timestamps: created=%v updated=%v", rec.CreatedAt, rec.UpdatedAt)
	}

	for _, name := range []string{"jobs.json", "pending.json"} {
		if _, err := os.Stat(filepath.Join(cfg.QueueDir(), name)); err != nil {
			t.Fatalf("expected %s to be written: %v", name, err)
		}
	}

	pending, err := store.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 || pending[0].JobID != rec.JobID {
		t.Fatalf("unexpected pending snapshot: %+v", pending)
	}
}

func TestEnqueueRejectsDuplicateID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := store.Enqueue(ctx, queue.JobRecord{JobID: "fixed", SourceURL: "https://a"}); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}
	_, err := store.Enqueue(ctx, queue.JobRecord{JobID: "fixed", SourceURL: "https://b"})
	if !errors.Is(err, queue.ErrDuplicateJob) {
		t.Fatalf("expected ErrDuplicateJob, got %v", err)
	}
}

func TestEnqueueRejectsBothFeedFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.Enqueue(context.Background(), queue.JobRecord{
		SourceURL:    "https://a",
		FeedLink:     &queue.FeedLink{ParentJobID: "p"},
		FeedProgress: &queue.FeedProgress{},
	})
	if err == nil {
		t.Fatal("expected error for record with both feed_link and feed_progress")
	}
}

func TestDequeueIsFIFOAndNonBlocking(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	empty, err := store.Dequeue(ctx, "w1")
	if err != nil {
		t.Fatalf("Dequeue on empty: %v", err)
	}
	if empty != nil {
		t.Fatalf("expected nil on empty queue, got %+v", empty)
	}

	var ids []string
	for i := 0; i < 3; i++ {
		rec := testsupport.MustEnqueue(t, store, fmt.Sprintf("https://example.com/%d", i), queue.KindEpisode)
		ids = append(ids, rec.JobID)
	}
	for i, want := range ids {
		got, err := store.Dequeue(ctx, "w1")
		if err != nil {
			t.Fatalf("Dequeue %d: %v", i, err)
		}
		if got == nil || got.JobID != want {
			t.Fatalf("dequeue %d: expected %s, got %+v", i, want, got)
		}
		if got.ClaimedBy != "w1" {
			t.Fatalf("expected claimed_by w1, got %q", got.ClaimedBy)
		}
	}
	if next, _ := store.Dequeue(ctx, "w1"); next != nil {
		t.Fatalf("expected drained queue, got %+v", next)
	}
}

func TestUpdateStatusWalksStateMachine(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := testsupport.MustEnqueue(t, store, "https://example.com/ep", queue.KindEpisode)
	for _, status := range []queue.Status{
		queue.StatusDownloading,
		queue.StatusTranscribing,
		queue.StatusSummarizing,
		queue.StatusCompleted,
	} {
		if err := store.UpdateStatus(ctx, rec.JobID, status, ""); err != nil {
			t.Fatalf("UpdateStatus %s: %v", status, err)
		}
	}
	got := testsupport.MustGet(t, store, rec.JobID)
	if got.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if !got.UpdatedAt.After(got.CreatedAt) && !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Fatalf("updated_at went backwards: %v < %v", got.UpdatedAt, got.CreatedAt)
	}

	err := store.UpdateStatus(ctx, rec.JobID, queue.StatusDownloading, "")
	if !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition leaving terminal state, got %v", err)
	}
}

func TestUpdateStatusRejectsSkippedStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	rec := testsupport.MustEnqueue(t, store, "https://example.com/ep", queue.KindEpisode)
	err := store.UpdateStatus(context.Background(), rec.JobID, queue.StatusSummarizing, "")
	if !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestUpdateStatusFailedKeepsErrorAndArtifactsEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := testsupport.MustEnqueue(t, store, "https://example.com/ep", queue.KindEpisode)
	if err := store.UpdateStatus(ctx, rec.JobID, queue.StatusDownloading, "ignored"); err != nil {
		t.Fatalf("UpdateStatus downloading: %v", err)
	}
	if got := testsupport.MustGet(t, store, rec.JobID); got.Error != "" {
		t.Fatalf("expected error cleared on non-failed status, got %q", got.Error)
	}
	if err := store.UpdateStatus(ctx, rec.JobID, queue.StatusFailed, "no audio"); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	got := testsupport.MustGet(t, store, rec.JobID)
	if got.Status != queue.StatusFailed || got.Error != "no audio" {
		t.Fatalf("unexpected failed record: %+v", got)
	}
	if got.TranscriptPath != "" || got.SummaryPath != "" {
		t.Fatalf("expected empty artifacts, got %+v", got)
	}
}

func TestUpdateStatusUnknownIDIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := store.UpdateStatus(ctx, "missing", queue.StatusFailed, "boom"); err != nil {
		t.Fatalf("expected no error for unknown id, got %v", err)
	}
	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no records to be created, got %d", len(all))
	}
}

func TestGetUnknownReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	rec, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil for unknown id, got %+v", rec)
	}
}

func TestUpdateWritesArtifactsButNotStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := testsupport.MustEnqueue(t, store, "https://example.com/ep", queue.KindEpisode)
	rec.Status = queue.StatusCompleted
	rec.DownloadPath = "/tmp/a.mp3"
	rec.Title = "Episode"
	rec.Duration = 61.5
	if err := store.Update(ctx, rec); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got := testsupport.MustGet(t, store, rec.JobID)
	if got.Status != queue.StatusInQueue {
		t.Fatalf("Update must not change status, got %s", got.Status)
	}
	if got.DownloadPath != "/tmp/a.mp3" || got.Title != "Episode" || got.Duration != 61.5 {
		t.Fatalf("unexpected record after Update: %+v", got)
	}

	err := store.Update(ctx, &queue.JobRecord{JobID: "missing"})
	if !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReloadReproducesState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	store, err := queue.Open(cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	feed := testsupport.MustEnqueue(t, store, "https://example.com/feed.xml", queue.KindFeed)
	if _, err := store.ExpandFeed(ctx, feed.JobID, []queue.JobRecord{
		{SourceURL: "https://example.com/1.mp3", Title: "One"},
		{SourceURL: "https://example.com/2.mp3", Title: "Two"},
	}); err != nil {
		t.Fatalf("ExpandFeed: %v", err)
	}
	if _, err := store.Dequeue(ctx, "w1"); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	beforeAll, _ := store.ListAll(ctx)
	beforePending, _ := store.Pending(ctx)
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := queue.Open(cfg, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	afterAll, _ := reopened.ListAll(ctx)
	afterPending, _ := reopened.Pending(ctx)

	if !reflect.DeepEqual(beforeAll, afterAll) {
		t.Fatalf("status table changed across reload:\nbefore=%+v\nafter=%+v", beforeAll, afterAll)
	}
	if !reflect.DeepEqual(beforePending, afterPending) {
		t.Fatalf("pending queue changed across reload:\nbefore=%+v\nafter=%+v", beforePending, afterPending)
	}
}

func TestCorruptFilesFallBackToEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFile(t, filepath.Join(cfg.QueueDir(), "jobs.json"), "{not json")
	testsupport.WriteFile(t, filepath.Join(cfg.QueueDir(), "pending.json"), "[")

	store := testsupport.MustOpenStore(t, cfg)
	all, err := store.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty table, got %d records", len(all))
	}

	rec := testsupport.MustEnqueue(t, store, "https://example.com/ep", queue.KindEpisode)
	if got := testsupport.MustGet(t, store, rec.JobID); got.SourceURL != "https://example.com/ep" {
		t.Fatalf("unexpected record after recovery: %+v", got)
	}
}

func TestTwoStoresShareOneDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()
	producer := testsupport.MustOpenStore(t, cfg)
	consumer := testsupport.MustOpenStore(t, cfg)

	rec := testsupport.MustEnqueue(t, producer, "https://example.com/ep", queue.KindEpisode)
	got, err := consumer.Dequeue(ctx, "w2")
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if got == nil || got.JobID != rec.JobID {
		t.Fatalf("expected consumer to see producer's job, got %+v", got)
	}
	if again, _ := producer.Dequeue(ctx, "w1"); again != nil {
		t.Fatalf("job dequeued twice: %+v", again)
	}
}

func TestConcurrentDequeueHandsOutEachJobOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()
	const jobs = 20

	seed := testsupport.MustOpenStore(t, cfg)
	for i := 0; i < jobs; i++ {
		testsupport.MustEnqueue(t, seed, fmt.Sprintf("https://example.com/%d", i), queue.KindEpisode)
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
		wg   sync.WaitGroup
	)
	for w := 0; w < 4; w++ {
		store := testsupport.MustOpenStore(t, cfg)
		workerID := fmt.Sprintf("w%d", w)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				rec, err := store.Dequeue(ctx, workerID)
				if err != nil {
					t.Errorf("Dequeue: %v", err)
					return
				}
				if rec == nil {
					return
				}
				mu.Lock()
				seen[rec.JobID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != jobs {
		t.Fatalf("expected %d distinct jobs, got %d", jobs, len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("job %s dequeued %d times", id, count)
		}
	}
}
