package supervisor_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"podscribe/internal/config"
	"podscribe/internal/fetcher"
	"podscribe/internal/queue"
	"podscribe/internal/services"
	"podscribe/internal/supervisor"
	"podscribe/internal/testsupport"
	"podscribe/internal/workflow"
)

type fakeProcess struct {
	id         string
	started    time.Time
	done       chan struct{}
	ignoreTerm bool
	closeOnce  sync.Once
	terminated atomic.Int32
	killed     atomic.Int32
}

func (p *fakeProcess) WorkerID() string      { return p.id }
func (p *fakeProcess) PID() int              { return 4242 }
func (p *fakeProcess) StartedAt() time.Time  { return p.started }
func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func (p *fakeProcess) Terminate() error {
	p.terminated.Add(1)
	if !p.ignoreTerm {
		p.exit()
	}
	return nil
}

func (p *fakeProcess) Kill() error {
	p.killed.Add(1)
	p.exit()
	return nil
}

func (p *fakeProcess) exit() {
	p.closeOnce.Do(func() { close(p.done) })
}

type fakeLauncher struct {
	ignoreTerm bool
	failures   int

	mu    sync.Mutex
	procs []*fakeProcess
}

func (l *fakeLauncher) Launch(_ context.Context, workerID string) (supervisor.Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failures > 0 {
		l.failures--
		return nil, errors.New("exec failed")
	}
	proc := &fakeProcess{id: workerID, started: time.Now(), done: make(chan struct{}), ignoreTerm: l.ignoreTerm}
	l.procs = append(l.procs, proc)
	return proc, nil
}

func (l *fakeLauncher) launched() []*fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*fakeProcess(nil), l.procs...)
}

type inProcessEnv struct {
	cfg     *config.Config
	store   *queue.Store
	fetcher *testsupport.FakeFetcher
	sup     *supervisor.Supervisor
}

func newInProcessEnv(t *testing.T, workers int) *inProcessEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(workers))
	env := &inProcessEnv{
		cfg:     cfg,
		fetcher: testsupport.NewFakeFetcher(cfg.Paths.DownloadsDir),
	}
	env.store = testsupport.MustOpenStore(t, cfg)
	transcriber := &testsupport.FakeTranscriber{}
	summarizer := &testsupport.FakeSummarizer{}
	launcher := &supervisor.InProcessLauncher{Factory: func(workerID string) (*workflow.Worker, error) {
		// Each worker opens its own store handle, as a worker process would.
		store, err := queue.Open(cfg, nil)
		if err != nil {
			return nil, err
		}
		return workflow.NewWorker(workerID, cfg, store, workflow.Collaborators{
			Fetcher:     env.fetcher,
			Transcriber: transcriber,
			Summarizer:  summarizer,
		}, nil), nil
	}}
	env.sup = supervisor.New(cfg, env.store, launcher, nil)
	if err := env.sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = env.sup.Shutdown(context.Background()) })
	return env
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSubmitStartsWorkersLazilyAndCompletesJob(t *testing.T) {
	env := newInProcessEnv(t, 2)
	if n := len(env.sup.Snapshot().Workers); n != 0 {
		t.Fatalf("expected no workers before first submit, got %d", n)
	}

	rec, err := env.sup.Submit(context.Background(), supervisor.SubmitRequest{URL: "https://example.com/ep.mp3"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rec.Kind != queue.KindEpisode || rec.Status != queue.StatusInQueue || rec.TargetLanguage != env.cfg.Summary.TargetLanguage {
		t.Fatalf("unexpected submitted record %+v", rec)
	}
	if n := len(env.sup.Snapshot().Workers); n != 2 {
		t.Fatalf("expected 2 workers after submit, got %d", n)
	}

	waitFor(t, "job completion", func() bool {
		got, err := env.sup.Status(context.Background(), rec.JobID)
		return err == nil && got.Status == queue.StatusCompleted
	})
}

func TestFeedScenarioGroupsHistory(t *testing.T) {
	env := newInProcessEnv(t, 2)
	env.fetcher.AddFeed("https://example.com/feed.xml",
		fetcher.Episode{URL: "https://example.com/a.mp3", Title: "A"},
		fetcher.Episode{URL: "https://example.com/b.mp3", Title: "B"},
		fetcher.Episode{URL: "https://example.com/c.mp3", Title: "C"},
	)
	env.fetcher.Fail("https://example.com/b.mp3", errors.New("download refused"))

	feed, err := env.sup.Submit(context.Background(), supervisor.SubmitRequest{URL: "https://example.com/feed.xml", Feed: true, TargetLanguage: "de"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitFor(t, "feed progress", func() bool {
		got, err := env.sup.Status(context.Background(), feed.JobID)
		return err == nil && got.FeedProgress != nil && got.FeedProgress.ProcessedEpisodes == 3
	})

	history, err := env.sup.History(context.Background())
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one top-level entry, got %d", len(history))
	}
	entry := history[0]
	if entry.Job.JobID != feed.JobID || entry.Job.Status != queue.StatusCompleted || len(entry.Episodes) != 3 {
		t.Fatalf("unexpected history entry %+v", entry)
	}
	statuses := map[queue.Status]int{}
	for _, ep := range entry.Episodes {
		statuses[ep.Status]++
		if ep.TargetLanguage != "de" {
			t.Fatalf("child lost target language: %+v", ep)
		}
	}
	if statuses[queue.StatusCompleted] != 2 || statuses[queue.StatusFailed] != 1 {
		t.Fatalf("unexpected child statuses %v", statuses)
	}

	children, err := env.sup.FeedChildren(context.Background(), feed.JobID)
	if err != nil || len(children) != 3 {
		t.Fatalf("FeedChildren: %v %d", err, len(children))
	}
}

func TestStatusUnknownJobIsNotFound(t *testing.T) {
	env := newInProcessEnv(t, 1)
	if _, err := env.sup.Status(context.Background(), "missing"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := env.sup.FeedChildren(context.Background(), "missing"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	env := newInProcessEnv(t, 1)
	cases := []supervisor.SubmitRequest{
		{URL: ""},
		{URL: "ftp://example.com/x"},
		{URL: "not a url"},
		{URL: "https://example.com/x", TargetLanguage: "not a tag!"},
	}
	for _, req := range cases {
		if _, err := env.sup.Submit(context.Background(), req); !errors.Is(err, services.ErrValidation) {
			t.Errorf("Submit(%+v) = %v, want validation error", req, err)
		}
	}
	if n := len(env.sup.Snapshot().Workers); n != 0 {
		t.Fatalf("rejected submissions must not start workers, got %d", n)
	}
}

func TestRetryCreatesFreshJob(t *testing.T) {
	env := newInProcessEnv(t, 1)
	env.fetcher.Fail("https://example.com/flaky.mp3", errors.New("network blip"))

	rec, err := env.sup.Submit(context.Background(), supervisor.SubmitRequest{URL: "https://example.com/flaky.mp3", TargetLanguage: "es"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFor(t, "job failure", func() bool {
		got, err := env.sup.Status(context.Background(), rec.JobID)
		return err == nil && got.Status == queue.StatusFailed
	})

	retried, err := env.sup.Retry(context.Background(), rec.JobID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.JobID == rec.JobID || retried.SourceURL != rec.SourceURL || retried.TargetLanguage != "es" || retried.FeedLink != nil {
		t.Fatalf("unexpected retried record %+v", retried)
	}
	original, _ := env.sup.Status(context.Background(), rec.JobID)
	if original.Status != queue.StatusFailed || original.Error == "" {
		t.Fatalf("original record must stay failed: %+v", original)
	}
}

func TestRetryRefusesCompletedJob(t *testing.T) {
	env := newInProcessEnv(t, 1)
	rec, err := env.sup.Submit(context.Background(), supervisor.SubmitRequest{URL: "https://example.com/fine.mp3"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFor(t, "completion", func() bool {
		got, err := env.sup.Status(context.Background(), rec.JobID)
		return err == nil && got.Status == queue.StatusCompleted
	})
	if _, err := env.sup.Retry(context.Background(), rec.JobID); !errors.Is(err, supervisor.ErrNotRetryable) {
		t.Fatalf("expected ErrNotRetryable, got %v", err)
	}
}

func newFakeSupervisor(t *testing.T, launcher *fakeLauncher, opts ...testsupport.ConfigOption) (*supervisor.Supervisor, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	sup := supervisor.New(cfg, store, launcher, nil)
	return sup, store
}

func TestHealthCheckReplacesDeadWorkerAndRequeuesItsJob(t *testing.T) {
	launcher := &fakeLauncher{}
	sup, store := newFakeSupervisor(t, launcher, testsupport.WithWorkers(2))
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Shutdown(context.Background())

	rec, err := sup.Submit(context.Background(), supervisor.SubmitRequest{URL: "https://example.com/ep.mp3"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	procs := launcher.launched()
	if len(procs) != 2 {
		t.Fatalf("expected 2 launches, got %d", len(procs))
	}

	victim := procs[0]
	ctx := context.Background()
	claimed, err := store.Dequeue(ctx, victim.id)
	if err != nil || claimed == nil || claimed.JobID != rec.JobID {
		t.Fatalf("Dequeue: %v %+v", err, claimed)
	}
	if err := store.UpdateStatus(ctx, rec.JobID, queue.StatusDownloading, ""); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	victim.exit()

	if replaced := sup.CheckHealth(); replaced != 1 {
		t.Fatalf("expected 1 replacement, got %d", replaced)
	}
	if got := testsupport.MustGet(t, store, rec.JobID); got.Status != queue.StatusInQueue || got.ClaimedBy != "" {
		t.Fatalf("expected job requeued, got %s claimed by %q", got.Status, got.ClaimedBy)
	}
	pending, _ := store.Pending(ctx)
	if len(pending) != 1 || pending[0].JobID != rec.JobID {
		t.Fatalf("expected job back on the pending queue, got %+v", pending)
	}

	snap := sup.Snapshot()
	if snap.Restarts != 1 || len(snap.Workers) != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	for _, w := range snap.Workers {
		if !w.Alive || w.WorkerID == victim.id {
			t.Fatalf("dead worker still in pool: %+v", snap.Workers)
		}
	}
	if replaced := sup.CheckHealth(); replaced != 0 {
		t.Fatalf("healthy pool should not be touched, replaced %d", replaced)
	}
}

func TestStartRequeuesInFlightJobsAndLaunchesPool(t *testing.T) {
	launcher := &fakeLauncher{}
	sup, store := newFakeSupervisor(t, launcher)
	ctx := context.Background()

	rec := testsupport.MustEnqueue(t, store, "https://example.com/stuck.mp3", queue.KindEpisode)
	if _, err := store.Dequeue(ctx, "old-worker"); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if err := store.UpdateStatus(ctx, rec.JobID, queue.StatusTranscribing, ""); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	if err := sup.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Shutdown(ctx)

	if got := testsupport.MustGet(t, store, rec.JobID); got.Status != queue.StatusInQueue {
		t.Fatalf("expected in_queue after start, got %s", got.Status)
	}
	if len(launcher.launched()) == 0 {
		t.Fatal("pending work at startup should launch the pool")
	}
}

func TestStartWithoutRecoveryKeepsStuckJob(t *testing.T) {
	launcher := &fakeLauncher{}
	sup, store := newFakeSupervisor(t, launcher, testsupport.WithRequeueInFlight(false))
	ctx := context.Background()

	rec := testsupport.MustEnqueue(t, store, "https://example.com/stuck.mp3", queue.KindEpisode)
	if _, err := store.Dequeue(ctx, "old-worker"); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if err := store.UpdateStatus(ctx, rec.JobID, queue.StatusDownloading, ""); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := sup.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Shutdown(ctx)

	if got := testsupport.MustGet(t, store, rec.JobID); got.Status != queue.StatusDownloading {
		t.Fatalf("expected job left at downloading, got %s", got.Status)
	}
}

func TestShutdownRunsOnceUnderConcurrentCalls(t *testing.T) {
	launcher := &fakeLauncher{}
	sup, _ := newFakeSupervisor(t, launcher, testsupport.WithWorkers(3))
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := sup.Submit(context.Background(), supervisor.SubmitRequest{URL: "https://example.com/ep.mp3"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sup.Shutdown(context.Background()); err != nil {
				t.Errorf("Shutdown: %v", err)
			}
		}()
	}
	wg.Wait()

	for _, proc := range launcher.launched() {
		if n := proc.terminated.Load(); n != 1 {
			t.Fatalf("worker %s terminated %d times", proc.id, n)
		}
		if n := proc.killed.Load(); n != 0 {
			t.Fatalf("cooperative worker %s should not be killed", proc.id)
		}
	}
	if _, err := sup.Submit(context.Background(), supervisor.SubmitRequest{URL: "https://example.com/late.mp3"}); !errors.Is(err, supervisor.ErrShuttingDown) {
		t.Fatalf("expected ErrShuttingDown, got %v", err)
	}
	if !sup.Snapshot().ShuttingDown {
		t.Fatal("snapshot should report shutdown")
	}
}

func TestShutdownKillsStragglers(t *testing.T) {
	launcher := &fakeLauncher{ignoreTerm: true}
	sup, _ := newFakeSupervisor(t, launcher)
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := sup.Submit(context.Background(), supervisor.SubmitRequest{URL: "https://example.com/ep.mp3"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := sup.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	for _, proc := range launcher.launched() {
		if proc.killed.Load() != 1 {
			t.Fatalf("straggler %s was not killed", proc.id)
		}
	}
}

func TestHealthCheckStartsWorkersAfterFailedLaunch(t *testing.T) {
	launcher := &fakeLauncher{failures: 1}
	sup, store := newFakeSupervisor(t, launcher)
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Shutdown(context.Background())

	rec, err := sup.Submit(context.Background(), supervisor.SubmitRequest{URL: "https://example.com/ep.mp3"})
	if err == nil {
		t.Fatal("expected submit to report the failed launch")
	}
	if rec == nil || testsupport.MustGet(t, store, rec.JobID).Status != queue.StatusInQueue {
		t.Fatalf("expected job to stay queued, got %+v", rec)
	}
	if n := len(sup.Snapshot().Workers); n != 0 {
		t.Fatalf("expected empty pool after failed launch, got %d", n)
	}

	// The background health loop may fill the slot first; either way one
	// check is enough.
	sup.CheckHealth()
	snap := sup.Snapshot()
	if len(snap.Workers) != 1 || !snap.Workers[0].Alive {
		t.Fatalf("expected one live worker, got %+v", snap.Workers)
	}
	if snap.Restarts != 0 {
		t.Fatalf("filling an empty slot is not a restart, got %d", snap.Restarts)
	}
	if started := sup.CheckHealth(); started != 0 {
		t.Fatalf("healthy pool should not be touched, started %d", started)
	}
}

func TestHealthCheckIdleBeforeFirstSubmit(t *testing.T) {
	launcher := &fakeLauncher{}
	sup, _ := newFakeSupervisor(t, launcher)
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sup.Shutdown(context.Background())

	if started := sup.CheckHealth(); started != 0 || len(launcher.launched()) != 0 {
		t.Fatalf("expected no launches before work arrives, started %d", started)
	}
}
