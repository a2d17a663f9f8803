package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"podscribe/internal/config"
	"podscribe/internal/fileutil"
	"podscribe/internal/logging"
)

const (
	jobsFileName    = "jobs.json"
	pendingFileName = "pending.json"
	lockFileName    = "queue.lock"

	lockRetryDelay = 10 * time.Millisecond
)

// Store persists job records and the pending queue as JSON files guarded by
// an in-process mutex and a cross-process file lock.
type Store struct {
	dir         string
	jobsPath    string
	pendingPath string
	lock        *flock.Flock
	logger      *slog.Logger
	mu          sync.Mutex
	now         func() time.Time
}

// state is the decoded form of both files for the duration of one operation.
type state struct {
	jobs    map[string]*JobRecord
	pending []JobRecord
	seq     int64
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// Open creates the queue directory under the configured data dir and returns
// a Store rooted there.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenDir(cfg.QueueDir(), logger)
}

// OpenDir returns a Store rooted at dir. Existing files are validated once so
// corruption is reported at startup rather than on the first dequeue.
func OpenDir(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create queue directory: %w", err)
	}
	s := &Store{
		dir:         dir,
		jobsPath:    filepath.Join(dir, jobsFileName),
		pendingPath: filepath.Join(dir, pendingFileName),
		lock:        flock.New(filepath.Join(dir, lockFileName)),
		logger:      logging.NewComponentLogger(logger, "queue"),
		now:         func() time.Time { return time.Now().UTC() },
	}
	if err := s.read(context.Background(), func(st *state) error {
		s.logger.Debug("queue store opened",
			logging.String("dir", dir),
			logging.Int("jobs", len(st.jobs)),
			logging.Int("pending", len(st.pending)))
		return nil
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the lock file handle.
func (s *Store) Close() error {
	if s == nil || s.lock == nil {
		return nil
	}
	return s.lock.Close()
}

// Dir returns the directory holding the queue files.
func (s *Store) Dir() string {
	return s.dir
}

// read runs fn against freshly loaded state without writing it back.
func (s *Store) read(ctx context.Context, fn func(*state) error) error {
	return s.locked(ctx, func() error {
		st := s.load()
		return fn(st)
	})
}

// mutate runs fn against freshly loaded state and persists both files when fn
// reports a change.
func (s *Store) mutate(ctx context.Context, fn func(*state) (bool, error)) error {
	return s.locked(ctx, func() error {
		st := s.load()
		changed, err := fn(st)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		return s.save(st)
	})
}

func (s *Store) locked(ctx context.Context, fn func() error) error {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire queue lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("acquire queue lock: %s", s.lock.Path())
	}
	defer func() {
		if unlockErr := s.lock.Unlock(); unlockErr != nil {
			s.logger.Warn("queue lock release failed",
				logging.String(logging.FieldEventType, "queue_unlock_failed"),
				logging.Error(unlockErr),
				logging.String(logging.FieldErrorHint, "remove queue.lock if no podscribe process is running"))
		}
	}()
	return fn()
}

// load reads both files. Unreadable or corrupt files are logged and treated
// as empty so the daemon keeps running.
func (s *Store) load() *state {
	st := &state{jobs: make(map[string]*JobRecord)}

	var table map[string]JobRecord
	if err := readJSON(s.jobsPath, &table); err != nil {
		s.logger.Warn("failed to load job status table",
			logging.String(logging.FieldEventType, "queue_load_failed"),
			logging.String("path", s.jobsPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "status table will start empty"),
			logging.String(logging.FieldImpact, "previous job history is not visible until the file is repaired"))
		table = nil
	}
	for id, record := range table {
		if id == "" {
			continue
		}
		rec := record
		rec.JobID = id
		st.jobs[id] = &rec
		if rec.Seq > st.seq {
			st.seq = rec.Seq
		}
	}

	var pending []JobRecord
	if err := readJSON(s.pendingPath, &pending); err != nil {
		s.logger.Warn("failed to load pending queue",
			logging.String(logging.FieldEventType, "queue_load_failed"),
			logging.String("path", s.pendingPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "pending queue will start empty"),
			logging.String(logging.FieldImpact, "queued jobs stay in_queue until requeued"))
		pending = nil
	}
	for _, record := range pending {
		if record.JobID == "" {
			continue
		}
		// The table is authoritative; a pending entry missing from it is
		// restored so it stays visible to status queries.
		if _, ok := st.jobs[record.JobID]; !ok {
			rec := record.Clone()
			st.jobs[rec.JobID] = &rec
			if rec.Seq > st.seq {
				st.seq = rec.Seq
			}
		}
		st.pending = append(st.pending, record)
	}
	return st
}

func (s *Store) save(st *state) error {
	table := make(map[string]JobRecord, len(st.jobs))
	for id, record := range st.jobs {
		table[id] = *record
	}
	if err := writeJSON(s.jobsPath, table); err != nil {
		return fmt.Errorf("persist status table: %w", err)
	}
	pending := st.pending
	if pending == nil {
		pending = []JobRecord{}
	}
	if err := writeJSON(s.pendingPath, pending); err != nil {
		return fmt.Errorf("persist pending queue: %w", err)
	}
	return nil
}

func (st *state) nextSeq() int64 {
	st.seq++
	return st.seq
}

func (st *state) isPending(id string) bool {
	for _, record := range st.pending {
		if record.JobID == id {
			return true
		}
	}
	return false
}

func readJSON(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeJSON replaces path atomically.
func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return fileutil.WriteAtomic(path, data)
}
