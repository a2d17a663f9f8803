package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"podscribe/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// ErrSchemaMismatch indicates the cache database was written by a different
// schema version.
var ErrSchemaMismatch = errors.New("cache schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Download is a cached audio file for a source URL.
type Download struct {
	SourceURL string
	AudioPath string
	Title     string
	Duration  float64
	CachedAt  time.Time
}

// Transcript is a cached transcript for an audio file.
type Transcript struct {
	AudioPath      string
	TranscriptPath string
	Language       string
	Duration       float64
	CachedAt       time.Time
}

// Cache is the SQLite-backed artifact cache.
type Cache struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open creates or connects to the cache database at path.
func Open(path string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("cache path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	c := &Cache{db: db, path: path, logger: logging.NewComponentLogger(logger, "cache")}
	if err := c.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Path returns the database location.
func (c *Cache) Path() string {
	return c.path
}

func (c *Cache) initSchema(ctx context.Context) error {
	return retryOnBusy(ctx, func() error {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		var version int
		err = tx.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
				return fmt.Errorf("record schema version: %w", err)
			}
		case err != nil:
			return fmt.Errorf("read schema version: %w", err)
		case version != schemaVersion:
			return fmt.Errorf("%w: database has version %d, expected %d (delete %s to rebuild)",
				ErrSchemaMismatch, version, schemaVersion, c.path)
		}
		return tx.Commit()
	})
}

// LookupDownload returns the cached audio for sourceURL, or nil when there is
// none or the file has been removed. Stale rows are dropped.
func (c *Cache) LookupDownload(ctx context.Context, sourceURL string) (*Download, error) {
	if c == nil {
		return nil, nil
	}
	var (
		d        Download
		title    sql.NullString
		cachedAt string
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT source_url, audio_path, title, duration, cached_at FROM downloads WHERE source_url = ?`,
		sourceURL,
	).Scan(&d.SourceURL, &d.AudioPath, &title, &d.Duration, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup download: %w", err)
	}
	d.Title = title.String
	d.CachedAt = parseTime(cachedAt)

	if !fileExists(d.AudioPath) {
		c.logger.Debug("dropping stale download cache entry",
			logging.String("source_url", sourceURL),
			logging.String("audio_path", d.AudioPath))
		if err := c.exec(ctx, `DELETE FROM downloads WHERE source_url = ?`, sourceURL); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &d, nil
}

// StoreDownload records or replaces the audio for a source URL.
func (c *Cache) StoreDownload(ctx context.Context, d Download) error {
	if c == nil {
		return nil
	}
	if strings.TrimSpace(d.SourceURL) == "" || strings.TrimSpace(d.AudioPath) == "" {
		return errors.New("download cache entry requires source url and audio path")
	}
	return c.exec(ctx,
		`INSERT INTO downloads (source_url, audio_path, title, duration, cached_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(source_url) DO UPDATE SET
             audio_path = excluded.audio_path,
             title = excluded.title,
             duration = excluded.duration,
             cached_at = excluded.cached_at`,
		d.SourceURL, d.AudioPath, d.Title, d.Duration, formatTime(time.Now()),
	)
}

// LookupTranscript returns the cached transcript for audioPath, or nil when
// there is none or the transcript file has been removed.
func (c *Cache) LookupTranscript(ctx context.Context, audioPath string) (*Transcript, error) {
	if c == nil {
		return nil, nil
	}
	var (
		tr       Transcript
		language sql.NullString
		cachedAt string
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT audio_path, transcript_path, language, duration, cached_at FROM transcripts WHERE audio_path = ?`,
		audioPath,
	).Scan(&tr.AudioPath, &tr.TranscriptPath, &language, &tr.Duration, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup transcript: %w", err)
	}
	tr.Language = language.String
	tr.CachedAt = parseTime(cachedAt)

	if !fileExists(tr.TranscriptPath) {
		if err := c.exec(ctx, `DELETE FROM transcripts WHERE audio_path = ?`, audioPath); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &tr, nil
}

// StoreTranscript records or replaces the transcript for an audio path.
func (c *Cache) StoreTranscript(ctx context.Context, tr Transcript) error {
	if c == nil {
		return nil
	}
	if strings.TrimSpace(tr.AudioPath) == "" || strings.TrimSpace(tr.TranscriptPath) == "" {
		return errors.New("transcript cache entry requires audio and transcript paths")
	}
	return c.exec(ctx,
		`INSERT INTO transcripts (audio_path, transcript_path, language, duration, cached_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(audio_path) DO UPDATE SET
             transcript_path = excluded.transcript_path,
             language = excluded.language,
             duration = excluded.duration,
             cached_at = excluded.cached_at`,
		tr.AudioPath, tr.TranscriptPath, tr.Language, tr.Duration, formatTime(time.Now()),
	)
}

// Stats reports how many entries each table holds.
type Stats struct {
	Downloads   int
	Transcripts int
}

// Stats counts cached entries.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	if c == nil {
		return s, nil
	}
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM downloads`).Scan(&s.Downloads); err != nil {
		return s, fmt.Errorf("count downloads: %w", err)
	}
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM transcripts`).Scan(&s.Transcripts); err != nil {
		return s, fmt.Errorf("count transcripts: %w", err)
	}
	return s, nil
}

func (c *Cache) exec(ctx context.Context, query string, args ...any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return retryOnBusy(ctx, func() error {
		_, err := c.db.ExecContext(ctx, query, args...)
		return err
	})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy retries op with exponential backoff while SQLite reports the
// database as locked by another worker process.
func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func fileExists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
