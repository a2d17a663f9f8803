package cache_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"podscribe/internal/cache"
	"podscribe/internal/testsupport"
)

func openCache(t *testing.T) (*cache.Cache, string) {
	t.Helper()
	dir := t.TempDir()
	c, err := cache.Open(filepath.Join(dir, "cache.db"), nil)
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, dir
}

func TestDownloadRoundTripAndStaleEviction(t *testing.T) {
	c, dir := openCache(t)
	ctx := context.Background()

	audio := filepath.Join(dir, "a.mp3")
	testsupport.WriteFile(t, audio, "audio")

	if got, err := c.LookupDownload(ctx, "https://example.com/a"); err != nil || got != nil {
		t.Fatalf("expected miss, got %+v %v", got, err)
	}
	if err := c.StoreDownload(ctx, cache.Download{SourceURL: "https://example.com/a", AudioPath: audio, Title: "A", Duration: 12}); err != nil {
		t.Fatalf("StoreDownload: %v", err)
	}
	got, err := c.LookupDownload(ctx, "https://example.com/a")
	if err != nil {
		t.Fatalf("LookupDownload: %v", err)
	}
	if got == nil || got.AudioPath != audio || got.Title != "A" || got.Duration != 12 {
		t.Fatalf("unexpected hit: %+v", got)
	}
	if got.CachedAt.IsZero() {
		t.Fatal("expected cached_at to be set")
	}

	if err := os.Remove(audio); err != nil {
		t.Fatalf("remove audio: %v", err)
	}
	if got, err := c.LookupDownload(ctx, "https://example.com/a"); err != nil || got != nil {
		t.Fatalf("expected stale entry to miss, got %+v %v", got, err)
	}
	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Downloads != 0 {
		t.Fatalf("expected stale row dropped, got %d", stats.Downloads)
	}
}

func TestTranscriptUpsert(t *testing.T) {
	c, dir := openCache(t)
	ctx := context.Background()

	first := filepath.Join(dir, "t1.txt")
	second := filepath.Join(dir, "t2.txt")
	testsupport.WriteFile(t, first, "one")
	testsupport.WriteFile(t, second, "two")

	if err := c.StoreTranscript(ctx, cache.Transcript{AudioPath: "/a.mp3", TranscriptPath: first, Language: "en"}); err != nil {
		t.Fatalf("StoreTranscript: %v", err)
	}
	if err := c.StoreTranscript(ctx, cache.Transcript{AudioPath: "/a.mp3", TranscriptPath: second, Language: "fr", Duration: 3}); err != nil {
		t.Fatalf("StoreTranscript replace: %v", err)
	}
	got, err := c.LookupTranscript(ctx, "/a.mp3")
	if err != nil {
		t.Fatalf("LookupTranscript: %v", err)
	}
	if got == nil || got.TranscriptPath != second || got.Language != "fr" || got.Duration != 3 {
		t.Fatalf("unexpected transcript hit: %+v", got)
	}
}

func TestStoreRejectsIncompleteEntries(t *testing.T) {
	c, _ := openCache(t)
	if err := c.StoreDownload(context.Background(), cache.Download{SourceURL: "x"}); err == nil {
		t.Fatal("expected error without audio path")
	}
	if err := c.StoreTranscript(context.Background(), cache.Transcript{AudioPath: "x"}); err == nil {
		t.Fatal("expected error without transcript path")
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")
	audio := filepath.Join(dir, "a.mp3")
	testsupport.WriteFile(t, audio, "audio")

	c, err := cache.Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := c.StoreDownload(context.Background(), cache.Download{SourceURL: "u", AudioPath: audio}); err != nil {
		t.Fatalf("StoreDownload: %v", err)
	}
	_ = c.Close()

	reopened, err := cache.Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if got, _ := reopened.LookupDownload(context.Background(), "u"); got == nil {
		t.Fatal("expected entry to survive reopen")
	}
}

func TestNilCacheIsAMiss(t *testing.T) {
	var c *cache.Cache
	if got, err := c.LookupDownload(context.Background(), "u"); got != nil || err != nil {
		t.Fatalf("expected nil cache miss, got %+v %v", got, err)
	}
	if err := c.StoreTranscript(context.Background(), cache.Transcript{}); err != nil {
		t.Fatalf("expected nil cache store to be a no-op, got %v", err)
	}
}
