package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"podscribe/internal/fetcher"
	"podscribe/internal/summarizer"
	"podscribe/internal/transcriber"
)

// FakeFetcher serves canned feeds and writes placeholder audio files.
type FakeFetcher struct {
	Dir string

	// BeforeDownload runs at the start of every Download call.
	BeforeDownload func(ctx context.Context, url string)

	mu        sync.Mutex
	feeds     map[string][]fetcher.Episode
	failures  map[string]error
	downloads []string
	listings  []string
}

// NewFakeFetcher writes downloads under dir.
func NewFakeFetcher(dir string) *FakeFetcher {
	return &FakeFetcher{
		Dir:      dir,
		feeds:    make(map[string][]fetcher.Episode),
		failures: make(map[string]error),
	}
}

// AddFeed registers the episodes returned for feedURL.
func (f *FakeFetcher) AddFeed(feedURL string, episodes ...fetcher.Episode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feeds[feedURL] = episodes
}

// Fail makes every call for url return err.
func (f *FakeFetcher) Fail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[url] = err
}

// ListEpisodes implements the worker's Fetcher.
func (f *FakeFetcher) ListEpisodes(_ context.Context, feedURL string) ([]fetcher.Episode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listings = append(f.listings, feedURL)
	if err := f.failures[feedURL]; err != nil {
		return nil, err
	}
	episodes, ok := f.feeds[feedURL]
	if !ok {
		return nil, fmt.Errorf("feed %s not registered", feedURL)
	}
	return append([]fetcher.Episode(nil), episodes...), nil
}

// Download implements the worker's Fetcher.
func (f *FakeFetcher) Download(ctx context.Context, url, hintTitle string) (fetcher.DownloadResult, error) {
	if f.BeforeDownload != nil {
		f.BeforeDownload(ctx, url)
	}
	f.mu.Lock()
	f.downloads = append(f.downloads, url)
	err := f.failures[url]
	f.mu.Unlock()
	if err != nil {
		return fetcher.DownloadResult{}, err
	}
	path := filepath.Join(f.Dir, fetcher.AudioBaseName(url)+".mp3")
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fetcher.DownloadResult{}, err
	}
	if err := os.WriteFile(path, []byte("audio:"+url), 0o644); err != nil {
		return fetcher.DownloadResult{}, err
	}
	title := hintTitle
	if title == "" {
		title = "Downloaded " + filepath.Base(url)
	}
	return fetcher.DownloadResult{Path: path, Title: title, Duration: 60}, nil
}

// Downloads returns the urls passed to Download in call order.
func (f *FakeFetcher) Downloads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.downloads...)
}

// Listings returns the feed urls passed to ListEpisodes.
func (f *FakeFetcher) Listings() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.listings...)
}

// FakeTranscriber returns the audio file contents prefixed with "transcript of".
type FakeTranscriber struct {
	Err      error
	Language string

	mu    sync.Mutex
	calls []string
}

// Transcribe implements the worker's Transcriber.
func (f *FakeTranscriber) Transcribe(_ context.Context, audioPath string) (transcriber.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, audioPath)
	f.mu.Unlock()
	if f.Err != nil {
		return transcriber.Result{}, f.Err
	}
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return transcriber.Result{}, err
	}
	lang := f.Language
	if lang == "" {
		lang = "en"
	}
	return transcriber.Result{Text: "transcript of " + string(data), Language: lang, Duration: 61}, nil
}

// Calls returns the audio paths transcribed so far.
func (f *FakeTranscriber) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// FakeSummarizer echoes the transcript into the summary.
type FakeSummarizer struct {
	Err error

	mu        sync.Mutex
	languages []string
}

// Summarize implements the worker's Summarizer.
func (f *FakeSummarizer) Summarize(_ context.Context, transcript, targetLanguage string) (summarizer.Summary, error) {
	f.mu.Lock()
	f.languages = append(f.languages, targetLanguage)
	f.mu.Unlock()
	if f.Err != nil {
		return summarizer.Summary{}, f.Err
	}
	return summarizer.Summary{
		ComprehensiveSummary: "summary: " + transcript,
		KeyInsights:          []string{"insight"},
		ActionItems:          []string{"action"},
		Wisdom:               []string{"wisdom"},
	}, nil
}

// Languages returns the target languages requested so far.
func (f *FakeSummarizer) Languages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.languages...)
}
