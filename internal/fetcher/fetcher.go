package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"podscribe/internal/config"
	"podscribe/internal/logging"
)

const userAgent = "podscribe/1.0 (+https://github.com/podscribe)"

// Options configures a Fetcher.
type Options struct {
	DownloadsDir   string
	AudioFormat    string
	YtDlpBinary    string
	RequestTimeout time.Duration
	MaxEpisodes    int
	SearchURL      string
	SearchLimit    int
}

// OptionsFromConfig maps the [fetcher] and [paths] sections onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		DownloadsDir:   cfg.Paths.DownloadsDir,
		AudioFormat:    cfg.Fetcher.AudioFormat,
		YtDlpBinary:    cfg.Fetcher.YtDlpBinary,
		RequestTimeout: cfg.RequestTimeout(),
		MaxEpisodes:    cfg.Fetcher.MaxEpisodes,
		SearchURL:      cfg.Fetcher.SearchURL,
		SearchLimit:    cfg.Fetcher.SearchLimit,
	}
}

// Fetcher lists feed episodes, downloads audio, and searches the podcast
// directory.
type Fetcher struct {
	opts       Options
	httpClient *http.Client
	downloader Downloader
	logger     *slog.Logger
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the client used for feeds and search.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// WithDownloader replaces the yt-dlp downloader.
func WithDownloader(d Downloader) Option {
	return func(f *Fetcher) {
		if d != nil {
			f.downloader = d
		}
	}
}

// New constructs a Fetcher.
func New(opts Options, logger *slog.Logger, options ...Option) *Fetcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if strings.TrimSpace(opts.AudioFormat) == "" {
		opts.AudioFormat = "mp3"
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 10
	}
	f := &Fetcher{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.RequestTimeout},
		logger:     logging.NewComponentLogger(logger, "fetcher"),
	}
	f.downloader = NewYtDlpDownloader(opts.YtDlpBinary)
	for _, option := range options {
		option(f)
	}
	return f
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
