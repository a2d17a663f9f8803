package fetcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"podscribe/internal/logging"
	"podscribe/internal/services"
)

// DownloadRequest describes one yt-dlp invocation.
type DownloadRequest struct {
	URL            string
	OutputTemplate string
	AudioFormat    string
}

// DownloadInfo is what the downloader learned about the media.
type DownloadInfo struct {
	Title    string
	Duration float64
	Filename string
}

// Downloader fetches audio for a URL.
type Downloader interface {
	Download(ctx context.Context, req DownloadRequest) (DownloadInfo, error)
}

// DownloadResult is the outcome of Fetcher.Download.
type DownloadResult struct {
	Path     string
	Title    string
	Duration float64
	Reused   bool
}

// Download fetches the audio behind sourceURL into the downloads directory.
// A file already present under the episode's stable name is reused.
func (f *Fetcher) Download(ctx context.Context, sourceURL, hintTitle string) (DownloadResult, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return DownloadResult{}, services.Wrap(services.ErrValidation, "downloading", "download", "source url is required", nil)
	}
	dir := strings.TrimSpace(f.opts.DownloadsDir)
	if dir == "" {
		return DownloadResult{}, services.Wrap(services.ErrConfiguration, "downloading", "download", "downloads directory not configured", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return DownloadResult{}, services.Wrap(services.ErrConfiguration, "downloading", "create downloads dir", "", err)
	}

	base := AudioBaseName(sourceURL)
	if existing := findAudio(dir, base); existing != "" {
		f.logger.Info("reusing downloaded audio",
			logging.String(logging.FieldEventType, "download_reused"),
			logging.String("path", existing))
		return DownloadResult{Path: existing, Title: hintTitle, Reused: true}, nil
	}

	info, err := f.downloader.Download(ctx, DownloadRequest{
		URL:            sourceURL,
		OutputTemplate: filepath.Join(dir, base+".%(ext)s"),
		AudioFormat:    f.opts.AudioFormat,
	})
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return DownloadResult{}, services.Wrap(services.ErrTimeout, "downloading", "yt-dlp", "", err)
		}
		return DownloadResult{}, services.Wrap(services.ErrExternalTool, "downloading", "yt-dlp", "", err)
	}

	path := filepath.Join(dir, base+"."+f.opts.AudioFormat)
	if _, statErr := os.Stat(path); statErr != nil {
		path = findAudio(dir, base)
	}
	if path == "" && info.Filename != "" {
		if _, statErr := os.Stat(info.Filename); statErr == nil {
			path = info.Filename
		}
	}
	if path == "" {
		return DownloadResult{}, services.Wrap(services.ErrExternalTool, "downloading", "yt-dlp", fmt.Sprintf("no audio file produced for %s", sourceURL), nil)
	}

	title := strings.TrimSpace(hintTitle)
	if title == "" {
		title = info.Title
	}
	f.logger.Info("audio downloaded",
		logging.String(logging.FieldEventType, "download_completed"),
		logging.String("path", path),
		logging.String("title", title))
	return DownloadResult{Path: path, Title: title, Duration: info.Duration}, nil
}

// findAudio returns the first non-partial file named base.* in dir.
func findAudio(dir, base string) string {
	matches, err := filepath.Glob(filepath.Join(dir, base+".*"))
	if err != nil {
		return ""
	}
	for _, match := range matches {
		ext := filepath.Ext(match)
		if ext == ".part" || ext == ".ytdl" || ext == ".tmp" {
			continue
		}
		if st, err := os.Stat(match); err == nil && st.Mode().IsRegular() && st.Size() > 0 {
			return match
		}
	}
	return ""
}

// YtDlpDownloader runs yt-dlp through go-ytdlp.
type YtDlpDownloader struct {
	binary string
}

// NewYtDlpDownloader returns a downloader using binary, or yt-dlp on PATH
// when binary is empty.
func NewYtDlpDownloader(binary string) *YtDlpDownloader {
	return &YtDlpDownloader{binary: strings.TrimSpace(binary)}
}

// Download implements Downloader.
func (d *YtDlpDownloader) Download(ctx context.Context, req DownloadRequest) (DownloadInfo, error) {
	cmd := ytdlp.New().
		NoPlaylist().
		NoProgress().
		RestrictFilenames().
		ExtractAudio().
		AudioFormat(req.AudioFormat).
		Output(req.OutputTemplate)
	if d.binary != "" {
		cmd.SetExecutable(d.binary)
	}

	result, err := cmd.Run(ctx, req.URL)
	if err != nil {
		return DownloadInfo{}, err
	}
	var info DownloadInfo
	extracted, err := result.GetExtractedInfo()
	if err != nil || len(extracted) == 0 || extracted[0] == nil {
		return info, nil
	}
	first := extracted[0]
	if first.Title != nil {
		info.Title = *first.Title
	}
	if first.Duration != nil {
		info.Duration = *first.Duration
	}
	if first.Filename != nil {
		info.Filename = *first.Filename
	}
	return info, nil
}

