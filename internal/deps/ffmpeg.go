package deps

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// CheckFFmpegForYtDlp reports the ffmpeg yt-dlp will use for audio
// extraction. Standalone yt-dlp builds look beside their own executable
// before PATH, so a sidecar ffmpeg wins.
func CheckFFmpegForYtDlp(ctx context.Context, ytdlpCommand string) Status {
	req := Requirement{
		Name:        "FFmpeg",
		Command:     "ffmpeg",
		Description: "Used by yt-dlp to extract audio",
		VersionArgs: []string{"-version"},
	}
	if sidecar := ffmpegSidecar(ytdlpCommand); sidecar != "" {
		req.Command = sidecar
	} else if resolved, err := exec.LookPath(req.Command); err == nil {
		req.Command = resolved
	}
	return check(ctx, req)
}

func ffmpegSidecar(ytdlpCommand string) string {
	ytdlp := strings.TrimSpace(ytdlpCommand)
	if ytdlp == "" {
		return ""
	}
	resolved, err := exec.LookPath(ytdlp)
	if err != nil {
		return ""
	}
	candidate := sidecarPath(resolved, "ffmpeg")
	if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
		return candidate
	}
	return ""
}

func sidecarPath(binaryPath, name string) string {
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(binaryPath), name)
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
