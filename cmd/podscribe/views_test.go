package main

import (
	"strings"
	"testing"

	"podscribe/internal/api"
)

func TestDependencyLines(t *testing.T) {
	lines := dependencyLines([]api.DependencyStatus{
		{Name: "yt-dlp", Command: "/usr/bin/yt-dlp", Available: true, Version: "2025.10.22"},
		{Name: "FFmpeg", Command: "ffmpeg", Available: true, Detail: "version probe failed: exit status 1"},
		{Name: "Whisper", Command: "whisper", Detail: `binary "whisper" not found`},
	}, false)

	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[0], "[OK] Ready (command: /usr/bin/yt-dlp, version: 2025.10.22)") {
		t.Fatalf("unexpected ready line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[WARN]") || !strings.Contains(lines[1], "version probe failed") {
		t.Fatalf("unexpected probe warning %q", lines[1])
	}
	if !strings.Contains(lines[2], "[ERROR]") || !strings.Contains(lines[3], "Missing dependencies") || !strings.Contains(lines[3], "Whisper") {
		t.Fatalf("unexpected missing lines %q / %q", lines[2], lines[3])
	}
}

func TestRenderStatusLineColor(t *testing.T) {
	plain := renderStatusLine("Daemon", statusOK, "Running", false)
	if plain != "  Daemon:                [OK] Running" {
		t.Fatalf("unexpected plain line %q", plain)
	}
	colored := renderStatusLine("Daemon", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red line, got %q", colored)
	}
}

func TestQueueStatusRowsSkipEmptyCounts(t *testing.T) {
	rows := buildQueueStatusRows(map[string]int{"in_queue": 2, "failed": 0, "completed": 5})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %v", rows)
	}
	if rows[0][0] != "Completed" || rows[1][0] != "In Queue" || rows[1][1] != "2" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestHistoryRowsNestEpisodes(t *testing.T) {
	pct := 50.0
	rows := buildHistoryRows([]api.HistoryEntry{{
		Job: api.Job{JobID: "feed-1", Kind: "feed", Status: "completed", SourceURL: "https://example.com/feed.xml", ProgressPercent: &pct},
		Episodes: []api.Job{
			{JobID: "ep-1", Kind: "episode", Status: "transcribing", Title: "First"},
		},
	}})
	if len(rows) != 2 {
		t.Fatalf("expected parent and child rows, got %v", rows)
	}
	if rows[0][3] != "https://example.com/feed.xml" || rows[0][4] != "50%" {
		t.Fatalf("unexpected parent row %v", rows[0])
	}
	if rows[1][0] != "  └ ep-1" || rows[1][1] != "Transcribing" || rows[1][4] != "-" {
		t.Fatalf("unexpected child row %v", rows[1])
	}
}

func TestRenderTableTrimsLongTitles(t *testing.T) {
	long := strings.Repeat("x", titleWidth+20)
	out := renderTable(jobColumns, [][]string{{"id", "Completed", "episode", long, "-", ""}})
	if strings.Contains(out, long) {
		t.Fatal("expected long title to be trimmed")
	}
	if !strings.Contains(out, strings.Repeat("x", titleWidth)) {
		t.Fatalf("expected title trimmed to %d chars:\n%s", titleWidth, out)
	}
}
