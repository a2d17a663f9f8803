package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"podscribe/internal/api"
)

const titleWidth = 48

var jobColumns = []tableColumn{
	col("ID"),
	col("Status"),
	col("Kind"),
	col("Title").max(titleWidth),
	col("Progress").right(),
	col("Created"),
}

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key, count := range stats {
		if count > 0 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), strconv.Itoa(stats[key])})
	}
	return rows
}

func buildHistoryRows(entries []api.HistoryEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, jobRow(entry.Job, ""))
		rows = append(rows, buildJobRows(entry.Episodes, "  └ ")...)
	}
	return rows
}

func buildJobRows(jobs []api.Job, prefix string) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, jobRow(job, prefix))
	}
	return rows
}

func jobRow(job api.Job, prefix string) []string {
	return []string{
		prefix + job.JobID,
		formatStatusLabel(job.Status),
		job.Kind,
		displayTitle(job),
		formatProgress(job),
		formatDisplayTime(job.CreatedAt),
	}
}

func jobDetailLines(job api.Job) []string {
	lines := []string{
		fmt.Sprintf("Job:       %s", job.JobID),
		fmt.Sprintf("Kind:      %s", job.Kind),
		fmt.Sprintf("Status:    %s", formatStatusLabel(job.Status)),
		fmt.Sprintf("Source:    %s", job.SourceURL),
	}
	optional := []struct {
		label string
		value string
	}{
		{"Title", job.Title},
		{"Feed", job.ParentJobID},
		{"Progress", progressDetail(job)},
		{"Language", job.Language},
		{"Summary in", job.TargetLanguage},
		{"Audio", job.DownloadPath},
		{"Transcript", job.TranscriptPath},
		{"Summary", job.SummaryPath},
		{"Error", job.Error},
		{"Created", formatDisplayTime(job.CreatedAt)},
		{"Updated", formatDisplayTime(job.UpdatedAt)},
	}
	for _, field := range optional {
		if strings.TrimSpace(field.value) == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%-10s %s", field.label+":", field.value))
	}
	return lines
}

func displayTitle(job api.Job) string {
	if title := strings.TrimSpace(job.Title); title != "" {
		return title
	}
	return job.SourceURL
}

func formatProgress(job api.Job) string {
	if job.ProgressPercent == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", *job.ProgressPercent)
}

func progressDetail(job api.Job) string {
	if job.FeedProgress == nil {
		return ""
	}
	return fmt.Sprintf("%d/%d episodes (%s)", job.FeedProgress.ProcessedEpisodes, job.FeedProgress.TotalEpisodes, formatProgress(job))
}

func buildWorkerRows(pool api.Pool) [][]string {
	rows := make([][]string, 0, len(pool.Workers))
	for _, worker := range pool.Workers {
		pid := "-"
		if worker.PID > 0 {
			pid = strconv.Itoa(worker.PID)
		}
		rows = append(rows, []string{worker.WorkerID, pid, yesNo(worker.Alive), formatDisplayTime(worker.StartedAt)})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.Local().Format("2006-01-02 15:04")
	}
	return value
}
