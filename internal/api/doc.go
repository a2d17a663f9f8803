// Package api defines the caller-facing views shared by the HTTP API and the
// IPC socket. It converts queue records into transport DTOs so neither
// surface leaks store internals.
//
// # Key Types
//
// Job: one job with its artifacts and, for feeds, feed_progress plus a
// progress_percent that is 0 for an empty feed.
//
// HistoryResponse: {jobs, total}, newest first, with each feed's episodes
// nested under it.
//
// DaemonStatus: daemon pid, worker pool snapshot, queue counts, dependency
// checks.
//
// # Design Notes
//
// DTOs use snake_case JSON tags matching the persisted job records.
// Timestamps use RFC3339 with milliseconds.
package api
