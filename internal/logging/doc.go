// Package logging assembles structured slog loggers and formatting helpers used
// across podscribe.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code tags log lines with job
// IDs, stages, and worker IDs without threading them by hand. The daemon and
// each worker process write to the same log file so one tail shows the whole
// process tree.
package logging
