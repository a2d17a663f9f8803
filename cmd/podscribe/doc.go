// Package main hosts the podscribe CLI entrypoint and command graph.
//
// The Cobra command tree runs the daemon and its hidden worker processes,
// and translates every other invocation into an IPC call against the
// running daemon. Directory search, narration, and doctor checks run
// locally because they never touch the job store.
package main
