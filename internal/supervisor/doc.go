// Package supervisor owns the pipeline worker pool.
//
// The Supervisor is the only entry point callers use to reach the job store:
// Submit, Status, History, FeedChildren and Retry. It starts workers lazily
// on the first submission (or at startup when jobs are already pending),
// replaces workers that die, and tears the pool down exactly once.
//
// Workers are separate OS processes launched through a Launcher. The
// in-process launcher runs workflow.Worker goroutines instead and backs the
// tests and the daemon's --in-process mode.
package supervisor
