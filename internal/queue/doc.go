// Package queue owns job records and their persistence.
//
// A JobRecord describes one unit of work: an episode to download, transcribe,
// and summarize, or a feed that expands into episode jobs. The Store keeps two
// JSON files under the queue directory: a status table keyed by job id and a
// snapshot of the FIFO pending queue. Every operation takes the in-process
// mutex and an flock on queue.lock, reloads both files, mutates, and rewrites
// them atomically, so worker processes and the daemon can share one queue
// directory without corrupting it.
//
// Status changes go through UpdateStatus, which enforces the state machine in
// models.go. Feed expansion and progress accounting are single locked
// operations so a child can never finish before its parent's counter exists.
package queue
