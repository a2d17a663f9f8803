package queue

import "errors"

var (
	// ErrNotFound reports a job id that is absent from the status table.
	ErrNotFound = errors.New("job not found")
	// ErrDuplicateJob reports an enqueue for an id that already exists.
	ErrDuplicateJob = errors.New("job already exists")
	// ErrInvalidTransition reports a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotClaimant reports a write from a worker that no longer owns the job.
	ErrNotClaimant = errors.New("job claimed by another worker")
)
