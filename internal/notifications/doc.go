// Package notifications pushes job milestones to an ntfy topic.
//
// Workers publish when an episode summary is ready, when a job fails, and
// when a feed has been expanded into episode jobs. With no topic configured
// NewService returns a noop, so callers never need to check.
package notifications
