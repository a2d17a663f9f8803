// Package logs tails the shared podscribe.log for `podscribe logs`.
//
// Reads are offset based so a follower can poll without holding the file
// open, and an optional line filter narrows output to a single job.
package logs
