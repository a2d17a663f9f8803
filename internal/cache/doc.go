// Package cache remembers expensive pipeline artifacts across jobs and worker
// processes.
//
// Downloads are keyed by source URL and transcripts by audio path. Entries are
// stored in a SQLite database shared by every worker; a hit is only returned
// while the referenced file still exists, so deleting an artifact from disk
// is enough to force it to be regenerated. Callers treat every cache error as
// a miss.
package cache
