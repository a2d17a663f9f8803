// Package services defines shared utilities consumed by the pipeline worker
// and the external collaborators it drives.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, worker IDs, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures from yt-dlp,
//     whisper, and the OpenAI API classify consistently (transient,
//     malformed response, external tool).
//
// Collaborator packages wrap their failures with these markers; the worker
// turns any of them into a failed job with a readable error string.
package services
