// Package preflight provides readiness checks for external services,
// binaries, and filesystem paths that podscribe depends on.
//
// These checks run in two contexts:
//   - The daemon logs RunAll failures at startup and reports CheckSystemDeps
//     in its status payload.
//   - The CLI "podscribe doctor" command prints every check.
//
// Checks for optional backends are skipped when the backend is not selected.
package preflight
