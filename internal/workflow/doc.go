// Package workflow runs the pipeline worker.
//
// A Worker polls the persistent job store, claims one job at a time, and
// drives it through its stages:
//
//   - Episode jobs walk downloading, transcribing, and summarizing before
//     completing. Each stage persists its status first, then calls its
//     collaborator, then writes artifacts and descriptive fields back.
//   - Feed jobs list their episodes and hand them to the store, which creates
//     the children and completes the parent in a single locked update.
//
// Any stage error fails the job with a readable message; the worker never
// retries inside its loop. Stage calls run detached from the worker's
// cancellation so a stop request lets the current job finish while the
// supervisor's shutdown deadline bounds how long that may take.
package workflow
