// Package daemon coordinates the long-running podscribe process.
//
// It wires configuration, the job store, and the worker supervisor into a
// single lifecycle with flock-based locking to prevent multiple instances.
// The daemon exposes job operations as transport views shared by the IPC
// server and the HTTP API, and reports dependency health alongside pool
// state.
//
// Keep orchestration logic here: pipeline stages live in workflow and pool
// management in supervisor, while the daemon focuses on startup, shutdown,
// and request plumbing.
package daemon
