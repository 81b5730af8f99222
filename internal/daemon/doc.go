// Package daemon coordinates the long-running gitreel process.
//
// It wires configuration, the SQLite store, the job registry, the render
// orchestrator, metrics, and notifications into a single lifecycle with
// flock-based locking to prevent multiple instances. The HTTP API is served
// with chi and guarded by an optional bearer token.
//
// A Daemon that is never started still resolves and runs renders, which is how
// `gitreel render` performs one-shot local renders with the same wiring.
package daemon
