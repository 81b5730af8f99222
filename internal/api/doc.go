// Package api defines the wire-format types of the daemon HTTP API and the
// client the CLI uses to reach it.
//
// # Key Types
//
// DaemonStatus: daemon running state, render capacity, and dependency health.
//
// RenderRequest: the body of POST /api/renders. A project ID or an explicit
// repository list selects the history to fuse; the profile defaults to the
// configured default profile.
//
// JobListResponse/JobResponse: render job snapshots, live jobs first and then
// recorded history.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Job snapshots are passed through as jobs.Job
// so the registry, the store, and the API agree on one shape. Errors are
// returned as {"error": "...", "kind": "..."} where kind is the services
// error kind.
package api
