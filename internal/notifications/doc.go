// Package notifications delivers render job outcomes via ntfy.
//
// NewService publishes to the topic configured in config.toml and degrades to
// a no-op when no topic is set. Observer adapts a Service to the jobs
// Registry so completed and failed renders are announced without the
// orchestrator knowing about HTTP.
package notifications
