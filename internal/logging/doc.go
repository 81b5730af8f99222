// Package logging assembles structured slog loggers and formatting helpers used
// across gitreel.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so orchestrator code tags log
// lines with job and repository IDs automatically. A no-op logger is provided
// for tests and wiring code that cannot fail.
package logging
