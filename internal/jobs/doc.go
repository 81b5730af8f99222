// Package jobs owns render job state: the lifecycle state machine, the
// process-wide Registry, the concurrency ceiling, and progress tracking.
//
// Transition is a pure function of (status, event) so the lifecycle can be
// tested without spawning processes. The Registry applies transitions under
// its lock, hands out copies, and reports terminal jobs to an optional
// Recorder and to Observers.
package jobs
