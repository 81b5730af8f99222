// Package services defines shared utilities consumed by the render pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, repository IDs, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper and Kind classifier that
//     turn failures into the error kind recorded on a render job.
//   - Typed errors carrying bounded tool diagnostics.
package services
