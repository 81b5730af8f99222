// Package store persists repositories, projects, render profiles, and render
// history in SQLite.
//
// The Store owns schema initialization, seeds the embedded system profiles on
// every Open, and implements jobs.Recorder so terminal render jobs land in the
// render_jobs table. Live job state stays in the jobs Registry; the database
// only sees a job once, when it finishes.
//
// Schema changes bump schemaVersion in schema.go; users delete the database
// to adopt the new schema.
package store
