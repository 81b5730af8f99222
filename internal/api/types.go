package api

import (
	"gitreel/internal/deps"
	"gitreel/internal/encodeargs"
	"gitreel/internal/jobs"
	"gitreel/internal/profile"
)

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool          `json:"running"`
	PID          int           `json:"pid"`
	DatabasePath string        `json:"databasePath"`
	LockFilePath string        `json:"lockFilePath"`
	Capacity     int           `json:"capacity"`
	ActiveJobs   int           `json:"activeJobs"`
	QueuedJobs   int           `json:"queuedJobs"`
	Dependencies []deps.Status `json:"dependencies"`
}

// RenderRequest asks the daemon to start a render.
type RenderRequest struct {
	ProjectID     string                 `json:"projectId,omitempty"`
	RepositoryIDs []string               `json:"repositoryIds,omitempty"`
	ProjectName   string                 `json:"projectName,omitempty"`
	ProfileID     string                 `json:"profileId,omitempty"`
	Interactive   bool                   `json:"interactive,omitempty"`
	PostProcess   encodeargs.PostProcess `json:"postProcess"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []jobs.Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job jobs.Job `json:"job"`
}

// CancelResponse reports whether a cancel request reached a live job.
type CancelResponse struct {
	Cancelled bool     `json:"cancelled"`
	Job       jobs.Job `json:"job"`
}

// ProfileListResponse wraps the available render profiles.
type ProfileListResponse struct {
	Profiles []profile.Profile `json:"profiles"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	// Job is set when a render was registered but failed immediately.
	Job *jobs.Job `json:"job,omitempty"`
}
