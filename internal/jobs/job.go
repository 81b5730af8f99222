package jobs

import (
	"slices"
	"time"
)

// Job is a snapshot of one render attempt.
type Job struct {
	ID              string     `json:"id"`
	ProfileID       string     `json:"profileId"`
	ProjectName     string     `json:"projectName,omitempty"`
	RepositoryIDs   []string   `json:"repositoryIds"`
	Interactive     bool       `json:"interactive,omitempty"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	FinishedAt      *time.Time `json:"finishedAt,omitempty"`
	OutputPath      string     `json:"outputPath,omitempty"`
	ProgressPercent float64    `json:"progressPercent"`
	ErrorMessage    string     `json:"errorMessage,omitempty"`
	ErrorKind       string     `json:"errorKind,omitempty"`
	Warnings        []string   `json:"warnings,omitempty"`
}

// Spec describes a job to register.
type Spec struct {
	// ID is generated when empty.
	ID            string
	ProfileID     string
	ProjectName   string
	RepositoryIDs []string
	Interactive   bool
	Warnings      []string
	// Cancel stops the job's pipeline. It is attached before the job is
	// visible, so Cancel on the registry always reaches it.
	Cancel func()
}

func (j Job) clone() Job {
	out := j
	out.RepositoryIDs = slices.Clone(j.RepositoryIDs)
	out.Warnings = slices.Clone(j.Warnings)
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		out.FinishedAt = &t
	}
	return out
}

// Duration is the time between start and finish, or zero.
func (j Job) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}

// Update carries the details applied alongside an event.
type Update struct {
	// OutputPath is recorded on EventSucceeded for file renders.
	OutputPath string
	// Err is recorded on EventFailed and EventCancelled.
	Err error
	// Message overrides Err's text as the user-visible error message.
	Message string
}
