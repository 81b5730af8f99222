package jobs

import (
	"errors"
	"fmt"
	"strings"
)

// Status represents the lifecycle of a render job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusEncoding  Status = "encoding"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var allStatuses = []Status{
	StatusQueued,
	StatusRunning,
	StatusEncoding,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, s := range allStatuses {
		if s == normalized {
			return s, true
		}
	}
	return "", false
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Active reports whether a pipeline holds a concurrency slot in this status.
func (s Status) Active() bool {
	return s == StatusRunning || s == StatusEncoding
}

// Event drives a job between statuses.
type Event string

const (
	// EventRendererStarted fires once the renderer process is running.
	EventRendererStarted Event = "renderer_started"
	// EventEncoderStarted fires once the encoder process is running.
	EventEncoderStarted Event = "encoder_started"
	EventSucceeded      Event = "succeeded"
	EventFailed         Event = "failed"
	EventCancelled      Event = "cancelled"
)

// ErrInvalidTransition is returned when an event does not apply to a status.
var ErrInvalidTransition = errors.New("invalid job transition")

var transitions = map[Status]map[Event]Status{
	StatusQueued: {
		EventRendererStarted: StatusRunning,
		EventFailed:          StatusFailed,
		EventCancelled:       StatusCancelled,
	},
	StatusRunning: {
		EventEncoderStarted: StatusEncoding,
		EventSucceeded:      StatusCompleted,
		EventFailed:         StatusFailed,
		EventCancelled:      StatusCancelled,
	},
	StatusEncoding: {
		EventSucceeded: StatusCompleted,
		EventFailed:    StatusFailed,
		EventCancelled: StatusCancelled,
	},
}

// Transition returns the status reached by applying ev to from.
func Transition(from Status, ev Event) (Status, error) {
	next, ok := transitions[from][ev]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, from)
	}
	return next, nil
}
