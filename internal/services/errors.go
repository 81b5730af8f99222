package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRepositoryNotFound = errors.New("repository not found")
	ErrExtraction         = errors.New("extraction error")
	ErrConfiguration      = errors.New("configuration error")
	ErrToolUnavailable    = errors.New("tool unavailable")
	ErrProcessRuntime     = errors.New("process runtime error")
	ErrCancelled          = errors.New("cancelled")
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
)

// Error kinds recorded on render jobs and returned through the API.
const (
	KindRepositoryNotFound = "repository_not_found"
	KindExtraction         = "extraction"
	KindConfiguration      = "configuration"
	KindToolUnavailable    = "tool_unavailable"
	KindProcessRuntime     = "process_runtime"
	KindCancelled          = "cancelled"
	KindValidation         = "validation"
	KindNotFound           = "not_found"
	KindUnknown            = "unknown"
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrProcessRuntime
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to the most specific known kind. Order matters: an
// error wrapping several markers reports the first match below.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return KindCancelled
	case errors.Is(err, ErrToolUnavailable):
		return KindToolUnavailable
	case errors.Is(err, ErrRepositoryNotFound):
		return KindRepositoryNotFound
	case errors.Is(err, ErrExtraction):
		return KindExtraction
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrProcessRuntime):
		return KindProcessRuntime
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindUnknown
	}
}

// ExtractionError reports a failed history query against one repository.
type ExtractionError struct {
	Path   string
	Stderr string
	Err    error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("extract history from %s", e.Path)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *ExtractionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExtraction}
	}
	return []error{ErrExtraction, e.Err}
}

// ProcessError reports an external tool that started but exited unsuccessfully.
type ProcessError struct {
	Tool        string
	ExitCode    int
	Diagnostics string
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	if diag := strings.TrimSpace(e.Diagnostics); diag != "" {
		msg += ": " + diag
	}
	return msg
}

func (e *ProcessError) Unwrap() error { return ErrProcessRuntime }

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
