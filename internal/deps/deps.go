package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"gitreel/internal/config"
)

// Requirement defines an external dependency gitreel relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		if resolved != cmd {
			status.Detail = resolved
		}
		results = append(results, status)
	}
	return results
}

// Requirements lists the tools the render pipeline runs. The encoder is only
// needed for file renders, so it is marked optional for interactive use.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "Git",
			Command:     cfg.Tools.Git,
			Description: "Required for commit history extraction",
		},
		{
			Name:        "Gource",
			Command:     cfg.Tools.Gource,
			Description: "Required for rendering",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Tools.FFmpeg,
			Description: "Required for encoding video files",
			Optional:    true,
		},
	}
}

// CheckSystem evaluates Requirements for the given config. The daemon and the
// deps command share it.
func CheckSystem(cfg *config.Config) []Status {
	return CheckBinaries(Requirements(cfg))
}

// Missing returns the names of unavailable required dependencies.
func Missing(statuses []Status) []string {
	var out []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s.Name)
		}
	}
	return out
}
