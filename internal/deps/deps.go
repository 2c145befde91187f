// Package deps reports on the external binaries relic can make use of.
// Everything here is optional; the pipeline falls back to in-process
// implementations when a tool is missing.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"relic/internal/config"
)

// Requirement defines an external tool relic can call.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a tool.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements builds the tool list for the given configuration. Only the
// background removal tool is external today.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	var reqs []Requirement
	bg := cfg.ImageProcessing.BackgroundRemoval
	if bg.Enabled && strings.TrimSpace(bg.Tool) != "" {
		reqs = append(reqs, Requirement{
			Name:        "background removal tool",
			Command:     bg.Tool,
			Description: "segmentation model runner; edge detection is used when absent",
			Optional:    true,
		})
	}
	return reqs
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
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
