// Package deps reports availability of the external encoder binaries.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"optipress/internal/config"
)

// Requirement defines an external binary optipress relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements derives the encoder requirements from configuration. An
// encoder is required when its format is enabled and optional otherwise.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	return []Requirement{
		{
			Name:        "WebP encoder",
			Command:     cfg.Conversion.WebPBinary,
			Description: "converts images to WebP",
			Optional:    !cfg.FormatEnabled("webp"),
		},
		{
			Name:        "AVIF encoder",
			Command:     cfg.Conversion.AVIFBinary,
			Description: "converts images to AVIF",
			Optional:    !cfg.FormatEnabled("avif"),
		},
	}
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

// MissingRequired returns the names of required binaries that are not
// available.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
