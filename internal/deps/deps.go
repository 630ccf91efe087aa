// Package deps checks the external binaries cardcast shells out to. The
// preflight runs before any pipeline work so a missing encoder fails in
// milliseconds, not after minutes of synthesis.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"cardcast/internal/config"
)

// Requirement defines an external binary cardcast relies on.
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

// Requirements derives the binary list from a resolved configuration.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Encode.FFmpegBinary,
			Description: "Encodes clips and concatenates the final video",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Encode.FFprobeBinary,
			Description: "Measures cached audio durations",
		},
		{
			Name:        "TTS worker",
			Command:     cfg.TTS.WorkerCommand,
			Description: "Synthesizes narration audio",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
// Commands containing a path separator are checked in place; bare names
// resolve through PATH.
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
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		case strings.ContainsRune(cmd, os.PathSeparator):
			info, err := os.Stat(cmd)
			if err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else if !isExecutable(info) {
				status.Detail = fmt.Sprintf("%q is not executable", cmd)
			} else {
				status.Available = true
			}
		default:
			if _, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}

// Missing filters statuses down to unavailable required binaries.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
