package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement is an external binary a broadcast run shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is a Requirement after looking it up on PATH.
type Status struct {
	Requirement
	Available bool
	// Path is the resolved executable when Available.
	Path   string
	Detail string
}

// BroadcastRequirements lists the binaries a broadcast run shells out to.
// edge-tts is optional because it is only the last speech fallback.
func BroadcastRequirements(ffmpeg, ffprobe, edge string) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: ffmpeg, Description: "Audio filter engine for mixing and export"},
		{Name: "FFprobe", Command: ffprobe, Description: "Duration and tag inspection"},
		{Name: "edge-tts", Command: edge, Description: "Free speech synthesis fallback", Optional: true},
	}
}

// CheckBinaries resolves every requirement in order.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		results[i] = lookup(req)
	}
	return results
}

func lookup(req Requirement) Status {
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(req.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return status
	}
	status.Available = true
	status.Path = path
	return status
}
