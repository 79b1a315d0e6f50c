package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Runner executes one ffmpeg invocation.
type Runner interface {
	Run(ctx context.Context, args []string) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, args []string) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, args []string) error {
	return f(ctx, args)
}

// Exec runs the ffmpeg binary with quiet, overwrite-enabled defaults.
type Exec struct {
	Binary string
}

// NewExec returns a runner for the given binary, defaulting to "ffmpeg".
func NewExec(binary string) Exec {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return Exec{Binary: binary}
}

// Run executes ffmpeg and folds its output into the returned error.
func (e Exec) Run(ctx context.Context, args []string) error {
	full := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	cmd := exec.CommandContext(ctx, e.Binary, full...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Conform transcodes src into 16-bit stereo WAV at sampleRate.
func Conform(ctx context.Context, runner Runner, src, dst string, sampleRate int) error {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	args := []string{
		"-i", src,
		"-vn",
		"-ac", "2",
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		dst,
	}
	if err := runner.Run(ctx, args); err != nil {
		return fmt.Errorf("conform %s: %w", src, err)
	}
	return nil
}

// Seconds formats a duration argument with millisecond precision.
func Seconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}
