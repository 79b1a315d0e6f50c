package speech

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"morningcast/internal/config"
)

// Edge shells out to the edge-tts command line tool. It needs no credentials
// and is the last resort in the default chain.
type Edge struct {
	binary string
	voice  string
}

// NewEdge fails when the edge-tts binary is not on PATH.
func NewEdge(cfg config.Edge) (*Edge, error) {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		binary = "edge-tts"
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("edge-tts not available: %w", err)
	}
	return &Edge{binary: resolved, voice: cfg.Voice}, nil
}

func (e *Edge) Name() string      { return "edge" }
func (e *Edge) Accepts() Input    { return Plain }
func (e *Edge) Extension() string { return ".mp3" }

// Synthesize writes text beside outPath and runs edge-tts on it.
func (e *Edge) Synthesize(ctx context.Context, text, outPath string) error {
	textPath := outPath + ".txt"
	if err := os.WriteFile(textPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("edge-tts input: %w", err)
	}
	args := []string{"--file", textPath, "--write-media", outPath}
	if e.voice != "" {
		args = append([]string{"--voice", e.voice}, args...)
	}
	cmd := exec.CommandContext(ctx, e.binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("edge-tts: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	info, err := os.Stat(outPath)
	if err != nil {
		return fmt.Errorf("edge-tts output: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("edge-tts output: empty file")
	}
	return nil
}
