package broadcast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Slug is the date-derived artifact name component.
func Slug(date time.Time) string {
	return date.Format("20060102")
}

// Artifacts lists the files one run publishes in the output directory.
type Artifacts struct {
	Transcript string `json:"transcript"`
	PlainText  string `json:"plain_text"`
	Plan       string `json:"plan"`
	Voice      string `json:"voice"`
	Mix        string `json:"mix"`
	WithSong   string `json:"with_song"`
	Final      string `json:"final"`
	Lock       string `json:"-"`
	WorkDir    string `json:"-"`
}

// ArtifactPaths names the artifacts for slug. format is the final file
// extension without the dot; empty means mp3.
func ArtifactPaths(outputDir, slug, format, runID string) Artifacts {
	format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if format == "" {
		format = "mp3"
	}
	base := filepath.Join(outputDir, "podcast_"+slug)
	return Artifacts{
		Transcript: base + ".md",
		PlainText:  base + ".txt",
		Plan:       base + ".json",
		Voice:      base + "_voice.wav",
		Mix:        base + "_mix.wav",
		WithSong:   base + "_with_song.wav",
		Final:      base + "." + format,
		Lock:       filepath.Join(outputDir, ".podcast_"+slug+".lock"),
		WorkDir:    filepath.Join(outputDir, "tmp", runID),
	}
}

func writeText(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, value any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return writeText(path, buf.String())
}
