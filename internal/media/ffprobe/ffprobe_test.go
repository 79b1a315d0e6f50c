package ffprobe

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio", SampleRate: "44100", Channels: 2, Tags: map[string]string{"TITLE": "Stream Title"}},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
			Tags:     map[string]string{"artist": " Band "},
		},
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	stream, ok := result.AudioStream()
	if !ok || stream.Channels != 2 {
		t.Fatalf("unexpected audio stream %+v", stream)
	}
	if got := result.Tag("ARTIST"); got != "Band" {
		t.Fatalf("expected format tag, got %q", got)
	}
	if got := result.Tag("title"); got != "Stream Title" {
		t.Fatalf("expected stream tag fallback, got %q", got)
	}
	if got := result.Tag("album"); got != "" {
		t.Fatalf("expected empty tag, got %q", got)
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if (Result{}).DurationSeconds() != 0 {
		t.Fatal("expected zero duration for empty value")
	}
}

func TestInspectParsesStubOutput(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\ncat <<'JSON'\n{\"streams\":[{\"index\":0,\"codec_type\":\"audio\",\"codec_name\":\"mp3\",\"sample_rate\":\"44100\",\"channels\":2}],\"format\":{\"duration\":\"61.5\",\"tags\":{\"title\":\"Morning Light\"}}}\nJSON\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	result, err := Inspect(context.Background(), stub, "/music/song.mp3")
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if result.DurationSeconds() != 61.5 {
		t.Fatalf("unexpected duration %v", result.DurationSeconds())
	}
	if result.Tag("title") != "Morning Light" {
		t.Fatalf("unexpected title %q", result.Tag("title"))
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := Inspect(context.Background(), "ffprobe", " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
