package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestConformArgs(t *testing.T) {
	var got []string
	runner := RunnerFunc(func(_ context.Context, args []string) error {
		got = args
		return nil
	})
	if err := Conform(context.Background(), runner, "in.mp3", "out.wav", 0); err != nil {
		t.Fatalf("Conform returned error: %v", err)
	}
	want := []string{"-i", "in.mp3", "-vn", "-ac", "2", "-ar", "44100", "-c:a", "pcm_s16le", "out.wav"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected args\n got %v\nwant %v", got, want)
	}
}

func TestExecIncludesOutputInError(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\necho \"Invalid filter graph\" >&2\nexit 1\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	err := NewExec(stub).Run(context.Background(), []string{"-i", "x.wav", "y.wav"})
	if err == nil {
		t.Fatal("expected error from failing ffmpeg")
	}
	if !strings.Contains(err.Error(), "Invalid filter graph") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestExecPassesQuietDefaults(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	stub := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\necho \"$@\" > \"" + argsFile + "\"\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	if err := NewExec(stub).Run(context.Background(), []string{"-i", "a.wav", "b.wav"}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	if strings.TrimSpace(string(data)) != "-y -hide_banner -loglevel error -i a.wav b.wav" {
		t.Fatalf("unexpected args %q", data)
	}
}

func TestSecondsFormatting(t *testing.T) {
	if got := Seconds(1.5); got != "1.500" {
		t.Fatalf("unexpected format %q", got)
	}
}
