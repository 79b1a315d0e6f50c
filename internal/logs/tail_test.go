package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"morningcast/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "morningcast.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[0] != "b" || result.Lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
	if result.Offset != 6 {
		t.Fatalf("expected offset at end of file, got %d", result.Offset)
	}
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "none.log"), logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestTailFiltersByRun(t *testing.T) {
	content := `2026-03-14T06:00:00Z INFO broadcast: broadcast run started run_id=abc123 slug=20260314
2026-03-14T06:00:01Z INFO gather: context gathered emails=0
{"time":"2026-03-14T06:00:02Z","level":"INFO","msg":"program planned","run_id":"abc123","segments":4}
{"time":"2026-03-14T06:00:03Z","level":"INFO","msg":"program planned","run_id":"zzz999"}
2026-03-14T06:00:04Z WARN broadcast: run failed run_id="zzz999"
`
	path := writeLog(t, content)

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 10, RunID: "abc"})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(result.Lines) != 2 {
		t.Fatalf("expected 2 lines for run abc, got %#v", result.Lines)
	}

	result, err = logs.Tail(context.Background(), path, logs.TailOptions{Offset: 0, RunID: "zzz999"})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(result.Lines) != 2 {
		t.Fatalf("expected 2 lines for run zzz999, got %#v", result.Lines)
	}
}

func TestTailFromOffsetRestartsAfterTruncation(t *testing.T) {
	path := writeLog(t, "one\n")
	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 1000})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "one" {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
}

func TestTailFollowWaits(t *testing.T) {
	path := writeLog(t, "start\n")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	result, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}
	if len(result.Lines) != 1 {
		t.Fatalf("expected initial line, got %#v", result.Lines)
	}

	done := make(chan logs.TailResult, 1)
	errs := make(chan error, 1)
	go func(offset int64) {
		res, err := logs.Tail(ctx, path, logs.TailOptions{Offset: offset, Follow: true, Wait: 5 * time.Second})
		errs <- err
		done <- res
	}(result.Offset)

	time.Sleep(300 * time.Millisecond)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := file.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = file.Close()

	select {
	case err := <-errs:
		if err != nil {
			t.Fatalf("follow tail error: %v", err)
		}
		res := <-done
		if len(res.Lines) != 1 || res.Lines[0] != "later" {
			t.Fatalf("unexpected follow lines: %#v", res.Lines)
		}
	case <-time.After(6 * time.Second):
		t.Fatal("follow tail did not return")
	}
}
