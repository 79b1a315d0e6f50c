package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"morningcast/internal/config"
	"morningcast/internal/logging"
	"morningcast/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("broadcast ready")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "morningcast.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "broadcast ready") {
		t.Fatalf("expected message in log file, got %q", content)
	}
	if strings.Contains(string(content), "\x1b[") {
		t.Fatalf("expected no color codes in file output, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{
		Format: "console",
		Level:  "info",
		Sinks:  []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{
		Format: "console",
		Level:  "debug",
		Sinks:  []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerColorOverride(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "color.log")
	color := true
	logger, err := logging.New(logging.Options{
		Format: "console",
		Sinks:  []string{logPath},
		Color:  &color,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("careful")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "\x1b[33mWARN\x1b[0m") {
		t.Fatalf("expected colored level label, got %q", content)
	}
}

func TestJSONLoggerFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{
		Format: "json",
		Level:  "info",
		Sinks:  []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRunID(context.Background(), "run-1")
	ctx = services.WithSlug(ctx, "20260102")
	ctx = services.WithStage(ctx, "planning")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "broadcast")).Info("plan parsed", logging.Int("segments", 3))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &entry); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	want := map[string]any{
		"msg":       "plan parsed",
		"level":     "info",
		"component": "broadcast",
		"run_id":    "run-1",
		"slug":      "20260102",
		"stage":     "planning",
	}
	for key, value := range want {
		if entry[key] != value {
			t.Fatalf("expected %s=%v, got %v", key, value, entry[key])
		}
	}
	if entry["segments"] != float64(3) {
		t.Fatalf("expected segments=3, got %v", entry["segments"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatal("expected ts field")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", Sinks: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "song skipped", "song_resolution_miss",
		logging.String(logging.FieldErrorHint, "add the song to songs.csv"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry[logging.FieldEventType] != "song_resolution_miss" {
		t.Fatalf("unexpected event type %v", entry[logging.FieldEventType])
	}
	if entry[logging.FieldErrorHint] != "add the song to songs.csv" {
		t.Fatalf("error hint overridden: %v", entry[logging.FieldErrorHint])
	}
	if entry[logging.FieldImpact] == nil {
		t.Fatal("expected impact default")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should not be enabled")
	}
}

func TestConsoleLineLayout(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "layout.log")
	logger, err := logging.New(logging.Options{Sinks: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithRunID(context.Background(), "abc123")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "mixer")).
		WithGroup("bed").
		Info("bed mixed", logging.String("song", "Morning Light"), logging.Float64("gain", 0.25))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(content))
	for _, want := range []string{
		" INFO mixer: bed mixed",
		" run_id=abc123",
		` bed.song="Morning Light"`,
		" bed.gain=0.25",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be the line prefix, got %q", line)
	}
}
