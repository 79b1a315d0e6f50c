package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"morningcast/internal/config"
)

// LogFileName is the run log written under paths.log_dir.
const LogFileName = "morningcast.log"

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Sinks are "stdout", "stderr" or file paths. Empty means stdout.
	Sinks []string
	// Color forces ANSI level colors on or off. Nil colors only when every
	// sink is a terminal.
	Color *bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))
	// Caller locations only at debug.
	addSource := level.Level() <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format != "" && format != "console" && format != "json" {
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	w, terminal, err := openSinks(opts.Sinks)
	if err != nil {
		return nil, err
	}

	if format == "json" {
		return slog.New(newJSONHandler(w, level, addSource)), nil
	}
	color := terminal
	if opts.Color != nil {
		color = *opts.Color
	}
	return slog.New(newConsoleHandler(w, level, addSource, color)), nil
}

// NewFromConfig logs to stdout and, when paths.log_dir is set, appends to
// LogFileName there.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info"})
	}
	sinks := []string{"stdout"}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		sinks = append(sinks, filepath.Join(dir, LogFileName))
	}
	return New(Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Sinks: sinks})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openSinks reports whether every sink is a terminal so file output never
// carries color codes.
func openSinks(sinks []string) (io.Writer, bool, error) {
	if len(sinks) == 0 {
		sinks = []string{"stdout"}
	}
	var writers []io.Writer
	terminal := true
	var seen []string
	for _, sink := range sinks {
		sink = strings.TrimSpace(sink)
		if sink == "" || slices.Contains(seen, sink) {
			continue
		}
		seen = append(seen, sink)
		switch sink {
		case "stdout", "stderr":
			f := os.Stdout
			if sink == "stderr" {
				f = os.Stderr
			}
			writers = append(writers, f)
			terminal = terminal && isatty.IsTerminal(f.Fd())
		default:
			if err := os.MkdirAll(filepath.Dir(sink), 0o755); err != nil {
				return nil, false, fmt.Errorf("ensure log directory: %w", err)
			}
			f, err := os.OpenFile(sink, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, false, fmt.Errorf("open log file %s: %w", sink, err)
			}
			writers = append(writers, f)
			terminal = false
		}
	}
	switch len(writers) {
	case 0:
		return os.Stdout, isatty.IsTerminal(os.Stdout.Fd()), nil
	case 1:
		return writers[0], terminal, nil
	default:
		return io.MultiWriter(writers...), terminal, nil
	}
}

func newJSONHandler(w io.Writer, level *slog.LevelVar, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
			case slog.LevelKey:
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	})
}
