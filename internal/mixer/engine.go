package mixer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"morningcast/internal/logging"
	"morningcast/internal/media/ffmpeg"
	"morningcast/internal/media/hook"
)

// HookLocator finds the bed start point of a song.
type HookLocator interface {
	Locate(ctx context.Context, path string) (hook.Result, error)
}

// Engine runs assembly stages through an ffmpeg runner.
type Engine struct {
	runner   ffmpeg.Runner
	hooks    HookLocator
	settings Settings
	logger   *slog.Logger
}

// NewEngine builds an engine. A nil logger discards output.
func NewEngine(runner ffmpeg.Runner, hooks HookLocator, settings Settings, logger *slog.Logger) *Engine {
	return &Engine{
		runner:   runner,
		hooks:    hooks,
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "mixer"),
	}
}

// Settings returns the engine parameters.
func (e *Engine) Settings() Settings {
	return e.settings
}

func (e *Engine) run(ctx context.Context, stage string, args []string) error {
	e.logger.Debug("ffmpeg stage", logging.String("mix_stage", stage), logging.Any("args", args))
	if err := e.runner.Run(ctx, args); err != nil {
		return &FilterError{Stage: stage, Err: err}
	}
	return nil
}

// Track is a song chosen for the broadcast.
type Track struct {
	Title string
	Path  string
}

// Job describes one assembly. MixPath, WithSongPath and FinalPath are the
// published artifacts; intermediate excerpts live in WorkDir.
type Job struct {
	Voice        string
	Bed          []Track
	Closing      *Track
	WorkDir      string
	MixPath      string
	WithSongPath string
	FinalPath    string
	Metadata     Metadata
}

// BedSegment records how one bed excerpt was cut.
type BedSegment struct {
	Title string       `json:"title"`
	Plan  SegmentPlan  `json:"plan"`
	Hook  *hook.Result `json:"hook,omitempty"`
}

// Result lists the artifacts each stage produced. Skipped stages leave their
// field empty.
type Result struct {
	Segments       []BedSegment
	Bed            string
	Mix            string
	WithSong       string
	Final          string
	ClosingSkipped bool
}

// Assemble runs extraction, crossfade, ducking, closing append and export.
func (e *Engine) Assemble(ctx context.Context, job Job) (Result, error) {
	var result Result
	if err := os.MkdirAll(job.WorkDir, 0o755); err != nil {
		return result, fmt.Errorf("create mixer work dir: %w", err)
	}

	excerpts := make([]string, 0, len(job.Bed))
	for i, track := range job.Bed {
		if !fileExists(track.Path) {
			logging.WarnWithContext(e.logger, "bed song missing on disk",
				"mixer_missing_media",
				logging.String("title", track.Title),
				logging.String("path", track.Path),
				logging.String(logging.FieldErrorHint, "check the path column in the song catalogue"),
				logging.String(logging.FieldImpact, "song left out of the music bed"),
			)
			continue
		}
		segment := BedSegment{Title: track.Title}
		hookTime := 0.0
		if e.hooks != nil {
			located, err := e.hooks.Locate(ctx, track.Path)
			if err != nil {
				logging.WarnWithContext(e.logger, "hook analysis failed; using track start",
					"hook_analysis_failed",
					logging.String("title", track.Title),
					logging.Error(err),
					logging.String(logging.FieldImpact, "bed excerpt starts at 0s"),
				)
			} else {
				hookTime = located.TimeSeconds
				segment.Hook = &located
			}
		}
		segment.Plan = e.settings.PlanSegment(track.Path, hookTime)
		out := filepath.Join(job.WorkDir, fmt.Sprintf("segment_%02d.wav", i))
		if err := e.Extract(ctx, segment.Plan, out); err != nil {
			return result, err
		}
		e.logger.Info("bed segment extracted",
			logging.String("title", track.Title),
			logging.Float64("hook_seconds", hookTime),
			logging.Float64("start_seconds", segment.Plan.Start),
		)
		result.Segments = append(result.Segments, segment)
		excerpts = append(excerpts, out)
	}

	mix := job.Voice
	if len(excerpts) > 0 {
		result.Bed = filepath.Join(job.WorkDir, "bed.wav")
		if err := e.Crossfade(ctx, excerpts, result.Bed); err != nil {
			return result, err
		}
		if err := e.Duck(ctx, result.Bed, job.Voice, job.MixPath); err != nil {
			return result, err
		}
		mix = job.MixPath
		result.Mix = job.MixPath
		e.logger.Info("voice ducked over music bed",
			logging.Int("bed_segments", len(excerpts)),
			logging.String("mix", job.MixPath),
		)
	} else {
		e.logger.Info("no music bed; voice runs dry",
			logging.Args(logging.DecisionAttrs("music_bed", "skipped", "no bed songs resolved")...)...)
	}

	show := mix
	if job.Closing != nil {
		if fileExists(job.Closing.Path) {
			if err := e.AppendClosing(ctx, mix, job.Closing.Path, job.WithSongPath); err != nil {
				return result, err
			}
			show = job.WithSongPath
			result.WithSong = job.WithSongPath
			e.logger.Info("closing song appended", logging.String("title", job.Closing.Title))
		} else {
			result.ClosingSkipped = true
			logging.WarnWithContext(e.logger, "closing song missing on disk",
				"mixer_missing_media",
				logging.String("title", job.Closing.Title),
				logging.String("path", job.Closing.Path),
				logging.Error(ErrMissingMedia),
				logging.String(logging.FieldErrorHint, "check the path column in the song catalogue"),
				logging.String(logging.FieldImpact, "broadcast ends without a closing song"),
			)
		}
	}

	if err := e.Export(ctx, show, job.FinalPath, job.Metadata); err != nil {
		return result, err
	}
	result.Final = job.FinalPath
	return result, nil
}

// IsFilterError reports whether err came from a failed filter stage.
func IsFilterError(err error) bool {
	var fe *FilterError
	return errors.As(err, &fe)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
