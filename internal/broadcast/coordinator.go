package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"morningcast/internal/catalog"
	"morningcast/internal/config"
	"morningcast/internal/logging"
	"morningcast/internal/media/ffprobe"
	"morningcast/internal/mixer"
	"morningcast/internal/notifications"
	"morningcast/internal/persona"
	"morningcast/internal/runstore"
	"morningcast/internal/script"
	"morningcast/internal/services"
	"morningcast/internal/services/llm"
	"morningcast/internal/speech"
)

// VoiceSynthesizer renders a script variant to a WAV voice track.
type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, variant script.Variant, workDir, outPath string) (speech.Result, error)
}

// Assembler mixes the voice track with the selected songs.
type Assembler interface {
	Assemble(ctx context.Context, job mixer.Job) (mixer.Result, error)
}

// DurationProbe returns an audio file's length in seconds.
type DurationProbe func(ctx context.Context, path string) (float64, error)

// Options wires a Coordinator. Store and Notifier are optional.
type Options struct {
	Config    *config.Config
	Generator llm.Generator
	Voice     VoiceSynthesizer
	Mixer     Assembler
	Store     *runstore.Store
	Notifier  notifications.Service
	Probe     DurationProbe
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Coordinator owns a broadcast run end to end.
type Coordinator struct {
	cfg       *config.Config
	generator llm.Generator
	voice     VoiceSynthesizer
	mixer     Assembler
	store     *runstore.Store
	notifier  notifications.Service
	probe     DurationProbe
	logger    *slog.Logger
	clock     func() time.Time
}

// NewCoordinator validates opts and returns a coordinator.
func NewCoordinator(opts Options) (*Coordinator, error) {
	switch {
	case opts.Config == nil:
		return nil, errors.New("broadcast: config is required")
	case opts.Generator == nil:
		return nil, errors.New("broadcast: generator is required")
	case opts.Voice == nil:
		return nil, errors.New("broadcast: voice synthesizer is required")
	case opts.Mixer == nil:
		return nil, errors.New("broadcast: mixer is required")
	}
	c := &Coordinator{
		cfg:       opts.Config,
		generator: opts.Generator,
		voice:     opts.Voice,
		mixer:     opts.Mixer,
		store:     opts.Store,
		notifier:  opts.Notifier,
		probe:     opts.Probe,
		logger:    logging.NewComponentLogger(opts.Logger, "broadcast"),
		clock:     opts.Clock,
	}
	if c.notifier == nil {
		c.notifier = notifications.NewService(opts.Config)
	}
	if c.probe == nil {
		binary := opts.Config.FFprobeBinary()
		c.probe = func(ctx context.Context, path string) (float64, error) {
			result, err := ffprobe.Inspect(ctx, binary, path)
			if err != nil {
				return 0, err
			}
			return result.DurationSeconds(), nil
		}
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	return c, nil
}

// Request is one run's input.
type Request struct {
	Date    time.Time
	Inputs  Inputs
	Catalog *catalog.Catalog
	Persona persona.Persona
}

// Result describes a completed run.
type Result struct {
	RunID     string
	Slug      string
	Title     string
	Artifacts Artifacts
	Plan      Plan
	Variant   script.Variant
	Speech    speech.Result
	Music     MusicSelection
	Mix       mixer.Result
	// Duration is the final file's length in seconds, 0 when it could not
	// be probed.
	Duration float64
}

// Run executes the pipeline for req.Date. Artifacts from a failed run stay
// in place for diagnosis, including the work directory.
func (c *Coordinator) Run(ctx context.Context, req Request) (Result, error) {
	if req.Date.IsZero() {
		req.Date = c.clock()
	}
	result := Result{RunID: uuid.NewString(), Slug: Slug(req.Date)}
	result.Title = c.metadata(req).Title
	ctx = services.WithRunID(ctx, result.RunID)
	ctx = services.WithSlug(ctx, result.Slug)
	logger := logging.WithContext(ctx, c.logger)

	outputDir := c.cfg.Paths.OutputDir
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrConfiguration, "setup", "create output dir", outputDir, err)
	}
	result.Artifacts = ArtifactPaths(outputDir, result.Slug, c.cfg.Broadcast.OutputFormat, result.RunID)

	lock := flock.New(result.Artifacts.Lock)
	locked, err := lock.TryLock()
	if err != nil {
		return result, services.Wrap(services.ErrConfiguration, "setup", "acquire run lock", result.Artifacts.Lock, err)
	}
	if !locked {
		return result, fmt.Errorf("%w for %s (lock %s)", ErrRunInProgress, result.Slug, result.Artifacts.Lock)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("release run lock failed", logging.Error(err))
		}
	}()

	c.recordStart(ctx, logger, result)
	started := c.clock()
	logger.Info("broadcast run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("date", req.Date.Format("2006-01-02")),
		logging.String("generator", c.generator.Name()),
		logging.Int("songs", req.Catalog.Len()),
	)

	stage, err := c.execute(ctx, req, &result)
	if err != nil {
		c.recordFailure(ctx, logger, result, stage, err)
		return result, err
	}

	if !c.cfg.Broadcast.KeepWorkDir {
		if err := os.RemoveAll(result.Artifacts.WorkDir); err != nil {
			logger.Warn("remove work dir failed", logging.String("path", result.Artifacts.WorkDir), logging.Error(err))
		}
		_ = os.Remove(filepath.Dir(result.Artifacts.WorkDir))
	}
	c.recordSuccess(ctx, logger, result, c.clock().Sub(started))
	return result, nil
}

// execute runs the stages in order and returns the name of the stage that
// failed.
func (c *Coordinator) execute(ctx context.Context, req Request, result *Result) (string, error) {
	artifacts := result.Artifacts
	if err := os.MkdirAll(artifacts.WorkDir, 0o755); err != nil {
		return "setup", services.Wrap(services.ErrConfiguration, "setup", "create work dir", artifacts.WorkDir, err)
	}

	items := req.Inputs.Items()
	lines := c.refine(services.WithStage(ctx, "refine"), items)

	inputs := newPlanInputs(lines, req.Inputs, req.Catalog.Songs())
	segments, err := c.plan(services.WithStage(ctx, "plan"), inputs)
	if err != nil {
		return "plan", err
	}
	result.Plan = Plan{
		GeneratedAt: c.clock().UTC().Format(time.RFC3339),
		Inputs:      inputs,
		Segments:    segments,
	}

	raw, err := c.writeScript(services.WithStage(ctx, "script"), result.Plan, req.Persona)
	if err != nil {
		return "script", err
	}
	if err := writeText(artifacts.Transcript, raw); err != nil {
		return "script", err
	}

	variant, err := script.Normalize(raw)
	if err != nil {
		return "normalize", services.Wrap(services.ErrValidation, "normalize", "derive speakable text", artifacts.Transcript, err)
	}
	result.Variant = variant
	if err := writeText(artifacts.PlainText, variant.Plain); err != nil {
		return "normalize", err
	}
	if err := writeJSON(artifacts.Plan, result.Plan); err != nil {
		return "normalize", err
	}

	speechCtx := services.WithStage(ctx, "speech")
	voice, err := c.voice.Synthesize(speechCtx, variant, filepath.Join(artifacts.WorkDir, "speech"), artifacts.Voice)
	result.Speech = voice
	if err != nil {
		return "speech", services.Wrap(services.ErrExternalTool, "speech", "synthesize", "", err)
	}

	mixCtx := services.WithStage(ctx, "mix")
	result.Music = SelectMusic(segments, req.Catalog, logging.WithContext(mixCtx, c.logger))
	bed, closing := result.Music.Tracks()
	mix, err := c.mixer.Assemble(mixCtx, mixer.Job{
		Voice:        artifacts.Voice,
		Bed:          bed,
		Closing:      closing,
		WorkDir:      filepath.Join(artifacts.WorkDir, "mix"),
		MixPath:      artifacts.Mix,
		WithSongPath: artifacts.WithSong,
		FinalPath:    artifacts.Final,
		Metadata:     c.metadata(req),
	})
	result.Mix = mix
	if err != nil {
		return "mix", err
	}

	if seconds, err := c.probe(mixCtx, artifacts.Final); err != nil {
		logging.WarnWithContext(logging.WithContext(mixCtx, c.logger), "final duration probe failed",
			"probe_failed",
			logging.String("path", artifacts.Final),
			logging.Error(err),
			logging.String(logging.FieldImpact, "run summary omits the broadcast length"),
		)
	} else {
		result.Duration = seconds
	}
	return "", nil
}

func (c *Coordinator) metadata(req Request) mixer.Metadata {
	return mixer.Metadata{
		Title:      fmt.Sprintf("%s %s", c.cfg.Broadcast.TitlePrefix, req.Date.Format("2006-01-02")),
		Artist:     c.cfg.Broadcast.Artist,
		Comment:    fmt.Sprintf("Weather %s %s°C", req.Inputs.Weather.City, temperatureRange(req.Inputs.Weather)),
		CoverImage: c.cfg.Paths.CoverImage,
	}
}

func (c *Coordinator) recordStart(ctx context.Context, logger *slog.Logger, result Result) {
	if c.store == nil {
		return
	}
	if n, err := c.store.MarkInterrupted(ctx, result.Slug); err != nil {
		logger.Warn("mark interrupted runs failed", logging.Error(err))
	} else if n > 0 {
		logger.Info("previous run for this date was interrupted", logging.Int64("runs", n))
	}
	if err := c.store.Begin(ctx, result.RunID, result.Slug, c.clock()); err != nil {
		logging.WarnWithContext(logger, "run history unavailable",
			"run_history_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is missing from 'morningcast history'"),
		)
	}
}

func (c *Coordinator) recordFailure(ctx context.Context, logger *slog.Logger, result Result, stage string, runErr error) {
	logging.ErrorWithContext(logger, "broadcast run failed",
		"run_failed",
		logging.String(logging.FieldStage, stage),
		logging.String("failure_kind", services.FailureKind(runErr)),
		logging.String("work_dir", result.Artifacts.WorkDir),
		logging.Error(runErr),
	)
	if c.store != nil {
		outcome := runstore.Outcome{
			Provider:     result.Speech.Provider,
			SegmentCount: len(result.Plan.Segments),
			ErrorKind:    services.FailureKind(runErr),
			ErrorMessage: runErr.Error(),
		}
		if err := c.store.Fail(context.WithoutCancel(ctx), result.RunID, outcome); err != nil {
			logger.Warn("record failed run", logging.Error(err))
		}
	}
	payload := notifications.Payload{"stage": stage, "error": runErr, "slug": result.Slug}
	if err := c.notifier.Publish(context.WithoutCancel(ctx), notifications.EventRunFailed, payload); err != nil {
		logger.Warn("failure notification not sent", logging.Error(err))
	}
}

func (c *Coordinator) recordSuccess(ctx context.Context, logger *slog.Logger, result Result, elapsed time.Duration) {
	logger.Info("broadcast run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("final", result.Artifacts.Final),
		logging.String("provider", result.Speech.Provider),
		logging.Int("segments", len(result.Plan.Segments)),
		logging.Int("bed_songs", len(result.Music.Bed)),
		logging.Float64("duration_seconds", result.Duration),
		logging.Duration("elapsed", elapsed),
	)
	if c.store != nil {
		outcome := runstore.Outcome{
			Provider:     result.Speech.Provider,
			SegmentCount: len(result.Plan.Segments),
			AudioPath:    result.Artifacts.Final,
		}
		if err := c.store.Complete(ctx, result.RunID, outcome); err != nil {
			logger.Warn("record completed run", logging.Error(err))
		}
	}
	payload := notifications.Payload{
		"title":    result.Title,
		"slug":     result.Slug,
		"file":     result.Artifacts.Final,
		"provider": result.Speech.Provider,
		"duration": time.Duration(result.Duration * float64(time.Second)),
	}
	if err := c.notifier.Publish(ctx, notifications.EventBroadcastReady, payload); err != nil {
		logger.Warn("ready notification not sent", logging.Error(err))
	}
}
