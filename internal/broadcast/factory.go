package broadcast

import (
	"log/slog"
	"strings"

	"morningcast/internal/config"
	"morningcast/internal/logging"
	"morningcast/internal/media/ffmpeg"
	"morningcast/internal/media/hook"
	"morningcast/internal/mixer"
	"morningcast/internal/runstore"
	"morningcast/internal/services"
	"morningcast/internal/services/gemini"
	"morningcast/internal/services/llm"
	"morningcast/internal/speech"
)

// NewGenerator builds the generative chain: the OpenAI-compatible client
// first, Gemini second when it has a key.
func NewGenerator(cfg *config.Config, logger *slog.Logger) (*llm.Chain, error) {
	if err := cfg.RequireGenerativeBackend(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "setup", "generative backend", "", err)
	}
	var backends []llm.Generator
	if strings.TrimSpace(cfg.LLM.APIKey) != "" {
		backends = append(backends, llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.ScriptModel,
			Referer:        cfg.LLM.Referer,
			Title:          cfg.LLM.Title,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
			RetryAttempts:  cfg.LLM.RetryAttempts,
		}))
	}
	if strings.TrimSpace(cfg.Gemini.APIKey) != "" {
		backend, err := gemini.New(gemini.Config{APIKey: cfg.Gemini.APIKey, Model: cfg.Gemini.Model})
		if err != nil {
			logging.WarnWithContext(logging.NewComponentLogger(logger, "llm"), "gemini backend unavailable",
				"gemini_unavailable",
				logging.Error(err),
				logging.String(logging.FieldImpact, "no generative fallback"),
			)
		} else {
			backends = append(backends, backend)
		}
	}
	return llm.NewChain(logger, backends...), nil
}

// NewFromConfig wires the production stack: generative chain, speech chain,
// hook locator and ffmpeg mixer. store may be nil.
func NewFromConfig(cfg *config.Config, store *runstore.Store, logger *slog.Logger) (*Coordinator, error) {
	generator, err := NewGenerator(cfg, logger)
	if err != nil {
		return nil, err
	}
	runner := ffmpeg.NewExec(cfg.FFmpegBinary())
	voice := speech.NewChain(speech.Factories(cfg, nil), runner, cfg.Mixer.SampleRate, logger)
	locator := hook.NewLocator(cfg.FFmpegBinary(), hook.Window{Start: cfg.Hook.WindowStart, End: cfg.Hook.WindowEnd})
	engine := mixer.NewEngine(runner, locator, mixer.SettingsFromConfig(cfg.Mixer), logger)
	return NewCoordinator(Options{
		Config:    cfg,
		Generator: generator,
		Voice:     voice,
		Mixer:     engine,
		Store:     store,
		Logger:    logger,
	})
}
