package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"morningcast/internal/logging"
	"morningcast/internal/media/ffmpeg"
	"morningcast/internal/script"
)

// ErrNoProviderAvailable is returned when every provider was unavailable or failed.
var ErrNoProviderAvailable = errors.New("no speech provider available")

// ErrNoSpeakableText is reported for plain-text providers when sanitizing the
// script leaves nothing to read, as with a script of only emoji.
var ErrNoSpeakableText = errors.New("script has no speakable plain text")

// Input is the text form a provider reads.
type Input int

const (
	// Markup providers read <speak> documents.
	Markup Input = iota
	// Plain providers read sanitized plain text.
	Plain
)

func (i Input) String() string {
	if i == Markup {
		return "markup"
	}
	return "plain"
}

// Provider synthesizes speech into a file.
type Provider interface {
	Name() string
	Accepts() Input
	// Extension is the container the provider writes, including the dot.
	Extension() string
	Synthesize(ctx context.Context, text, outPath string) error
}

// Factory constructs a provider. Construction fails when credentials or
// binaries are missing.
type Factory struct {
	Name string
	New  func() (Provider, error)
}

// Attempt records one provider the chain tried.
type Attempt struct {
	Provider string `json:"provider"`
	Phase    string `json:"phase"`
	Error    string `json:"error,omitempty"`
}

// Result describes the synthesized voice track.
type Result struct {
	Provider string
	Path     string
	Attempts []Attempt
}

// Chain tries factories in order until one provider produces audio.
type Chain struct {
	factories  []Factory
	runner     ffmpeg.Runner
	sampleRate int
	logger     *slog.Logger
}

// NewChain builds a provider chain. Output is conformed through runner.
func NewChain(factories []Factory, runner ffmpeg.Runner, sampleRate int, logger *slog.Logger) *Chain {
	return &Chain{
		factories:  factories,
		runner:     runner,
		sampleRate: sampleRate,
		logger:     logging.NewComponentLogger(logger, "speech"),
	}
}

// Synthesize renders variant to outPath as stereo WAV. Provider output is
// staged in workDir.
func (c *Chain) Synthesize(ctx context.Context, variant script.Variant, workDir, outPath string) (Result, error) {
	var result Result
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return result, fmt.Errorf("create speech work dir: %w", err)
	}

	speakable := script.SpeakableText(variant)
	var errs []error
	for _, factory := range c.factories {
		provider, err := factory.New()
		if err != nil {
			result.Attempts = append(result.Attempts, Attempt{Provider: factory.Name, Phase: "construct", Error: err.Error()})
			errs = append(errs, fmt.Errorf("%s: %w", factory.Name, err))
			c.logger.Info("speech provider unavailable",
				logging.String("provider", factory.Name),
				logging.Error(err),
			)
			continue
		}

		text := variant.Markup
		if provider.Accepts() == Plain {
			if strings.TrimSpace(speakable) == "" {
				result.Attempts = append(result.Attempts, Attempt{Provider: provider.Name(), Phase: "input", Error: ErrNoSpeakableText.Error()})
				errs = append(errs, fmt.Errorf("%s: %w", provider.Name(), ErrNoSpeakableText))
				c.logger.Info("speech provider skipped",
					logging.String("provider", provider.Name()),
					logging.String("reason", "no speakable plain text"),
				)
				continue
			}
			text = speakable
		}
		raw := filepath.Join(workDir, "voice_"+provider.Name()+provider.Extension())
		if err := provider.Synthesize(ctx, text, raw); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Attempts = append(result.Attempts, Attempt{Provider: provider.Name(), Phase: "synthesize", Error: err.Error()})
			errs = append(errs, fmt.Errorf("%s: %w", provider.Name(), err))
			logging.WarnWithContext(c.logger, "speech synthesis failed; trying next provider",
				"speech_provider_failed",
				logging.String("provider", provider.Name()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "falling back to the next speech provider"),
			)
			continue
		}
		if err := ffmpeg.Conform(ctx, c.runner, raw, outPath, c.sampleRate); err != nil {
			return result, fmt.Errorf("conform %s voice: %w", provider.Name(), err)
		}

		result.Attempts = append(result.Attempts, Attempt{Provider: provider.Name(), Phase: "synthesize"})
		result.Provider = provider.Name()
		result.Path = outPath
		c.logger.Info("voice track rendered",
			logging.String("provider", provider.Name()),
			logging.String("input", provider.Accepts().String()),
			logging.String("path", outPath),
		)
		return result, nil
	}

	return result, errors.Join(append([]error{ErrNoProviderAvailable}, errs...)...)
}
