package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"morningcast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Network-facing credentials are cleared so nothing reaches a real service.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SongsCSV = filepath.Join(base, "songs.csv")
	cfgVal.Paths.EmailsJSON = filepath.Join(base, "email_summary.json")
	cfgVal.Paths.PersonaFile = filepath.Join(base, "persona.yaml")
	cfgVal.Google.CredentialsFile = filepath.Join(base, "google", "credentials.json")
	cfgVal.Google.CalendarToken = filepath.Join(base, "google", "calendar_token.json")
	cfgVal.Google.GmailToken = filepath.Join(base, "google", "gmail_token.json")
	cfgVal.LLM.APIKey = "test"
	cfgVal.Gemini.APIKey = ""
	cfgVal.Speech.Azure.Key = ""
	cfgVal.Speech.ElevenLabs.APIKey = ""
	cfgVal.Speech.OpenAI.APIKey = ""
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithLLMEndpoint points the chat completion client at a test server.
func WithLLMEndpoint(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = url
	}
}

// WithWeatherEndpoint points the forecast client at a test server.
func WithWeatherEndpoint(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Broadcast.WeatherURL = url
	}
}

// WithSpeechProviders overrides the speech chain order.
func WithSpeechProviders(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Speech.Providers = append([]string(nil), names...)
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default external binaries
// are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", "edge-tts"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
