package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains input files and output locations.
type Paths struct {
	OutputDir   string `toml:"output_dir"`
	SongsCSV    string `toml:"songs_csv"`
	EmailsJSON  string `toml:"emails_json"`
	PersonaFile string `toml:"persona_file"`
	CoverImage  string `toml:"cover_image"`
	LogDir      string `toml:"log_dir"`
}

// Broadcast contains per-show settings: location, export format and tags.
type Broadcast struct {
	City         string  `toml:"city"`
	Latitude     float64 `toml:"latitude"`
	Longitude    float64 `toml:"longitude"`
	Timezone     string  `toml:"timezone"`
	CalendarDays int     `toml:"calendar_days"`
	WeatherURL   string  `toml:"weather_url"`
	OutputFormat string  `toml:"output_format"`
	TitlePrefix  string  `toml:"title_prefix"`
	Artist       string  `toml:"artist"`
	KeepWorkDir  bool    `toml:"keep_workdir"`
}

// LLM contains the OpenAI-compatible endpoint and per-stage model policy.
type LLM struct {
	APIKey             string  `toml:"api_key"`
	BaseURL            string  `toml:"base_url"`
	RefinerModel       string  `toml:"refiner_model"`
	PlannerModel       string  `toml:"planner_model"`
	ScriptModel        string  `toml:"script_model"`
	DigestModel        string  `toml:"digest_model"`
	RefinerTemperature float64 `toml:"refiner_temperature"`
	PlannerTemperature float64 `toml:"planner_temperature"`
	ScriptTemperature  float64 `toml:"script_temperature"`
	ScriptMaxTokens    int     `toml:"script_max_tokens"`
	Referer            string  `toml:"referer"`
	Title              string  `toml:"title"`
	TimeoutSeconds     int     `toml:"timeout_seconds"`
	RetryAttempts      int     `toml:"retry_attempts"`
}

// Gemini configures the secondary generative backend. It is skipped when no
// API key is available.
type Gemini struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// Azure configures the Azure Speech REST provider.
type Azure struct {
	Key      string `toml:"key"`
	Region   string `toml:"region"`
	Voice    string `toml:"voice"`
	Language string `toml:"language"`
}

// ElevenLabs configures the ElevenLabs provider.
type ElevenLabs struct {
	APIKey          string  `toml:"api_key"`
	VoiceID         string  `toml:"voice_id"`
	Model           string  `toml:"model"`
	Stability       float64 `toml:"stability"`
	SimilarityBoost float64 `toml:"similarity_boost"`
	BaseURL         string  `toml:"base_url"`
}

// OpenAISpeech configures the OpenAI speech endpoint.
type OpenAISpeech struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
	Voice   string `toml:"voice"`
}

// Edge configures the edge-tts command line fallback.
type Edge struct {
	Binary string `toml:"binary"`
	Voice  string `toml:"voice"`
}

// Speech lists the provider chain order and each provider's settings.
type Speech struct {
	Providers      []string     `toml:"providers"`
	TimeoutSeconds int          `toml:"timeout_seconds"`
	Azure          Azure        `toml:"azure"`
	ElevenLabs     ElevenLabs   `toml:"elevenlabs"`
	OpenAI         OpenAISpeech `toml:"openai"`
	Edge           Edge         `toml:"edge"`
}

// Mixer contains the envelope, ducking and mastering parameters.
type Mixer struct {
	LeadInSeconds    float64 `toml:"lead_in_seconds"`
	SegmentSeconds   float64 `toml:"segment_seconds"`
	FadeInSeconds    float64 `toml:"fade_in_seconds"`
	FadeOutSeconds   float64 `toml:"fade_out_seconds"`
	CrossfadeSeconds float64 `toml:"crossfade_seconds"`
	BedGainDB        float64 `toml:"bed_gain_db"`
	GapSeconds       float64 `toml:"gap_seconds"`
	ClosingFadeIn    float64 `toml:"closing_fade_in_seconds"`
	LoudnessTarget   float64 `toml:"loudness_target"`
	TruePeak         float64 `toml:"true_peak"`
	LoudnessRange    float64 `toml:"loudness_range"`
	SampleRate       int     `toml:"sample_rate"`
}

// Hook contains the search window for the song hook locator.
type Hook struct {
	WindowStart float64 `toml:"window_start"`
	WindowEnd   float64 `toml:"window_end"`
}

// Google contains OAuth client and token files for Calendar and Gmail.
type Google struct {
	CredentialsFile string `toml:"credentials_file"`
	CalendarToken   string `toml:"calendar_token"`
	GmailToken      string `toml:"gmail_token"`
	MailLookback    int    `toml:"mail_lookback_hours"`
	MaxMessages     int    `toml:"max_messages"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Broadcast      bool   `toml:"broadcast"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for MorningCast.
//
// Configuration sections by subsystem:
//   - Paths: input files, output directory and logs
//   - Broadcast: location, calendar window, export format and tags
//   - LLM / Gemini: generative backends and per-stage model policy
//   - Speech: provider chain order and credentials
//   - Mixer / Hook: audio assembly parameters
//   - Google: Calendar and Gmail OAuth files
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Broadcast     Broadcast     `toml:"broadcast"`
	LLM           LLM           `toml:"llm"`
	Gemini        Gemini        `toml:"gemini"`
	Speech        Speech        `toml:"speech"`
	Mixer         Mixer         `toml:"mixer"`
	Hook          Hook          `toml:"hook"`
	Google        Google        `toml:"google"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file next to the config file or in
// the working directory is loaded first; variables already set in the process win.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadDotEnv(resolvedPath); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("morningcast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func loadDotEnv(configPath string) error {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("load env file %s: %w", abs, err)
		}
	}
	return nil
}

// EnsureDirectories creates the output and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for audio assembly.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// EdgeBinary returns the edge-tts executable name.
func (c *Config) EdgeBinary() string {
	if binary := strings.TrimSpace(c.Speech.Edge.Binary); binary != "" {
		return binary
	}
	return defaultEdgeBinary
}

// HasGenerativeBackend reports whether at least one generative backend has credentials.
func (c *Config) HasGenerativeBackend() bool {
	return strings.TrimSpace(c.LLM.APIKey) != "" || strings.TrimSpace(c.Gemini.APIKey) != ""
}

// RequireGenerativeBackend returns an actionable error when no generative backend is usable.
func (c *Config) RequireGenerativeBackend() error {
	if c.HasGenerativeBackend() {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("llm.api_key or gemini.api_key is required. Set OPENAI_API_KEY or GEMINI_API_KEY, or edit %s (create with 'morningcast config init')", defaultPath)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
