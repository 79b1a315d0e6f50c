package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBroadcast()
	c.normalizeLLM()
	c.normalizeSpeech()
	if err := c.normalizeGoogle(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.SongsCSV, err = expandPath(strings.TrimSpace(c.Paths.SongsCSV)); err != nil {
		return fmt.Errorf("paths.songs_csv: %w", err)
	}
	if c.Paths.EmailsJSON, err = expandPath(strings.TrimSpace(c.Paths.EmailsJSON)); err != nil {
		return fmt.Errorf("paths.emails_json: %w", err)
	}
	if c.Paths.PersonaFile, err = expandPath(strings.TrimSpace(c.Paths.PersonaFile)); err != nil {
		return fmt.Errorf("paths.persona_file: %w", err)
	}
	if c.Paths.CoverImage, err = expandPath(strings.TrimSpace(c.Paths.CoverImage)); err != nil {
		return fmt.Errorf("paths.cover_image: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBroadcast() {
	c.Broadcast.City = strings.TrimSpace(c.Broadcast.City)
	if c.Broadcast.City == "" {
		c.Broadcast.City = defaultCity
	}
	c.Broadcast.Timezone = strings.TrimSpace(c.Broadcast.Timezone)
	if c.Broadcast.Timezone == "" {
		c.Broadcast.Timezone = defaultTimezone
	}
	c.Broadcast.WeatherURL = strings.TrimSpace(c.Broadcast.WeatherURL)
	if c.Broadcast.CalendarDays <= 0 {
		c.Broadcast.CalendarDays = defaultCalendarDays
	}
	c.Broadcast.OutputFormat = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Broadcast.OutputFormat), "."))
	if c.Broadcast.OutputFormat == "" {
		c.Broadcast.OutputFormat = defaultOutputFormat
	}
	c.Broadcast.TitlePrefix = strings.TrimSpace(c.Broadcast.TitlePrefix)
	if c.Broadcast.TitlePrefix == "" {
		c.Broadcast.TitlePrefix = defaultTitlePrefix
	}
	c.Broadcast.Artist = strings.TrimSpace(c.Broadcast.Artist)
	if c.Broadcast.Artist == "" {
		c.Broadcast.Artist = defaultArtist
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = lookupEnv("MORNINGCAST_LLM_API_KEY", "OPENAI_API_KEY", "OPENROUTER_API_KEY")
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.RefinerModel = stringOr(c.LLM.RefinerModel, defaultRefinerModel)
	c.LLM.PlannerModel = stringOr(c.LLM.PlannerModel, defaultPlannerModel)
	c.LLM.ScriptModel = stringOr(c.LLM.ScriptModel, defaultScriptModel)
	c.LLM.DigestModel = stringOr(c.LLM.DigestModel, defaultDigestModel)
	c.LLM.Referer = stringOr(c.LLM.Referer, defaultLLMReferer)
	c.LLM.Title = stringOr(c.LLM.Title, defaultLLMTitle)
	if c.LLM.ScriptMaxTokens <= 0 {
		c.LLM.ScriptMaxTokens = defaultScriptMaxTokens
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.RetryAttempts <= 0 {
		c.LLM.RetryAttempts = 1
	}

	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = lookupEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
	c.Gemini.Model = stringOr(c.Gemini.Model, defaultGeminiModel)
}

func (c *Config) normalizeSpeech() {
	providers := make([]string, 0, len(c.Speech.Providers))
	seen := make(map[string]struct{}, len(c.Speech.Providers))
	for _, name := range c.Speech.Providers {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		providers = append(providers, normalized)
	}
	if len(providers) == 0 {
		providers = append(providers, DefaultProviders...)
	}
	c.Speech.Providers = providers
	if c.Speech.TimeoutSeconds <= 0 {
		c.Speech.TimeoutSeconds = defaultSpeechTimeout
	}

	azure := &c.Speech.Azure
	azure.Key = stringOr(azure.Key, lookupEnv("AZURE_SPEECH_KEY"))
	azure.Region = stringOr(azure.Region, lookupEnv("AZURE_SPEECH_REGION"))
	azure.Voice = stringOr(azure.Voice, defaultAzureVoice)
	azure.Language = stringOr(azure.Language, defaultAzureLanguage)

	eleven := &c.Speech.ElevenLabs
	eleven.APIKey = stringOr(eleven.APIKey, lookupEnv("ELEVENLABS_API_KEY"))
	eleven.VoiceID = stringOr(eleven.VoiceID, stringOr(lookupEnv("ELEVENLABS_VOICE_ID"), defaultElevenLabsVoice))
	eleven.Model = stringOr(eleven.Model, defaultElevenLabsModel)
	eleven.BaseURL = strings.TrimRight(stringOr(eleven.BaseURL, defaultElevenLabsBaseURL), "/")

	openai := &c.Speech.OpenAI
	openai.APIKey = stringOr(openai.APIKey, lookupEnv("OPENAI_API_KEY"))
	openai.BaseURL = stringOr(openai.BaseURL, defaultOpenAISpeechURL)
	openai.Model = stringOr(openai.Model, defaultOpenAISpeechModel)
	openai.Voice = stringOr(openai.Voice, defaultOpenAISpeechVoice)

	c.Speech.Edge.Binary = stringOr(c.Speech.Edge.Binary, defaultEdgeBinary)
	c.Speech.Edge.Voice = stringOr(c.Speech.Edge.Voice, defaultEdgeVoice)
}

func (c *Config) normalizeGoogle() error {
	var err error
	if c.Google.CredentialsFile, err = expandPath(strings.TrimSpace(c.Google.CredentialsFile)); err != nil {
		return fmt.Errorf("google.credentials_file: %w", err)
	}
	if c.Google.CalendarToken, err = expandPath(strings.TrimSpace(c.Google.CalendarToken)); err != nil {
		return fmt.Errorf("google.calendar_token: %w", err)
	}
	if c.Google.GmailToken, err = expandPath(strings.TrimSpace(c.Google.GmailToken)); err != nil {
		return fmt.Errorf("google.gmail_token: %w", err)
	}
	if c.Google.MailLookback <= 0 {
		c.Google.MailLookback = defaultMailLookbackHours
	}
	if c.Google.MaxMessages <= 0 {
		c.Google.MaxMessages = defaultMaxMessages
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = stringOr(c.Notifications.NtfyTopic, lookupEnv("NTFY_TOPIC"))
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func stringOr(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(fallback)
}

func lookupEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
