package config

const (
	defaultConfigPath         = "~/.config/morningcast/config.toml"
	defaultOutputDir          = "~/.local/share/morningcast/broadcasts"
	defaultSongsCSV           = "~/.config/morningcast/songs.csv"
	defaultEmailsJSON         = "~/.local/share/morningcast/email_summary.json"
	defaultPersonaFile        = "~/.config/morningcast/persona.yaml"
	defaultLogDir             = "~/.local/share/morningcast/logs"
	defaultGoogleCredentials  = "~/.config/morningcast/google/credentials.json"
	defaultCalendarToken      = "~/.config/morningcast/google/calendar_token.json"
	defaultGmailToken         = "~/.config/morningcast/google/gmail_token.json"
	defaultCity               = "Taipei"
	defaultLatitude           = 25.0330
	defaultLongitude          = 121.5654
	defaultTimezone           = "Asia/Taipei"
	defaultCalendarDays       = 1
	defaultOutputFormat       = "mp3"
	defaultTitlePrefix        = "MorningCast"
	defaultArtist             = "MorningCast AI"
	defaultLLMBaseURL         = "https://api.openai.com/v1/chat/completions"
	defaultRefinerModel       = "gpt-4o-mini"
	defaultPlannerModel       = "gpt-4o"
	defaultScriptModel        = "gpt-4o"
	defaultDigestModel        = "gpt-4o-mini"
	defaultRefinerTemperature = 0.6
	defaultPlannerTemperature = 0.4
	defaultScriptTemperature  = 0.7
	defaultScriptMaxTokens    = 2000
	defaultLLMReferer         = "https://github.com/morningcast/morningcast"
	defaultLLMTitle           = "MorningCast"
	defaultLLMTimeoutSeconds  = 120
	defaultLLMRetryAttempts   = 3
	defaultGeminiModel        = "gemini-1.5-flash"
	defaultSpeechTimeout      = 300
	defaultAzureVoice         = "zh-TW-HsiaoChenNeural"
	defaultAzureLanguage      = "zh-TW"
	defaultElevenLabsVoice    = "21m00Tcm4TlvDq8ikWAM"
	defaultElevenLabsModel    = "eleven_monolingual_v1"
	defaultElevenLabsBaseURL  = "https://api.elevenlabs.io/v1"
	defaultOpenAISpeechURL    = "https://api.openai.com/v1/audio/speech"
	defaultOpenAISpeechModel  = "tts-1"
	defaultOpenAISpeechVoice  = "alloy"
	defaultEdgeBinary         = "edge-tts"
	defaultEdgeVoice          = "zh-TW-HsiaoChenNeural"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultMailLookbackHours  = 26
	defaultMaxMessages        = 50
)

// DefaultProviders is the speech chain order used when none is configured:
// paid providers first, the free edge-tts fallback last.
var DefaultProviders = []string{"azure", "elevenlabs", "openai", "edge"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:   defaultOutputDir,
			SongsCSV:    defaultSongsCSV,
			EmailsJSON:  defaultEmailsJSON,
			PersonaFile: defaultPersonaFile,
			LogDir:      defaultLogDir,
		},
		Broadcast: Broadcast{
			City:         defaultCity,
			Latitude:     defaultLatitude,
			Longitude:    defaultLongitude,
			Timezone:     defaultTimezone,
			CalendarDays: defaultCalendarDays,
			OutputFormat: defaultOutputFormat,
			TitlePrefix:  defaultTitlePrefix,
			Artist:       defaultArtist,
		},
		LLM: LLM{
			BaseURL:            defaultLLMBaseURL,
			RefinerModel:       defaultRefinerModel,
			PlannerModel:       defaultPlannerModel,
			ScriptModel:        defaultScriptModel,
			DigestModel:        defaultDigestModel,
			RefinerTemperature: defaultRefinerTemperature,
			PlannerTemperature: defaultPlannerTemperature,
			ScriptTemperature:  defaultScriptTemperature,
			ScriptMaxTokens:    defaultScriptMaxTokens,
			Referer:            defaultLLMReferer,
			Title:              defaultLLMTitle,
			TimeoutSeconds:     defaultLLMTimeoutSeconds,
			RetryAttempts:      defaultLLMRetryAttempts,
		},
		Gemini: Gemini{
			Model: defaultGeminiModel,
		},
		Speech: Speech{
			Providers:      append([]string(nil), DefaultProviders...),
			TimeoutSeconds: defaultSpeechTimeout,
			Azure: Azure{
				Voice:    defaultAzureVoice,
				Language: defaultAzureLanguage,
			},
			ElevenLabs: ElevenLabs{
				VoiceID:         defaultElevenLabsVoice,
				Model:           defaultElevenLabsModel,
				Stability:       0.4,
				SimilarityBoost: 0.8,
				BaseURL:         defaultElevenLabsBaseURL,
			},
			OpenAI: OpenAISpeech{
				BaseURL: defaultOpenAISpeechURL,
				Model:   defaultOpenAISpeechModel,
				Voice:   defaultOpenAISpeechVoice,
			},
			Edge: Edge{
				Binary: defaultEdgeBinary,
				Voice:  defaultEdgeVoice,
			},
		},
		Mixer: Mixer{
			LeadInSeconds:    15,
			SegmentSeconds:   45,
			FadeInSeconds:    1.5,
			FadeOutSeconds:   2.5,
			CrossfadeSeconds: 4,
			BedGainDB:        -18,
			GapSeconds:       1.5,
			ClosingFadeIn:    2.5,
			LoudnessTarget:   -16,
			TruePeak:         -1.5,
			LoudnessRange:    11,
			SampleRate:       44100,
		},
		Hook: Hook{
			WindowStart: 45,
			WindowEnd:   75,
		},
		Google: Google{
			CredentialsFile: defaultGoogleCredentials,
			CalendarToken:   defaultCalendarToken,
			GmailToken:      defaultGmailToken,
			MailLookback:    defaultMailLookbackHours,
			MaxMessages:     defaultMaxMessages,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Broadcast:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
