package config

const (
	defaultDataDir           = "~/.local/share/curator"
	defaultLogDir            = "~/.local/share/curator/logs"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultSettleDelayMs     = 500
	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "google/gemini-3-flash-preview"
	defaultLLMTimeoutSeconds = 60
	defaultNtfyTimeout       = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Organizer: Organizer{
			SettleDelayMs: defaultSettleDelayMs,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			Queue:          true,
			Organization:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
