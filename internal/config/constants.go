package config

import "time"

// Configuration sources
const (
	ConfigFileEnv     = "LESSON_CONFIG_FILE"
	DefaultConfigFile = "config.yaml"
)

// credentialEnvAliases are consulted in order when ai.api_key / AI_API_KEY is unset
var credentialEnvAliases = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

// Timeout constants
const (
	// DefaultAttemptTimeout bounds a single candidate-model call
	DefaultAttemptTimeout = 15 * time.Second
	// GenerationTimeout bounds a whole fallback chain started from an HTTP request
	GenerationTimeout   = 2 * time.Minute
	ServerReadTimeout   = 30 * time.Second
	ServerWriteTimeout  = 3 * time.Minute
	ShutdownTimeout     = 30 * time.Second
	TelemetryFlushDelay = 5 * time.Second

	// Session timeouts
	SessionMaxAge = 7 * 24 * time.Hour // 7 days
)

// AI defaults
const (
	DefaultTemperature = 0.7
	// MinAPIKeyLength rejects obviously truncated credentials
	MinAPIKeyLength = 20
)

// Server defaults
const (
	DefaultMaxSessions   = 1024
	DefaultServiceName   = "lesson-planner"
	DefaultSessionSecret = "change-me-lesson-planner-session-secret"
)

// Session configuration constants
const (
	SessionPath     = "/"
	SessionHTTPOnly = true
	SessionSecure   = false // Set to true in production with HTTPS

	SessionName = "lesson-session"
)

// Security configuration constants
const (
	// DefaultCSP allows the embedded stylesheet and the inline print/form scripts
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; img-src 'self' data:;"
)

// DefaultProviders returns the provider table used when the config file has none.
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{
			Name: "Google Gemini",
			Code: ProviderGemini,
			Models: []AIModel{
				{Name: "Gemini 2.5 Flash", Code: "gemini-2.5-flash", MaxTokens: 8192},
				{Name: "Gemini 2.0 Flash", Code: "gemini-2.0-flash", MaxTokens: 8192},
				{Name: "Gemini 2.5 Pro", Code: "gemini-2.5-pro", MaxTokens: 8192},
			},
		},
		{
			Name:            "OpenAI compatible",
			Code:            ProviderOpenAI,
			URL:             "https://api.openai.com/v1",
			SupportsGrammar: false,
			Models: []AIModel{
				{Name: "GPT-4o mini", Code: "gpt-4o-mini", MaxTokens: 8192},
			},
		},
	}
}
