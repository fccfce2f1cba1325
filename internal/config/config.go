// Package config handles application configuration loading from a YAML file,
// a local .env file and environment variables.
package config

import (
	"errors"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "lessonapp/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported values for AIConfig.Provider
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// ProviderConfig defines the structure for a single provider
type ProviderConfig struct {
	Name            string    `json:"name" yaml:"name" validate:"required"`
	Code            string    `json:"code" yaml:"code" validate:"required"`
	URL             string    `json:"url,omitempty" yaml:"url,omitempty" validate:"omitempty,http_url"`
	SupportsGrammar bool      `json:"supports_grammar,omitempty" yaml:"supports_grammar,omitempty"`
	Models          []AIModel `json:"models" yaml:"models" validate:"dive"`
}

// AIModel represents an AI model configuration
type AIModel struct {
	Name      string `json:"name" yaml:"name"`
	Code      string `json:"code" yaml:"code" validate:"required"`
	MaxTokens int    `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" validate:"gte=0"`
}

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig `json:"server" yaml:"server"`

	// AI selects the provider and the ordered candidate models
	AI        AIConfig         `json:"ai" yaml:"ai"`
	Providers []ProviderConfig `json:"providers" yaml:"providers" validate:"dive"`

	Curriculum CurriculumConfig `json:"curriculum" yaml:"curriculum"`

	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port          string   `json:"port" yaml:"port" validate:"required,numeric"`
	SessionSecret string   `json:"session_secret" yaml:"session_secret" validate:"required"`
	Debug         bool     `json:"debug" yaml:"debug"`
	LogLevel      string   `json:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	CORSOrigins   []string `json:"cors_origins" yaml:"cors_origins"`
	// MaxSessions bounds the number of browser sessions whose last lesson plan is kept in memory
	MaxSessions int `json:"max_sessions" yaml:"max_sessions" validate:"gte=1"`
}

// AIConfig configures the remote generation endpoint
type AIConfig struct {
	Provider string `json:"provider" yaml:"provider" validate:"oneof=gemini openai"`
	APIKey   string `json:"-" yaml:"api_key"`
	// BaseURL overrides the provider endpoint; mostly useful for tests and proxies
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,http_url"`
	// Models is the ordered candidate list; the first entry is tried first
	Models          []string      `json:"models" yaml:"models" validate:"omitempty,dive,required"`
	AttemptTimeout  time.Duration `json:"attempt_timeout" yaml:"attempt_timeout" validate:"gt=0"`
	Temperature     float64       `json:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	MaxOutputTokens int           `json:"max_output_tokens" yaml:"max_output_tokens" validate:"gte=0"`
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "lesson-planner"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"` // Default: 1.0 (100%)
	UseAutoSDK     bool              `json:"use_auto_sdk" yaml:"use_auto_sdk"`
}

// NewConfig loads configuration from the YAML file first, then overrides with environment variables.
// A .env file in the working directory is read before the environment is consulted.
func NewConfig() (result0 *Config, err error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, contextutils.WrapErrorf(contextutils.ErrConfiguration, "failed to read .env file: %v", err)
	}

	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrConfiguration, "failed to load config: %v", err)
	}

	config.overrideFromEnv()
	config.applyDefaults()

	return config, nil
}

// Default returns a configuration populated only with defaults.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// applyDefaults fills every unset field with its documented default
func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.SessionSecret == "" {
		c.Server.SessionSecret = DefaultSessionSecret
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.MaxSessions <= 0 {
		c.Server.MaxSessions = DefaultMaxSessions
	}

	if c.AI.Provider == "" {
		c.AI.Provider = ProviderGemini
	}
	if c.AI.AttemptTimeout <= 0 {
		c.AI.AttemptTimeout = DefaultAttemptTimeout
	}
	if c.AI.Temperature == 0 {
		c.AI.Temperature = DefaultTemperature
	}
	if len(c.Providers) == 0 {
		c.Providers = DefaultProviders()
	}

	c.Curriculum.applyDefaults()

	if c.OpenTelemetry.ServiceName == "" {
		c.OpenTelemetry.ServiceName = DefaultServiceName
	}
	if c.OpenTelemetry.Protocol == "" {
		c.OpenTelemetry.Protocol = "grpc"
	}
	if c.OpenTelemetry.SamplingRate == 0 {
		c.OpenTelemetry.SamplingRate = 1.0
	}
}

// ActiveProvider returns the provider entry selected by AI.Provider
func (c *Config) ActiveProvider() (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.Code == c.AI.Provider {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// CandidateModels returns the ordered model list tried by the response acquirer.
// AI.Models wins when set; otherwise the active provider's models are used in file order.
func (c *Config) CandidateModels() []string {
	if len(c.AI.Models) > 0 {
		return append([]string(nil), c.AI.Models...)
	}
	provider, ok := c.ActiveProvider()
	if !ok {
		return nil
	}
	models := make([]string, 0, len(provider.Models))
	for _, m := range provider.Models {
		models = append(models, m.Code)
	}
	return models
}

// MaxTokensForModel returns the configured output token cap for a model, or the AI default.
func (c *Config) MaxTokensForModel(model string) int {
	if provider, ok := c.ActiveProvider(); ok {
		for _, m := range provider.Models {
			if m.Code == model && m.MaxTokens > 0 {
				return m.MaxTokens
			}
		}
	}
	return c.AI.MaxOutputTokens
}

// EndpointURL returns the base URL for the active provider. AI.BaseURL takes precedence.
func (c *Config) EndpointURL() string {
	if c.AI.BaseURL != "" {
		return strings.TrimRight(c.AI.BaseURL, "/")
	}
	if provider, ok := c.ActiveProvider(); ok {
		return strings.TrimRight(provider.URL, "/")
	}
	return ""
}

// Validate checks the structural configuration. It does not look at the AI credential;
// see ValidateCredential.
func (c *Config) Validate() error {
	if err := contextutils.Validator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace()+" ("+fe.Tag()+")")
			}
			return contextutils.WrapErrorf(contextutils.ErrConfiguration, "invalid configuration: %s", strings.Join(fields, ", "))
		}
		return contextutils.WrapError(contextutils.ErrConfiguration, err.Error())
	}
	if _, ok := c.ActiveProvider(); !ok && c.AI.BaseURL == "" && c.AI.Provider == ProviderOpenAI {
		return contextutils.WrapErrorf(contextutils.ErrConfiguration, "no provider entry or base_url for provider %q", c.AI.Provider)
	}
	if len(c.CandidateModels()) == 0 {
		return contextutils.WrapError(contextutils.ErrConfiguration, "no candidate models configured")
	}
	return c.Curriculum.Validate()
}

// ValidateCredential reports a ConfigurationError when the credential required by the
// active provider is missing or malformed. OpenAI-compatible endpoints may run without one.
func (c *Config) ValidateCredential() error {
	key := c.AI.APIKey
	if key == "" {
		if c.AI.Provider == ProviderOpenAI {
			return nil
		}
		return contextutils.WrapError(contextutils.ErrConfiguration, "AI API key is not set (GEMINI_API_KEY)")
	}
	if strings.TrimSpace(key) != key || strings.ContainsAny(key, " \t\r\n") || len(key) < MinAPIKeyLength {
		return contextutils.WrapError(contextutils.ErrConfiguration, "AI API key is malformed")
	}
	return nil
}

// overrideFromEnv overrides config values with environment variables using reflection,
// then applies the credential aliases understood by the Gemini tooling.
func (c *Config) overrideFromEnv() {
	overrideStructFromEnvWithPrefix(c, "")

	if c.AI.APIKey == "" {
		for _, key := range credentialEnvAliases {
			if v := os.Getenv(key); v != "" {
				c.AI.APIKey = v
				break
			}
		}
	}
}

var durationType = reflect.TypeOf(time.Duration(0))

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables.
// The variable name is the upper-cased yaml tag, prefixed by the parent tags: ai.api_key -> AI_API_KEY.
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		if !field.CanSet() {
			continue
		}

		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		if field.Type() == durationType {
			if envVal := os.Getenv(envKey); envVal != "" {
				if d, err := time.ParseDuration(envVal); err == nil {
					field.SetInt(int64(d))
				}
			}
			continue
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(envVal, ",")
				slice := make([]string, 0, len(parts))
				for _, p := range parts {
					if p = strings.TrimSpace(p); p != "" {
						slice = append(slice, p)
					}
				}
				field.Set(reflect.ValueOf(slice))
			}
		case reflect.Struct:
			if field.CanAddr() {
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), envKey)
			}
		}
	}
}

// loadConfigWithOverrides loads the file named by LESSON_CONFIG_FILE, or config.yaml.
// A missing default file is not an error: defaults and the environment are enough to run.
func loadConfigWithOverrides() (result0 *Config, err error) {
	if envPath := os.Getenv(ConfigFileEnv); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrConfiguration, "failed to load config from %s: %v", envPath, err)
		}
		return config, nil
	}

	config, err := loadConfigFromFile(DefaultConfigFile)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	return config, err
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
