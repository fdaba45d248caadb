package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// MaxSteps and RequestTimeout are fixed; they are not read from the environment.
	MaxSteps       = 8
	RequestTimeout = 60 * time.Second

	defaultHTTPAddr        = ":8080"
	defaultBackendURL      = "http://localhost:8000"
	defaultBackendTimeout  = 15 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	defaultMongoDB         = "margin_agent"
	defaultGeminiModel     = "gemini-2.5-flash"
	defaultAnthropicModel  = "claude-sonnet-4-20250514"
	defaultLogLevel        = slog.LevelInfo
	defaultLogFormat       = LogFormatText
)

type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderAnthropic Provider = "anthropic"
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	BackendURL      string
	BackendTimeout  time.Duration
	Provider        Provider
	Model           string
	GeminiAPIKey    string
	AnthropicAPIKey string
	MongoURI        string
	MongoDB         string
	PersonaFile     string
	LogLevel        slog.Level
	LogFormat       LogFormat
}

func Default() Config {
	return Config{
		HTTPAddr:        defaultHTTPAddr,
		ShutdownTimeout: defaultShutdownTimeout,
		BackendURL:      defaultBackendURL,
		BackendTimeout:  defaultBackendTimeout,
		Provider:        ProviderGemini,
		MongoDB:         defaultMongoDB,
		LogLevel:        defaultLogLevel,
		LogFormat:       defaultLogFormat,
	}
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv. Missing model credentials are not an
// error here: the server starts and /chat answers 500 until one is set.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	if addr := get("HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	} else if port := get("HTTP_PORT"); port != "" {
		cfg.HTTPAddr = ":" + port
	}

	if u := firstNonEmpty(get("BACKEND_URL"), get("NEXT_PUBLIC_BACKEND_URL")); u != "" {
		cfg.BackendURL = strings.TrimRight(u, "/")
	}

	var err error
	if cfg.BackendTimeout, err = parseDuration("BACKEND_TIMEOUT", get("BACKEND_TIMEOUT"), cfg.BackendTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = parseDuration("SHUTDOWN_TIMEOUT", get("SHUTDOWN_TIMEOUT"), cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}

	if provider := get("MODEL_PROVIDER"); provider != "" {
		cfg.Provider = Provider(strings.ToLower(provider))
	}
	cfg.Model = get("MODEL")
	cfg.GeminiAPIKey = firstNonEmpty(get("GEMINI_API_KEY"), get("GOOGLE_API_KEY"))
	cfg.AnthropicAPIKey = get("ANTHROPIC_API_KEY")

	cfg.MongoURI = get("MONGODB_URI")
	if db := get("MONGODB_DB"); db != "" {
		cfg.MongoDB = db
	}
	cfg.PersonaFile = get("PERSONA_FILE")

	if level := get("LOG_LEVEL"); level != "" {
		if cfg.LogLevel, err = parseLogLevel(level); err != nil {
			return Config{}, err
		}
	}
	if format := get("LOG_FORMAT"); format != "" {
		if cfg.LogFormat, err = parseLogFormat(format); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must not be empty")
	}
	if c.BackendURL == "" {
		return errors.New("config: BACKEND_URL must not be empty")
	}
	switch c.Provider {
	case ProviderGemini, ProviderAnthropic:
	default:
		return fmt.Errorf("config: unsupported MODEL_PROVIDER %q (expected gemini or anthropic)", c.Provider)
	}
	return nil
}

// ModelName returns the configured model or the provider default.
func (c Config) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	if c.Provider == ProviderAnthropic {
		return defaultAnthropicModel
	}
	return defaultGeminiModel
}

// APIKey returns the credential of the selected provider.
func (c Config) APIKey() string {
	if c.Provider == ProviderAnthropic {
		return c.AnthropicAPIKey
	}
	return c.GeminiAPIKey
}

// CredentialEnv names the variable that holds the selected provider's key.
func (c Config) CredentialEnv() string {
	if c.Provider == ProviderAnthropic {
		return "ANTHROPIC_API_KEY"
	}
	return "GEMINI_API_KEY"
}

func parseDuration(name, raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("parse %s: value must be > 0", name)
	}
	return d, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}
	return level, nil
}

func parseLogFormat(raw string) (LogFormat, error) {
	switch LogFormat(strings.ToLower(raw)) {
	case LogFormatText:
		return LogFormatText, nil
	case LogFormatJSON:
		return LogFormatJSON, nil
	default:
		return "", fmt.Errorf("parse LOG_FORMAT: unsupported value %q", raw)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
