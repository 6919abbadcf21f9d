package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kapu/vn-en-translate-go/internal/constants"
	"github.com/kapu/vn-en-translate-go/pkg/errors"
)

type Config struct {
	Relay   RelayConfig
	Redis   RedisConfig
	Cache   CacheConfig
	Gemini  GeminiConfig
	OpenAI  OpenAIConfig
	Logging LoggingConfig
}

type RelayConfig struct {
	ListenAddr     string
	WSURL          string
	HTTPURL        string
	MaxConcurrency int
	RequestTimeout time.Duration
	Interactive    bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OpenAIConfig struct {
	APIKey         string
	Model          string
	EnableFallback bool
}

type LoggingConfig struct {
	Level string
	File  string
}

// Load reads the relay configuration from the environment (and .env when
// present). A missing API key surfaces here as a ConfigurationError.
func Load() (*Config, error) {
	cfg := LoadClient()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadClient reads the configuration without requiring secrets. The popup
// never talks to the model service directly, so it has no use for the key.
func LoadClient() *Config {
	_ = godotenv.Load()

	return &Config{
		Relay: RelayConfig{
			ListenAddr:     getEnv("RELAY_LISTEN_ADDR", ":8787"),
			WSURL:          getEnv("RELAY_WS_URL", "ws://localhost:8787/ws"),
			HTTPURL:        getEnv("RELAY_HTTP_URL", "http://localhost:8787"),
			MaxConcurrency: getEnvInt("RELAY_MAX_CONCURRENCY", 4),
			RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", int(constants.OverlayTiming.RequestTimeout/time.Second))) * time.Second,
			Interactive:    getEnvBool("RELAY_INTERACTIVE_PRESET", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled: getEnvBool("CACHE_ENABLED", false),
			TTL:     time.Duration(getEnvInt("TRANSLATION_CACHE_TTL_MINUTES", int(constants.CacheTTL.Translation/time.Minute))) * time.Minute,
		},
		Gemini: GeminiConfig{
			APIKey: firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY"),
			Model:  getEnv("GEMINI_MODEL", getEnv("GOOGLE_MODEL", constants.ModelDefaults.GeminiModel)),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			Model:          getEnv("OPENAI_MODEL", constants.ModelDefaults.OpenAIModel),
			EnableFallback: getEnvBool("OPENAI_ENABLE_FALLBACK", false),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return errors.NewConfigurationError("GEMINI_API_KEY is required", "GEMINI_API_KEY", nil)
	}
	if c.Gemini.Model == "" {
		return errors.NewConfigurationError("GEMINI_MODEL must not be empty", "GEMINI_MODEL", nil)
	}
	if c.Relay.ListenAddr == "" {
		return errors.NewConfigurationError("RELAY_LISTEN_ADDR is required", "RELAY_LISTEN_ADDR", nil)
	}
	if c.Relay.MaxConcurrency <= 0 {
		return errors.NewConfigurationError("RELAY_MAX_CONCURRENCY must be positive", "RELAY_MAX_CONCURRENCY", nil)
	}
	if c.Relay.RequestTimeout <= 0 {
		return errors.NewConfigurationError("REQUEST_TIMEOUT_SECONDS must be positive", "REQUEST_TIMEOUT_SECONDS", nil)
	}
	if c.OpenAI.EnableFallback && c.OpenAI.APIKey == "" {
		return errors.NewConfigurationError("OPENAI_API_KEY is required when OPENAI_ENABLE_FALLBACK is set", "OPENAI_API_KEY", nil)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
