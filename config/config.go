package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Environment string
	OpenAI      OpenAIConfig
	Search      SearchConfig
	Logging     LoggingConfig
}

// OpenAIConfig holds remote store configuration
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	OrgID        string
	DefaultModel string
}

// SearchConfig holds retrieval and polling defaults
type SearchConfig struct {
	// TopK is the default number of chunks requested per query
	TopK int

	// MaxContextChars bounds the assembled context window
	MaxContextChars int

	// ListLimit caps remote list operations
	ListLimit int

	// PollInterval is the recommended caller-side polling cadence
	PollInterval time.Duration

	// PollTimeout bounds caller-side wait loops
	PollTimeout time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or text
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		OpenAI: OpenAIConfig{
			APIKey:       getEnv("OPENAI_API_KEY", ""),
			BaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Timeout:      getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
			OrgID:        getEnv("OPENAI_ORG_ID", ""),
			DefaultModel: getEnv("DEFAULT_MODEL", "gpt-4.1"),
		},
		Search: SearchConfig{
			TopK:            getEnvAsInt("SEARCH_TOP_K", 10),
			MaxContextChars: getEnvAsInt("MAX_CONTEXT_CHARS", 8000),
			ListLimit:       getEnvAsInt("LIST_LIMIT", 100),
			PollInterval:    getEnvAsDuration("BATCH_POLL_INTERVAL", 2*time.Second),
			PollTimeout:     getEnvAsDuration("BATCH_POLL_TIMEOUT", 5*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.OpenAI.BaseURL == "" {
		return fmt.Errorf("remote store base URL is required")
	}
	if c.OpenAI.DefaultModel == "" {
		return fmt.Errorf("default model is required")
	}
	if c.Search.TopK <= 0 {
		return fmt.Errorf("search top-k must be positive")
	}
	if c.Search.MaxContextChars <= 0 {
		return fmt.Errorf("max context chars must be positive")
	}
	if c.Search.PollInterval <= 0 {
		return fmt.Errorf("batch poll interval must be positive")
	}
	if c.Logging.Level == "" {
		return fmt.Errorf("log level is required")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
