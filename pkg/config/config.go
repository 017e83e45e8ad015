// Package config loads the advisor's runtime configuration from the
// environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported values of LLM_PROVIDER.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Config holds all application configuration.
type Config struct {
	Port string

	// PCPartPicker account used by save_list.
	Username string
	Password string

	LLMProvider       string
	LLMModel          string
	AnthropicAPIKey   string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	LLMRequestsPerMin int

	BrowserHeadless   bool
	BrowserRequestsPM int
	SelectorsFile     string
	PCPartPickerURL   string

	QuestionTimeout time.Duration
	ProposalTimeout time.Duration

	StaticDir    string
	LogDir       string
	TraceEnabled bool
}

// Load reads a .env file if one exists and then builds the configuration
// from environment variables. Variables already set in the environment win
// over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds and validates the configuration from environment
// variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "3000"),
		Username:          getEnv("PCPARTPICKER_USERNAME", ""),
		Password:          getEnv("PCPARTPICKER_PASSWORD", ""),
		LLMProvider:       strings.ToLower(getEnv("LLM_PROVIDER", ProviderAnthropic)),
		LLMModel:          getEnv("LLM_MODEL", ""),
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		LLMRequestsPerMin: getEnvInt("LLM_REQUESTS_PER_MINUTE", 50),
		BrowserHeadless:   getEnvBool("BROWSER_HEADLESS", true),
		BrowserRequestsPM: getEnvInt("BROWSER_REQUESTS_PER_MINUTE", 30),
		SelectorsFile:     getEnv("SELECTORS_FILE", ""),
		PCPartPickerURL:   getEnv("PCPARTPICKER_URL", "https://pcpartpicker.com"),
		QuestionTimeout:   getEnvDuration("QUESTION_TIMEOUT", 5*time.Minute),
		ProposalTimeout:   getEnvDuration("PROPOSAL_TIMEOUT", 10*time.Minute),
		StaticDir:         getEnv("STATIC_DIR", "./public"),
		LogDir:            getEnv("LOG_DIR", ""),
		TraceEnabled:      getEnvBool("TRACE_ENABLED", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be a number, got %q", c.Port)
	}
	if c.Username == "" {
		return fmt.Errorf("missing required environment variable: PCPARTPICKER_USERNAME")
	}
	if c.Password == "" {
		return fmt.Errorf("missing required environment variable: PCPARTPICKER_PASSWORD")
	}

	switch c.LLMProvider {
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("missing required environment variable: ANTHROPIC_API_KEY")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("missing required environment variable: OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderAnthropic, ProviderOpenAI, c.LLMProvider)
	}

	if c.QuestionTimeout <= 0 || c.ProposalTimeout <= 0 {
		return fmt.Errorf("question and proposal timeouts must be positive")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
