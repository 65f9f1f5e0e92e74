package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SteelMorgan/chatlog-notifier/internal/chatlog"
	"github.com/SteelMorgan/chatlog-notifier/internal/retry"
	"github.com/caarlos0/env/v11"
)

// Config holds all configuration for the application
type Config struct {
	// Chat log
	ChatLogPath     string        `env:"CHAT_LOG_PATH"`
	ChatLogEncoding string        `env:"CHAT_LOG_ENCODING" envDefault:"utf-8"`
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`

	// Link lookup
	LookupURL     string        `env:"LINK_LOOKUP_URL" envDefault:"https://aioncodex.com/en/item/%s"`
	TitleSuffix   string        `env:"LINK_TITLE_SUFFIX" envDefault:" - Aion Codex"`
	LookupTimeout time.Duration `env:"LINK_LOOKUP_TIMEOUT" envDefault:"10s"`
	LookupRate    float64       `env:"LINK_LOOKUP_RATE" envDefault:"2"`
	LookupRetries int           `env:"LINK_LOOKUP_RETRIES" envDefault:"2"` // retries after the first attempt
	LinkCachePath string        `env:"LINK_CACHE_PATH"`                    // empty = memory only

	// Classification and output
	RulesPath string `env:"RULES_PATH"` // empty = built-in rules
	OutputDir string `env:"OUTPUT_DIR"` // per-channel files, empty = console only
	NoColor   bool   `env:"NO_COLOR" envDefault:"false"`

	// Observability
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string `env:"LOG_FORMAT" envDefault:"text"`
	LogFile         string `env:"LOG_FILE"`
	MetricsAddr     string `env:"METRICS_ADDR"` // empty = disabled
	TracingEnabled  bool   `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint string `env:"TRACING_ENDPOINT"`
	TracingProtocol string `env:"TRACING_PROTOCOL" envDefault:"grpc"`
}

// Load loads configuration from environment variables, then command line flags
func Load(args []string) (*Config, error) {
	return load(env.ToMap(os.Environ()), args)
}

func load(environ map[string]string, args []string) (*Config, error) {
	cfg := &Config{}

	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	fs := flag.NewFlagSet("notifier", flag.ContinueOnError)
	fs.StringVar(&cfg.ChatLogPath, "chatlog", cfg.ChatLogPath, "Path to the game chat log file")
	fs.StringVar(&cfg.RulesPath, "rules", cfg.RulesPath, "Path to classification rules (YAML)")
	fs.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory for per-channel output files")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "Disable colored console output")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	if cfg.ChatLogPath != "" {
		cfg.ChatLogPath = filepath.Clean(cfg.ChatLogPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ChatLogPath == "" {
		return fmt.Errorf("CHAT_LOG_PATH (or -chatlog) is required")
	}
	if _, err := chatlog.LookupEncoding(c.ChatLogEncoding); err != nil {
		return fmt.Errorf("CHAT_LOG_ENCODING: %w", err)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if strings.Count(c.LookupURL, "%s") != 1 {
		return fmt.Errorf("LINK_LOOKUP_URL must contain exactly one %%s")
	}
	if c.LookupTimeout <= 0 {
		return fmt.Errorf("LINK_LOOKUP_TIMEOUT must be positive")
	}
	if c.LookupRate < 0 {
		return fmt.Errorf("LINK_LOOKUP_RATE must not be negative")
	}
	if c.LookupRetries < 0 {
		return fmt.Errorf("LINK_LOOKUP_RETRIES must not be negative")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json")
	}
	switch c.TracingProtocol {
	case "grpc", "http":
	default:
		return fmt.Errorf("TRACING_PROTOCOL must be grpc or http")
	}
	return nil
}

// RetryConfig returns the retry policy for link lookups
func (c *Config) RetryConfig() retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxAttempts = c.LookupRetries + 1
	return rc
}
