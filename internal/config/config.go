// Package config provides configuration management for the dataset ETL.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ulama/pkg/utils"
)

// DefaultHubEndpoint is the public Hugging Face dataset viewer API.
const DefaultHubEndpoint = "https://datasets-server.huggingface.co"

// MaxPageSize is the largest page the rows endpoint serves.
const MaxPageSize = 100

// Configuration validation errors.
var (
	ErrMissingEndpoint          = errors.New("hub.endpoint is required")
	ErrInvalidEndpoint          = errors.New("hub.endpoint must be an http or https URL")
	ErrInvalidPageSize          = errors.New("hub.page_size must be between 1 and 100")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("retry.timeout_sec must be at least 1")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidPreviewRows       = errors.New("preview.rows must be non-negative")
	ErrInvalidPreviewWidth      = errors.New("preview.max_width must be at least 4")
)

// Config represents the complete ETL configuration.
type Config struct {
	Hub     HubConfig     `yaml:"hub"`
	Retry   RetryPolicy   `yaml:"retry"`
	Logging LoggingConfig `yaml:"logging"`
	Preview PreviewConfig `yaml:"preview"`
}

// HubConfig points the loader at a dataset viewer API.
type HubConfig struct {
	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"token"`
	Subset   string `yaml:"subset"`
	PageSize int    `yaml:"page_size"`
}

// RetryPolicy defines retry behavior.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PreviewConfig controls the table printed after a run.
type PreviewConfig struct {
	Rows     int `yaml:"rows"`
	MaxWidth int `yaml:"max_width"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Hub: HubConfig{
			Endpoint: DefaultHubEndpoint,
			PageSize: MaxPageSize,
		},
		Retry: RetryPolicy{
			MaxAttempts:       3,
			InitialDelayMs:    500,
			MaxDelayMs:        30000,
			BackoffMultiplier: 2.0,
			TimeoutSec:        30,
		},
		Logging: LoggingConfig{Level: "info"},
		Preview: PreviewConfig{Rows: 0, MaxWidth: 32},
	}
}

// LoadConfig loads configuration from a YAML file. Keys missing from the
// file keep their default values.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Hub.Endpoint == "" {
		return ErrMissingEndpoint
	}

	if !utils.NewHTTPHelper().IsValidURL(c.Hub.Endpoint) {
		return fmt.Errorf("%w: %q", ErrInvalidEndpoint, c.Hub.Endpoint)
	}

	if c.Hub.PageSize < 1 || c.Hub.PageSize > MaxPageSize {
		return ErrInvalidPageSize
	}

	if c.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if c.Retry.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if !ValidLogLevel(c.Logging.Level) {
		return ErrInvalidLogLevel
	}

	if c.Preview.Rows < 0 {
		return ErrInvalidPreviewRows
	}

	if c.Preview.MaxWidth < 4 {
		return ErrInvalidPreviewWidth
	}

	return nil
}

// ValidLogLevel reports whether level is one the logger understands.
func ValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}

	return false
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if rp.MaxDelayMs > 0 && int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Endpoint: %s, PageSize: %d, MaxAttempts: %d, LogLevel: %s}",
		c.Hub.Endpoint,
		c.Hub.PageSize,
		c.Retry.MaxAttempts,
		c.Logging.Level,
	)
}
