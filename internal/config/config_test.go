package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Helper to create a temp config file.
func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// validConfigYAML is a complete valid configuration.
const validConfigYAML = `
hub:
  endpoint: "http://localhost:8080"
  token: "hf_test"
  subset: "default"
  page_size: 50
retry:
  max_attempts: 5
  initial_delay_ms: 100
  max_delay_ms: 5000
  backoff_multiplier: 2.0
  timeout_sec: 10
logging:
  level: "debug"
preview:
  rows: 5
  max_width: 20
`

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}

	if cfg.Hub.Endpoint != DefaultHubEndpoint {
		t.Errorf("Expected default endpoint %s, got %s", DefaultHubEndpoint, cfg.Hub.Endpoint)
	}
}

func TestLoadConfig_Valid(t *testing.T) {
	configPath := createTempConfigFile(t, validConfigYAML)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Hub.Endpoint != "http://localhost:8080" {
		t.Errorf("Expected endpoint 'http://localhost:8080', got '%s'", cfg.Hub.Endpoint)
	}

	if cfg.Hub.Token != "hf_test" {
		t.Errorf("Expected token 'hf_test', got '%s'", cfg.Hub.Token)
	}

	if cfg.Hub.PageSize != 50 {
		t.Errorf("Expected page_size 50, got %d", cfg.Hub.PageSize)
	}

	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("Expected max_attempts 5, got %d", cfg.Retry.MaxAttempts)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected level debug, got %s", cfg.Logging.Level)
	}

	if cfg.Preview.Rows != 5 || cfg.Preview.MaxWidth != 20 {
		t.Errorf("Unexpected preview config: %+v", cfg.Preview)
	}
}

func TestLoadConfig_PartialKeepsDefaults(t *testing.T) {
	configPath := createTempConfigFile(t, "hub:\n  token: \"abc\"\n")

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Hub.Token != "abc" {
		t.Errorf("Expected token 'abc', got '%s'", cfg.Hub.Token)
	}

	if cfg.Hub.Endpoint != DefaultHubEndpoint {
		t.Errorf("Expected default endpoint, got %s", cfg.Hub.Endpoint)
	}

	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("Expected default max_attempts 3, got %d", cfg.Retry.MaxAttempts)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Expected error for nonexistent file, got nil")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := createTempConfigFile(t, "invalid: yaml: content: [}")

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid YAML, got nil")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	configPath := createTempConfigFile(t, "hub:\n  page_size: 500\n")

	_, err := LoadConfig(configPath)
	if !errors.Is(err, ErrInvalidPageSize) {
		t.Fatalf("Expected ErrInvalidPageSize, got %v", err)
	}
}

func TestConfig_Validate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"missing endpoint", func(c *Config) { c.Hub.Endpoint = "" }, ErrMissingEndpoint},
		{"non-http endpoint", func(c *Config) { c.Hub.Endpoint = "ftp://example.com" }, ErrInvalidEndpoint},
		{"endpoint without host", func(c *Config) { c.Hub.Endpoint = "http://" }, ErrInvalidEndpoint},
		{"zero page size", func(c *Config) { c.Hub.PageSize = 0 }, ErrInvalidPageSize},
		{"large page size", func(c *Config) { c.Hub.PageSize = 101 }, ErrInvalidPageSize},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, ErrInvalidMaxAttempts},
		{"negative delay", func(c *Config) { c.Retry.InitialDelayMs = -1 }, ErrInvalidInitialDelay},
		{"multiplier below one", func(c *Config) { c.Retry.BackoffMultiplier = 0.5 }, ErrInvalidBackoffMultiplier},
		{"zero timeout", func(c *Config) { c.Retry.TimeoutSec = 0 }, ErrInvalidTimeout},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }, ErrInvalidLogLevel},
		{"negative preview rows", func(c *Config) { c.Preview.Rows = -1 }, ErrInvalidPreviewRows},
		{"narrow preview", func(c *Config) { c.Preview.MaxWidth = 3 }, ErrInvalidPreviewWidth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryPolicy_GetRetryDelay(t *testing.T) {
	rp := RetryPolicy{
		InitialDelayMs:    100,
		MaxDelayMs:        1000,
		BackoffMultiplier: 2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1000 * time.Millisecond}, // capped
		{10, 1000 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := rp.GetRetryDelay(tt.attempt); got != tt.want {
			t.Errorf("GetRetryDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryPolicy_GetTimeout(t *testing.T) {
	rp := RetryPolicy{TimeoutSec: 15}

	if got := rp.GetTimeout(); got != 15*time.Second {
		t.Errorf("GetTimeout() = %v, want 15s", got)
	}
}

func TestConfig_SaveAndReload(t *testing.T) {
	cfg := Default()
	cfg.Hub.Subset = "scholars"
	cfg.Preview.Rows = 3

	path := filepath.Join(t.TempDir(), "saved.yaml")
	if err := cfg.SaveConfig(path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	reloaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if reloaded.Hub.Subset != "scholars" || reloaded.Preview.Rows != 3 {
		t.Errorf("Reloaded config mismatch: %+v", reloaded)
	}
}

func TestConfig_String(t *testing.T) {
	s := Default().String()

	if !strings.Contains(s, DefaultHubEndpoint) {
		t.Errorf("String() = %q, expected endpoint", s)
	}
}

func TestLoadConfig_ExampleMatchesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "etl.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if *cfg != *Default() {
		t.Errorf("configs/etl.yaml = %+v, want defaults %+v", *cfg, *Default())
	}
}
