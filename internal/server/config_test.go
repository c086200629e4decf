package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies the built-in defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.Host != "127.0.0.1" || cfg.Port != "8888" {
		t.Errorf("Unexpected default address %s", cfg.Addr())
	}
	if cfg.MaxMessageSize != 1024 {
		t.Errorf("Expected default max message size 1024, got %d", cfg.MaxMessageSize)
	}
	if cfg.HelpMessage == "" {
		t.Error("Expected a non-empty default help message")
	}
	if cfg.RateLimit.Burst != 0 {
		t.Errorf("Expected rate limiting disabled by default, got burst %d", cfg.RateLimit.Burst)
	}
}

// TestLoadConfigFile verifies YAML parsing and the missing-file fallback.
func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")

	content := "host: 0.0.0.0\nport: \"9999\"\nhelp_message: custom help\ndatabase: users.db\nmax_message_size: 2048\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}
	if cfg.Host != "0.0.0.0" || cfg.Port != "9999" {
		t.Errorf("Unexpected address %s", cfg.Addr())
	}
	if cfg.HelpMessage != "custom help" {
		t.Errorf("Unexpected help message %q", cfg.HelpMessage)
	}
	if cfg.Database != "users.db" {
		t.Errorf("Unexpected database %q", cfg.Database)
	}
	if cfg.MaxMessageSize != 2048 {
		t.Errorf("Unexpected max message size %d", cfg.MaxMessageSize)
	}

	missing, err := LoadConfigFile(filepath.Join(dir, "absent.yaml"))
	if err != nil {
		t.Fatalf("Expected defaults for a missing file, got error: %v", err)
	}
	if missing.Port != "8888" {
		t.Errorf("Expected default port for a missing file, got %q", missing.Port)
	}
}

// TestNewConfigFromEnv verifies environment variable overrides.
func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_HOST", "0.0.0.0")
	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("HELP_MESSAGE", "env help")
	t.Setenv("MAX_MESSAGE_SIZE", "4096")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2")

	cfg := NewConfigFromEnv(nil)

	if cfg.Host != "0.0.0.0" || cfg.Port != "7000" {
		t.Errorf("Unexpected address %s", cfg.Addr())
	}
	if cfg.HelpMessage != "env help" {
		t.Errorf("Unexpected help message %q", cfg.HelpMessage)
	}
	if cfg.MaxMessageSize != 4096 {
		t.Errorf("Unexpected max message size %d", cfg.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != 5 || cfg.RateLimit.RefillInterval != 2*time.Second {
		t.Errorf("Unexpected rate limit %+v", cfg.RateLimit)
	}
}

// TestNewConfigFromEnvInvalidValues verifies that unparseable values fall
// back to the base configuration.
func TestNewConfigFromEnvInvalidValues(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "not-a-number")
	t.Setenv("RATE_LIMIT_BURST", "-3")

	cfg := NewConfigFromEnv(nil)

	if cfg.MaxMessageSize != 1024 {
		t.Errorf("Expected default max message size, got %d", cfg.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != 0 {
		t.Errorf("Expected default burst, got %d", cfg.RateLimit.Burst)
	}
}

// TestSetConfigSanitizes verifies that invalid settings are replaced with
// defaults when a configuration is applied.
func TestSetConfigSanitizes(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	SetConfig(&Config{MaxMessageSize: -1, RateLimit: RateLimitConfig{Burst: -5}})

	cfg := currentConfig()
	if cfg.MaxMessageSize != 1024 {
		t.Errorf("Expected sanitized max message size, got %d", cfg.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != 0 {
		t.Errorf("Expected sanitized burst, got %d", cfg.RateLimit.Burst)
	}
	if cfg.Host == "" || cfg.Port == "" {
		t.Error("Expected sanitized host and port")
	}
}
