// Package server provides configuration helpers that define runtime defaults,
// validation, and limit parameters for the messenger service.
package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
)

// DefaultHelpMessage is the help text sent in response to the "help" command
// when the configuration does not supply its own.
const DefaultHelpMessage = "Commands: 'help' - this message; " +
	"'register <login> <password> <password>' - create an account; " +
	"'login <login> <password>' - authenticate; " +
	"'all:<message>' - send to everyone; " +
	"'<login>:<message>' - send to one user"

// RateLimitConfig defines the parameters for per-connection message rate
// limiting. A Burst of zero disables limiting entirely.
type RateLimitConfig struct {
	Burst          int           `yaml:"burst"`
	RefillInterval time.Duration `yaml:"refill_interval"`
}

// Config holds the server configuration settings.
type Config struct {
	Host           string          `yaml:"host"`
	Port           string          `yaml:"port"`
	HelpMessage    string          `yaml:"help_message"`
	Database       string          `yaml:"database"`
	MaxMessageSize int64           `yaml:"max_message_size"`
	WSAddr         string          `yaml:"ws_addr"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

var (
	configMu        sync.RWMutex
	activeConfig    Config
	allowedOrigins  map[string]struct{}
	allowAllOrigins bool
)

func init() {
	SetConfig(nil)
}

func defaultConfig() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           "8888",
		HelpMessage:    DefaultHelpMessage,
		Database:       "credentials.db",
		MaxMessageSize: 1024,
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		RateLimit: RateLimitConfig{
			Burst:          0,
			RefillInterval: time.Second,
		},
	}
}

// Addr returns the TCP listen address in host:port form.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}

func sanitizeConfig(cfg Config) Config {
	defaults := defaultConfig()

	if cfg.Host == "" {
		cfg.Host = defaults.Host
	}
	if cfg.Port == "" {
		cfg.Port = defaults.Port
	}
	if cfg.HelpMessage == "" {
		cfg.HelpMessage = defaults.HelpMessage
	}
	if cfg.Database == "" {
		cfg.Database = defaults.Database
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}
	if cfg.RateLimit.Burst < 0 {
		cfg.RateLimit.Burst = 0
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
	}

	normalizedOrigins, allowAll := normalizeOrigins(cfg.AllowedOrigins)
	cfg.AllowedOrigins = normalizedOrigins

	configMu.Lock()
	defer configMu.Unlock()

	activeConfig = cfg
	allowAllOrigins = allowAll
	allowedOrigins = make(map[string]struct{}, len(normalizedOrigins))
	for _, origin := range normalizedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return cfg
}

// SetConfig applies the provided configuration. Passing nil resets to defaults.
func SetConfig(cfg *Config) {
	if cfg == nil {
		defaultCfg := defaultConfig()
		sanitizeConfig(defaultCfg)
		return
	}

	sanitized := Config{
		Host:           cfg.Host,
		Port:           cfg.Port,
		HelpMessage:    cfg.HelpMessage,
		Database:       cfg.Database,
		MaxMessageSize: cfg.MaxMessageSize,
		WSAddr:         cfg.WSAddr,
		AllowedOrigins: append([]string(nil), cfg.AllowedOrigins...),
		RateLimit: RateLimitConfig{
			Burst:          cfg.RateLimit.Burst,
			RefillInterval: cfg.RateLimit.RefillInterval,
		},
	}
	sanitizeConfig(sanitized)
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	cfg := activeConfig
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all
// settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// LoadConfigFile reads a YAML configuration file and merges it over the
// defaults. A missing file is not an error; the defaults are returned.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// NewConfigFromEnv creates a Config instance from environment variables,
// starting from the given base configuration. Unset variables leave the base
// values untouched.
func NewConfigFromEnv(base *Config) *Config {
	var cfg Config
	if base != nil {
		cfg = *base
	} else {
		cfg = defaultConfig()
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Host = host
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}

	if help := os.Getenv("HELP_MESSAGE"); help != "" {
		cfg.HelpMessage = help
	}

	if db := os.Getenv("CREDENTIALS_DB"); db != "" {
		cfg.Database = db
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseRefillInterval(interval, cfg.RateLimit.RefillInterval)
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed >= 0 {
		return parsed
	}
	return defaultValue
}

func parseRefillInterval(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
