// ABOUTME: Configuration loading and parsing for coven-client
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete coven-client configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Dedupe   DedupeConfig   `yaml:"dedupe"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	// Teams joined automatically after connecting
	Teams []string `yaml:"teams"`
}

// ServerConfig holds the server endpoints and credentials
type ServerConfig struct {
	APIURL       string `yaml:"api_url"`
	WebsocketURL string `yaml:"websocket_url"`
	Token        string `yaml:"token"`
}

// DedupeConfig tunes the event id cache
type DedupeConfig struct {
	TTL     time.Duration `yaml:"-"`
	MaxSize int           `yaml:"max_size"`

	TTLRaw string `yaml:"ttl"`
}

// RealtimeConfig tunes the connection manager
type RealtimeConfig struct {
	BackoffBase          time.Duration `yaml:"-"`
	HeartbeatInterval    time.Duration `yaml:"-"`
	QueueMaxAge          time.Duration `yaml:"-"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	QueueCapacity        int           `yaml:"queue_capacity"`

	BackoffBaseRaw       string `yaml:"backoff_base"`
	HeartbeatIntervalRaw string `yaml:"heartbeat_interval"`
	QueueMaxAgeRaw       string `yaml:"queue_max_age"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// Default returns a Config with every tunable at its baseline. Load starts
// from here so a minimal file only needs server endpoints and a token.
func Default() *Config {
	return &Config{
		Dedupe: DedupeConfig{
			TTL:     5 * time.Second,
			MaxSize: 1000,
		},
		Realtime: RealtimeConfig{
			BackoffBase:          time.Second,
			HeartbeatInterval:    30 * time.Second,
			QueueMaxAge:          5 * time.Minute,
			MaxReconnectAttempts: 5,
			QueueCapacity:        100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.APIURL == "" {
		return fmt.Errorf("server.api_url is required")
	}
	if c.Server.WebsocketURL == "" {
		return fmt.Errorf("server.websocket_url is required")
	}
	if c.Server.Token == "" {
		return fmt.Errorf("server.token is required")
	}

	if c.Dedupe.TTL <= 0 {
		return fmt.Errorf("dedupe.ttl must be positive")
	}
	if c.Dedupe.MaxSize <= 0 {
		return fmt.Errorf("dedupe.max_size must be positive")
	}

	if c.Realtime.BackoffBase <= 0 {
		return fmt.Errorf("realtime.backoff_base must be positive")
	}
	if c.Realtime.MaxReconnectAttempts <= 0 {
		return fmt.Errorf("realtime.max_reconnect_attempts must be positive")
	}
	if c.Realtime.QueueCapacity <= 0 {
		return fmt.Errorf("realtime.queue_capacity must be positive")
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		raw  string
		name string
		dst  *time.Duration
	}{
		{cfg.Dedupe.TTLRaw, "dedupe.ttl", &cfg.Dedupe.TTL},
		{cfg.Realtime.BackoffBaseRaw, "realtime.backoff_base", &cfg.Realtime.BackoffBase},
		{cfg.Realtime.HeartbeatIntervalRaw, "realtime.heartbeat_interval", &cfg.Realtime.HeartbeatInterval},
		{cfg.Realtime.QueueMaxAgeRaw, "realtime.queue_max_age", &cfg.Realtime.QueueMaxAge},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
