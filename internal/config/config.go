package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"
	_ "time/tzdata" // zone names resolve without system tzdata

	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvAPIURL  = "LEDGERVIEW_API_URL"
	EnvAddr    = "LEDGERVIEW_ADDR"
	EnvNATSURL = "LEDGERVIEW_NATS_URL"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "ledgerview.yaml"

// Config represents the top-level ledgerview.yaml configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Server  ServerConfig  `yaml:"server"`
	Upload  UploadConfig  `yaml:"upload"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
	Display DisplayConfig `yaml:"display"`
	Events  EventsConfig  `yaml:"events"`
	History HistoryConfig `yaml:"history"`
}

// APIConfig points at the statement API server.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"` // 0 = no per-request timeout
}

// ServerConfig controls the web frontend listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// UploadConfig limits what the client will send.
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// CacheConfig controls reuse of fetched balance and issues.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"` // 0 = share in-flight requests only
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// DisplayConfig controls how dates are rendered.
type DisplayConfig struct {
	Timezone string `yaml:"timezone"`
}

// EventsConfig enables NATS upload notifications.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject"`
}

// HistoryConfig enables the local upload audit log.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// Load reads a ledgerview.yaml file from disk. Fields the file omits keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns defaults when the file does not exist
// and the caller did not ask for it explicitly.
func LoadOrDefault(path string, explicit bool) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return nil, err
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for local development.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Addr:            ":3000",
			ShutdownTimeout: 10 * time.Second,
		},
		Upload: UploadConfig{
			MaxBytes: 10 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Display: DisplayConfig{
			Timezone: "Asia/Jakarta",
		},
		Events: EventsConfig{
			Subject: "statements.uploaded",
		},
	}
}

// ApplyEnv overrides values from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := getenv(EnvNATSURL); v != "" {
		c.Events.NATSURL = v
	}
}

// Validate checks the values the rest of the program relies on.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url: %q is not an absolute http(s) URL", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout: must not be negative")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes: must be positive")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl: must not be negative")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("display.timezone: %w", err)
	}
	return nil
}

// Location resolves the display time zone. A nil location means the
// formatter default (WIB).
func (c *Config) Location() (*time.Location, error) {
	if c.Display.Timezone == "" {
		return nil, nil
	}
	return time.LoadLocation(c.Display.Timezone)
}
