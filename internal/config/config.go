// ABOUTME: Configuration loading and parsing for the vault dashboard and its mock backend
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied when a field is left empty.
const (
	DefaultBaseURL       = "http://localhost:3000/api"
	DefaultTimeout       = 10 * time.Second
	DefaultWatchInterval = 30 * time.Second
	DefaultMockAddr      = "127.0.0.1:3000"
	DefaultTokenTTL      = time.Hour
)

// Config represents the complete dashboard configuration
type Config struct {
	API     APIConfig     `yaml:"api" toml:"api"`
	Session SessionConfig `yaml:"session" toml:"session"`
	Scanner ScannerConfig `yaml:"scanner" toml:"scanner"`
	Mock    MockConfig    `yaml:"mock" toml:"mock"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// APIConfig describes the remote record service
type APIConfig struct {
	BaseURL   string        `yaml:"base_url" toml:"base_url"`
	UserAgent string        `yaml:"user_agent" toml:"user_agent"`
	Timeout   time.Duration `yaml:"-" toml:"-"`

	TimeoutRaw string `yaml:"timeout" toml:"timeout"`
}

// SessionConfig holds the persisted session area settings
type SessionConfig struct {
	// Path is the sqlite file holding the client-side key-value area.
	Path string `yaml:"path" toml:"path"`
	// SealKey is an optional hex-encoded 32-byte key; when set, stored values are sealed at rest.
	SealKey       string        `yaml:"seal_key" toml:"seal_key"`
	WatchInterval time.Duration `yaml:"-" toml:"-"`

	WatchIntervalRaw string `yaml:"watch_interval" toml:"watch_interval"`
}

// ScannerConfig selects the proof-token scanning collaborator
type ScannerConfig struct {
	Kind string `yaml:"kind" toml:"kind"` // lines, none
	Path string `yaml:"path" toml:"path"` // file to read payload lines from; empty means stdin
}

// MockConfig configures the development backend
type MockConfig struct {
	Addr      string        `yaml:"addr" toml:"addr"`
	JWTSecret string        `yaml:"jwt_secret" toml:"jwt_secret"`
	Seed      bool          `yaml:"seed" toml:"seed"`
	TokenTTL  time.Duration `yaml:"-" toml:"-"`

	TokenTTLRaw string `yaml:"token_ttl" toml:"token_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded before decoding.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// LoadDefault resolves the config path and loads it. A missing file is not an
// error: the defaults are returned instead.
//
// Lookup order: explicit path, VAULT_CONFIG, ./vault.yaml, ./vault.toml,
// $XDG_CONFIG_HOME/vault/dash.yaml.
func LoadDefault(explicit string) (*Config, string, error) {
	if explicit != "" {
		cfg, err := Load(explicit)
		return cfg, explicit, err
	}
	for _, candidate := range candidatePaths() {
		if _, err := os.Stat(candidate); err == nil {
			cfg, err := Load(candidate)
			return cfg, candidate, err
		}
	}
	return Default(), "", nil
}

func candidatePaths() []string {
	paths := make([]string, 0, 4)
	if env := os.Getenv("VAULT_CONFIG"); env != "" {
		paths = append(paths, env)
	}
	paths = append(paths, "vault.yaml", "vault.toml")
	if dir := configDir(); dir != "" {
		paths = append(paths, filepath.Join(dir, "vault", "dash.yaml"))
	}
	return paths
}

// configDir returns $XDG_CONFIG_HOME, falling back to ~/.config
func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config")
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

func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultTimeout
	}
	if c.Session.Path == "" {
		if dir := configDir(); dir != "" {
			c.Session.Path = filepath.Join(dir, "vault", "session.db")
		} else {
			c.Session.Path = "session.db"
		}
	}
	// An explicit zero turns the expiry watch off; only an absent value gets the default.
	if c.Session.WatchInterval == 0 && c.Session.WatchIntervalRaw == "" {
		c.Session.WatchInterval = DefaultWatchInterval
	}
	if c.Scanner.Kind == "" {
		c.Scanner.Kind = "lines"
	}
	if c.Mock.Addr == "" {
		c.Mock.Addr = DefaultMockAddr
	}
	if c.Mock.TokenTTL == 0 {
		c.Mock.TokenTTL = DefaultTokenTTL
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all configuration fields are usable.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url scheme must be http or https, got %q", u.Scheme)
	}

	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.Session.WatchInterval < 0 {
		return fmt.Errorf("session.watch_interval must not be negative")
	}
	if c.Mock.TokenTTL < 0 {
		return fmt.Errorf("mock.token_ttl must not be negative")
	}

	if c.Session.SealKey != "" {
		if _, err := c.Session.SealKeyBytes(); err != nil {
			return err
		}
	}

	switch c.Scanner.Kind {
	case "lines", "none":
	default:
		return fmt.Errorf("scanner.kind must be lines or none, got %q", c.Scanner.Kind)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// SealKeyBytes decodes the configured seal key. It returns nil when no key is set.
func (s SessionConfig) SealKeyBytes() ([]byte, error) {
	if s.SealKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(s.SealKey)
	if err != nil {
		return nil, fmt.Errorf("session.seal_key is not hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("session.seal_key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if strings.EqualFold(strings.TrimSpace(cfg.Session.WatchIntervalRaw), "off") {
		cfg.Session.WatchIntervalRaw = "0s"
	}

	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"api.timeout", cfg.API.TimeoutRaw, &cfg.API.Timeout},
		{"session.watch_interval", cfg.Session.WatchIntervalRaw, &cfg.Session.WatchInterval},
		{"mock.token_ttl", cfg.Mock.TokenTTLRaw, &cfg.Mock.TokenTTL},
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
