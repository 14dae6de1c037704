// Package config loads the perstore CLI configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend kinds.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendCayley = "cayley"
)

// Defaults applied to fields left empty.
const (
	DefaultBackend  = BackendSQLite
	DefaultPath     = "perstore.db"
	DefaultTimeout  = 30 * time.Second
	DefaultIDField  = "id"
	DefaultLogLevel = "info"
)

// Config is the CLI configuration. Flags override file values.
type Config struct {
	Backend Backend `yaml:"backend"`

	// Schema is the path of the schema document (.json, .yaml, .yml, .cue).
	// A relative path is resolved against the config file's directory.
	Schema string `yaml:"schema,omitempty"`

	// Label stores every quad under this label when set.
	Label string `yaml:"label,omitempty"`

	IDField  string `yaml:"id_field,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`

	// MetricsFile receives the store metrics in Prometheus text format when
	// a command finishes, for a node_exporter textfile collector. Relative
	// paths resolve against the config file's directory.
	MetricsFile string `yaml:"metrics_file,omitempty"`
}

// Backend selects and configures the quad backend.
type Backend struct {
	Kind string `yaml:"kind,omitempty"`

	// Path is the SQLite database file (sqlite only).
	Path string `yaml:"path,omitempty"`

	// URL is the Cayley server address (cayley only).
	URL string `yaml:"url,omitempty"`

	// Timeout bounds each Cayley HTTP request.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// RateLimit caps Cayley requests per second; 0 means unlimited.
	RateLimit float64 `yaml:"rate_limit,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// Load reads a configuration file, applies defaults and validates it.
// Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	base := filepath.Dir(path)
	if c.Schema != "" && !filepath.IsAbs(c.Schema) {
		c.Schema = filepath.Join(base, c.Schema)
	}
	if c.Backend.Kind == BackendSQLite && c.Backend.Path != "" && !filepath.IsAbs(c.Backend.Path) {
		c.Backend.Path = filepath.Join(base, c.Backend.Path)
	}
	if c.MetricsFile != "" && !filepath.IsAbs(c.MetricsFile) {
		c.MetricsFile = filepath.Join(base, c.MetricsFile)
	}
	return c, nil
}

// Parse decodes configuration YAML, applies defaults and validates it.
func Parse(data []byte) (Config, error) {
	var c Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ApplyDefaults fills empty fields.
func (c *Config) ApplyDefaults() {
	if c.Backend.Kind == "" {
		c.Backend.Kind = DefaultBackend
	}
	if c.Backend.Kind == BackendSQLite && c.Backend.Path == "" {
		c.Backend.Path = DefaultPath
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = DefaultTimeout
	}
	if c.IDField == "" {
		c.IDField = DefaultIDField
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case BackendMemory:
	case BackendSQLite:
		if c.Backend.Path == "" {
			return fmt.Errorf("backend.path is required for the sqlite backend")
		}
	case BackendCayley:
		if c.Backend.URL == "" {
			return fmt.Errorf("backend.url is required for the cayley backend")
		}
	default:
		return fmt.Errorf("backend.kind %q is not one of memory, sqlite, cayley", c.Backend.Kind)
	}

	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout must not be negative")
	}
	if c.Backend.RateLimit < 0 {
		return fmt.Errorf("backend.rate_limit must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a log_level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level %q is not one of debug, info, warn, error", s)
	}
	return level, nil
}
