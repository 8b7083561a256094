// Package config provides configuration management for patientdesk.
//
// Values are layered, later layers winning:
//  1. built-in defaults
//  2. the YAML config file
//  3. environment variables (a .env file in the working directory is loaded first)
//  4. command-line flags, applied by the cli package
//
// Config file locations (priority order, see SearchPaths):
//  1. $PATIENTDESK_CONFIG
//  2. ./patientdesk.yaml
//  3. $XDG_CONFIG_HOME/patientdesk/config.yaml
//  4. ~/.config/patientdesk/config.yaml
//  5. /etc/patientdesk/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps validation failures
var ErrInvalidConfig = errors.New("invalid config")

// Load finds and loads the config file, or returns defaults if none found.
// Environment overrides are applied in both cases.
func Load() (*Config, string, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, "", err
	}

	path := FindConfigPath()

	var (
		cfg *Config
		err error
	)
	if path == "" {
		cfg = DefaultConfig()
	} else if cfg, _, err = LoadFromPath(path); err != nil {
		return nil, path, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, path, err
	}

	return cfg, path, nil
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(10 * time.Second)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(30 * time.Second)
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = Duration(60 * time.Second)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if c.Database.Path == "" {
		c.Database.Path = "./patients.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Roster.Strategy == "" {
		c.Roster.Strategy = "merge"
	}
}

// Validate checks values that would otherwise fail late at startup
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.Log.Format)
	}
	switch strings.ToLower(c.Roster.Strategy) {
	case "merge", "replace":
	default:
		return fmt.Errorf("%w: roster strategy %q", ErrInvalidConfig, c.Roster.Strategy)
	}
	if c.Roster.Watch && c.Roster.Path == "" {
		return fmt.Errorf("%w: roster.watch requires roster.path", ErrInvalidConfig)
	}
	if c.Database.SnapshotPath != "" && c.Database.SnapshotPath == c.Database.Path {
		return fmt.Errorf("%w: snapshot_path must differ from database path", ErrInvalidConfig)
	}
	return nil
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Listen: %s, Database: %s", c.Server.Addr, c.Database.Path)
	if c.Database.SnapshotPath != "" {
		summary += fmt.Sprintf(", Snapshot: %s", c.Database.SnapshotPath)
	}
	if c.Roster.Path != "" {
		summary += fmt.Sprintf(", Roster: %s (watch=%t, %s)", c.Roster.Path, c.Roster.Watch, c.Roster.Strategy)
	}
	return summary
}
