// Package config loads blocks settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for a config file when none is given.
const DefaultPath = "blocks.yaml"

// Config holds all blocks configuration.
type Config struct {
	// Store is the document database.
	Store StoreConfig `yaml:"store"`

	// Library is the query-library database read by libquery watchers.
	Library LibraryConfig `yaml:"library"`

	// Runtime tunes the dispatch funnel.
	Runtime RuntimeConfig `yaml:"runtime"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig configures document persistence.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LibraryConfig configures the query library.
type LibraryConfig struct {
	Path         string `yaml:"path"`
	FetchTimeout string `yaml:"fetch_timeout"`
}

// RuntimeConfig configures the dispatch funnel.
type RuntimeConfig struct {
	HistoryLimit int `yaml:"history_limit"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: "data/blocks.db",
		},
		Library: LibraryConfig{
			Path:         "data/library.db",
			FetchTimeout: "10s",
		},
		Runtime: RuntimeConfig{
			HistoryLimit: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
// BLOCKS_* environment variables win over both.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// FetchTimeout parses Library.FetchTimeout, falling back to 10s.
func (c *Config) FetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Library.FetchTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("BLOCKS_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("BLOCKS_LIBRARY_PATH"); v != "" {
		c.Library.Path = v
	}
	if v := os.Getenv("BLOCKS_LIBRARY_FETCH_TIMEOUT"); v != "" {
		c.Library.FetchTimeout = v
	}
	if v := os.Getenv("BLOCKS_HISTORY_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BLOCKS_HISTORY_LIMIT: %w", err)
		}
		c.Runtime.HistoryLimit = n
	}
	if v := os.Getenv("BLOCKS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("BLOCKS_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	return nil
}
