// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Parley commands.
//
// Configuration is loaded from a single file specified by:
//   - PARLEY_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There is no automatic discovery, and environment variables never
// override file values. This ensures deterministic, auditable
// configuration with no hidden overrides. The only expansion performed
// is ${HOME} and similar path variables for portability.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/parleyhq/parley/lib/sessionlog"
)

// Config is the configuration for Parley commands.
type Config struct {
	// DataDir is where session logs are stored, one subdirectory per
	// namespace. Default: ${HOME}/.parley/sessions
	DataDir string `yaml:"data_dir"`

	// Namespace partitions this instance's sessions. Default:
	// "default".
	Namespace string `yaml:"namespace"`

	// DefaultAdapter is the adapter used when a session names none.
	// Default: "claude-code".
	DefaultAdapter string `yaml:"default_adapter"`

	// ClaudeBinary overrides the claude executable resolved from PATH.
	ClaudeBinary string `yaml:"claude_binary"`

	// ProfilesFile is the path to the JSONC prompt profiles file.
	// Empty means no profiles are available.
	ProfilesFile string `yaml:"profiles_file"`

	// Archive configures session log archival.
	Archive ArchiveConfig `yaml:"archive"`

	// LogLevel sets the slog level (debug, info, warn, error).
	// Default: info.
	LogLevel string `yaml:"log_level"`
}

// ArchiveConfig configures session log archival.
type ArchiveConfig struct {
	// Compression is the archive algorithm ("zstd" or "lz4").
	// Default: zstd.
	Compression string `yaml:"compression"`
}

// Default returns the configuration used when a field is absent from
// the file (or no file is given at all).
func Default() *Config {
	return &Config{
		DataDir:        "${HOME}/.parley/sessions",
		Namespace:      sessionlog.DefaultNamespace,
		DefaultAdapter: "claude-code",
		Archive:        ArchiveConfig{Compression: "zstd"},
		LogLevel:       "info",
	}
}

// Load loads configuration from the PARLEY_CONFIG environment
// variable. When the variable is unset, the defaults are returned —
// the commands are usable with no config file at all.
func Load() (*Config, error) {
	configPath := os.Getenv("PARLEY_CONFIG")
	if configPath == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merged over
// the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}

	cfg.expandVariables()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field values that would otherwise fail much later,
// deep inside a session.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if _, err := sessionlog.ParseCompression(c.Archive.Compression); err != nil {
		return fmt.Errorf("archive.compression: %w", err)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error; got %q", c.LogLevel)
	}
	return nil
}

// Compression returns the configured archive algorithm. Validate has
// already rejected unknown names.
func (c *Config) Compression() sessionlog.Compression {
	compression, err := sessionlog.ParseCompression(c.Archive.Compression)
	if err != nil {
		return sessionlog.CompressionZstd
	}
	return compression
}

// expandVariables expands ${HOME} and ${XDG_DATA_HOME} in path fields.
func (c *Config) expandVariables() {
	c.DataDir = expandPath(c.DataDir)
	c.ProfilesFile = expandPath(c.ProfilesFile)
	c.ClaudeBinary = expandPath(c.ClaudeBinary)
}

func expandPath(path string) string {
	if path == "" {
		return path
	}
	expanded := os.Expand(path, func(name string) string {
		switch name {
		case "HOME", "XDG_DATA_HOME":
			return os.Getenv(name)
		default:
			// Unknown variables are left intact rather than silently
			// emptied.
			return "${" + name + "}"
		}
	})
	if strings.HasPrefix(expanded, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			expanded = filepath.Join(home, expanded[2:])
		}
	}
	return expanded
}
