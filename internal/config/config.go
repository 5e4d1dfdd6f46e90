// Package config loads sticky's YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/FengZhongShaoNian/sticky/internal/geometry"
	"github.com/FengZhongShaoNian/sticky/internal/logging"
)

const appDirName = "sticky"

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level controls verbosity: debug, info, warn, error
	Level string `yaml:"level,omitempty"`
	// File is the log file path; empty logs to stderr
	File      string `yaml:"file,omitempty"`
	MaxSizeMB int    `yaml:"max_size_mb,omitempty"`
	MaxFiles  int    `yaml:"max_files,omitempty"`
}

// Config is the effective configuration.
type Config struct {
	// ScaleFactor overrides the display scale factor when non-empty.
	// STICKY_SCALE_FACTOR takes precedence over it.
	ScaleFactor string `yaml:"scale_factor,omitempty"`
	// SaveDir is where Ctrl+S writes pinned images.
	SaveDir       string        `yaml:"save_dir"`
	Notifications bool          `yaml:"notifications"`
	Display       string        `yaml:"display,omitempty"`
	XAuthority    string        `yaml:"xauthority,omitempty"`
	Logging       LoggingConfig `yaml:"logging,omitempty"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	saveDir := xdg.UserDirs.Pictures
	if saveDir == "" {
		saveDir = filepath.Join(xdg.Home, "Pictures")
	}
	return &Config{
		SaveDir:       saveDir,
		Notifications: true,
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultConfigPath is $XDG_CONFIG_HOME/sticky/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appDirName, "config.yaml")
}

// ScaleSource combines the environment override with scale_factor.
func (c *Config) ScaleSource() geometry.ScaleSource {
	if c == nil {
		return geometry.NewScaleSource("")
	}
	return geometry.NewScaleSource(c.ScaleFactor)
}

// GetLoggingConfig returns the logging configuration with defaults applied.
func (c *Config) GetLoggingConfig() logging.Config {
	if c == nil {
		return logging.Config{Level: "info"}
	}
	cfg := logging.Config{
		Level:     c.Logging.Level,
		File:      expandHome(c.Logging.File),
		MaxSizeMB: c.Logging.MaxSizeMB,
		MaxFiles:  c.Logging.MaxFiles,
	}
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	return cfg
}

// ResolvedSaveDir returns SaveDir with ~ expanded.
func (c *Config) ResolvedSaveDir() string {
	return expandHome(c.SaveDir)
}

// Validate checks field values.
func (c *Config) Validate() error {
	if c.ScaleFactor != "" {
		if _, err := geometry.ParseScaleFactor(c.ScaleFactor); err != nil {
			return &ValidationError{Path: "scale_factor", Err: err}
		}
	}
	if strings.TrimSpace(c.SaveDir) == "" {
		return &ValidationError{Path: "save_dir", Err: fmt.Errorf("must not be empty")}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "logging.level", Err: fmt.Errorf("unknown level %q", c.Logging.Level)}
	}
	if c.Logging.MaxSizeMB < 0 {
		return &ValidationError{Path: "logging.max_size_mb", Err: fmt.Errorf("must not be negative")}
	}
	if c.Logging.MaxFiles < 0 {
		return &ValidationError{Path: "logging.max_files", Err: fmt.Errorf("must not be negative")}
	}
	return nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func expandHome(p string) string {
	if p == "~" {
		return xdg.Home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(xdg.Home, p[2:])
	}
	return p
}
