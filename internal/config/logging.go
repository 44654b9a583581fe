package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	EnvLoggingLevel      = "MAMMOGUARD_LOG_LEVEL"
	EnvLoggingFormat     = "MAMMOGUARD_LOG_FORMAT"
	EnvLoggingFile       = "MAMMOGUARD_LOG_FILE"
	EnvLoggingMaxSizeMB  = "MAMMOGUARD_LOG_MAX_SIZE_MB"
	EnvLoggingMaxBackups = "MAMMOGUARD_LOG_MAX_BACKUPS"
	EnvLoggingMaxAgeDays = "MAMMOGUARD_LOG_MAX_AGE_DAYS"
)

// LoggingConfig selects the log level and format. When File is set, logs are
// written to a rotated file instead of stderr.
type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// SlogLevel returns Level as a slog.Level.
func (c *LoggingConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *LoggingConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *LoggingConfig) Merge(overlay *LoggingConfig) {
	if overlay.Level != "" {
		c.Level = overlay.Level
	}
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
	if overlay.File != "" {
		c.File = overlay.File
	}
	if overlay.MaxSizeMB != 0 {
		c.MaxSizeMB = overlay.MaxSizeMB
	}
	if overlay.MaxBackups != 0 {
		c.MaxBackups = overlay.MaxBackups
	}
	if overlay.MaxAgeDays != 0 {
		c.MaxAgeDays = overlay.MaxAgeDays
	}
}

func (c *LoggingConfig) loadDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 100
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 3
	}
	if c.MaxAgeDays == 0 {
		c.MaxAgeDays = 28
	}
}

func (c *LoggingConfig) loadEnv() {
	if v := os.Getenv(EnvLoggingLevel); v != "" {
		c.Level = v
	}
	if v := os.Getenv(EnvLoggingFormat); v != "" {
		c.Format = v
	}
	if v := os.Getenv(EnvLoggingFile); v != "" {
		c.File = v
	}
	if v := os.Getenv(EnvLoggingMaxSizeMB); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxSizeMB = n
		}
	}
	if v := os.Getenv(EnvLoggingMaxBackups); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxBackups = n
		}
	}
	if v := os.Getenv(EnvLoggingMaxAgeDays); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAgeDays = n
		}
	}
}

func (c *LoggingConfig) validate() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return fmt.Errorf("invalid level %q", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid format %q: must be text or json", c.Format)
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("rotation limits must not be negative")
	}
	return nil
}
