package sessions

import (
	"fmt"
	"os"
	"strconv"
)

// Config bounds session resources.
type Config struct {
	MaxSessions int  `toml:"max_sessions"`
	PreviewSize uint `toml:"preview_size"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	MaxSessions string
	PreviewSize string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.MaxSessions != 0 {
		c.MaxSessions = overlay.MaxSessions
	}
	if overlay.PreviewSize != 0 {
		c.PreviewSize = overlay.PreviewSize
	}
}

func (c *Config) loadDefaults() {
	if c.MaxSessions == 0 {
		c.MaxSessions = 64
	}
	if c.PreviewSize == 0 {
		c.PreviewSize = 512
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.MaxSessions != "" {
		if v := os.Getenv(env.MaxSessions); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxSessions = n
			}
		}
	}
	if env.PreviewSize != "" {
		if v := os.Getenv(env.PreviewSize); v != "" {
			if n, err := strconv.ParseUint(v, 10, 32); err == nil {
				c.PreviewSize = uint(n)
			}
		}
	}
}

func (c *Config) validate() error {
	if c.MaxSessions < 1 {
		return fmt.Errorf("max_sessions must be positive")
	}
	return nil
}
