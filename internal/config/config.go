package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/mammoguard/internal/predictions"
	"github.com/JaimeStill/mammoguard/internal/sessions"
	"github.com/JaimeStill/mammoguard/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvMammoGuardEnv             = "MAMMOGUARD_ENV"
	EnvMammoGuardShutdownTimeout = "MAMMOGUARD_SHUTDOWN_TIMEOUT"
	EnvMammoGuardVersion         = "MAMMOGUARD_VERSION"
)

var classifierEnv = &predictions.Env{
	Endpoint:  "MAMMOGUARD_CLASSIFIER_ENDPOINT",
	FieldName: "MAMMOGUARD_CLASSIFIER_FIELD_NAME",
	Timeout:   "MAMMOGUARD_CLASSIFIER_TIMEOUT",
}

var sessionEnv = &sessions.Env{
	MaxSessions: "MAMMOGUARD_SESSION_MAX_SESSIONS",
	PreviewSize: "MAMMOGUARD_SESSION_PREVIEW_SIZE",
}

var storageEnv = &storage.Env{
	Provider:         "MAMMOGUARD_STORAGE_PROVIDER",
	Directory:        "MAMMOGUARD_STORAGE_DIRECTORY",
	ContainerName:    "MAMMOGUARD_STORAGE_CONTAINER_NAME",
	ConnectionString: "MAMMOGUARD_STORAGE_CONNECTION_STRING",
	ServiceURL:       "MAMMOGUARD_STORAGE_SERVICE_URL",
	MaxListSize:      "MAMMOGUARD_STORAGE_MAX_LIST_SIZE",
}

// Config is the root configuration for the MammoGuard service.
type Config struct {
	Server          ServerConfig       `toml:"server"`
	API             APIConfig          `toml:"api"`
	Classifier      predictions.Config `toml:"classifier"`
	Session         sessions.Config    `toml:"session"`
	Storage         storage.Config     `toml:"storage"`
	Logging         LoggingConfig      `toml:"logging"`
	ShutdownTimeout string             `toml:"shutdown_timeout"`
	Version         string             `toml:"version"`
}

// Env returns the MAMMOGUARD_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvMammoGuardEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.API.Merge(&overlay.API)
	c.Classifier.Merge(&overlay.Classifier)
	c.Session.Merge(&overlay.Session)
	c.Storage.Merge(&overlay.Storage)
	c.Logging.Merge(&overlay.Logging)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Classifier.Finalize(classifierEnv); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	if err := c.Session.Finalize(sessionEnv); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Logging.Finalize(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvMammoGuardShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvMammoGuardVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvMammoGuardEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
