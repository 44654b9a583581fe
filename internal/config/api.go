package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/JaimeStill/mammoguard/pkg/formatting"
	"github.com/JaimeStill/mammoguard/pkg/middleware"
	"github.com/JaimeStill/mammoguard/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "MAMMOGUARD_CORS_ENABLED",
	Origins:          "MAMMOGUARD_CORS_ORIGINS",
	AllowedMethods:   "MAMMOGUARD_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "MAMMOGUARD_CORS_ALLOWED_HEADERS",
	AllowCredentials: "MAMMOGUARD_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "MAMMOGUARD_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "MAMMOGUARD_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "MAMMOGUARD_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, upload limits, CORS, and pagination settings.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Pagination    pagination.Config     `toml:"pagination"`
}

// MaxUploadSizeBytes returns MaxUploadSize in bytes.
func (c *APIConfig) MaxUploadSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return 20 * 1024 * 1024
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if _, err := formatting.ParseBytes(c.MaxUploadSize); err != nil {
		return fmt.Errorf("max_upload_size: %w", err)
	}
	if !strings.HasPrefix(c.BasePath, "/") || strings.Count(c.BasePath, "/") != 1 {
		return fmt.Errorf("base_path must be a single-level path: %q", c.BasePath)
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "20MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("MAMMOGUARD_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("MAMMOGUARD_API_MAX_UPLOAD_SIZE"); v != "" {
		c.MaxUploadSize = v
	}
}
