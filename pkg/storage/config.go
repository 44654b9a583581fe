package storage

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

// Storage providers.
const (
	ProviderFilesystem = "filesystem"
	ProviderAzure      = "azure"
)

// MaxListCap is the upper bound on blobs returned by one List call.
const MaxListCap int32 = 5000

// Config selects a storage provider and holds its connection parameters.
// The azure provider authenticates with ConnectionString when set and
// otherwise with the default Azure credential chain against ServiceURL.
type Config struct {
	Provider         string `toml:"provider"`
	Directory        string `toml:"directory"`
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
	ServiceURL       string `toml:"service_url"`
	MaxListSize      int32  `toml:"max_list_size"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Provider         string
	Directory        string
	ContainerName    string
	ConnectionString string
	ServiceURL       string
	MaxListSize      string
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
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.Directory != "" {
		c.Directory = overlay.Directory
	}
	if overlay.ContainerName != "" {
		c.ContainerName = overlay.ContainerName
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.ServiceURL != "" {
		c.ServiceURL = overlay.ServiceURL
	}
	if overlay.MaxListSize != 0 {
		c.MaxListSize = overlay.MaxListSize
	}
}

func (c *Config) loadDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderFilesystem
	}
	if c.Directory == "" {
		c.Directory = "exports"
	}
	if c.ContainerName == "" {
		c.ContainerName = "reports"
	}
	if c.MaxListSize <= 0 {
		c.MaxListSize = 50
	}
	if c.MaxListSize > MaxListCap {
		c.MaxListSize = MaxListCap
	}
}

func (c *Config) loadEnv(env *Env) {
	set := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	set(env.Provider, &c.Provider)
	set(env.Directory, &c.Directory)
	set(env.ContainerName, &c.ContainerName)
	set(env.ConnectionString, &c.ConnectionString)
	set(env.ServiceURL, &c.ServiceURL)

	if env.MaxListSize != "" {
		if v := os.Getenv(env.MaxListSize); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.MaxListSize = min(int32(n), MaxListCap)
			}
		}
	}
}

func (c *Config) validate() error {
	switch c.Provider {
	case ProviderFilesystem:
		if c.Directory == "" {
			return fmt.Errorf("directory required")
		}
	case ProviderAzure:
		if c.ContainerName == "" {
			return fmt.Errorf("container_name required")
		}
		if c.ConnectionString == "" && c.ServiceURL == "" {
			return fmt.Errorf("connection_string or service_url required")
		}
		if c.ConnectionString == "" {
			if u, err := url.Parse(c.ServiceURL); err != nil || u.Host == "" {
				return fmt.Errorf("invalid service_url: %q", c.ServiceURL)
			}
		}
	default:
		return fmt.Errorf("unknown provider: %q", c.Provider)
	}
	return nil
}
