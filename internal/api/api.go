// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/JaimeStill/mammoguard/internal/config"
	"github.com/JaimeStill/mammoguard/internal/infrastructure"
	"github.com/JaimeStill/mammoguard/pkg/middleware"
	"github.com/JaimeStill/mammoguard/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(runtime, &cfg.Session)
	if err != nil {
		return nil, err
	}
	if err := domain.Sessions.Start(runtime.Lifecycle); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	patterns := registerRoutes(mux, domain, cfg, runtime)
	runtime.Logger.Debug("routes registered", "base_path", cfg.API.BasePath, "routes", patterns)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	return m, nil
}
