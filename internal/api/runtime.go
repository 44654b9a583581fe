package api

import (
	"github.com/JaimeStill/mammoguard/internal/config"
	"github.com/JaimeStill/mammoguard/internal/infrastructure"
	"github.com/JaimeStill/mammoguard/internal/predictions"
	"github.com/JaimeStill/mammoguard/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration and the
// shared classifier client.
type Runtime struct {
	*infrastructure.Infrastructure
	Classifier predictions.Classifier
	Pagination pagination.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	logger := infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    logger,
			Storage:   infra.Storage,
		},
		Classifier: predictions.NewClient(&cfg.Classifier, logger),
		Pagination: cfg.API.Pagination,
	}
}
