package api

import (
	"net/http"

	"github.com/JaimeStill/mammoguard/internal/config"
	"github.com/JaimeStill/mammoguard/internal/sessions"
	"github.com/JaimeStill/mammoguard/pkg/middleware"
	"github.com/JaimeStill/mammoguard/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) []string {
	sessionsHandler := sessions.NewHandler(
		domain.Sessions,
		domain.Reports,
		runtime.Logger,
		runtime.Pagination,
		cfg.API.MaxUploadSizeBytes(),
		middleware.OriginChecker(&cfg.API.CORS),
	)

	exports := newExportsHandler(
		runtime.Storage,
		runtime.Logger,
		cfg.Storage.MaxListSize,
	)

	return routes.Register(
		mux,
		sessionsHandler.Routes(),
		exports.routes(),
	)
}
