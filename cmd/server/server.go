package main

import (
	"errors"
	"time"

	"github.com/JaimeStill/mammoguard/internal/config"
	"github.com/JaimeStill/mammoguard/internal/infrastructure"
)

// Server wires infrastructure, modules, and the HTTP listener.
type Server struct {
	infra   *infrastructure.Infrastructure
	modules *Modules
	http    *httpServer
}

// NewServer builds the service from cfg without starting it.
func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, errors.Join(err, infra.Close())
	}

	router := buildRouter(infra)
	if err := modules.Mount(router); err != nil {
		return nil, errors.Join(err, infra.Close())
	}

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"env", cfg.Env(),
		"classifier", cfg.Classifier.Endpoint,
		"storage", cfg.Storage.Provider,
	)

	return &Server{
		infra:   infra,
		modules: modules,
		http:    newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Start launches the storage startup hooks and the listener.
func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		if err := s.infra.Lifecycle.WaitForStartup(); err != nil {
			s.infra.Logger.Error("startup failed", "error", err)
			return
		}
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

// Shutdown stops the listener and closes every session before releasing the
// log file.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	err := s.infra.Lifecycle.Shutdown(timeout)
	s.infra.Logger.Info("mammoguard stopped")
	return errors.Join(err, s.infra.Close())
}
