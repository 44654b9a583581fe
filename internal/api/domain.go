package api

import (
	"fmt"

	"github.com/JaimeStill/mammoguard/internal/reports"
	"github.com/JaimeStill/mammoguard/internal/sessions"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Sessions *sessions.Registry
	Reports  *reports.Generator
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime, cfg *sessions.Config) (*Domain, error) {
	registry, err := sessions.NewRegistry(cfg, runtime.Classifier, runtime.Logger)
	if err != nil {
		return nil, fmt.Errorf("sessions: %w", err)
	}

	return &Domain{
		Sessions: registry,
		Reports:  reports.NewGenerator(runtime.Storage, runtime.Logger),
	}, nil
}
