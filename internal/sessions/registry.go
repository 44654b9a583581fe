// Package sessions hosts one workflow controller per client session and
// exposes them over HTTP.
package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/mammoguard/internal/predictions"
	"github.com/JaimeStill/mammoguard/internal/previews"
	"github.com/JaimeStill/mammoguard/internal/workflow"
	"github.com/JaimeStill/mammoguard/pkg/lifecycle"
)

// Session pairs a controller with its identity.
type Session struct {
	ID         uuid.UUID
	Created    time.Time
	Controller *workflow.Controller
}

// Registry holds live sessions. When full, the least recently used session
// is closed to make room.
type Registry struct {
	cache       *lru.Cache[uuid.UUID, *Session]
	classifier  predictions.Classifier
	previewSize uint
	base        *slog.Logger
	logger      *slog.Logger
}

// NewRegistry creates a Registry whose sessions share classifier.
func NewRegistry(cfg *Config, classifier predictions.Classifier, logger *slog.Logger) (*Registry, error) {
	r := &Registry{
		classifier:  classifier,
		previewSize: cfg.PreviewSize,
		base:        logger,
		logger:      logger.With("system", "sessions"),
	}

	cache, err := lru.NewWithEvict(cfg.MaxSessions, r.evicted)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	r.cache = cache

	return r, nil
}

// Start registers a shutdown hook that closes every session.
func (r *Registry) Start(lc *lifecycle.Coordinator) error {
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := r.Shutdown(context.Background()); err != nil {
			r.logger.Error("session shutdown failed", "error", err)
		}
	})
	return nil
}

// Create starts a new session.
func (r *Registry) Create() *Session {
	id := uuid.New()
	logger := r.base.With("session", id)

	s := &Session{
		ID:      id,
		Created: time.Now().UTC(),
		Controller: workflow.New(
			r.classifier,
			previews.New(r.previewSize, logger),
			logger,
		),
	}

	r.cache.Add(id, s)
	r.logger.Info("session created", "session", id, "active", r.cache.Len())
	return s
}

// Get returns the session with id.
func (r *Registry) Get(id uuid.UUID) (*Session, error) {
	s, ok := r.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Remove ends the session with id.
func (r *Registry) Remove(id uuid.UUID) error {
	if !r.cache.Remove(id) {
		return ErrNotFound
	}
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Shutdown closes every session concurrently and empties the registry.
func (r *Registry) Shutdown(ctx context.Context) error {
	g, _ := errgroup.WithContext(ctx)
	for _, s := range r.cache.Values() {
		g.Go(s.Controller.Close)
	}
	err := g.Wait()

	r.cache.Purge()
	r.logger.Info("sessions closed")
	return err
}

func (r *Registry) evicted(id uuid.UUID, s *Session) {
	s.Controller.Close()
	r.logger.Info("session ended", "session", id)
}
