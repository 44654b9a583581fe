// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, export storage) that domain systems require.
package infrastructure

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/JaimeStill/mammoguard/internal/config"
	"github.com/JaimeStill/mammoguard/pkg/lifecycle"
	"github.com/JaimeStill/mammoguard/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, and report storage.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Storage   storage.System

	logSink io.Closer
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger, sink := NewLogger(&cfg.Logging)

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		if sink != nil {
			sink.Close()
		}
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Storage:   store,
		logSink:   sink,
	}, nil
}

// NewLogger builds the service logger. When cfg.File is set the returned
// closer owns the rotated log file; otherwise it is nil and logs go to stderr.
func NewLogger(cfg *config.LoggingConfig) (*slog.Logger, io.Closer) {
	var (
		out  io.Writer = os.Stderr
		sink io.Closer
	)

	if cfg.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out, sink = rotated, rotated
	}

	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler), sink
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// The log file, when configured, is closed after every other shutdown hook.
func (i *Infrastructure) Start() error {
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	return nil
}

// Close releases the log file. It is called once the lifecycle has shut down.
func (i *Infrastructure) Close() error {
	if i.logSink == nil {
		return nil
	}
	return i.logSink.Close()
}
