package infrastructure_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JaimeStill/mammoguard/internal/config"
	"github.com/JaimeStill/mammoguard/internal/infrastructure"
	"github.com/JaimeStill/mammoguard/pkg/storage"
)

func validConfig(t *testing.T) *config.Config {
	return &config.Config{
		Storage: storage.Config{
			Provider:    storage.ProviderFilesystem,
			Directory:   t.TempDir(),
			MaxListSize: 50,
		},
		Logging: config.LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Version: "0.1.0",
	}
}

func TestNew(t *testing.T) {
	infra, err := infrastructure.New(validConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer infra.Close()

	if infra.Lifecycle == nil {
		t.Error("Lifecycle is nil")
	}
	if infra.Logger == nil {
		t.Error("Logger is nil")
	}
	if infra.Storage == nil {
		t.Error("Storage is nil")
	}
	if err := infra.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := infra.Lifecycle.WaitForStartup(); err != nil {
		t.Fatalf("WaitForStartup() error = %v", err)
	}
}

func TestNewInvalidStorageConfig(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage = storage.Config{
		Provider:         storage.ProviderAzure,
		ContainerName:    "reports",
		ConnectionString: "not-a-connection-string",
	}

	if _, err := infrastructure.New(cfg); err == nil {
		t.Fatal("expected error for invalid storage connection string")
	}
}

func TestNewLoggerRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mammoguard.log")

	logger, sink := infrastructure.NewLogger(&config.LoggingConfig{
		Level:      "debug",
		Format:     "json",
		File:       path,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	})
	if sink == nil {
		t.Fatal("expected a closer for file logging")
	}

	logger.Debug("prediction recorded", "class", "Benign")
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"prediction recorded"`) {
		t.Errorf("log file = %s", data)
	}
}

func TestNewLoggerStderr(t *testing.T) {
	logger, sink := infrastructure.NewLogger(&config.LoggingConfig{Level: "warn", Format: "text"})
	if sink != nil {
		t.Error("stderr logging should not return a closer")
	}
	if logger.Enabled(t.Context(), -4) {
		t.Error("debug should be disabled at warn level")
	}
}
