package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/mammoguard/internal/api"
	"github.com/JaimeStill/mammoguard/internal/config"
	"github.com/JaimeStill/mammoguard/internal/history"
	"github.com/JaimeStill/mammoguard/internal/infrastructure"
	"github.com/JaimeStill/mammoguard/internal/predictions"
	"github.com/JaimeStill/mammoguard/internal/reports"
	"github.com/JaimeStill/mammoguard/pkg/module"
)

func setup(t *testing.T) (*config.Config, *infrastructure.Infrastructure) {
	t.Helper()
	t.Chdir(t.TempDir())

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	if err := infra.Start(); err != nil {
		t.Fatalf("infra.Start() error = %v", err)
	}
	if err := infra.Lifecycle.WaitForStartup(); err != nil {
		t.Fatalf("WaitForStartup() error = %v", err)
	}
	t.Cleanup(func() { infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration()) })

	return cfg, infra
}

func serve(m *module.Module, method, path string) *httptest.ResponseRecorder {
	router := module.NewRouter()
	router.Mount(m)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestNewRuntime(t *testing.T) {
	cfg, infra := setup(t)

	runtime := api.NewRuntime(cfg, infra)

	if runtime.Pagination.DefaultPageSize != cfg.API.Pagination.DefaultPageSize {
		t.Errorf("pagination: got %d, want %d", runtime.Pagination.DefaultPageSize, cfg.API.Pagination.DefaultPageSize)
	}
	if runtime.Classifier == nil {
		t.Error("runtime classifier is nil")
	}
	if runtime.Logger == nil || runtime.Storage == nil || runtime.Lifecycle == nil {
		t.Error("runtime infrastructure incomplete")
	}
}

func TestNewModuleRoutes(t *testing.T) {
	cfg, infra := setup(t)

	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}
	if m.Prefix() != "/api" {
		t.Errorf("prefix: got %s, want /api", m.Prefix())
	}

	rec := serve(m, "POST", "/api/sessions")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: got %d, want 201", rec.Code)
	}

	rec = serve(m, "GET", "/api/exports")
	if rec.Code != http.StatusOK {
		t.Fatalf("list exports: got %d, want 200", rec.Code)
	}
	var listing []json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode exports: %v", err)
	}
	if len(listing) != 0 {
		t.Errorf("exports: got %d, want 0", len(listing))
	}

	rec = serve(m, "GET", "/api/exports/download/missing.pdf")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing export: got %d, want 404", rec.Code)
	}
}

func TestExportsListAndDownload(t *testing.T) {
	cfg, infra := setup(t)

	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	gen := reports.NewGenerator(infra.Storage, infra.Logger)
	exp, err := gen.Render(t.Context(), history.Submission{
		FileName:   "mammo1.png",
		Class:      predictions.Normal,
		Confidence: 0.99,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	rec := serve(m, "GET", "/api/exports")
	var listing []struct {
		Key         string `json:"key"`
		DisplaySize string `json:"display_size"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listing) != 1 || listing[0].Key != exp.Name || listing[0].DisplaySize == "" {
		t.Fatalf("listing = %+v", listing)
	}

	rec = serve(m, "GET", "/api/exports/download/"+exp.Name)
	if rec.Code != http.StatusOK {
		t.Fatalf("download: got %d", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), exp.Data) {
		t.Error("downloaded bytes differ from export")
	}
	if got := rec.Header().Get("Content-Type"); got != reports.ContentType {
		t.Errorf("Content-Type = %q", got)
	}
}
