package sessions_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/mammoguard/internal/predictions"
	"github.com/JaimeStill/mammoguard/internal/sessions"
	"github.com/JaimeStill/mammoguard/pkg/lifecycle"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type classifierFunc func(context.Context, predictions.Image) predictions.Result

func (f classifierFunc) Classify(ctx context.Context, img predictions.Image) predictions.Result {
	return f(ctx, img)
}

func benign() predictions.Classifier {
	return classifierFunc(func(context.Context, predictions.Image) predictions.Result {
		return predictions.Success(predictions.Benign, 0.87)
	})
}

func newRegistry(t *testing.T, max int) *sessions.Registry {
	t.Helper()
	cfg := &sessions.Config{MaxSessions: max}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("config: %v", err)
	}
	reg, err := sessions.NewRegistry(cfg, benign(), discardLogger())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func closedWithin(ch <-chan struct{}, d time.Duration) bool {
	select {
	case <-ch:
		return true
	case <-time.After(d):
		return false
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := &sessions.Config{}
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		if cfg.MaxSessions != 64 || cfg.PreviewSize != 512 {
			t.Errorf("got %+v", cfg)
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("TEST_MAX_SESSIONS", "3")
		t.Setenv("TEST_PREVIEW_SIZE", "128")

		cfg := &sessions.Config{}
		err := cfg.Finalize(&sessions.Env{
			MaxSessions: "TEST_MAX_SESSIONS",
			PreviewSize: "TEST_PREVIEW_SIZE",
		})
		if err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		if cfg.MaxSessions != 3 || cfg.PreviewSize != 128 {
			t.Errorf("got %+v", cfg)
		}
	})

	t.Run("negative max rejected", func(t *testing.T) {
		cfg := &sessions.Config{MaxSessions: -1}
		if err := cfg.Finalize(nil); err == nil {
			t.Error("expected error")
		}
	})
}

func TestRegistryCreateGetRemove(t *testing.T) {
	reg := newRegistry(t, 4)

	s := reg.Create()
	got, err := reg.Get(s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != s {
		t.Error("Get returned a different session")
	}
	if reg.Len() != 1 {
		t.Errorf("Len = %d, want 1", reg.Len())
	}

	if err := reg.Remove(s.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !closedWithin(s.Controller.Done(), time.Second) {
		t.Error("removed session controller still running")
	}
	if _, err := reg.Get(s.ID); !errors.Is(err, sessions.ErrNotFound) {
		t.Errorf("Get after remove: %v, want ErrNotFound", err)
	}
	if err := reg.Remove(s.ID); !errors.Is(err, sessions.ErrNotFound) {
		t.Errorf("second Remove: %v, want ErrNotFound", err)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	reg := newRegistry(t, 4)
	if _, err := reg.Get(uuid.New()); !errors.Is(err, sessions.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestRegistryEvictsLeastRecentlyUsed(t *testing.T) {
	reg := newRegistry(t, 2)

	first := reg.Create()
	second := reg.Create()

	if _, err := reg.Get(first.ID); err != nil {
		t.Fatalf("Get: %v", err)
	}

	third := reg.Create()

	if !closedWithin(second.Controller.Done(), time.Second) {
		t.Fatal("evicted session controller still running")
	}
	if _, err := reg.Get(second.ID); !errors.Is(err, sessions.ErrNotFound) {
		t.Errorf("evicted session still reachable: %v", err)
	}
	for _, s := range []*sessions.Session{first, third} {
		if _, err := reg.Get(s.ID); err != nil {
			t.Errorf("session %s missing: %v", s.ID, err)
		}
	}
}

func TestRegistryShutdownClosesAll(t *testing.T) {
	reg := newRegistry(t, 8)
	lc := lifecycle.New()
	if err := reg.Start(lc); err != nil {
		t.Fatalf("Start: %v", err)
	}

	created := []*sessions.Session{reg.Create(), reg.Create(), reg.Create()}

	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	for _, s := range created {
		if !closedWithin(s.Controller.Done(), time.Second) {
			t.Errorf("session %s still running", s.ID)
		}
	}
	if reg.Len() != 0 {
		t.Errorf("Len = %d after shutdown", reg.Len())
	}
}
