package reports

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JaimeStill/mammoguard/internal/history"
	"github.com/JaimeStill/mammoguard/pkg/storage"
)

const (
	ContentType = "application/pdf"
	namePattern = "mammo_guard_report_%d.pdf"
)

// Export is one saved report.
type Export struct {
	Name     string   `json:"name"`
	Document Document `json:"document"`
	Data     []byte   `json:"-"`
}

// Generator renders reports and saves each one under a unique name.
type Generator struct {
	store  storage.System
	now    func() time.Time
	logger *slog.Logger

	mu   sync.Mutex
	last int64
}

// NewGenerator creates a Generator that saves exports to store.
func NewGenerator(store storage.System, logger *slog.Logger) *Generator {
	return &Generator{
		store:  store,
		now:    time.Now,
		logger: logger.With("system", "reports"),
	}
}

// WithClock replaces the clock used to derive export names.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Render composes and encodes s, then saves it. The submission is read by
// value and never modified.
func (g *Generator) Render(ctx context.Context, s history.Submission) (*Export, error) {
	doc := Compose(s)

	data, err := Encode(doc)
	if err != nil {
		return nil, err
	}

	name, err := g.nextName(ctx)
	if err != nil {
		return nil, err
	}

	if err := g.store.Upload(ctx, name, bytes.NewReader(data), ContentType); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	g.logger.InfoContext(ctx, "report exported",
		"name", name,
		"file", doc.File,
		"prediction", doc.Prediction,
	)

	return &Export{Name: name, Document: doc, Data: data}, nil
}

// nextName returns a name derived from the current time in milliseconds,
// strictly greater than any name this Generator issued before and not
// already present in the store.
func (g *Generator) nextName(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	stamp := max(g.now().UnixMilli(), g.last+1)
	for {
		name := fmt.Sprintf(namePattern, stamp)
		exists, err := g.store.Exists(ctx, name)
		if err != nil {
			return "", fmt.Errorf("check export name: %w", err)
		}
		if !exists {
			g.last = stamp
			return name, nil
		}
		stamp++
	}
}
