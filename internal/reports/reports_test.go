package reports_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/JaimeStill/mammoguard/internal/history"
	"github.com/JaimeStill/mammoguard/internal/predictions"
	"github.com/JaimeStill/mammoguard/internal/reports"
	"github.com/JaimeStill/mammoguard/pkg/lifecycle"
	"github.com/JaimeStill/mammoguard/pkg/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var completed = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func sample() history.Submission {
	return history.Submission{
		FileName:   "mammo1.png",
		Class:      predictions.Malignant,
		Confidence: 0.93,
		Timestamp:  completed,
	}
}

func newStore(t *testing.T) storage.System {
	t.Helper()
	store, err := storage.New(&storage.Config{
		Provider:  storage.ProviderFilesystem,
		Directory: t.TempDir(),
	}, discardLogger())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	if err := store.Start(lifecycle.New()); err != nil {
		t.Fatalf("storage start: %v", err)
	}
	return store
}

func TestCompose(t *testing.T) {
	doc := reports.Compose(sample())

	want := []string{
		"MammoGuard Diagnosis Report",
		"Generated: 3/14/2026, 3:09:26 PM",
		"",
		"File: mammo1.png",
		"Prediction: Malignant",
		"Confidence: 93.00%",
		"Diagnosis: Signs of breast cancer detected",
	}

	lines := doc.Lines()
	if len(lines) != len(want) {
		t.Fatalf("lines: got %d, want %d", len(lines), len(want))
	}
	for i, w := range want {
		if i == 2 {
			if strings.Trim(lines[i], "-") != "" || lines[i] == "" {
				t.Errorf("separator: got %q", lines[i])
			}
			continue
		}
		if lines[i] != w {
			t.Errorf("line %d: got %q, want %q", i, lines[i], w)
		}
	}
}

func TestComposeMissingFileName(t *testing.T) {
	s := sample()
	s.FileName = ""

	if got := reports.Compose(s).File; got != "N/A" {
		t.Errorf("file: got %q, want N/A", got)
	}
}

func TestDiagnosis(t *testing.T) {
	tests := []struct {
		class predictions.Class
		want  string
	}{
		{predictions.Malignant, "Signs of breast cancer detected"},
		{predictions.Benign, "Benign mass found. Monitor if needed."},
		{predictions.Normal, "Breast tissue appears normal"},
		{predictions.Class("Unknown"), "Breast tissue appears normal"},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			if got := reports.Diagnosis(tt.class); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.93, "93.00%"},
		{1, "100.00%"},
		{0, "0.00%"},
		{0.12345, "12.35%"},
		{0.5, "50.00%"},
	}

	for _, tt := range tests {
		if got := reports.FormatConfidence(tt.in); got != tt.want {
			t.Errorf("FormatConfidence(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestComposeDeterministic(t *testing.T) {
	s := sample()
	if reports.Compose(s) != reports.Compose(s) {
		t.Error("composing the same submission twice should match")
	}
}

func TestEncodeSinglePage(t *testing.T) {
	data, err := reports.Encode(reports.Compose(sample()))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("not a PDF: %q", data[:min(8, len(data))])
	}

	pages, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	if pages != 1 {
		t.Errorf("pages: got %d, want 1", pages)
	}
}

func TestRenderUniqueNames(t *testing.T) {
	store := newStore(t)
	fixed := time.UnixMilli(1_700_000_000_000)
	gen := reports.NewGenerator(store, discardLogger()).WithClock(func() time.Time { return fixed })

	s := sample()
	first, err := gen.Render(context.Background(), s)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	second, err := gen.Render(context.Background(), s)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if first.Name != "mammo_guard_report_1700000000000.pdf" {
		t.Errorf("first name: got %s", first.Name)
	}
	if first.Name == second.Name {
		t.Errorf("names collide: %s", first.Name)
	}
	if first.Document != second.Document {
		t.Error("documents for the same submission differ")
	}
	if s != sample() {
		t.Error("submission mutated by render")
	}

	for _, name := range []string{first.Name, second.Name} {
		ok, err := store.Exists(context.Background(), name)
		if err != nil || !ok {
			t.Errorf("export %s not saved: %v", name, err)
		}
	}
}

func TestRenderSkipsExistingNames(t *testing.T) {
	store := newStore(t)
	fixed := time.UnixMilli(42)
	store.Upload(context.Background(), "mammo_guard_report_42.pdf", strings.NewReader("old"), reports.ContentType)

	gen := reports.NewGenerator(store, discardLogger()).WithClock(func() time.Time { return fixed })
	exp, err := gen.Render(context.Background(), sample())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if exp.Name != "mammo_guard_report_43.pdf" {
		t.Errorf("name: got %s, want mammo_guard_report_43.pdf", exp.Name)
	}
}

func TestRenderConcurrent(t *testing.T) {
	gen := reports.NewGenerator(newStore(t), discardLogger())

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		names = map[string]bool{}
	)
	for range 8 {
		wg.Go(func() {
			exp, err := gen.Render(context.Background(), sample())
			if err != nil {
				t.Errorf("render: %v", err)
				return
			}
			mu.Lock()
			names[exp.Name] = true
			mu.Unlock()
		})
	}
	wg.Wait()

	if len(names) != 8 {
		t.Errorf("unique names: got %d, want 8", len(names))
	}
}
