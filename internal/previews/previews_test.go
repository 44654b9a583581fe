package previews_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/JaimeStill/mammoguard/internal/previews"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for x := range w {
		img.SetGray(x, x%h, color.Gray{Y: 200})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestCreateGetRevoke(t *testing.T) {
	store := previews.New(0, discardLogger())

	ref := store.Create([]byte("raw"), "image/png")
	if store.Live() != 1 {
		t.Fatalf("live: got %d, want 1", store.Live())
	}

	p, err := store.Get(ref)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(p.Data) != "raw" || p.ContentType != "image/png" {
		t.Errorf("preview: got %q/%s", p.Data, p.ContentType)
	}

	if !store.Revoke(ref) {
		t.Error("first revoke should report true")
	}
	if store.Revoke(ref) {
		t.Error("second revoke should report false")
	}
	if _, err := store.Get(ref); !errors.Is(err, previews.ErrNotFound) {
		t.Errorf("get after revoke: got %v, want ErrNotFound", err)
	}
	if store.Live() != 0 {
		t.Errorf("live: got %d, want 0", store.Live())
	}
}

func TestRefsAreDistinct(t *testing.T) {
	store := previews.New(0, discardLogger())
	a := store.Create([]byte("x"), "")
	b := store.Create([]byte("x"), "")
	if a == b {
		t.Error("refs for identical data must differ")
	}
	if store.RevokeAll() != 2 || store.Live() != 0 {
		t.Error("RevokeAll should release both refs")
	}
}

func TestThumbnail(t *testing.T) {
	store := previews.New(64, discardLogger())

	ref := store.Create(encodePNG(t, 400, 200), "image/png")
	p, err := store.Get(ref)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(p.Data))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if cfg.Width > 64 || cfg.Height > 64 {
		t.Errorf("thumbnail %dx%d exceeds 64", cfg.Width, cfg.Height)
	}
}

func TestSmallAndUndecodableKeptAsIs(t *testing.T) {
	store := previews.New(64, discardLogger())

	small := encodePNG(t, 32, 16)
	p, _ := store.Get(store.Create(small, "image/png"))
	if !bytes.Equal(p.Data, small) {
		t.Error("small image should be kept as-is")
	}

	p, _ = store.Get(store.Create([]byte("not an image"), "application/dicom"))
	if string(p.Data) != "not an image" || p.ContentType != "application/dicom" {
		t.Errorf("undecodable data altered: %q/%s", p.Data, p.ContentType)
	}
}
