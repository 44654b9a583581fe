// Package previews issues revocable display handles bound to image bytes.
package previews

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

// ErrNotFound indicates the preview was never issued or has been revoked.
var ErrNotFound = errors.New("preview not found")

// Ref is an opaque handle to a live preview.
type Ref string

// Preview is the displayable content behind a Ref.
type Preview struct {
	ContentType string
	Data        []byte
}

// Store owns the previews for a single session. Each Ref must be released
// exactly once through Revoke or RevokeAll.
type Store struct {
	mu      sync.RWMutex
	live    map[Ref]Preview
	maxSize uint
	logger  *slog.Logger
}

// New creates a Store that bounds decodable images to maxSize pixels on
// their longest side. A maxSize of zero keeps images at full size.
func New(maxSize uint, logger *slog.Logger) *Store {
	return &Store{
		live:    make(map[Ref]Preview),
		maxSize: maxSize,
		logger:  logger.With("system", "previews"),
	}
}

// Create issues a new Ref for data.
func (s *Store) Create(data []byte, contentType string) Ref {
	p := s.render(data, contentType)
	ref := Ref(uuid.NewString())

	s.mu.Lock()
	s.live[ref] = p
	s.mu.Unlock()

	s.logger.Debug("preview created", "ref", ref, "bytes", len(p.Data))
	return ref
}

// Get returns the preview for ref.
func (s *Store) Get(ref Ref) (Preview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.live[ref]
	if !ok {
		return Preview{}, ErrNotFound
	}
	return p, nil
}

// Revoke releases ref and reports whether it was live.
func (s *Store) Revoke(ref Ref) bool {
	if ref == "" {
		return false
	}

	s.mu.Lock()
	_, ok := s.live[ref]
	delete(s.live, ref)
	s.mu.Unlock()

	if ok {
		s.logger.Debug("preview revoked", "ref", ref)
	}
	return ok
}

// RevokeAll releases every live preview and returns how many were released.
func (s *Store) RevokeAll() int {
	s.mu.Lock()
	n := len(s.live)
	clear(s.live)
	s.mu.Unlock()
	return n
}

// Live returns the number of outstanding previews.
func (s *Store) Live() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.live)
}

func (s *Store) render(data []byte, contentType string) Preview {
	raw := Preview{ContentType: contentType, Data: data}
	if raw.ContentType == "" {
		raw.ContentType = "application/octet-stream"
	}
	if s.maxSize == 0 {
		return raw
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return raw
	}

	b := img.Bounds()
	if uint(b.Dx()) <= s.maxSize && uint(b.Dy()) <= s.maxSize {
		return raw
	}

	thumb := resize.Thumbnail(s.maxSize, s.maxSize, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		s.logger.Warn("preview encode failed", "error", err)
		return raw
	}

	return Preview{ContentType: "image/png", Data: buf.Bytes()}
}
