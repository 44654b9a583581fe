package storage

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

var (
	// ErrNotFound indicates the requested blob does not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrEmptyKey indicates an empty storage key was provided.
	ErrEmptyKey = errors.New("storage key must not be empty")
	// ErrInvalidKey indicates the storage key contains a path traversal segment.
	ErrInvalidKey = errors.New("storage key contains invalid path segment")
	// ErrInvalidListSize indicates a max_results value outside the allowed range.
	ErrInvalidListSize = errors.New("invalid max_results")
)

// MapHTTPStatus maps storage errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrEmptyKey) || errors.Is(err, ErrInvalidKey) || errors.Is(err, ErrInvalidListSize) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ParseMaxResults parses a max_results query value, falling back to def when
// empty. Values above MaxListCap are clamped.
func ParseMaxResults(s string, def int32) (int32, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidListSize, s)
	}
	return int32(min(n, int(MaxListCap))), nil
}
