package sessions

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/mammoguard/internal/history"
	"github.com/JaimeStill/mammoguard/internal/previews"
	"github.com/JaimeStill/mammoguard/internal/workflow"
)

// Domain errors for session operations.
var (
	ErrNotFound     = errors.New("session not found")
	ErrInvalidID    = errors.New("invalid session id")
	ErrInvalidFile  = errors.New("invalid file")
	ErrFileTooLarge = errors.New("file exceeds maximum upload size")
	ErrInvalidIndex = errors.New("invalid history index")
)

// MapHTTPStatus maps session, workflow, history, and preview errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, previews.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrInvalidFile), errors.Is(err, ErrInvalidIndex):
		return http.StatusBadRequest
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, history.ErrIndexOutOfRange):
		return history.MapHTTPStatus(err)
	}
	return workflow.MapHTTPStatus(err)
}
