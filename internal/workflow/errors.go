package workflow

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/mammoguard/internal/predictions"
)

var (
	ErrNoFileSelected = errors.New("please select an image first")
	ErrNoResult       = errors.New("no successful prediction to report")
	ErrClosed         = errors.New("session closed")
)

// MapHTTPStatus maps workflow errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNoFileSelected):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoResult):
		return http.StatusConflict
	case errors.Is(err, ErrClosed):
		return http.StatusGone
	}
	return predictions.MapHTTPStatus(err)
}
