package predictions

import (
	"errors"
	"net/http"
)

// Failure reasons carried by a failed Result.
var (
	ErrTransport         = errors.New("classifier transport failure")
	ErrMalformedResponse = errors.New("malformed classifier response")
)

// MapHTTPStatus maps prediction failures to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrTransport) || errors.Is(err, ErrMalformedResponse) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
