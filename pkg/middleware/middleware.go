package middleware

import (
	"net/http"
	"slices"
)

// Func wraps an http.Handler with cross-cutting behavior.
type Func func(http.Handler) http.Handler

// System manages an ordered stack of HTTP middleware. The first Func added
// is the outermost wrapper.
type System interface {
	Use(mw Func)
	Apply(handler http.Handler) http.Handler
}

type stack []Func

// New creates a middleware System seeded with mws in order.
func New(mws ...Func) System {
	s := make(stack, 0, len(mws))
	s = append(s, mws...)
	return &s
}

func (s *stack) Use(mw Func) {
	if mw != nil {
		*s = append(*s, mw)
	}
}

func (s *stack) Apply(handler http.Handler) http.Handler {
	for _, mw := range slices.Backward(*s) {
		handler = mw(handler)
	}
	return handler
}
