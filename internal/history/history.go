// Package history records the successful submissions of a session.
package history

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/JaimeStill/mammoguard/internal/predictions"
	"github.com/JaimeStill/mammoguard/internal/previews"
	"github.com/JaimeStill/mammoguard/pkg/pagination"
)

// ErrIndexOutOfRange indicates a history index with no entry.
var ErrIndexOutOfRange = errors.New("history index out of range")

// MapHTTPStatus maps history errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrIndexOutOfRange) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Submission is the immutable record of one successful prediction.
// An empty FileName means the filename was absent.
type Submission struct {
	FileName   string            `json:"file_name,omitempty"`
	Class      predictions.Class `json:"prediction"`
	Confidence float64           `json:"confidence"`
	Preview    previews.Ref      `json:"preview,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Ledger is an append-only sequence of Submissions read most recent first.
type Ledger struct {
	mu      sync.RWMutex
	entries []Submission
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append places s at the front of the ledger.
func (l *Ledger) Append(s Submission) {
	l.mu.Lock()
	l.entries = append(l.entries, s)
	l.mu.Unlock()
}

// All returns a most-recent-first copy of the ledger.
func (l *Ledger) All() []Submission {
	l.mu.RLock()
	out := slices.Clone(l.entries)
	l.mu.RUnlock()

	slices.Reverse(out)
	if out == nil {
		out = []Submission{}
	}
	return out
}

// Len returns the number of submissions.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// At returns the submission at index i, where 0 is the most recent.
func (l *Ledger) At(i int) (Submission, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if i < 0 || i >= len(l.entries) {
		return Submission{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return l.entries[len(l.entries)-1-i], nil
}

// Page returns one most-recent-first window of the ledger.
func (l *Ledger) Page(req pagination.PageRequest) pagination.PageResult[Submission] {
	all := l.All()
	total := len(all)

	start := min(req.Offset(), total)
	end := start + min(max(req.PageSize, 0), total-start)

	return pagination.NewPageResult(all[start:end], total, req.Page, req.PageSize)
}
