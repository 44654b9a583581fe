package workflow

import (
	"fmt"

	"github.com/JaimeStill/mammoguard/internal/history"
	"github.com/JaimeStill/mammoguard/internal/predictions"
	"github.com/JaimeStill/mammoguard/internal/previews"
)

// State is the phase of the current attempt.
type State int

const (
	// Idle has no selected file. A result settled earlier stays visible
	// until Reset.
	Idle State = iota
	Ready
	InFlight
	Settled
)

var stateNames = [...]string{"idle", "ready", "in_flight", "settled"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// File is an image chosen for submission.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Snapshot is a read-only view of a controller for the presentation layer.
// Result holds the most recent settled outcome; it survives file selection
// and is cleared by Reset. Clearing the selection after a result leaves
// State at Idle with Result still set, and that result remains reportable.
type Snapshot struct {
	State   State                `json:"state"`
	File    string               `json:"file,omitempty"`
	Preview previews.Ref         `json:"preview,omitempty"`
	Result  *predictions.Result  `json:"result,omitempty"`
	History []history.Submission `json:"history"`

	current *history.Submission
}

// Current returns the submission behind a successful Result.
func (s Snapshot) Current() (history.Submission, bool) {
	if s.current == nil {
		return history.Submission{}, false
	}
	return *s.current, true
}
