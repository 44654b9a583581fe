package predictions

import "encoding/json"

// Result is the resolved outcome of one classification: either a success
// carrying a class and confidence, or a failure carrying its reason.
// The zero value is an unresolved failure.
type Result struct {
	class      Class
	confidence float64
	reason     error
}

// Success constructs a successful Result. The confidence is stored as given.
func Success(class Class, confidence float64) Result {
	return Result{class: class, confidence: confidence}
}

// Failure constructs a failed Result. A nil reason is reported as ErrTransport.
func Failure(reason error) Result {
	if reason == nil {
		reason = ErrTransport
	}
	return Result{reason: reason}
}

// OK reports whether the Result is a success.
func (r Result) OK() bool {
	return r.reason == nil && r.class != ""
}

// Class returns the predicted class. Empty for failures.
func (r Result) Class() Class {
	return r.class
}

// Confidence returns the predicted confidence in [0,1]. Zero for failures.
func (r Result) Confidence() float64 {
	return r.confidence
}

// Reason returns the failure reason, or nil for a success.
func (r Result) Reason() error {
	if r.OK() {
		return nil
	}
	if r.reason == nil {
		return ErrTransport
	}
	return r.reason
}

// DisplayClass returns the label to present: the class on success,
// ErrorClass on failure.
func (r Result) DisplayClass() string {
	if !r.OK() {
		return ErrorClass
	}
	return string(r.class)
}

// Advisory returns the banner text for a success and the failure reason otherwise.
func (r Result) Advisory() string {
	if !r.OK() {
		return "Prediction failed: " + r.Reason().Error()
	}
	return r.class.Advisory()
}

type resultJSON struct {
	OK         bool    `json:"ok"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	Advisory   string  `json:"advisory"`
	Error      string  `json:"error,omitempty"`
}

// MarshalJSON renders the display form of the Result.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		OK:         r.OK(),
		Class:      r.DisplayClass(),
		Confidence: r.confidence,
		Advisory:   r.Advisory(),
	}
	if !out.OK {
		out.Confidence = 0
		out.Error = r.Reason().Error()
	}
	return json.Marshal(out)
}
