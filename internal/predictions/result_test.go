package predictions_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/JaimeStill/mammoguard/internal/predictions"
)

func TestResultVariants(t *testing.T) {
	ok := predictions.Success(predictions.Benign, 0.5)
	if !ok.OK() || ok.Reason() != nil {
		t.Errorf("success: OK=%v reason=%v", ok.OK(), ok.Reason())
	}
	if ok.DisplayClass() != "Benign" {
		t.Errorf("display class: got %s", ok.DisplayClass())
	}

	failed := predictions.Failure(nil)
	if failed.OK() {
		t.Error("failure reported OK")
	}
	if !errors.Is(failed.Reason(), predictions.ErrTransport) {
		t.Errorf("nil reason: got %v, want ErrTransport", failed.Reason())
	}

	var zero predictions.Result
	if zero.OK() {
		t.Error("zero result reported OK")
	}
}

func TestAdvisory(t *testing.T) {
	tests := []struct {
		class predictions.Class
		want  string
	}{
		{predictions.Malignant, "Warning: Signs of breast cancer detected!"},
		{predictions.Benign, "Benign mass found. Not cancer, but monitor if needed."},
		{predictions.Normal, "Breast tissue appears normal."},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			if got := tt.class.Advisory(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResultMarshalJSON(t *testing.T) {
	data, err := json.Marshal(predictions.Failure(predictions.ErrMalformedResponse))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["class"] != "Error" {
		t.Errorf("class: got %v, want Error", got["class"])
	}
	if got["confidence"] != float64(0) {
		t.Errorf("confidence: got %v, want 0", got["confidence"])
	}
	if got["ok"] != false {
		t.Errorf("ok: got %v, want false", got["ok"])
	}
}

func TestParseClass(t *testing.T) {
	if _, ok := predictions.ParseClass("malignant"); ok {
		t.Error("labels are case sensitive")
	}
	if c, ok := predictions.ParseClass("Normal"); !ok || c != predictions.Normal {
		t.Errorf("got %s/%v", c, ok)
	}
}
