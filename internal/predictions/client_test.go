package predictions_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JaimeStill/mammoguard/internal/predictions"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClient(t *testing.T, endpoint, timeout string) predictions.Classifier {
	t.Helper()
	cfg := &predictions.Config{Endpoint: endpoint, Timeout: timeout}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return predictions.NewClient(cfg, discardLogger())
}

var sample = predictions.Image{
	Name:        "mammo1.png",
	ContentType: "image/png",
	Data:        []byte("fake-png-bytes"),
}

func TestClassifyUploadsMultipartFile(t *testing.T) {
	var gotName, gotType, gotBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s, want POST", r.Method)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName = header.Filename
		gotType = header.Header.Get("Content-Type")
		gotBody = string(data)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"prediction":{"class":"Malignant","confidence":0.93}}`)
	}))
	defer srv.Close()

	result := newClient(t, srv.URL, "5s").Classify(context.Background(), sample)

	if !result.OK() {
		t.Fatalf("expected success, got %v", result.Reason())
	}
	if result.Class() != predictions.Malignant {
		t.Errorf("class: got %s, want Malignant", result.Class())
	}
	if result.Confidence() != 0.93 {
		t.Errorf("confidence: got %v, want 0.93", result.Confidence())
	}
	if gotName != "mammo1.png" {
		t.Errorf("filename: got %q", gotName)
	}
	if gotType != "image/png" {
		t.Errorf("content type: got %q", gotType)
	}
	if gotBody != "fake-png-bytes" {
		t.Errorf("body: got %q", gotBody)
	}
}

func TestClassifyFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `{"detail":"boom"}`, predictions.ErrTransport},
		{"not found", http.StatusNotFound, ``, predictions.ErrTransport},
		{"invalid json", http.StatusOK, `not json`, predictions.ErrMalformedResponse},
		{"unknown class", http.StatusOK, `{"prediction":{"class":"Cyst","confidence":0.5}}`, predictions.ErrMalformedResponse},
		{"missing confidence", http.StatusOK, `{"prediction":{"class":"Benign"}}`, predictions.ErrMalformedResponse},
		{"missing class", http.StatusOK, `{"prediction":{"confidence":0.5}}`, predictions.ErrMalformedResponse},
		{"confidence above range", http.StatusOK, `{"prediction":{"class":"Normal","confidence":1.5}}`, predictions.ErrMalformedResponse},
		{"confidence below range", http.StatusOK, `{"prediction":{"class":"Normal","confidence":-0.1}}`, predictions.ErrMalformedResponse},
		{"empty object", http.StatusOK, `{}`, predictions.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			result := newClient(t, srv.URL, "5s").Classify(context.Background(), sample)

			if result.OK() {
				t.Fatal("expected failure, got success")
			}
			if !errors.Is(result.Reason(), tt.wantErr) {
				t.Errorf("reason: got %v, want %v", result.Reason(), tt.wantErr)
			}
			if result.DisplayClass() != predictions.ErrorClass {
				t.Errorf("display class: got %s, want Error", result.DisplayClass())
			}
			if result.Confidence() != 0 {
				t.Errorf("confidence: got %v, want 0", result.Confidence())
			}
		})
	}
}

func TestClassifyTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	result := newClient(t, srv.URL, "50ms").Classify(context.Background(), sample)

	if !errors.Is(result.Reason(), predictions.ErrTransport) {
		t.Fatalf("reason: got %v, want ErrTransport", result.Reason())
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout not applied: took %v", elapsed)
	}
}

func TestClassifyUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	result := newClient(t, endpoint, "1s").Classify(context.Background(), sample)

	if !errors.Is(result.Reason(), predictions.ErrTransport) {
		t.Errorf("reason: got %v, want ErrTransport", result.Reason())
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantClass predictions.Class
		wantConf  float64
	}{
		{"nested", `{"prediction":{"class":"Benign","confidence":0.41}}`, predictions.Benign, 0.41},
		{"flat", `{"class":"Normal","confidence":1}`, predictions.Normal, 1},
		{"zero confidence", `{"prediction":{"class":"Normal","confidence":0}}`, predictions.Normal, 0},
		{"extra fields", `{"prediction":{"class":"Malignant","confidence":0.7,"model":"v2"}}`, predictions.Malignant, 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := predictions.Decode([]byte(tt.body))
			if !r.OK() {
				t.Fatalf("expected success, got %v", r.Reason())
			}
			if r.Class() != tt.wantClass || r.Confidence() != tt.wantConf {
				t.Errorf("got %s/%v, want %s/%v", r.Class(), r.Confidence(), tt.wantClass, tt.wantConf)
			}
		})
	}
}
