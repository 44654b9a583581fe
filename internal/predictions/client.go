// Package predictions sends images to the remote classifier and resolves
// every outcome into a Result.
package predictions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

const maxResponseSize = 1 << 20

// Image is the raw upload sent to the classifier.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Classifier resolves an image into a Result. Implementations never return
// an error: transport and decoding problems become failed Results.
type Classifier interface {
	Classify(ctx context.Context, img Image) Result
}

type client struct {
	http     *http.Client
	endpoint string
	field    string
	logger   *slog.Logger
}

// NewClient creates an HTTP Classifier that posts each image as a
// multipart form upload. No retries are performed.
func NewClient(cfg *Config, logger *slog.Logger) Classifier {
	return &client{
		http:     &http.Client{Timeout: cfg.TimeoutDuration()},
		endpoint: cfg.Endpoint,
		field:    cfg.FieldName,
		logger:   logger.With("system", "classifier"),
	}
}

func (c *client) Classify(ctx context.Context, img Image) Result {
	result := c.classify(ctx, img)
	if result.OK() {
		c.logger.DebugContext(ctx, "prediction received",
			"file", img.Name,
			"class", result.Class(),
			"confidence", result.Confidence(),
		)
	} else {
		c.logger.WarnContext(ctx, "prediction failed", "file", img.Name, "error", result.Reason())
	}
	return result
}

func (c *client) classify(ctx context.Context, img Image) Result {
	body, contentType, err := encodeUpload(c.field, img)
	if err != nil {
		return Failure(fmt.Errorf("%w: encode upload: %v", ErrTransport, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return Failure(fmt.Errorf("%w: %v", ErrTransport, err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Failure(fmt.Errorf("%w: %v", ErrTransport, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return Failure(fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Failure(fmt.Errorf("%w: read body: %v", ErrTransport, err))
	}

	return Decode(data)
}

type prediction struct {
	Class      *string  `json:"class"`
	Confidence *float64 `json:"confidence"`
}

type payload struct {
	Prediction *prediction `json:"prediction"`
	prediction
}

// Decode parses a classifier response body. Both the nested
// {"prediction":{...}} shape and a flat {"class":...,"confidence":...}
// shape are accepted; anything else is a malformed response.
func Decode(data []byte) Result {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Failure(fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}

	pred := p.prediction
	if p.Prediction != nil {
		pred = *p.Prediction
	}

	if pred.Class == nil {
		return Failure(fmt.Errorf("%w: missing class", ErrMalformedResponse))
	}
	class, ok := ParseClass(*pred.Class)
	if !ok {
		return Failure(fmt.Errorf("%w: unrecognized class %q", ErrMalformedResponse, *pred.Class))
	}

	if pred.Confidence == nil {
		return Failure(fmt.Errorf("%w: missing confidence", ErrMalformedResponse))
	}
	confidence := *pred.Confidence
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return Failure(fmt.Errorf("%w: confidence %v out of range", ErrMalformedResponse, confidence))
	}

	return Success(class, confidence)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeUpload(field string, img Image) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	name := img.Name
	if name == "" {
		name = "upload"
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(img.Data)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(
		`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field),
		quoteEscaper.Replace(name),
	))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return &buf, mw.FormDataContentType(), nil
}
