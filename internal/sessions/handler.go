package sessions

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/mammoguard/internal/history"
	"github.com/JaimeStill/mammoguard/internal/previews"
	"github.com/JaimeStill/mammoguard/internal/reports"
	"github.com/JaimeStill/mammoguard/internal/workflow"
	"github.com/JaimeStill/mammoguard/pkg/handlers"
	"github.com/JaimeStill/mammoguard/pkg/pagination"
	"github.com/JaimeStill/mammoguard/pkg/routes"
)

// Created is the response body of session creation.
type Created struct {
	ID       uuid.UUID         `json:"id"`
	Created  time.Time         `json:"created"`
	Snapshot workflow.Snapshot `json:"snapshot"`
}

// Handler provides HTTP endpoints for session workflows.
type Handler struct {
	registry      *Registry
	reports       *reports.Generator
	logger        *slog.Logger
	pagination    pagination.Config
	maxUploadSize int64
	stream        *streamer
}

// NewHandler creates a Handler. checkOrigin gates stream upgrades; nil keeps
// the same-origin default.
func NewHandler(
	registry *Registry,
	generator *reports.Generator,
	logger *slog.Logger,
	pagination pagination.Config,
	maxUploadSize int64,
	checkOrigin func(*http.Request) bool,
) *Handler {
	logger = logger.With("handler", "sessions")
	return &Handler{
		registry:      registry,
		reports:       generator,
		logger:        logger,
		pagination:    pagination,
		maxUploadSize: maxUploadSize,
		stream:        newStreamer(checkOrigin, logger),
	}
}

// Routes returns the route group definition for session endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/sessions",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
			{Method: "PUT", Pattern: "/{id}/file", Handler: h.SelectFile},
			{Method: "DELETE", Pattern: "/{id}/file", Handler: h.ClearFile},
			{Method: "POST", Pattern: "/{id}/submit", Handler: h.Submit},
			{Method: "POST", Pattern: "/{id}/reset", Handler: h.Reset},
			{Method: "GET", Pattern: "/{id}/history", Handler: h.History},
			{Method: "GET", Pattern: "/{id}/history/{index}/report", Handler: h.EntryReport},
			{Method: "GET", Pattern: "/{id}/report", Handler: h.Report},
			{Method: "GET", Pattern: "/{id}/previews/{ref}", Handler: h.Preview},
			{Method: "GET", Pattern: "/{id}/stream", Handler: h.Stream},
		},
	}
}

// Create starts a new session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.registry.Create()
	handlers.RespondJSON(w, http.StatusCreated, Created{
		ID:       s.ID,
		Created:  s.Created,
		Snapshot: s.Controller.Snapshot(),
	})
}

// Find returns the current snapshot of a session.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	handlers.RespondJSON(w, http.StatusOK, s.Controller.Snapshot())
}

// Delete ends a session and releases its previews.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	if err := h.registry.Remove(id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SelectFile replaces the selected image with the multipart "file" field.
func (h *Handler) SelectFile(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
			return
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	f := &workflow.File{
		Name:        header.Filename,
		ContentType: detectContentType(header.Header.Get("Content-Type"), data),
		Data:        data,
	}

	if err := s.Controller.SelectFile(r.Context(), f); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, s.Controller.Snapshot())
}

// ClearFile deselects the current image.
func (h *Handler) ClearFile(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := s.Controller.SelectFile(r.Context(), nil); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, s.Controller.Snapshot())
}

// Submit sends the selected image for classification. The outcome arrives
// asynchronously through the snapshot.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := s.Controller.Submit(r.Context()); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, s.Controller.Snapshot())
}

// Reset returns the session to Idle, keeping history.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := s.Controller.Reset(r.Context()); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, s.Controller.Snapshot())
}

// History returns a page of the session history, most recent first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	handlers.RespondJSON(w, http.StatusOK, s.Controller.HistoryPage(page))
}

// Report exports the current successful result as a PDF.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	sub, err := s.Controller.Current()
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	h.export(w, r, sub)
}

// EntryReport exports a history entry as a PDF. Index 0 is the most recent.
func (h *Handler) EntryReport(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidIndex)
		return
	}

	sub, err := s.Controller.Entry(index)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	h.export(w, r, sub)
}

// Preview serves the image behind a live preview reference.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	p, err := s.Controller.Preview(previews.Ref(r.PathValue("ref")))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", p.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(p.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(p.Data)
}

// Stream upgrades to a WebSocket that pushes a snapshot after every change.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.stream.serve(w, r, s)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, sub history.Submission) {
	exp, err := h.reports.Render(r.Context(), sub)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", reports.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.Name))
	w.Header().Set("X-Export-Name", exp.Name)
	w.WriteHeader(http.StatusOK)
	w.Write(exp.Data)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return nil, false
	}

	s, err := h.registry.Get(id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return nil, false
	}

	return s, true
}

func detectContentType(header string, data []byte) string {
	header = strings.TrimSpace(header)
	if header != "" && header != "application/octet-stream" {
		return header
	}
	return http.DetectContentType(data)
}
