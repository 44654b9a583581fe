package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/JaimeStill/mammoguard/internal/reports"
	"github.com/JaimeStill/mammoguard/pkg/formatting"
	"github.com/JaimeStill/mammoguard/pkg/handlers"
	"github.com/JaimeStill/mammoguard/pkg/routes"
	"github.com/JaimeStill/mammoguard/pkg/storage"
)

// exportListing is one saved report in the exports listing.
type exportListing struct {
	storage.BlobMeta
	DisplaySize string `json:"display_size"`
}

type exportsHandler struct {
	store       storage.System
	logger      *slog.Logger
	maxListSize int32
}

func newExportsHandler(
	store storage.System,
	logger *slog.Logger,
	maxListSize int32,
) *exportsHandler {
	return &exportsHandler{
		store:       store,
		logger:      logger.With("handler", "exports"),
		maxListSize: maxListSize,
	}
}

func (h *exportsHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/exports",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.list},
			{Method: "GET", Pattern: "/download/{key...}", Handler: h.download},
		},
	}
}

func (h *exportsHandler) list(w http.ResponseWriter, r *http.Request) {
	maxResults, err := storage.ParseMaxResults(
		r.URL.Query().Get("max_results"),
		h.maxListSize,
	)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	blobs, err := h.store.List(r.Context(), r.URL.Query().Get("prefix"), maxResults)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	listing := make([]exportListing, 0, len(blobs))
	for _, b := range blobs {
		if b.ContentType != reports.ContentType && path.Ext(b.Key) != ".pdf" {
			continue
		}
		listing = append(listing, exportListing{
			BlobMeta:    b,
			DisplaySize: formatting.FormatBytes(b.Size, 1),
		})
	}

	handlers.RespondJSON(w, http.StatusOK, listing)
}

func (h *exportsHandler) download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	blob, err := h.store.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	defer blob.Body.Close()

	w.Header().Set("Content-Type", blob.ContentType)
	if blob.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(blob.ContentLength, 10))
	}
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, blob.Body); err != nil {
		h.logger.Warn("export download interrupted", "key", key, "error", err)
	}
}
