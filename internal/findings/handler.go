package findings

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/sift/internal/store"
	"github.com/JaimeStill/sift/pkg/handlers"
	"github.com/JaimeStill/sift/pkg/pagination"
	"github.com/JaimeStill/sift/pkg/routes"
)

// ErrInvalidID reports a document id path value that is not a UUID.
var ErrInvalidID = errors.New("document_id must be a UUID")

// Handler provides HTTP endpoints for scan results.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "findings"),
		pagination: pagination,
	}
}

// Routes returns the findings routes.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/findings",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/stats/summary", Handler: h.Summary},
			{Method: "GET", Pattern: "/{document_id}", Handler: h.Find},
		},
	}
}

// DocumentRoutes returns the per-document routes.
func (h *Handler) DocumentRoutes() routes.Group {
	return routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{document_id}/metrics", Handler: h.Metrics},
		},
	}
}

// List returns a page of documents with their findings.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	filters, err := store.DocumentFiltersFromQuery(r.URL.Query())
	if err != nil {
		handlers.RespondError(w, h.logger, store.MapHTTPStatus(err), err)
		return
	}

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, store.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns one document's findings, optionally narrowed by finding_type.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("document_id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	var findingType *string
	if t := r.URL.Query().Get("finding_type"); t != "" {
		findingType = &t
	}

	result, err := h.sys.Find(r.Context(), id, findingType)
	if err != nil {
		handlers.RespondError(w, h.logger, store.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Summary returns aggregate statistics.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sys.Summary(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, store.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, stats)
}

// Metrics returns a document's unexpired processing metrics.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("document_id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	metrics, err := h.sys.Metrics(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, store.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, metrics)
}
