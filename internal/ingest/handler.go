package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/sift/pkg/handlers"
	"github.com/JaimeStill/sift/pkg/routes"
	"github.com/JaimeStill/sift/pkg/validation"
)

// multipartOverhead is the allowance for multipart framing on top of the
// maximum file size.
const multipartOverhead = 1 << 20

// Scanner runs an upload through the pipeline.
type Scanner interface {
	Ingest(ctx context.Context, up Upload) (*Result, error)
}

// Handler provides the upload endpoint.
type Handler struct {
	scanner       Scanner
	logger        *slog.Logger
	maxUploadSize int64
}

// NewHandler creates a Handler that accepts files up to maxUploadSize bytes.
func NewHandler(scanner Scanner, logger *slog.Logger, maxUploadSize int64) *Handler {
	return &Handler{
		scanner:       scanner,
		logger:        logger.With("handler", "upload"),
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group for uploads.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/upload",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Upload},
		},
	}
}

// Upload scans the multipart "file" part and responds with the scan result.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)

	up, err := h.read(r)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	result, err := h.scanner.Ingest(r.Context(), up)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, result)
}

func (h *Handler) read(r *http.Request) (Upload, error) {
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		return Upload{}, h.formError(err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return Upload{}, fmt.Errorf("%w: missing file part", ErrInvalidUpload)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return Upload{}, h.formError(err)
	}

	return Upload{Filename: header.Filename, Data: data}, nil
}

func (h *Handler) formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &validation.Error{
			Filename: "request",
			Reason:   fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit),
			Err:      validation.ErrSizeExceeded,
		}
	}
	return fmt.Errorf("%w: %w", ErrInvalidUpload, err)
}
