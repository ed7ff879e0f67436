package ingest

import (
	"context"
	"errors"
	"net/http"

	"github.com/JaimeStill/sift/pkg/pdftext"
	"github.com/JaimeStill/sift/pkg/validation"
)

// StatusClientClosedRequest reports a client that disconnected before the
// scan finished.
const StatusClientClosedRequest = 499

var (
	// ErrPersistence reports a scan whose results could not be stored.
	ErrPersistence = errors.New("failed to persist scan results")
	// ErrInvalidUpload reports a request without a readable "file" part.
	ErrInvalidUpload = errors.New("invalid upload")
)

// MapHTTPStatus maps ingestion errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return validation.MapHTTPStatus(err)
	case errors.Is(err, validation.ErrSizeExceeded):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrInvalidUpload):
		return http.StatusBadRequest
	case errors.Is(err, pdftext.ErrCorruptedDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrPersistence):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	}
	return http.StatusInternalServerError
}
