package validation

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrSizeExceeded = errors.New("file exceeds maximum upload size")
	ErrInvalidType  = errors.New("file type not allowed")
	ErrMalformed    = errors.New("file is not a well-formed PDF")
)

// Error is a validation failure for a named file. Err is one of the
// package sentinels.
type Error struct {
	Filename string
	Reason   string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Filename, e.Err, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// MapHTTPStatus maps validation errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrSizeExceeded) {
		return http.StatusRequestEntityTooLarge
	}
	if errors.Is(err, ErrInvalidType) || errors.Is(err, ErrMalformed) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
