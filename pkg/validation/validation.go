// Package validation checks uploaded files before any parsing is attempted.
package validation

import (
	"bytes"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/JaimeStill/sift/pkg/formatting"
)

const (
	// eofWindow is how far from the end of the file the %%EOF marker may sit.
	eofWindow   = 1024
	maxNameLen  = 255
	defaultName = "unnamed.pdf"
)

var (
	pdfHeader = []byte("%PDF-")
	pdfEOF    = []byte("%%EOF")
)

// Result describes an accepted file.
type Result struct {
	Filename string
	Size     int64
}

// Validator checks size, extension, and PDF framing. It holds no mutable
// state and is safe for concurrent use.
type Validator struct {
	maxSize    int64
	extensions []string
}

// New creates a Validator accepting files up to maxSize bytes with one of
// the given extensions. Extensions are compared case-insensitively.
func New(maxSize int64, extensions []string) *Validator {
	exts := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = []string{".pdf"}
	}

	return &Validator{maxSize: maxSize, extensions: exts}
}

// MaxSize returns the largest accepted file size in bytes.
func (v *Validator) MaxSize() int64 {
	return v.maxSize
}

// Validate checks data in order: size, extension, then PDF header and
// trailer. The returned filename is sanitized and is the only form of the
// name that appears in errors.
func (v *Validator) Validate(data []byte, filename string) (Result, error) {
	name := SanitizeFilename(filename)
	size := int64(len(data))

	if size > v.maxSize {
		return Result{}, &Error{
			Filename: name,
			Reason: fmt.Sprintf(
				"%s exceeds limit of %s",
				formatting.FormatBytes(size, 1),
				formatting.FormatBytes(v.maxSize, 0),
			),
			Err: ErrSizeExceeded,
		}
	}

	ext := strings.ToLower(path.Ext(name))
	if !slices.Contains(v.extensions, ext) {
		return Result{}, &Error{
			Filename: name,
			Reason:   fmt.Sprintf("extension %q not in %v", ext, v.extensions),
			Err:      ErrInvalidType,
		}
	}

	if !bytes.HasPrefix(data, pdfHeader) {
		return Result{}, &Error{
			Filename: name,
			Reason:   "missing %PDF- header",
			Err:      ErrMalformed,
		}
	}

	tail := data[max(0, len(data)-eofWindow):]
	if !bytes.Contains(tail, pdfEOF) {
		return Result{}, &Error{
			Filename: name,
			Reason:   "missing %%EOF trailer",
			Err:      ErrMalformed,
		}
	}

	return Result{Filename: name, Size: size}, nil
}

// SanitizeFilename reduces a client-supplied name to a safe base name.
// Directory components, traversal sequences, control characters, and
// non-ASCII characters are removed; shell and filesystem metacharacters and
// whitespace become underscores.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f || r > 0x7e:
			continue
		case strings.ContainsRune(`<>:"|?*/`, r), r == ' ':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	clean := b.String()
	for strings.Contains(clean, "..") {
		clean = strings.ReplaceAll(clean, "..", ".")
	}
	clean = strings.TrimLeft(clean, ".")

	if len(clean) > maxNameLen {
		ext := path.Ext(clean)
		if len(ext) > 16 {
			ext = ""
		}
		clean = clean[:maxNameLen-len(ext)] + ext
	}

	if clean == "" || strings.EqualFold(clean, "pdf") {
		return defaultName
	}
	return clean
}
