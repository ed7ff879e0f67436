package pdftext

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCorruptedDocument indicates no strategy produced text for any page.
	ErrCorruptedDocument = errors.New("corrupted document: no extractable text")
	// ErrNoText indicates a strategy read a page but found no text on it.
	ErrNoText = errors.New("no text on page")
	// ErrPageMissing indicates the page object could not be resolved.
	ErrPageMissing = errors.New("page not found")
)

// Attempt is one strategy's failure on a page.
type Attempt struct {
	Strategy string
	Err      error
}

// PageFault records why every strategy failed on a page.
type PageFault struct {
	Page     int
	Attempts []Attempt
}

func (f *PageFault) Error() string {
	parts := make([]string, len(f.Attempts))
	for i, a := range f.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Strategy, a.Err)
	}
	return fmt.Sprintf("page %d: %s", f.Page, strings.Join(parts, "; "))
}

func (f *PageFault) Unwrap() []error {
	errs := make([]error, len(f.Attempts))
	for i, a := range f.Attempts {
		errs[i] = a.Err
	}
	return errs
}

func recovered(err *error, during string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s: recovered panic: %v", during, r)
	}
}
