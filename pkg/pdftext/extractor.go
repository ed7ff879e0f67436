// Package pdftext extracts text from PDF documents one page at a time.
//
// Each page is read with the layout-aware Primary strategy first. When that
// fails or finds no text, the content-stream Fallback strategy is tried for
// the same page. A page on which both fail is reported with a PageFault and
// extraction continues with the next page.
package pdftext

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
)

// Page is the text of a single page. Fault is set when no strategy could
// read the page, in which case Text is empty.
type Page struct {
	Number   int
	Text     string
	Strategy string
	Fault    *PageFault
}

// Extractor opens documents with a fixed, ordered set of strategies.
type Extractor struct {
	strategies []Strategy
	logger     *slog.Logger
}

// New creates an Extractor using Primary then Fallback.
func New(logger *slog.Logger) *Extractor {
	return NewWithStrategies(logger, Primary(), Fallback())
}

// NewWithStrategies creates an Extractor that tries primary, then fallback.
func NewWithStrategies(logger *slog.Logger, primary, fallback Strategy) *Extractor {
	return &Extractor{
		strategies: []Strategy{primary, fallback},
		logger:     logger.With("system", "pdftext"),
	}
}

// Open prepares data for page iteration. Strategies parse the document
// lazily, at most once each. Open fails with ErrCorruptedDocument when no
// strategy can parse the document or the document has no pages.
func (e *Extractor) Open(data []byte) (*Document, error) {
	doc := &Document{
		data:    data,
		logger:  e.logger,
		entries: make([]entry, len(e.strategies)),
	}
	for i, s := range e.strategies {
		doc.entries[i].strategy = s
	}

	var errs []error
	for i := range doc.entries {
		src, err := doc.source(i)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", doc.entries[i].strategy.Name(), err))
			continue
		}
		if n := src.NumPages(); n > 0 {
			doc.pages = n
			break
		}
		errs = append(errs, fmt.Errorf("%s: document has no pages", doc.entries[i].strategy.Name()))
	}

	if doc.pages < 1 {
		return nil, fmt.Errorf("%w: %w", ErrCorruptedDocument, errors.Join(errs...))
	}
	return doc, nil
}

// Extract reads every page of data. It fails with ErrCorruptedDocument
// when no page yields text.
func (e *Extractor) Extract(ctx context.Context, data []byte) ([]Page, error) {
	doc, err := e.Open(data)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, doc.PageCount())
	readable := 0
	for page := range doc.Pages(ctx) {
		if page.Fault == nil {
			readable++
		}
		pages = append(pages, page)
	}

	if err := ctx.Err(); err != nil {
		return pages, err
	}
	if readable == 0 {
		return pages, ErrCorruptedDocument
	}
	return pages, nil
}

type entry struct {
	strategy Strategy
	source   Source
	err      error
	opened   bool
}

// Document is an opened PDF. It is owned by a single goroutine.
type Document struct {
	data    []byte
	pages   int
	entries []entry
	logger  *slog.Logger
}

// PageCount returns the number of pages reported by the first strategy
// able to parse the document.
func (d *Document) PageCount() int {
	return d.pages
}

// Pages returns a single-pass sequence of pages in ascending order.
// Each page is extracted when the sequence advances to it. Iteration stops
// when ctx is cancelled.
func (d *Document) Pages(ctx context.Context) iter.Seq[Page] {
	return func(yield func(Page) bool) {
		for n := 1; n <= d.pages; n++ {
			if ctx.Err() != nil {
				return
			}
			if !yield(d.Page(n)) {
				return
			}
		}
	}
}

// Page extracts page n, trying each strategy in order.
func (d *Document) Page(n int) Page {
	fault := &PageFault{Page: n}

	for i := range d.entries {
		name := d.entries[i].strategy.Name()

		src, err := d.source(i)
		if err != nil {
			fault.Attempts = append(fault.Attempts, Attempt{Strategy: name, Err: err})
			continue
		}

		text, err := pageText(src, n)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrNoText
		}
		if err != nil {
			fault.Attempts = append(fault.Attempts, Attempt{Strategy: name, Err: err})
			continue
		}

		if i > 0 {
			d.logger.Debug("page read by fallback strategy", "page", n, "strategy", name)
		}
		return Page{Number: n, Text: text, Strategy: name}
	}

	d.logger.Warn("page extraction failed", "page", n, "error", fault)
	return Page{Number: n, Fault: fault}
}

func (d *Document) source(i int) (Source, error) {
	e := &d.entries[i]
	if !e.opened {
		e.opened = true
		e.source, e.err = open(e.strategy, d.data)
	}
	return e.source, e.err
}

func open(s Strategy, data []byte) (src Source, err error) {
	defer recovered(&err, "open "+s.Name())
	return s.Open(data)
}

func pageText(src Source, n int) (text string, err error) {
	defer recovered(&err, "read page")
	if n > src.NumPages() {
		return "", ErrPageMissing
	}
	return src.PageText(n)
}
