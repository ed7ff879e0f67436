package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/JaimeStill/sift/internal/store"
	"github.com/JaimeStill/sift/pkg/admission"
	"github.com/JaimeStill/sift/pkg/detect"
	"github.com/JaimeStill/sift/pkg/pdftext"
	"github.com/JaimeStill/sift/pkg/storage"
	"github.com/JaimeStill/sift/pkg/validation"
	"github.com/JaimeStill/sift/pkg/workers"
)

// Extractor opens a PDF for page-by-page text extraction.
type Extractor interface {
	Open(data []byte) (*pdftext.Document, error)
}

// Archive stores the raw bytes of accepted uploads.
type Archive interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
}

// Components are the collaborators of a Pipeline. Archive may be nil.
type Components struct {
	Validator *validation.Validator
	Admission *admission.Controller
	Extractor Extractor
	Detector  *detect.Detector
	CPU       *workers.Pool
	IO        *workers.Pool
	Store     store.System
	Archive   Archive
}

// Pipeline scans uploads. It is safe for concurrent use; admission bounds
// how many scans run at once.
type Pipeline struct {
	Components
	opts   Options
	logger *slog.Logger
}

// New creates a Pipeline.
func New(c Components, opts Options, logger *slog.Logger) *Pipeline {
	if opts.ProcessingTimeout <= 0 {
		opts.ProcessingTimeout = DefaultProcessingTimeout
	}
	return &Pipeline{
		Components: c,
		opts:       opts,
		logger:     logger.With("system", "ingest"),
	}
}

// Handler returns the upload HTTP handler.
func (p *Pipeline) Handler(maxUploadSize int64) *Handler {
	return NewHandler(p, p.logger, maxUploadSize)
}

// Stats reports admission usage.
func (p *Pipeline) Stats() admission.Stats {
	return p.Admission.Stats()
}

// scan is the per-document working state.
type scan struct {
	doc      store.Document
	findings []store.Finding
	start    time.Time
	logger   *slog.Logger
}

// Ingest scans one upload. Validation errors are returned as
// *validation.Error and nothing is stored. Once admitted, the document is
// recorded as success or failed; a corrupted document fails with
// pdftext.ErrCorruptedDocument and a storage failure with ErrPersistence.
func (p *Pipeline) Ingest(ctx context.Context, up Upload) (*Result, error) {
	s := &scan{start: time.Now()}
	s.doc.ID = uuid.New()
	s.logger = p.logger.With("document_id", s.doc.ID)
	s.transition(StateReceived, "size", len(up.Data))

	s.transition(StateValidating)
	accepted, err := p.Validator.Validate(up.Data, up.Filename)
	if err != nil {
		s.logger.Warn("upload rejected", "state", StateFailed, "error", err)
		return nil, err
	}

	s.doc.Filename = accepted.Filename
	s.doc.SizeBytes = accepted.Size
	s.doc.UploadedAt = s.start.UTC()
	s.doc.Status = store.StatusPending
	s.logger = s.logger.With("filename", accepted.Filename)

	// The wait for a lease is bounded only by the caller; the processing
	// deadline starts once admitted.
	lease, err := p.Admission.Acquire(ctx)
	if err != nil {
		s.logger.Warn("admission abandoned", "state", StateFailed, "error", err)
		return nil, err
	}
	defer lease.Release()
	s.transition(StateAdmitted)

	ctx, cancel := context.WithTimeout(ctx, p.opts.ProcessingTimeout)
	defer cancel()

	if err := p.extract(ctx, s, up.Data); err != nil {
		return nil, p.fail(ctx, s, err)
	}

	s.transition(StatePersisting)
	p.archive(ctx, s, up.Data)

	s.doc.Status = store.StatusSuccess
	s.doc.ProcessingTimeMs = time.Since(s.start).Milliseconds()

	err = p.IO.Run(ctx, func() error {
		return p.Store.Record(ctx, s.doc, s.findings)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, p.fail(ctx, s, ctxErr)
		}
		s.logger.Error("record failed", "error", err)
		return nil, p.fail(ctx, s, fmt.Errorf("%w: %w", ErrPersistence, err))
	}

	p.recordMetrics(ctx, s)

	result := s.result()
	s.transition(StateCompleted,
		"pages", result.PageCount,
		"findings", result.FindingsCount,
		"faults", len(result.PageFaults),
		"duration_ms", result.ProcessingTimeMs,
	)
	return result, nil
}

// extract opens the document on the CPU pool, then extracts and detects
// one page per task in ascending page order.
func (p *Pipeline) extract(ctx context.Context, s *scan, data []byte) error {
	s.transition(StateExtracting)

	doc, err := workers.Do(ctx, p.CPU, func() (*pdftext.Document, error) {
		return p.Extractor.Open(data)
	})
	if err != nil {
		if errors.Is(err, workers.ErrPanic) {
			return fmt.Errorf("%w: %w", pdftext.ErrCorruptedDocument, err)
		}
		return err
	}

	s.doc.PageCount = doc.PageCount()
	readable := 0

	for n := 1; n <= doc.PageCount(); n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		var (
			page  pdftext.Page
			found []detect.Finding
		)

		err := p.CPU.Run(ctx, func() error {
			page = doc.Page(n)
			if page.Fault == nil {
				found = p.detect(s, page)
			}
			return nil
		})

		switch {
		case err == nil:
		case errors.Is(err, workers.ErrPanic):
			page = pdftext.Page{Number: n, Fault: &pdftext.PageFault{
				Page:     n,
				Attempts: []pdftext.Attempt{{Strategy: "extract", Err: err}},
			}}
		default:
			return err
		}

		if page.Fault != nil {
			s.doc.PageFaults = append(s.doc.PageFaults, store.PageFault{
				PageNumber: n,
				Error:      page.Fault.Error(),
			})
			continue
		}

		readable++
		s.add(found)
	}

	if readable == 0 {
		return fmt.Errorf("%w: no readable pages", pdftext.ErrCorruptedDocument)
	}

	s.transition(StateDetecting, "findings", len(s.findings), "readable_pages", readable)
	return nil
}

// detect runs the detector on one page. A panic yields no findings for the
// page.
func (p *Pipeline) detect(s *scan, page pdftext.Page) (found []detect.Finding) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("detection panicked", "page", page.Number, "panic", r)
			found = nil
		}
	}()
	return p.Detector.Detect(page.Text, page.Number)
}

// archive stores the raw bytes, best effort. On success the document
// records the storage key.
func (p *Pipeline) archive(ctx context.Context, s *scan, data []byte) {
	if p.Archive == nil {
		return
	}

	key := storage.DocumentKey(s.doc.ID.String(), s.doc.Filename)
	err := p.IO.Run(ctx, func() error {
		return p.Archive.Upload(ctx, key, bytes.NewReader(data), "application/pdf")
	})
	if err != nil {
		s.logger.Warn("archive failed", "key", key, "error", err)
		return
	}
	s.doc.StorageKey = &key
}

// recordMetrics writes processing metrics, best effort.
func (p *Pipeline) recordMetrics(ctx context.Context, s *scan) {
	if !p.opts.Metrics {
		return
	}

	at := time.Now().UTC()
	values := []struct {
		kind  string
		value float64
	}{
		{store.MetricProcessingTime, float64(s.doc.ProcessingTimeMs)},
		{store.MetricPageCount, float64(s.doc.PageCount)},
		{store.MetricFileSize, float64(s.doc.SizeBytes)},
		{store.MetricFindingsCount, float64(len(s.findings))},
		{store.MetricPageFaults, float64(len(s.doc.PageFaults))},
	}

	fns := make([]func() error, len(values))
	for i, v := range values {
		fns[i] = func() error {
			return p.Store.InsertMetric(ctx, store.Metric{
				DocumentID: s.doc.ID,
				Type:       v.kind,
				Value:      v.value,
				RecordedAt: at,
			})
		}
	}

	if err := workers.All(ctx, p.IO, fns...); err != nil {
		s.logger.Warn("metrics not recorded", "error", err)
	}
}

// fail records the document as failed and returns cause. The write uses a
// fresh deadline so timeouts and disconnects are still recorded.
func (p *Pipeline) fail(ctx context.Context, s *scan, cause error) error {
	msg := cause.Error()
	s.doc.Status = store.StatusFailed
	s.doc.ErrorMessage = &msg
	s.doc.ProcessingTimeMs = time.Since(s.start).Milliseconds()

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureWriteTimeout)
	defer cancel()

	err := p.IO.Run(wctx, func() error {
		return p.Store.InsertDocument(wctx, s.doc)
	})
	if err != nil {
		s.logger.Error("failed document not recorded", "error", err)
	}

	s.logger.Warn("ingestion failed", "state", StateFailed, "error", cause)
	return cause
}

func (s *scan) transition(state State, args ...any) {
	s.logger.Info("state", append([]any{"state", state}, args...)...)
}

func (s *scan) add(found []detect.Finding) {
	now := time.Now().UTC()
	for _, f := range found {
		finding := store.Finding{
			ID:         ulid.Make().String(),
			DocumentID: s.doc.ID,
			Type:       string(f.Type),
			Value:      f.Value,
			PageNumber: f.Page,
			Confidence: f.Confidence,
			DetectedAt: now,
		}
		if f.Context != "" {
			finding.Context = &f.Context
		}
		s.findings = append(s.findings, finding)
	}
}

func (s *scan) result() *Result {
	msg := "Document processed successfully"
	if n := len(s.doc.PageFaults); n > 0 {
		msg = fmt.Sprintf("Document processed; %d page(s) could not be read", n)
	}

	return &Result{
		DocumentID:       s.doc.ID,
		Filename:         s.doc.Filename,
		Status:           s.doc.Status,
		PageCount:        s.doc.PageCount,
		FindingsCount:    len(s.findings),
		ProcessingTimeMs: s.doc.ProcessingTimeMs,
		Message:          msg,
		PageFaults:       s.doc.PageFaults,
		Findings:         s.findings,
	}
}
