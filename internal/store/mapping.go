package store

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/sift/pkg/query"
	"github.com/JaimeStill/sift/pkg/repository"
)

var documentProjection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("filename", "Filename").
	Project("size_bytes", "SizeBytes").
	Project("page_count", "PageCount").
	Project("uploaded_at", "UploadedAt").
	Project("processing_time_ms", "ProcessingTimeMs").
	Project("status", "Status").
	Project("error_message", "ErrorMessage").
	Project("storage_key", "StorageKey").
	Project("page_faults", "PageFaults")

var findingProjection = query.
	NewProjectionMap("public", "findings", "f").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("finding_type", "Type").
	Project("value", "Value").
	Project("page_number", "PageNumber").
	Project("confidence", "Confidence").
	Project("context", "Context").
	Project("detected_at", "DetectedAt")

var metricProjection = query.
	NewProjectionMap("public", "metrics", "m").
	Project("document_id", "DocumentID").
	Project("metric_type", "Type").
	Project("value", "Value").
	Project("recorded_at", "RecordedAt").
	Project("expires_at", "ExpiresAt")

var documentSort = []query.SortField{
	{Field: "UploadedAt", Descending: true},
	{Field: "ID", Descending: true},
}

var findingSort = []query.SortField{
	{Field: "PageNumber"},
	{Field: "DetectedAt"},
	{Field: "ID"},
}

// hasFindingOfType restricts documents to those with at least one finding
// of the given type.
const hasFindingOfType = "EXISTS (SELECT 1 FROM public.findings ft WHERE ft.document_id = d.id AND ft.finding_type = $%d)"

// DocumentFilters narrows document listings. Nil fields are ignored. From
// is inclusive and To is exclusive.
type DocumentFilters struct {
	DocumentID  *uuid.UUID `json:"doc_id,omitempty"`
	Status      *string    `json:"status,omitempty"`
	FindingType *string    `json:"finding_type,omitempty"`
	From        *time.Time `json:"from,omitempty"`
	To          *time.Time `json:"to,omitempty"`
}

// Apply adds the filter conditions to b.
func (f DocumentFilters) Apply(b *query.Builder) *query.Builder {
	b.WhereEquals("ID", f.DocumentID).
		WhereEquals("Status", f.Status).
		WhereRange("UploadedAt", f.From, f.To)

	if f.FindingType != nil && *f.FindingType != "" {
		b.Where(hasFindingOfType, *f.FindingType)
	}
	return b
}

// DocumentFiltersFromQuery reads doc_id, status, finding_type, from and to
// from URL query values. Dates are RFC 3339 or YYYY-MM-DD; a date-only "to"
// includes the whole day.
func DocumentFiltersFromQuery(values url.Values) (DocumentFilters, error) {
	var f DocumentFilters

	if s := values.Get("doc_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return f, fmt.Errorf("%w: doc_id %q is not a UUID", ErrInvalidFilter, s)
		}
		f.DocumentID = &id
	}

	if s := values.Get("status"); s != "" {
		switch s {
		case StatusPending, StatusSuccess, StatusFailed:
			f.Status = &s
		default:
			return f, fmt.Errorf("%w: unknown status %q", ErrInvalidFilter, s)
		}
	}

	if s := values.Get("finding_type"); s != "" {
		f.FindingType = &s
	}

	var err error
	if f.From, err = parseBound(values.Get("from"), false); err != nil {
		return f, err
	}
	if f.To, err = parseBound(values.Get("to"), true); err != nil {
		return f, err
	}
	return f, nil
}

func parseBound(s string, upper bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a date", ErrInvalidFilter, s)
	}
	if upper {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}

func scanDocument(s repository.Scanner) (Document, error) {
	var (
		d      Document
		faults []byte
	)
	err := s.Scan(
		&d.ID,
		&d.Filename,
		&d.SizeBytes,
		&d.PageCount,
		&d.UploadedAt,
		&d.ProcessingTimeMs,
		&d.Status,
		&d.ErrorMessage,
		&d.StorageKey,
		&faults,
	)
	if err != nil {
		return d, err
	}

	d.PageFaults = []PageFault{}
	if len(faults) > 0 {
		if err := json.Unmarshal(faults, &d.PageFaults); err != nil {
			return d, fmt.Errorf("decode page faults: %w", err)
		}
	}
	return d, nil
}

func scanFinding(s repository.Scanner) (Finding, error) {
	var f Finding
	err := s.Scan(
		&f.ID,
		&f.DocumentID,
		&f.Type,
		&f.Value,
		&f.PageNumber,
		&f.Confidence,
		&f.Context,
		&f.DetectedAt,
	)
	return f, err
}

func scanMetric(s repository.Scanner) (Metric, error) {
	var m Metric
	err := s.Scan(
		&m.DocumentID,
		&m.Type,
		&m.Value,
		&m.RecordedAt,
		&m.ExpiresAt,
	)
	return m, err
}

func encodeFaults(faults []PageFault) (string, error) {
	if faults == nil {
		faults = []PageFault{}
	}
	b, err := json.Marshal(faults)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
