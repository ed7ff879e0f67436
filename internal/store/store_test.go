package store_test

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/sift/internal/store"
	"github.com/JaimeStill/sift/pkg/query"
)

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"duplicate", store.ErrDuplicate, http.StatusConflict},
		{"invalid filter", store.ErrInvalidFilter, http.StatusBadRequest},
		{"wrapped not found", errors.Join(errors.New("ctx"), store.ErrNotFound), http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := store.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestDocumentFiltersFromQuery(t *testing.T) {
	id := uuid.New()

	t.Run("empty", func(t *testing.T) {
		f, err := store.DocumentFiltersFromQuery(url.Values{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.DocumentID != nil || f.Status != nil || f.FindingType != nil || f.From != nil || f.To != nil {
			t.Errorf("expected no filters, got %+v", f)
		}
	})

	t.Run("all fields", func(t *testing.T) {
		values := url.Values{
			"doc_id":       {id.String()},
			"status":       {"success"},
			"finding_type": {"ssn"},
			"from":         {"2026-03-01T12:00:00Z"},
			"to":           {"2026-03-31"},
		}

		f, err := store.DocumentFiltersFromQuery(values)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.DocumentID == nil || *f.DocumentID != id {
			t.Errorf("doc_id: got %v", f.DocumentID)
		}
		if f.Status == nil || *f.Status != store.StatusSuccess {
			t.Errorf("status: got %v", f.Status)
		}
		if f.FindingType == nil || *f.FindingType != "ssn" {
			t.Errorf("finding_type: got %v", f.FindingType)
		}
		if want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC); f.From == nil || !f.From.Equal(want) {
			t.Errorf("from: got %v, want %v", f.From, want)
		}
		if want := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC); f.To == nil || !f.To.Equal(want) {
			t.Errorf("date-only to should include the whole day: got %v, want %v", f.To, want)
		}
	})

	invalid := []struct {
		name   string
		values url.Values
	}{
		{"bad doc_id", url.Values{"doc_id": {"nope"}}},
		{"bad status", url.Values{"status": {"done"}}},
		{"bad from", url.Values{"from": {"yesterday"}}},
		{"bad to", url.Values{"to": {"2026-13-01"}}},
	}

	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.DocumentFiltersFromQuery(tt.values)
			if !errors.Is(err, store.ErrInvalidFilter) {
				t.Errorf("got %v, want ErrInvalidFilter", err)
			}
		})
	}
}

func TestDocumentFiltersApply(t *testing.T) {
	id := uuid.New()
	status := store.StatusSuccess
	kind := "email"
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	p := query.NewProjectionMap("public", "documents", "d").
		Project("id", "ID").
		Project("status", "Status").
		Project("uploaded_at", "UploadedAt")

	filters := store.DocumentFilters{
		DocumentID:  &id,
		Status:      &status,
		FindingType: &kind,
		From:        &from,
	}

	sql, args := filters.Apply(query.NewBuilder(p)).BuildCount()

	want := "SELECT COUNT(*) FROM public.documents d WHERE d.id = $1 AND d.status = $2 AND d.uploaded_at >= $3" +
		" AND EXISTS (SELECT 1 FROM public.findings ft WHERE ft.document_id = d.id AND ft.finding_type = $4)"
	if sql != want {
		t.Errorf("sql:\n got %q\nwant %q", sql, want)
	}
	if len(args) != 4 || args[3] != "email" {
		t.Errorf("args = %v", args)
	}
}

func TestBuildFindingsInsert(t *testing.T) {
	docID := uuid.New()
	at := time.Now().UTC()
	ctx := "...SSN: 123-45-6789"

	findings := []store.Finding{
		{ID: "01A", Type: "email", Value: "a@b.co", PageNumber: 1, Confidence: 1, DetectedAt: at},
		{ID: "01B", Type: "ssn", Value: "123-45-6789", PageNumber: 2, Confidence: 1, Context: &ctx, DetectedAt: at},
	}

	sql, args := store.BuildFindingsInsert(docID, findings)

	if !strings.HasSuffix(sql, "VALUES ($1, $2, $3, $4, $5, $6, $7, $8), ($9, $10, $11, $12, $13, $14, $15, $16)") {
		t.Errorf("unexpected VALUES clause: %q", sql)
	}
	if len(args) != 16 {
		t.Fatalf("args length = %d, want 16", len(args))
	}
	if args[0] != "01A" || args[9] != docID || args[10] != "ssn" {
		t.Errorf("args out of order: %v", args)
	}
}
