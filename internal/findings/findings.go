// Package findings serves stored scan results: per-document findings,
// filtered listings, summary statistics, and processing metrics.
package findings

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/sift/internal/store"
	"github.com/JaimeStill/sift/pkg/pagination"
)

// SummaryTotal is the summary key holding the total finding count.
const SummaryTotal = "total"

// DocumentFindings is a document with its findings and per-type counts.
type DocumentFindings struct {
	Document store.Document  `json:"document"`
	Findings []store.Finding `json:"findings"`
	Summary  map[string]int  `json:"summary"`
}

// System defines the read operations over scan results.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters store.DocumentFilters,
	) (*pagination.PageResult[DocumentFindings], error)

	// Find returns one document and its findings. A nil findingType returns
	// all types.
	Find(ctx context.Context, documentID uuid.UUID, findingType *string) (*DocumentFindings, error)

	Summary(ctx context.Context) (*store.Statistics, error)
	Metrics(ctx context.Context, documentID uuid.UUID) ([]store.Metric, error)
}

// Summarize counts findings by type, plus a total.
func Summarize(findings []store.Finding) map[string]int {
	summary := map[string]int{SummaryTotal: len(findings)}
	for _, f := range findings {
		summary[f.Type]++
	}
	return summary
}

func newDocumentFindings(doc store.Document, findings []store.Finding) DocumentFindings {
	if findings == nil {
		findings = []store.Finding{}
	}
	return DocumentFindings{
		Document: doc,
		Findings: findings,
		Summary:  Summarize(findings),
	}
}
