// Package store persists scanned documents, their findings, and processing
// metrics in PostgreSQL.
//
// Documents are written once, at their terminal status. Findings are
// immutable and cascade with their document. Metrics are append-only and
// carry an expiry; expired rows are hidden from reads and removed by the
// retention job.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/sift/pkg/lifecycle"
	"github.com/JaimeStill/sift/pkg/pagination"
)

// System is the persistence contract for the scanner.
type System interface {
	InsertDocument(ctx context.Context, doc Document) error
	InsertFindings(ctx context.Context, documentID uuid.UUID, findings []Finding) error

	// Record writes doc and its findings in one transaction.
	Record(ctx context.Context, doc Document, findings []Finding) error

	InsertMetric(ctx context.Context, m Metric) error

	GetDocument(ctx context.Context, id uuid.UUID) (*Document, error)
	ListDocuments(
		ctx context.Context,
		page pagination.PageRequest,
		filters DocumentFilters,
	) (*pagination.PageResult[Document], error)

	// GetFindings returns the findings of one document ordered by page,
	// detection time, then id. A nil findingType returns all types.
	GetFindings(ctx context.Context, documentID uuid.UUID, findingType *string) ([]Finding, error)

	// FindingsFor returns findings for several documents keyed by document id.
	FindingsFor(ctx context.Context, documentIDs []uuid.UUID, findingType *string) (map[uuid.UUID][]Finding, error)

	GetSummaryStatistics(ctx context.Context) (*Statistics, error)

	ListMetrics(ctx context.Context, documentID uuid.UUID) ([]Metric, error)
	PurgeExpiredMetrics(ctx context.Context) (int64, error)

	// Start registers the metric retention job with the coordinator.
	Start(lc *lifecycle.Coordinator)

	Ping(ctx context.Context) error
}

// Options tune metric retention.
type Options struct {
	MetricRetention time.Duration
	PurgeInterval   time.Duration
}

// Default retention settings.
const (
	DefaultMetricRetention = 30 * 24 * time.Hour
	DefaultPurgeInterval   = time.Hour
)

func (o Options) withDefaults() Options {
	if o.MetricRetention <= 0 {
		o.MetricRetention = DefaultMetricRetention
	}
	if o.PurgeInterval <= 0 {
		o.PurgeInterval = DefaultPurgeInterval
	}
	return o
}
