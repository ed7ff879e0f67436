package findings

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/sift/internal/store"
	"github.com/JaimeStill/sift/pkg/pagination"
	"github.com/JaimeStill/sift/pkg/workers"
)

type service struct {
	store      store.System
	io         *workers.Pool
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a findings System reading from st. Store calls run on io,
// the same bounded pool the ingestion pipeline writes through.
func New(st store.System, io *workers.Pool, logger *slog.Logger, pagination pagination.Config) System {
	return &service{
		store:      st,
		io:         io,
		logger:     logger.With("system", "findings"),
		pagination: pagination,
	}
}

func (s *service) Handler() *Handler {
	return NewHandler(s, s.logger, s.pagination)
}

func (s *service) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters store.DocumentFilters,
) (*pagination.PageResult[DocumentFindings], error) {
	docs, err := workers.Do(ctx, s.io, func() (*pagination.PageResult[store.Document], error) {
		return s.store.ListDocuments(ctx, page, filters)
	})
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(docs.Data))
	for i, d := range docs.Data {
		ids[i] = d.ID
	}

	byDoc, err := workers.Do(ctx, s.io, func() (map[uuid.UUID][]store.Finding, error) {
		return s.store.FindingsFor(ctx, ids, filters.FindingType)
	})
	if err != nil {
		return nil, err
	}

	items := make([]DocumentFindings, len(docs.Data))
	for i, d := range docs.Data {
		items[i] = newDocumentFindings(d, byDoc[d.ID])
	}

	result := pagination.PageResult[DocumentFindings]{
		Data:       items,
		Total:      docs.Total,
		Page:       docs.Page,
		PageSize:   docs.PageSize,
		TotalPages: docs.TotalPages,
	}
	return &result, nil
}

func (s *service) Find(ctx context.Context, documentID uuid.UUID, findingType *string) (*DocumentFindings, error) {
	doc, err := s.document(ctx, documentID)
	if err != nil {
		return nil, err
	}

	found, err := workers.Do(ctx, s.io, func() ([]store.Finding, error) {
		return s.store.GetFindings(ctx, documentID, findingType)
	})
	if err != nil {
		return nil, err
	}

	result := newDocumentFindings(*doc, found)
	return &result, nil
}

func (s *service) Summary(ctx context.Context) (*store.Statistics, error) {
	return workers.Do(ctx, s.io, func() (*store.Statistics, error) {
		return s.store.GetSummaryStatistics(ctx)
	})
}

func (s *service) Metrics(ctx context.Context, documentID uuid.UUID) ([]store.Metric, error) {
	if _, err := s.document(ctx, documentID); err != nil {
		return nil, err
	}

	metrics, err := workers.Do(ctx, s.io, func() ([]store.Metric, error) {
		return s.store.ListMetrics(ctx, documentID)
	})
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = []store.Metric{}
	}
	return metrics, nil
}

func (s *service) document(ctx context.Context, id uuid.UUID) (*store.Document, error) {
	return workers.Do(ctx, s.io, func() (*store.Document, error) {
		return s.store.GetDocument(ctx, id)
	})
}
