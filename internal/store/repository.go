package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/sift/pkg/pagination"
	"github.com/JaimeStill/sift/pkg/query"
	"github.com/JaimeStill/sift/pkg/repository"
)

// findingsBatchSize caps rows per multi-row INSERT, keeping the parameter
// count well under the PostgreSQL limit of 65535.
const findingsBatchSize = 500

const findingColumns = 8

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
	options    Options
}

// New creates a PostgreSQL-backed System.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
	options Options,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "store"),
		pagination: pagination,
		options:    options.withDefaults(),
	}
}

func (r *repo) InsertDocument(ctx context.Context, doc Document) error {
	if err := insertDocument(ctx, r.db, doc); err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	r.logger.Info("document stored", "document_id", doc.ID, "status", doc.Status)
	return nil
}

func (r *repo) InsertFindings(ctx context.Context, documentID uuid.UUID, findings []Finding) error {
	if len(findings) == 0 {
		return nil
	}

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, insertFindings(ctx, tx, documentID, findings)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func (r *repo) Record(ctx context.Context, doc Document, findings []Finding) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := insertDocument(ctx, tx, doc); err != nil {
			return struct{}{}, fmt.Errorf("insert document: %w", err)
		}
		if err := insertFindings(ctx, tx, doc.ID, findings); err != nil {
			return struct{}{}, fmt.Errorf("insert findings: %w", err)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"document recorded",
		"document_id", doc.ID,
		"status", doc.Status,
		"findings", len(findings),
	)
	return nil
}

func (r *repo) InsertMetric(ctx context.Context, m Metric) error {
	if m.RecordedAt.IsZero() {
		m.RecordedAt = time.Now().UTC()
	}
	if m.ExpiresAt.IsZero() {
		m.ExpiresAt = m.RecordedAt.Add(r.options.MetricRetention)
	}

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO metrics (document_id, metric_type, value, recorded_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.DocumentID, m.Type, m.Value, m.RecordedAt, m.ExpiresAt,
	)
	return err
}

func (r *repo) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	q, args := query.NewBuilder(documentProjection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) ListDocuments(
	ctx context.Context,
	page pagination.PageRequest,
	filters DocumentFilters,
) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(documentProjection, documentSort...).
		WhereSearch(page.Search, "Filename")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) GetFindings(ctx context.Context, documentID uuid.UUID, findingType *string) ([]Finding, error) {
	q, args := query.
		NewBuilder(findingProjection, findingSort...).
		WhereEquals("DocumentID", documentID).
		WhereEquals("Type", findingType).
		Build()

	findings, err := repository.QueryMany(ctx, r.db, q, args, scanFinding)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	return findings, nil
}

func (r *repo) FindingsFor(
	ctx context.Context,
	documentIDs []uuid.UUID,
	findingType *string,
) (map[uuid.UUID][]Finding, error) {
	grouped := make(map[uuid.UUID][]Finding, len(documentIDs))
	if len(documentIDs) == 0 {
		return grouped, nil
	}

	ids := make([]any, len(documentIDs))
	for i, id := range documentIDs {
		ids[i] = id
	}

	q, args := query.
		NewBuilder(findingProjection, findingSort...).
		WhereIn("DocumentID", ids).
		WhereEquals("Type", findingType).
		Build()

	findings, err := repository.QueryMany(ctx, r.db, q, args, scanFinding)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}

	for _, f := range findings {
		grouped[f.DocumentID] = append(grouped[f.DocumentID], f)
	}
	return grouped, nil
}

func (r *repo) GetSummaryStatistics(ctx context.Context) (*Statistics, error) {
	stats := Statistics{FindingsByType: make(map[string]int)}

	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM findings),
			(SELECT COALESCE(AVG(processing_time_ms), 0) FROM documents),
			(SELECT COALESCE(SUM(page_count), 0) FROM documents),
			(SELECT COUNT(DISTINCT document_id) FROM findings)`,
	).Scan(
		&stats.TotalDocuments,
		&stats.TotalFindings,
		&stats.AverageProcessingTimeMs,
		&stats.TotalPagesProcessed,
		&stats.DocumentsWithFindings,
	)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT finding_type, COUNT(*)
		FROM findings
		GROUP BY finding_type
		ORDER BY finding_type`,
	)
	if err != nil {
		return nil, fmt.Errorf("query findings by type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan findings by type: %w", err)
		}
		stats.FindingsByType[kind] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query findings by type: %w", err)
	}

	return &stats, nil
}

func (r *repo) ListMetrics(ctx context.Context, documentID uuid.UUID) ([]Metric, error) {
	q, args := query.
		NewBuilder(metricProjection, query.SortField{Field: "RecordedAt"}, query.SortField{Field: "Type"}).
		WhereEquals("DocumentID", documentID).
		Where("m.expires_at > now()").
		Build()

	metrics, err := repository.QueryMany(ctx, r.db, q, args, scanMetric)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	return metrics, nil
}

func (r *repo) PurgeExpiredMetrics(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM metrics WHERE expires_at <= now()")
	if err != nil {
		return 0, fmt.Errorf("purge metrics: %w", err)
	}
	return result.RowsAffected()
}

func (r *repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func insertDocument(ctx context.Context, e repository.Executor, doc Document) error {
	faults, err := encodeFaults(doc.PageFaults)
	if err != nil {
		return fmt.Errorf("encode page faults: %w", err)
	}

	return repository.ExecExpectOne(
		ctx, e,
		`INSERT INTO documents (
			id, filename, size_bytes, page_count, uploaded_at,
			processing_time_ms, status, error_message, storage_key, page_faults
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.ID,
		doc.Filename,
		doc.SizeBytes,
		doc.PageCount,
		doc.UploadedAt,
		doc.ProcessingTimeMs,
		doc.Status,
		doc.ErrorMessage,
		doc.StorageKey,
		faults,
	)
}

func insertFindings(ctx context.Context, e repository.Executor, documentID uuid.UUID, findings []Finding) error {
	for start := 0; start < len(findings); start += findingsBatchSize {
		end := min(start+findingsBatchSize, len(findings))
		q, args := buildFindingsInsert(documentID, findings[start:end])
		if _, err := e.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func buildFindingsInsert(documentID uuid.UUID, findings []Finding) (string, []any) {
	var b strings.Builder
	b.WriteString(`INSERT INTO findings (
		id, document_id, finding_type, value, page_number, confidence, context, detected_at
	) VALUES `)

	args := make([]any, 0, len(findings)*findingColumns)
	for i, f := range findings {
		if i > 0 {
			b.WriteString(", ")
		}
		n := i * findingColumns
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			n+1, n+2, n+3, n+4, n+5, n+6, n+7, n+8)
		args = append(args,
			f.ID,
			documentID,
			f.Type,
			f.Value,
			f.PageNumber,
			f.Confidence,
			f.Context,
			f.DetectedAt,
		)
	}
	return b.String(), args
}
