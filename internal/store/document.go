package store

import (
	"time"

	"github.com/google/uuid"
)

// Document status values.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// PageFault records a page that no extraction strategy could read.
type PageFault struct {
	PageNumber int    `json:"page_number"`
	Error      string `json:"error"`
}

// Document is a scanned upload.
type Document struct {
	ID               uuid.UUID   `json:"document_id"`
	Filename         string      `json:"filename"`
	SizeBytes        int64       `json:"size_bytes"`
	PageCount        int         `json:"page_count"`
	UploadedAt       time.Time   `json:"uploaded_at"`
	ProcessingTimeMs int64       `json:"processing_time_ms"`
	Status           string      `json:"status"`
	ErrorMessage     *string     `json:"error_message,omitempty"`
	StorageKey       *string     `json:"storage_key,omitempty"`
	PageFaults       []PageFault `json:"page_faults"`
}

// Finding is a detected sensitive value. IDs are ULIDs, so they sort by
// detection order.
type Finding struct {
	ID         string    `json:"finding_id"`
	DocumentID uuid.UUID `json:"document_id"`
	Type       string    `json:"finding_type"`
	Value      string    `json:"value"`
	PageNumber int       `json:"page_number"`
	Confidence float64   `json:"confidence"`
	Context    *string   `json:"context,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}

// Metric types written by the ingestion pipeline.
const (
	MetricProcessingTime = "processing_time_ms"
	MetricPageCount      = "page_count"
	MetricFileSize       = "file_size_bytes"
	MetricFindingsCount  = "findings_count"
	MetricPageFaults     = "page_faults"
)

// Metric is one processing measurement for a document.
type Metric struct {
	DocumentID uuid.UUID `json:"document_id"`
	Type       string    `json:"metric_type"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Statistics summarizes everything scanned so far.
type Statistics struct {
	TotalDocuments          int            `json:"total_documents"`
	TotalFindings           int            `json:"total_findings"`
	FindingsByType          map[string]int `json:"findings_by_type"`
	AverageProcessingTimeMs float64        `json:"average_processing_time_ms"`
	TotalPagesProcessed     int            `json:"total_pages_processed"`
	DocumentsWithFindings   int            `json:"documents_with_findings"`
}
