// Package ingest runs an upload through validation, admission, text
// extraction, detection, and persistence.
//
// Each upload moves through the states
//
//	received → validating → admitted → extracting → detecting → persisting → completed
//
// or ends in failed. Uploads rejected during validation leave no trace in the
// store; every upload that is admitted is recorded exactly once, at its
// terminal status.
package ingest

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/sift/internal/store"
)

// State is a step of the ingestion state machine.
type State string

const (
	StateReceived   State = "received"
	StateValidating State = "validating"
	StateAdmitted   State = "admitted"
	StateExtracting State = "extracting"
	StateDetecting  State = "detecting"
	StatePersisting State = "persisting"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Upload is a file submitted for scanning.
type Upload struct {
	Filename string
	Data     []byte
}

// Result summarizes a completed scan.
type Result struct {
	DocumentID       uuid.UUID         `json:"document_id"`
	Filename         string            `json:"filename"`
	Status           string            `json:"status"`
	PageCount        int               `json:"page_count"`
	FindingsCount    int               `json:"findings_count"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
	Message          string            `json:"message"`
	PageFaults       []store.PageFault `json:"page_faults,omitempty"`
	Findings         []store.Finding   `json:"-"`
}

// Options tune a Pipeline.
type Options struct {
	// ProcessingTimeout bounds everything after admission.
	ProcessingTimeout time.Duration
	// Metrics enables best-effort processing metrics.
	Metrics bool
}

// DefaultProcessingTimeout applies when Options.ProcessingTimeout is unset.
const DefaultProcessingTimeout = 300 * time.Second

// failureWriteTimeout bounds recording a failed document after the
// processing context has ended.
const failureWriteTimeout = 10 * time.Second
