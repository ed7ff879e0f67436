package api

import (
	"fmt"

	"github.com/JaimeStill/sift/internal/findings"
	"github.com/JaimeStill/sift/internal/ingest"
	"github.com/JaimeStill/sift/internal/store"
	"github.com/JaimeStill/sift/pkg/admission"
	"github.com/JaimeStill/sift/pkg/detect"
	"github.com/JaimeStill/sift/pkg/pdftext"
	"github.com/JaimeStill/sift/pkg/validation"
	"github.com/JaimeStill/sift/pkg/workers"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Store    store.System
	Pipeline *ingest.Pipeline
	Findings findings.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) (*Domain, error) {
	sc := runtime.Scanner

	st := store.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
		store.Options{
			MetricRetention: sc.MetricsRetentionDuration(),
			PurgeInterval:   sc.MetricsPurgeIntervalDuration(),
		},
	)

	registry, err := detect.NewRegistryWithPatterns(detect.Options{
		KeywordWindow:     sc.KeywordWindow,
		ContextWindow:     sc.ContextWindow,
		SSNBaseConfidence: sc.SSNBaseConfidence,
	}, sc.PatternsFile)
	if err != nil {
		return nil, fmt.Errorf("detection rules: %w", err)
	}

	storePool := workers.New(sc.StoreWorkers)

	components := ingest.Components{
		Validator: validation.New(runtime.MaxUploadSize, sc.AllowedExtensions),
		Admission: admission.New(sc.MaxConcurrentUploads),
		Extractor: pdftext.New(runtime.Logger),
		Detector:  detect.New(registry, sc.ContextWindow),
		CPU:       workers.New(sc.ExtractionWorkers),
		IO:        storePool,
		Store:     st,
	}
	if runtime.Storage != nil {
		components.Archive = runtime.Storage
	}

	pipeline := ingest.New(components, ingest.Options{
		ProcessingTimeout: sc.ProcessingTimeoutDuration(),
		Metrics:           sc.Metrics(),
	}, runtime.Logger)

	return &Domain{
		Store:    st,
		Pipeline: pipeline,
		Findings: findings.New(st, storePool, runtime.Logger, runtime.Pagination),
	}, nil
}
