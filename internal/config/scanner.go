package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	EnvScannerMaxConcurrentUploads = "SIFT_SCANNER_MAX_CONCURRENT_UPLOADS"
	EnvScannerExtractionWorkers    = "SIFT_SCANNER_EXTRACTION_WORKERS"
	EnvScannerStoreWorkers         = "SIFT_SCANNER_STORE_WORKERS"
	EnvScannerAllowedExtensions    = "SIFT_SCANNER_ALLOWED_EXTENSIONS"
	EnvScannerProcessingTimeout    = "SIFT_SCANNER_PROCESSING_TIMEOUT"
	EnvScannerKeywordWindow        = "SIFT_SCANNER_KEYWORD_WINDOW"
	EnvScannerContextWindow        = "SIFT_SCANNER_CONTEXT_WINDOW"
	EnvScannerSSNBaseConfidence    = "SIFT_SCANNER_SSN_BASE_CONFIDENCE"
	EnvScannerPatternsFile         = "SIFT_SCANNER_PATTERNS_FILE"
	EnvScannerMetricsEnabled       = "SIFT_SCANNER_METRICS_ENABLED"
	EnvScannerMetricsRetention     = "SIFT_SCANNER_METRICS_RETENTION"
	EnvScannerMetricsPurgeInterval = "SIFT_SCANNER_METRICS_PURGE_INTERVAL"
)

// ScannerConfig tunes ingestion concurrency and detection.
//
// MetricsEnabled is a pointer so an overlay can switch metrics off; nil
// means the default (enabled).
type ScannerConfig struct {
	MaxConcurrentUploads int      `toml:"max_concurrent_uploads"`
	ExtractionWorkers    int      `toml:"extraction_workers"`
	StoreWorkers         int      `toml:"store_workers"`
	AllowedExtensions    []string `toml:"allowed_extensions"`
	ProcessingTimeout    string   `toml:"processing_timeout"`
	KeywordWindow        int      `toml:"keyword_window"`
	ContextWindow        int      `toml:"context_window"`
	SSNBaseConfidence    float64  `toml:"ssn_base_confidence"`
	PatternsFile         string   `toml:"patterns_file"`
	MetricsEnabled       *bool    `toml:"metrics_enabled"`
	MetricsRetention     string   `toml:"metrics_retention"`
	MetricsPurgeInterval string   `toml:"metrics_purge_interval"`
}

// ProcessingTimeoutDuration returns ProcessingTimeout as a time.Duration.
func (c *ScannerConfig) ProcessingTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ProcessingTimeout)
	return d
}

// MetricsRetentionDuration returns MetricsRetention as a time.Duration.
func (c *ScannerConfig) MetricsRetentionDuration() time.Duration {
	d, _ := time.ParseDuration(c.MetricsRetention)
	return d
}

// MetricsPurgeIntervalDuration returns MetricsPurgeInterval as a time.Duration.
func (c *ScannerConfig) MetricsPurgeIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.MetricsPurgeInterval)
	return d
}

// Metrics reports whether processing metrics are recorded.
func (c *ScannerConfig) Metrics() bool {
	return c.MetricsEnabled == nil || *c.MetricsEnabled
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ScannerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ScannerConfig) Merge(overlay *ScannerConfig) {
	if overlay.MaxConcurrentUploads != 0 {
		c.MaxConcurrentUploads = overlay.MaxConcurrentUploads
	}
	if overlay.ExtractionWorkers != 0 {
		c.ExtractionWorkers = overlay.ExtractionWorkers
	}
	if overlay.StoreWorkers != 0 {
		c.StoreWorkers = overlay.StoreWorkers
	}
	if len(overlay.AllowedExtensions) > 0 {
		c.AllowedExtensions = overlay.AllowedExtensions
	}
	if overlay.ProcessingTimeout != "" {
		c.ProcessingTimeout = overlay.ProcessingTimeout
	}
	if overlay.KeywordWindow != 0 {
		c.KeywordWindow = overlay.KeywordWindow
	}
	if overlay.ContextWindow != 0 {
		c.ContextWindow = overlay.ContextWindow
	}
	if overlay.SSNBaseConfidence != 0 {
		c.SSNBaseConfidence = overlay.SSNBaseConfidence
	}
	if overlay.PatternsFile != "" {
		c.PatternsFile = overlay.PatternsFile
	}
	if overlay.MetricsEnabled != nil {
		c.MetricsEnabled = overlay.MetricsEnabled
	}
	if overlay.MetricsRetention != "" {
		c.MetricsRetention = overlay.MetricsRetention
	}
	if overlay.MetricsPurgeInterval != "" {
		c.MetricsPurgeInterval = overlay.MetricsPurgeInterval
	}
}

func (c *ScannerConfig) loadDefaults() {
	if c.MaxConcurrentUploads == 0 {
		c.MaxConcurrentUploads = 10
	}
	if c.ExtractionWorkers == 0 {
		c.ExtractionWorkers = runtime.NumCPU()
	}
	if c.StoreWorkers == 0 {
		c.StoreWorkers = 8
	}
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = []string{".pdf"}
	}
	if c.ProcessingTimeout == "" {
		c.ProcessingTimeout = "300s"
	}
	if c.KeywordWindow == 0 {
		c.KeywordWindow = 50
	}
	if c.ContextWindow == 0 {
		c.ContextWindow = 30
	}
	if c.SSNBaseConfidence == 0 {
		c.SSNBaseConfidence = 0.8
	}
	if c.MetricsRetention == "" {
		c.MetricsRetention = "720h"
	}
	if c.MetricsPurgeInterval == "" {
		c.MetricsPurgeInterval = "1h"
	}
}

func (c *ScannerConfig) loadEnv() {
	envInt(EnvScannerMaxConcurrentUploads, &c.MaxConcurrentUploads)
	envInt(EnvScannerExtractionWorkers, &c.ExtractionWorkers)
	envInt(EnvScannerStoreWorkers, &c.StoreWorkers)
	envInt(EnvScannerKeywordWindow, &c.KeywordWindow)
	envInt(EnvScannerContextWindow, &c.ContextWindow)

	if v := os.Getenv(EnvScannerAllowedExtensions); v != "" {
		var exts []string
		for ext := range strings.SplitSeq(v, ",") {
			if ext = strings.TrimSpace(ext); ext != "" {
				exts = append(exts, ext)
			}
		}
		c.AllowedExtensions = exts
	}
	if v := os.Getenv(EnvScannerProcessingTimeout); v != "" {
		c.ProcessingTimeout = v
	}
	if v := os.Getenv(EnvScannerSSNBaseConfidence); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.SSNBaseConfidence = f
		}
	}
	if v := os.Getenv(EnvScannerPatternsFile); v != "" {
		c.PatternsFile = v
	}
	if v := os.Getenv(EnvScannerMetricsEnabled); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.MetricsEnabled = &b
		}
	}
	if v := os.Getenv(EnvScannerMetricsRetention); v != "" {
		c.MetricsRetention = v
	}
	if v := os.Getenv(EnvScannerMetricsPurgeInterval); v != "" {
		c.MetricsPurgeInterval = v
	}
}

func (c *ScannerConfig) validate() error {
	if c.MaxConcurrentUploads < 1 {
		return fmt.Errorf("max_concurrent_uploads must be positive")
	}
	if c.ExtractionWorkers < 1 {
		return fmt.Errorf("extraction_workers must be positive")
	}
	if c.StoreWorkers < 1 {
		return fmt.Errorf("store_workers must be positive")
	}
	if len(c.AllowedExtensions) == 0 {
		return fmt.Errorf("allowed_extensions required")
	}
	if c.KeywordWindow < 1 {
		return fmt.Errorf("keyword_window must be positive")
	}
	if c.ContextWindow < 0 {
		return fmt.Errorf("context_window must not be negative")
	}
	if c.SSNBaseConfidence <= 0 || c.SSNBaseConfidence > 1 {
		return fmt.Errorf("ssn_base_confidence must be in (0, 1]")
	}
	for name, v := range map[string]string{
		"processing_timeout":     c.ProcessingTimeout,
		"metrics_retention":      c.MetricsRetention,
		"metrics_purge_interval": c.MetricsPurgeInterval,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
