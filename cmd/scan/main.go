// Command scan runs the extraction and detection pipeline over local PDF
// files and prints the findings as JSON. Nothing is stored.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JaimeStill/sift/internal/config"
	"github.com/JaimeStill/sift/pkg/detect"
	"github.com/JaimeStill/sift/pkg/pdftext"
	"github.com/JaimeStill/sift/pkg/validation"
	"github.com/JaimeStill/sift/pkg/workers"
)

var errFilesFailed = errors.New("one or more files could not be scanned")

type options struct {
	configDir string
	patterns  string
	workers   int
	compact   bool
	files     []string
}

type pageFault struct {
	PageNumber int    `json:"page_number"`
	Error      string `json:"error"`
}

type report struct {
	Path       string           `json:"path"`
	Filename   string           `json:"filename,omitempty"`
	PageCount  int              `json:"page_count"`
	Findings   []detect.Finding `json:"findings"`
	Summary    map[string]int   `json:"summary"`
	PageFaults []pageFault      `json:"page_faults,omitempty"`
	Error      string           `json:"error,omitempty"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout, logger); err != nil {
		logger.Error("scan failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.StringVar(&o.configDir, "config", ".", "Directory containing config.toml")
	fs.StringVar(&o.patterns, "patterns", "", "YAML file of additional detection patterns (overrides scanner.patterns_file)")
	fs.IntVar(&o.workers, "workers", 0, "Files scanned concurrently (default scanner.extraction_workers)")
	fs.BoolVar(&o.compact, "compact", false, "Print compact JSON")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: scan [flags] file.pdf [file.pdf ...]\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	o.files = fs.Args()
	if len(o.files) == 0 {
		fs.Usage()
		return o, errors.New("no files given")
	}
	return o, nil
}

func run(ctx context.Context, o options, out io.Writer, logger *slog.Logger) error {
	cfg, err := config.LoadFrom(o.configDir)
	if err != nil {
		return err
	}

	sc := cfg.Scanner
	if o.patterns != "" {
		sc.PatternsFile = o.patterns
	}
	if o.workers <= 0 {
		o.workers = sc.ExtractionWorkers
	}

	registry, err := detect.NewRegistryWithPatterns(detect.Options{
		KeywordWindow:     sc.KeywordWindow,
		ContextWindow:     sc.ContextWindow,
		SSNBaseConfidence: sc.SSNBaseConfidence,
	}, sc.PatternsFile)
	if err != nil {
		return fmt.Errorf("detection rules: %w", err)
	}

	s := &scanner{
		validator: validation.New(cfg.API.MaxUploadSizeBytes(), sc.AllowedExtensions),
		extractor: pdftext.New(logger),
		detector:  detect.New(registry, sc.ContextWindow),
	}

	pool := workers.New(o.workers)
	reports := make([]report, len(o.files))
	fns := make([]func() error, len(o.files))
	for i, path := range o.files {
		fns[i] = func() error {
			reports[i] = s.scan(ctx, path)
			return nil
		}
	}
	if err := workers.All(ctx, pool, fns...); err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	if !o.compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(reports); err != nil {
		return err
	}

	for _, r := range reports {
		if r.Error != "" {
			return errFilesFailed
		}
	}
	return nil
}

type scanner struct {
	validator *validation.Validator
	extractor *pdftext.Extractor
	detector  *detect.Detector
}

func (s *scanner) scan(ctx context.Context, path string) report {
	r := report{Path: path, Findings: []detect.Finding{}}

	data, err := os.ReadFile(path)
	if err != nil {
		r.Error = err.Error()
		return r.summarize()
	}

	accepted, err := s.validator.Validate(data, path)
	if err != nil {
		r.Error = err.Error()
		return r.summarize()
	}
	r.Filename = accepted.Filename

	pages, err := s.extractor.Extract(ctx, data)
	r.PageCount = len(pages)
	for _, page := range pages {
		if page.Fault != nil {
			r.PageFaults = append(r.PageFaults, pageFault{PageNumber: page.Number, Error: page.Fault.Error()})
			continue
		}
		r.Findings = append(r.Findings, s.detector.Detect(page.Text, page.Number)...)
	}
	if err != nil {
		r.Error = err.Error()
	}

	return r.summarize()
}

func (r report) summarize() report {
	r.Summary = map[string]int{"total": len(r.Findings)}
	for _, f := range r.Findings {
		r.Summary[string(f.Type)]++
	}
	return r
}
