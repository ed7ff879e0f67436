package pdftext_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/JaimeStill/sift/pkg/pdftext"
	"github.com/JaimeStill/sift/pkg/pdftext/pdftest"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubStrategy struct {
	name    string
	pages   int
	openErr error
	text    func(page int) (string, error)
	calls   *int
}

func (s stubStrategy) Name() string { return s.name }

func (s stubStrategy) Open(data []byte) (pdftext.Source, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return stubSource{s}, nil
}

type stubSource struct{ s stubStrategy }

func (src stubSource) NumPages() int { return src.s.pages }

func (src stubSource) PageText(n int) (string, error) {
	if src.s.calls != nil {
		*src.s.calls++
	}
	return src.s.text(n)
}

func TestExtractRealDocument(t *testing.T) {
	data := pdftest.Build("Contact: jane@co.com", "SSN: 123-45-6789")
	ex := pdftext.New(discard())

	pages, err := ex.Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}

	want := []string{"jane@co.com", "123-45-6789"}
	for i, p := range pages {
		if p.Number != i+1 {
			t.Errorf("page %d number = %d", i, p.Number)
		}
		if p.Fault != nil {
			t.Errorf("page %d fault: %v", p.Number, p.Fault)
		}
		if !strings.Contains(p.Text, want[i]) {
			t.Errorf("page %d text = %q, want it to contain %q", p.Number, p.Text, want[i])
		}
	}
}

func TestFallbackStrategyReadsRealDocument(t *testing.T) {
	data := pdftest.Build("first line\nContact: jane@co.com")
	broken := stubStrategy{name: "broken", openErr: errors.New("unsupported")}
	ex := pdftext.NewWithStrategies(discard(), broken, pdftext.Fallback())

	pages, err := ex.Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if pages[0].Strategy != "stream" {
		t.Errorf("strategy = %q, want stream", pages[0].Strategy)
	}
	if pages[0].Text != "first line\nContact: jane@co.com\n" {
		t.Errorf("text = %q", pages[0].Text)
	}
}

func TestFallbackRunsOnlyForFailedPages(t *testing.T) {
	var fallbackCalls int
	primary := stubStrategy{
		name:  "primary",
		pages: 3,
		text: func(n int) (string, error) {
			if n == 2 {
				return "   ", nil
			}
			return fmt.Sprintf("primary %d", n), nil
		},
	}
	fallback := stubStrategy{
		name:  "fallback",
		pages: 3,
		calls: &fallbackCalls,
		text: func(n int) (string, error) {
			return fmt.Sprintf("fallback %d", n), nil
		},
	}

	pages, err := pdftext.NewWithStrategies(discard(), primary, fallback).
		Extract(context.Background(), []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	got := []string{pages[0].Text, pages[1].Text, pages[2].Text}
	want := []string{"primary 1", "fallback 2", "primary 3"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("page %d = %q, want %q", i+1, got[i], want[i])
		}
	}
	if fallbackCalls != 1 {
		t.Errorf("fallback calls = %d, want 1", fallbackCalls)
	}
}

func TestPartialExtraction(t *testing.T) {
	fail := func(n int) (string, error) {
		if n == 3 {
			return "", errors.New("bad stream")
		}
		return fmt.Sprintf("page %d", n), nil
	}
	primary := stubStrategy{name: "primary", pages: 5, text: fail}
	fallback := stubStrategy{name: "fallback", pages: 5, text: func(n int) (string, error) {
		return "", fmt.Errorf("fallback failed on %d", n)
	}}

	pages, err := pdftext.NewWithStrategies(discard(), primary, fallback).
		Extract(context.Background(), []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(pages) != 5 {
		t.Fatalf("pages = %d, want 5", len(pages))
	}

	for _, p := range pages {
		if p.Number == 3 {
			if p.Fault == nil {
				t.Fatal("page 3 should carry a fault")
			}
			if len(p.Fault.Attempts) != 2 {
				t.Errorf("attempts = %d, want 2", len(p.Fault.Attempts))
			}
			if p.Text != "" {
				t.Errorf("faulted page text = %q, want empty", p.Text)
			}
			continue
		}
		if p.Fault != nil || p.Text != fmt.Sprintf("page %d", p.Number) {
			t.Errorf("page %d = %+v", p.Number, p)
		}
	}
}

func TestCorruptedDocument(t *testing.T) {
	t.Run("unparseable bytes", func(t *testing.T) {
		_, err := pdftext.New(discard()).Extract(
			context.Background(),
			[]byte("%PDF-1.4\nthis is not a pdf\n%%EOF\n"),
		)
		if !errors.Is(err, pdftext.ErrCorruptedDocument) {
			t.Errorf("err = %v, want ErrCorruptedDocument", err)
		}
	})

	t.Run("every page fails", func(t *testing.T) {
		empty := stubStrategy{name: "empty", pages: 2, text: func(int) (string, error) { return "", nil }}
		_, err := pdftext.NewWithStrategies(discard(), empty, empty).
			Extract(context.Background(), []byte("%PDF-1.4"))
		if !errors.Is(err, pdftext.ErrCorruptedDocument) {
			t.Errorf("err = %v, want ErrCorruptedDocument", err)
		}
	})

	t.Run("no pages", func(t *testing.T) {
		none := stubStrategy{name: "none", pages: 0}
		_, err := pdftext.NewWithStrategies(discard(), none, none).Open([]byte("%PDF-1.4"))
		if !errors.Is(err, pdftext.ErrCorruptedDocument) {
			t.Errorf("err = %v, want ErrCorruptedDocument", err)
		}
	})
}

func TestStrategyPanicIsRecovered(t *testing.T) {
	panicky := stubStrategy{name: "panicky", pages: 1, text: func(int) (string, error) {
		panic("malformed xref")
	}}
	ok := stubStrategy{name: "ok", pages: 1, text: func(int) (string, error) { return "recovered", nil }}

	pages, err := pdftext.NewWithStrategies(discard(), panicky, ok).
		Extract(context.Background(), []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if pages[0].Text != "recovered" {
		t.Errorf("text = %q, want recovered", pages[0].Text)
	}
}

func TestPagesIsLazy(t *testing.T) {
	var calls int
	primary := stubStrategy{name: "primary", pages: 10, calls: &calls, text: func(n int) (string, error) {
		return "text", nil
	}}

	doc, err := pdftext.NewWithStrategies(discard(), primary, primary).Open([]byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	for page := range doc.Pages(context.Background()) {
		if page.Number == 2 {
			break
		}
	}
	if calls != 2 {
		t.Errorf("pages extracted = %d, want 2", calls)
	}
}

func TestPagesStopsOnCancel(t *testing.T) {
	primary := stubStrategy{name: "primary", pages: 10, text: func(int) (string, error) { return "text", nil }}
	doc, err := pdftext.NewWithStrategies(discard(), primary, primary).Open([]byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	seen := 0
	for range doc.Pages(ctx) {
		seen++
		if seen == 3 {
			cancel()
		}
	}
	if seen != 3 {
		t.Errorf("pages seen = %d, want 3", seen)
	}
}

func TestPrimaryJoinsRunsOnBaseline(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{
			name:   "adjacent runs",
			stream: "BT\n/F1 12 Tf\n72 720 Td\n(Contact: jane@co) Tj\n115.2 0 Td\n(.com) Tj\nET",
			want:   "Contact: jane@co.com",
		},
		{
			name:   "kerned array",
			stream: "BT\n/F1 12 Tf\n72 720 Td\n[(jane@co) -20 (.com)] TJ\nET",
			want:   "jane@co.com",
		},
		{
			name:   "separated runs",
			stream: "BT\n/F1 12 Tf\n72 720 Td\n(Contact:) Tj\n64.8 0 Td\n(jane@co.com) Tj\nET",
			want:   "Contact: jane@co.com",
		},
		{
			name:   "rows top to bottom",
			stream: "BT\n/F1 12 Tf\n72 720 Td\n(first) Tj\n0 -16 Td\n(second) Tj\nET",
			want:   "first\nsecond",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := pdftext.Primary().Open(pdftest.BuildStreams(tt.stream))
			if err != nil {
				t.Fatalf("open: %v", err)
			}

			text, err := src.PageText(1)
			if err != nil {
				t.Fatalf("page text: %v", err)
			}
			if got := strings.TrimSpace(text); got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
		})
	}
}
