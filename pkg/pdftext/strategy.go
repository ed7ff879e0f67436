package pdftext

import (
	"bytes"
	"cmp"
	"io"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Strategy opens raw PDF bytes for per-page text extraction.
// The extractor only ever uses Primary and Fallback, in that order;
// the interface exists so tests can substitute either one.
type Strategy interface {
	Name() string
	Open(data []byte) (Source, error)
}

// Source extracts text from an opened document, one page at a time.
type Source interface {
	NumPages() int
	PageText(page int) (string, error)
}

// Primary returns the layout-aware strategy. It places each glyph by its
// text matrix, groups glyphs into rows by baseline, top to bottom, and
// orders each row left to right, inserting a space only where glyphs are
// visibly apart.
func Primary() Strategy { return layoutStrategy{} }

// Fallback returns the content-stream strategy. It decodes the text-showing
// operators of each page's content stream in stream order.
func Fallback() Strategy { return streamStrategy{} }

type layoutStrategy struct{}

func (layoutStrategy) Name() string { return "layout" }

func (layoutStrategy) Open(data []byte) (src Source, err error) {
	defer recovered(&err, "open layout reader")

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &layoutSource{reader: r}, nil
}

type layoutSource struct {
	reader *pdf.Reader
}

func (s *layoutSource) NumPages() int {
	return s.reader.NumPage()
}

func (s *layoutSource) PageText(n int) (text string, err error) {
	defer recovered(&err, "layout page text")

	page := s.reader.Page(n)
	if page.V.IsNull() {
		return "", ErrPageMissing
	}

	var b strings.Builder
	for _, row := range rows(page.Content().Text) {
		for i, t := range row {
			if i > 0 && wordBreak(row[i-1], t) && t.S != " " && row[i-1].S != " " {
				b.WriteByte(' ')
			}
			b.WriteString(t.S)
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

const (
	// Glyphs whose baselines differ by less than this fraction of the font
	// size share a row.
	baselineTolerance = 0.5

	// A horizontal gap wider than this fraction of the font size between
	// the end of one glyph and the start of the next is a word break.
	wordGapTolerance = 0.15
)

// rows groups glyphs by baseline, top to bottom, and orders each row left
// to right. Glyphs at the same position keep content stream order.
func rows(glyphs []pdf.Text) [][]pdf.Text {
	glyphs = slices.Clone(glyphs)
	slices.SortStableFunc(glyphs, func(a, b pdf.Text) int {
		return cmp.Compare(b.Y, a.Y)
	})

	var out [][]pdf.Text
	for _, g := range glyphs {
		// TJ arrays end with a synthetic newline glyph.
		if g.S == "" || g.S == "\n" || g.S == "\r" {
			continue
		}
		if k := len(out) - 1; k >= 0 && sameRow(out[k][0], g) {
			out[k] = append(out[k], g)
			continue
		}
		out = append(out, []pdf.Text{g})
	}

	for _, row := range out {
		slices.SortStableFunc(row, func(a, b pdf.Text) int {
			return cmp.Compare(a.X, b.X)
		})
	}
	return out
}

func sameRow(a, b pdf.Text) bool {
	return math.Abs(a.Y-b.Y) <= max(a.FontSize, b.FontSize, 1)*baselineTolerance
}

// wordBreak reports whether next starts clear of the end of prev. Without a
// glyph width the gap is unknown and runs are joined.
func wordBreak(prev, next pdf.Text) bool {
	if prev.W <= 0 {
		return false
	}
	return next.X > prev.X+prev.W+max(prev.FontSize, 1)*wordGapTolerance
}

var disableConfigDir sync.Once

type streamStrategy struct{}

func (streamStrategy) Name() string { return "stream" }

func (streamStrategy) Open(data []byte) (src Source, err error) {
	defer recovered(&err, "open content streams")

	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, err
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, err
	}
	return &streamSource{ctx: ctx}, nil
}

type streamSource struct {
	ctx *model.Context
}

func (s *streamSource) NumPages() int {
	return s.ctx.PageCount
}

func (s *streamSource) PageText(n int) (text string, err error) {
	defer recovered(&err, "stream page text")

	r, err := pdfcpu.ExtractPageContent(s.ctx, n)
	if err != nil {
		return "", err
	}
	if r == nil {
		return "", ErrNoText
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return DecodeContent(content), nil
}
