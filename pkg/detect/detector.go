package detect

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"
)

// Detector applies a Registry to page text.
type Detector struct {
	registry      *Registry
	contextWindow int
}

// New creates a Detector over registry. contextWindow is the number of
// characters captured on each side of a match.
func New(registry *Registry, contextWindow int) *Detector {
	if contextWindow < 0 {
		contextWindow = DefaultContextWindow
	}
	return &Detector{
		registry:      registry,
		contextWindow: contextWindow,
	}
}

// Registry returns the registry the detector applies.
func (d *Detector) Registry() *Registry {
	return d.registry
}

// Detect returns the findings in text for page, ordered by rule
// registration, then by position in the text.
func (d *Detector) Detect(text string, page int) []Finding {
	var findings []Finding

	for _, rule := range d.registry.rules {
		lastEnd := -1
		for _, m := range candidates(rule, text) {
			if m.Start < lastEnd {
				continue
			}
			if rule.Validate != nil && !rule.Validate(m) {
				continue
			}

			confidence := rule.BaseConfidence
			if rule.Refine != nil {
				confidence = rule.Refine(text, m, confidence)
			}
			confidence = min(confidence, 1.0)
			if confidence <= 0 {
				continue
			}

			findings = append(findings, Finding{
				Type:       rule.Type,
				Value:      m.Value,
				Page:       page,
				Start:      m.Start,
				End:        m.End,
				Confidence: confidence,
				Context:    snippet(text, m.Start, m.End, d.contextWindow),
			})
			lastEnd = m.End
		}
	}

	return findings
}

// candidates collects matches from all of a rule's patterns ordered by
// start offset. Ties keep pattern order.
func candidates(rule Rule, text string) []Match {
	var matches []Match
	for _, p := range rule.Patterns {
		for _, loc := range p.FindAllStringSubmatchIndex(text, -1) {
			m := Match{
				Value: text[loc[0]:loc[1]],
				Start: loc[0],
				End:   loc[1],
			}
			for g := 2; g+1 < len(loc); g += 2 {
				if loc[g] < 0 {
					m.Groups = append(m.Groups, "")
					continue
				}
				m.Groups = append(m.Groups, text[loc[g]:loc[g+1]])
			}
			matches = append(matches, m)
		}
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return matches
}

func snippet(text string, start, end, window int) string {
	from := backRunes(text, start, window)
	to := forwardRunes(text, end, window)

	var b strings.Builder
	if from > 0 {
		b.WriteString("...")
	}
	b.WriteString(strings.Join(strings.Fields(text[from:to]), " "))
	if to < len(text) {
		b.WriteString("...")
	}
	return b.String()
}

// backRunes returns the offset n runes before pos.
func backRunes(text string, pos, n int) int {
	for ; n > 0 && pos > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(text[:pos])
		pos -= size
	}
	return pos
}

// forwardRunes returns the offset n runes after pos.
func forwardRunes(text string, pos, n int) int {
	for ; n > 0 && pos < len(text); n-- {
		_, size := utf8.DecodeRuneInString(text[pos:])
		pos += size
	}
	return pos
}
