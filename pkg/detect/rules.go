package detect

import (
	"regexp"
	"strconv"
)

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

var ssnPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{3})-(\d{2})-(\d{4})\b`),
	regexp.MustCompile(`\b(\d{3})(\d{2})(\d{4})\b`),
	regexp.MustCompile(`\b(\d{3}) (\d{2}) (\d{4})\b`),
}

var ssnKeywords = regexp.MustCompile(
	`(?i)(?:\b(?:ssn|social security(?: number)?|social|soc sec|tin|taxpayer|tax id)\b|\bss#)`,
)

// EmailRule matches simplified RFC 5322 addresses. A structural match is
// accepted as-is at full confidence.
func EmailRule() Rule {
	return Rule{
		Type:           Email,
		Patterns:       []*regexp.Regexp{emailPattern},
		BaseConfidence: 1.0,
	}
}

// SSNRule matches dashed, continuous, and space-separated SSNs, rejects
// numbers that cannot be issued, and raises confidence to 1.0 when an SSN
// keyword appears within window characters before the match.
func SSNRule(base float64, window int) Rule {
	return Rule{
		Type:           SSN,
		Patterns:       ssnPatterns,
		BaseConfidence: base,
		Validate:       ValidSSN,
		Refine:         KeywordBoost(ssnKeywords, window, 1.0),
	}
}

// ValidSSN reports whether the area, group, and serial captured by an SSN
// pattern form an issuable number. Area 000, 666, and 900-999, group 00,
// and serial 0000 are never issued.
func ValidSSN(m Match) bool {
	if len(m.Groups) != 3 {
		return false
	}

	area, err := strconv.Atoi(m.Groups[0])
	if err != nil {
		return false
	}

	switch {
	case area == 0, area == 666, area >= 900:
		return false
	case m.Groups[1] == "00":
		return false
	case m.Groups[2] == "0000":
		return false
	}
	return true
}

// KeywordBoost returns a refiner that scores a match at boosted when
// keywords matches within window characters before it.
func KeywordBoost(keywords *regexp.Regexp, window int, boosted float64) func(string, Match, float64) float64 {
	return func(text string, m Match, base float64) float64 {
		from := backRunes(text, m.Start, window)
		if keywords.MatchString(text[from:m.Start]) {
			return max(base, boosted)
		}
		return base
	}
}
