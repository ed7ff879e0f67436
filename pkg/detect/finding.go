// Package detect finds sensitive-data fragments in page text.
//
// A Registry holds compiled Rules. A Detector applies every rule of a
// registry to one page of text and returns scored Findings. Detection is a
// pure function of its input: the same text always yields the same findings.
package detect

// Type identifies the kind of sensitive data a rule detects.
type Type string

const (
	Email Type = "email"
	SSN   Type = "ssn"
)

// Match is a structural match of a rule pattern, prior to validation.
// Start and End are byte offsets into the page text. Groups holds the
// pattern's capture groups, excluding the full match.
type Match struct {
	Value  string
	Start  int
	End    int
	Groups []string
}

// Finding is a validated, scored match on a single page.
type Finding struct {
	Type       Type    `json:"finding_type"`
	Value      string  `json:"value"`
	Page       int     `json:"page_number"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
	Context    string  `json:"context,omitempty"`
}
