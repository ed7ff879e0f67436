package detect

const (
	DefaultKeywordWindow     = 50
	DefaultContextWindow     = 30
	DefaultSSNBaseConfidence = 0.8
)

// Options tunes the built-in rules and the detector.
//
// KeywordWindow is the number of characters before an SSN match searched
// for an SSN keyword. ContextWindow is the number of characters captured on
// each side of a match for its context snippet.
type Options struct {
	KeywordWindow     int
	ContextWindow     int
	SSNBaseConfidence float64
}

// DefaultOptions returns the standard detection tuning.
func DefaultOptions() Options {
	return Options{
		KeywordWindow:     DefaultKeywordWindow,
		ContextWindow:     DefaultContextWindow,
		SSNBaseConfidence: DefaultSSNBaseConfidence,
	}
}

func (o Options) withDefaults() Options {
	if o.KeywordWindow <= 0 {
		o.KeywordWindow = DefaultKeywordWindow
	}
	if o.ContextWindow < 0 {
		o.ContextWindow = DefaultContextWindow
	}
	if o.SSNBaseConfidence <= 0 || o.SSNBaseConfidence > 1 {
		o.SSNBaseConfidence = DefaultSSNBaseConfidence
	}
	return o
}
