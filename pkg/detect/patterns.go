package detect

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// PatternFile is the YAML document that declares additional rules.
//
//	patterns:
//	  - type: phone
//	    patterns: ['\b\d{3}-\d{3}-\d{4}\b']
//	    confidence: 0.6
//	    keywords: [phone, tel]
//	    boosted_confidence: 0.9
type PatternFile struct {
	Patterns []PatternSpec `yaml:"patterns"`
}

// PatternSpec declares one rule. Keywords, when present, raise matches to
// BoostedConfidence if one appears within the keyword window before them.
type PatternSpec struct {
	Type              string   `yaml:"type"`
	Patterns          []string `yaml:"patterns"`
	Confidence        float64  `yaml:"confidence"`
	Keywords          []string `yaml:"keywords"`
	BoostedConfidence float64  `yaml:"boosted_confidence"`
}

// LoadPatterns decodes a pattern file and compiles its rules.
func LoadPatterns(r io.Reader, keywordWindow int) ([]Rule, error) {
	var file PatternFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode patterns: %w", err)
	}

	if keywordWindow <= 0 {
		keywordWindow = DefaultKeywordWindow
	}

	rules := make([]Rule, 0, len(file.Patterns))
	for _, spec := range file.Patterns {
		rule, err := spec.compile(keywordWindow)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// LoadPatternsFile reads and compiles the pattern file at path.
func LoadPatternsFile(path string, keywordWindow int) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open patterns file: %w", err)
	}
	defer f.Close()

	return LoadPatterns(f, keywordWindow)
}

func (s PatternSpec) compile(keywordWindow int) (Rule, error) {
	rule := Rule{
		Type:           Type(strings.ToLower(strings.TrimSpace(s.Type))),
		BaseConfidence: s.Confidence,
	}

	for _, expr := range s.Patterns {
		re, err := regexp.Compile(expr)
		if err != nil {
			return Rule{}, fmt.Errorf("%w: %s pattern %q: %v", ErrInvalidRule, s.Type, expr, err)
		}
		rule.Patterns = append(rule.Patterns, re)
	}

	if len(s.Keywords) > 0 {
		boosted := s.BoostedConfidence
		if boosted <= 0 || boosted > 1 {
			boosted = 1.0
		}

		quoted := make([]string, len(s.Keywords))
		for i, kw := range s.Keywords {
			quoted[i] = regexp.QuoteMeta(kw)
		}
		keywords := regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
		rule.Refine = KeywordBoost(keywords, keywordWindow, boosted)
	}

	if err := rule.validate(); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

// NewRegistryWithPatterns creates the default registry and registers the
// rules in patternsFile after the built-in ones. An empty path yields the
// default registry.
func NewRegistryWithPatterns(opts Options, patternsFile string) (*Registry, error) {
	opts = opts.withDefaults()
	registry := NewDefaultRegistry(opts)
	if patternsFile == "" {
		return registry, nil
	}

	rules, err := LoadPatternsFile(patternsFile, opts.KeywordWindow)
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		if err := registry.Register(rule); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
