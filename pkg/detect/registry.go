package detect

import (
	"fmt"
	"regexp"
	"slices"
)

// Rule is one detection type: how to match it, how much to trust a match,
// and how to reject or rescore individual matches.
//
// Validate rejects structural matches that are not semantically valid.
// Refine adjusts the base confidence using the surrounding text. Both are
// optional.
type Rule struct {
	Type           Type
	Patterns       []*regexp.Regexp
	BaseConfidence float64
	Validate       func(m Match) bool
	Refine         func(text string, m Match, base float64) float64
}

func (r Rule) validate() error {
	if r.Type == "" {
		return fmt.Errorf("%w: type required", ErrInvalidRule)
	}
	if len(r.Patterns) == 0 {
		return fmt.Errorf("%w: %s has no patterns", ErrInvalidRule, r.Type)
	}
	if slices.Contains(r.Patterns, nil) {
		return fmt.Errorf("%w: %s has a nil pattern", ErrInvalidRule, r.Type)
	}
	if r.BaseConfidence <= 0 || r.BaseConfidence > 1 {
		return fmt.Errorf(
			"%w: %s base confidence %.2f outside (0,1]",
			ErrInvalidRule, r.Type, r.BaseConfidence,
		)
	}
	return nil
}

// Registry holds detection rules in registration order.
// Rules are registered during construction; afterwards the registry is
// only read and is safe for concurrent use by any number of Detectors.
type Registry struct {
	rules []Rule
}

// NewRegistry creates a Registry from the given rules.
func NewRegistry(rules ...Rule) (*Registry, error) {
	r := &Registry{}
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewDefaultRegistry creates a Registry with the email and SSN rules,
// in that order.
func NewDefaultRegistry(opts Options) *Registry {
	opts = opts.withDefaults()
	return &Registry{
		rules: []Rule{
			EmailRule(),
			SSNRule(opts.SSNBaseConfidence, opts.KeywordWindow),
		},
	}
}

// Register appends a rule. Types must be unique.
func (r *Registry) Register(rule Rule) error {
	if err := rule.validate(); err != nil {
		return err
	}
	for _, existing := range r.rules {
		if existing.Type == rule.Type {
			return fmt.Errorf("%w: %s", ErrDuplicateRule, rule.Type)
		}
	}
	r.rules = append(r.rules, rule)
	return nil
}

// Rules returns a copy of the registered rules in registration order.
func (r *Registry) Rules() []Rule {
	return slices.Clone(r.rules)
}

// Types returns the registered types in registration order.
func (r *Registry) Types() []Type {
	types := make([]Type, len(r.rules))
	for i, rule := range r.rules {
		types[i] = rule.Type
	}
	return types
}
