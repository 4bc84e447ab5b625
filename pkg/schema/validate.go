package schema

import (
	"github.com/aretw0/pacer/pkg/domain"
)

// Validate checks every invariant of a pattern set and returns the first failure.
//
//   - pattern names are non-empty and unique
//   - every pattern has at least one step
//   - every dwell is non-negative
//   - every displacement is a finite number
//   - sensitivity, when present, is finite and positive on both axes
func Validate(set domain.PatternSet) error {
	errs := collect(set, true)
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

// ValidateAll is like Validate but reports every failure as an *AggregateError.
func ValidateAll(set domain.PatternSet) error {
	errs := collect(set, false)
	if len(errs) == 0 {
		return nil
	}
	return &AggregateError{Errors: errs}
}

func collect(set domain.PatternSet, firstOnly bool) []error {
	var errs []error
	add := func(err *ValidationError) bool {
		errs = append(errs, err)
		return firstOnly
	}

	if s := set.Sensitivity; s != nil {
		if !finite(s.X) || s.X <= 0 {
			if add(docError("sensitivity.x", "must be a positive finite number", s.X)) {
				return errs
			}
		}
		if !finite(s.Y) || s.Y <= 0 {
			if add(docError("sensitivity.y", "must be a positive finite number", s.Y)) {
				return errs
			}
		}
	}

	seen := make(map[string]bool, len(set.Patterns))
	for _, p := range set.Patterns {
		if p.Name == "" {
			if add(&ValidationError{Step: -1, Reason: "pattern name must not be empty"}) {
				return errs
			}
		} else if seen[p.Name] {
			if add(&ValidationError{Pattern: p.Name, Step: -1, Reason: "duplicate pattern name"}) {
				return errs
			}
		}
		seen[p.Name] = true

		if len(p.Steps) == 0 {
			if add(&ValidationError{Pattern: p.Name, Step: -1, Reason: "pattern must contain at least one step"}) {
				return errs
			}
		}

		for i, step := range p.Steps {
			if !finite(step.DX) {
				if add(&ValidationError{Pattern: p.Name, Step: i, Field: "dx", Reason: "must be a finite number", Value: step.DX}) {
					return errs
				}
			}
			if !finite(step.DY) {
				if add(&ValidationError{Pattern: p.Name, Step: i, Field: "dy", Reason: "must be a finite number", Value: step.DY}) {
					return errs
				}
			}
			if step.Duration < 0 {
				if add(&ValidationError{Pattern: p.Name, Step: i, Field: "duration", Reason: "must be non-negative", Value: step.Duration}) {
					return errs
				}
			}
		}
	}

	return errs
}
