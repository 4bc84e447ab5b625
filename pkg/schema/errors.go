package schema

import (
	"fmt"

	"github.com/aretw0/pacer/pkg/domain"
)

// ValidationError identifies the first offending pattern, step or field of a document.
type ValidationError struct {
	Pattern string // Pattern name, empty for document-level failures
	Step    int    // Step index, -1 when the failure is not tied to a step
	Field   string // Field name, empty when the failure concerns the whole node
	Reason  string // Human-readable reason for failure
	Value   any    // The offending value, if any
}

func (e *ValidationError) Error() string {
	loc := "document"
	if e.Pattern != "" || e.Step >= 0 {
		loc = fmt.Sprintf("pattern %q", e.Pattern)
	}
	if e.Step >= 0 {
		loc += fmt.Sprintf(" step %d", e.Step)
	}
	if e.Field != "" {
		loc += fmt.Sprintf(" field %q", e.Field)
	}
	if e.Value == nil {
		return fmt.Sprintf("%s: %s", loc, e.Reason)
	}
	return fmt.Sprintf("%s: %s (got %v)", loc, e.Reason, e.Value)
}

// Is makes every ValidationError match domain.ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == domain.ErrValidation
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// Is makes an AggregateError match domain.ErrValidation.
func (e *AggregateError) Is(target error) bool {
	return target == domain.ErrValidation
}

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	if aggr, ok := err.(*AggregateError); ok {
		return aggr.Errors
	}
	return nil
}

func docError(field, reason string, value any) *ValidationError {
	return &ValidationError{Step: -1, Field: field, Reason: reason, Value: value}
}
