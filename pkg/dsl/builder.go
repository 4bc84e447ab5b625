package dsl

import (
	"fmt"

	"github.com/aretw0/pacer/pkg/domain"
	"github.com/aretw0/pacer/pkg/schema"
)

// Builder manages the pattern set construction.
// Patterns keep the order in which they were first added.
type Builder struct {
	order       []string
	patterns    map[string]*PatternBuilder
	sensitivity *domain.Sensitivity
}

// New creates a new pattern set builder.
func New() *Builder {
	return &Builder{
		patterns: make(map[string]*PatternBuilder),
	}
}

// Sensitivity sets the divisor applied to every displacement.
func (b *Builder) Sensitivity(x, y float64) *Builder {
	b.sensitivity = &domain.Sensitivity{X: x, Y: y}
	return b
}

// Add creates a new pattern in the set.
// If the pattern already exists, it returns the existing builder.
func (b *Builder) Add(name string) *PatternBuilder {
	if pb, ok := b.patterns[name]; ok {
		return pb
	}
	pb := &PatternBuilder{
		pattern: domain.Pattern{Name: name},
		builder: b,
	}
	b.patterns[name] = pb
	b.order = append(b.order, name)
	return pb
}

// Build validates and returns the pattern set.
func (b *Builder) Build() (domain.PatternSet, error) {
	set := domain.PatternSet{Patterns: make([]domain.Pattern, 0, len(b.order))}
	if b.sensitivity != nil {
		s := *b.sensitivity
		set.Sensitivity = &s
	}
	for _, name := range b.order {
		set.Patterns = append(set.Patterns, b.patterns[name].Build())
	}

	if err := schema.Validate(set); err != nil {
		return domain.PatternSet{}, fmt.Errorf("failed to build pattern set: %w", err)
	}
	return set, nil
}

// MustBuild is like Build but panics on invalid input.
// Intended for tests and package-level fixtures.
func (b *Builder) MustBuild() domain.PatternSet {
	set, err := b.Build()
	if err != nil {
		panic(err)
	}
	return set
}
