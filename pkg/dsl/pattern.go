package dsl

import (
	"time"

	"github.com/aretw0/pacer/pkg/domain"
)

// Point is an absolute position, used by Path.
type Point struct {
	X, Y float64
}

// PatternBuilder provides a fluent API for configuring a pattern.
type PatternBuilder struct {
	pattern domain.Pattern
	builder *Builder
	// cursor is the absolute position reached by the steps so far.
	cursor Point
}

// Move appends a relative displacement followed by a dwell.
func (p *PatternBuilder) Move(dx, dy float64, dwell time.Duration) *PatternBuilder {
	p.pattern.Steps = append(p.pattern.Steps, domain.Step{DX: dx, DY: dy, Duration: dwell})
	p.cursor.X += dx
	p.cursor.Y += dy
	return p
}

// Hold appends a step that does not move.
func (p *PatternBuilder) Hold(dwell time.Duration) *PatternBuilder {
	return p.Move(0, 0, dwell)
}

// Path appends one step per absolute point, each converted to a displacement
// from the previous position, with the same dwell.
func (p *PatternBuilder) Path(dwell time.Duration, points ...Point) *PatternBuilder {
	for _, pt := range points {
		p.Move(pt.X-p.cursor.X, pt.Y-p.cursor.Y, dwell)
	}
	return p
}

// Repeat appends the current steps n-1 more times, so the pattern plays n times in total.
// Patterns never loop on their own; repetition is always explicit.
func (p *PatternBuilder) Repeat(n int) *PatternBuilder {
	steps := p.pattern.Steps
	for i := 1; i < n; i++ {
		for _, s := range steps {
			p.Move(s.DX, s.DY, s.Duration)
		}
	}
	return p
}

// Add starts another pattern on the parent builder.
func (p *PatternBuilder) Add(name string) *PatternBuilder {
	return p.builder.Add(name)
}

// Build returns a copy of the underlying domain.Pattern.
// This is primarily used by the Builder, but exposed for advanced usage.
func (p *PatternBuilder) Build() domain.Pattern {
	return p.pattern.Clone()
}
