package domain

import "time"

// Step is one positional instruction: a relative displacement followed by a dwell.
// A zero Duration means the step is applied and the sequencer advances immediately.
type Step struct {
	DX       float64
	DY       float64
	Duration time.Duration
}

// Pattern is a named, ordered sequence of steps.
type Pattern struct {
	Name  string
	Steps []Step
}

// Clone returns a copy whose step slice does not alias the receiver's.
func (p Pattern) Clone() Pattern {
	steps := make([]Step, len(p.Steps))
	copy(steps, p.Steps)
	return Pattern{Name: p.Name, Steps: steps}
}

// TotalDuration is the sum of every step's dwell.
func (p Pattern) TotalDuration() time.Duration {
	var total time.Duration
	for _, s := range p.Steps {
		total += s.Duration
	}
	return total
}

// Sensitivity divides every displacement before it reaches the actuator.
// Higher values reduce movement; 1.0 leaves it untouched.
type Sensitivity struct {
	X float64
	Y float64
}

// PatternSet is the full collection of patterns, in configuration order.
// It is the unit that is persisted, loaded, saved and reloaded.
type PatternSet struct {
	// Sensitivity is optional. Nil means displacements are applied as configured.
	Sensitivity *Sensitivity
	Patterns    []Pattern
}

// Get returns the pattern with the given name.
func (s PatternSet) Get(name string) (Pattern, bool) {
	for _, p := range s.Patterns {
		if p.Name == name {
			return p, true
		}
	}
	return Pattern{}, false
}

// Has reports whether a pattern with the given name exists.
func (s PatternSet) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Names returns the pattern names in configuration order.
func (s PatternSet) Names() []string {
	names := make([]string, len(s.Patterns))
	for i, p := range s.Patterns {
		names[i] = p.Name
	}
	return names
}

// Clone deep-copies the set so the copy can be handed out without sharing slices.
func (s PatternSet) Clone() PatternSet {
	out := PatternSet{Patterns: make([]Pattern, len(s.Patterns))}
	if s.Sensitivity != nil {
		sens := *s.Sensitivity
		out.Sensitivity = &sens
	}
	for i, p := range s.Patterns {
		out.Patterns[i] = p.Clone()
	}
	return out
}

// Scale applies the sensitivity divisor to a displacement.
func (s *Sensitivity) Scale(dx, dy float64) (float64, float64) {
	if s == nil {
		return dx, dy
	}
	return dx / s.X, dy / s.Y
}
