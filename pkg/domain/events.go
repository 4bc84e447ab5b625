package domain

import (
	"context"
	"time"
)

// EventPatternSelected is the topic name used by every boundary.
const EventPatternSelected = "pattern-selected"

// PatternSelected is published after the active pattern changes.
// An empty Name means the selection was cleared.
type PatternSelected struct {
	Name      string    `json:"name"`
	RunID     string    `json:"run_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RunEvent describes a sequencer run starting or finishing.
type RunEvent struct {
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	Pattern   string    `json:"pattern"`
	State     RunState  `json:"state"`
}

// StepEvent describes one applied step.
type StepEvent struct {
	Command Command `json:"command"`
	Err     error   `json:"-"`
}

// ConfigEvent describes a pattern set being installed.
type ConfigEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Revision  uint64    `json:"revision"`
	Patterns  int       `json:"patterns"`
	// Source is "load", "reload" or "save".
	Source string `json:"source"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run on the goroutine that produced the event and must not block.
type LifecycleHooks struct {
	OnRunStart        func(context.Context, *RunEvent)
	OnStepApplied     func(context.Context, *StepEvent)
	OnRunFinish       func(context.Context, *RunEvent)
	OnConfigInstalled func(context.Context, *ConfigEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnRunStart:        chain(h.OnRunStart, other.OnRunStart),
		OnStepApplied:     chain(h.OnStepApplied, other.OnStepApplied),
		OnRunFinish:       chain(h.OnRunFinish, other.OnRunFinish),
		OnConfigInstalled: chain(h.OnConfigInstalled, other.OnConfigInstalled),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
