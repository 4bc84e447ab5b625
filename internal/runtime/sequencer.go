package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/pacer/internal/logging"
	"github.com/aretw0/pacer/pkg/domain"
	"github.com/aretw0/pacer/pkg/ports"
	"github.com/google/uuid"
)

// Sequencer creates runs that apply a pattern's steps through an actuator.
type Sequencer struct {
	actuator ports.Actuator
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	newID    func() string
}

// SequencerOption configures a Sequencer.
type SequencerOption func(*Sequencer)

// WithSequencerLogger sets the logger used by every run.
func WithSequencerLogger(logger *slog.Logger) SequencerOption {
	return func(s *Sequencer) {
		s.logger = logger
	}
}

// WithSequencerHooks sets the lifecycle hooks called by every run.
func WithSequencerHooks(hooks domain.LifecycleHooks) SequencerOption {
	return func(s *Sequencer) {
		s.hooks = hooks
	}
}

// WithRunIDs replaces the run identifier generator.
func WithRunIDs(fn func() string) SequencerOption {
	return func(s *Sequencer) {
		s.newID = fn
	}
}

// NewSequencer creates a sequencer driving actuator.
func NewSequencer(actuator ports.Actuator, opts ...SequencerOption) *Sequencer {
	s := &Sequencer{
		actuator: actuator,
		logger:   logging.NewNop(),
		newID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRun prepares an idle run of pattern. Displacements are divided by sens when it is not nil.
func (s *Sequencer) NewRun(pattern domain.Pattern, sens *domain.Sensitivity) *Run {
	var scale *domain.Sensitivity
	if sens != nil {
		c := *sens
		scale = &c
	}
	return &Run{
		seq:     s,
		id:      s.newID(),
		pattern: pattern.Clone(),
		sens:    scale,
		state:   domain.RunIdle,
		index:   -1,
		done:    make(chan struct{}),
	}
}

// Run is one pass over a pattern: Idle, then Running, then Completed or Cancelled.
// There is no implicit loop; a new pass needs a new Run.
type Run struct {
	seq     *Sequencer
	id      string
	pattern domain.Pattern
	sens    *domain.Sensitivity

	mu     sync.Mutex
	state  domain.RunState
	index  int
	cancel context.CancelFunc

	done chan struct{}
}

// ID returns the run identifier.
func (r *Run) ID() string { return r.id }

// Pattern returns the name of the pattern being run.
func (r *Run) Pattern() string { return r.pattern.Name }

// State returns the current lifecycle state.
func (r *Run) State() domain.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Progress returns the index of the last applied step, -1 before the first.
func (r *Run) Progress() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index
}

// Done is closed once the run reaches a terminal state.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Start launches the run in its own goroutine. The run stops when parent is
// done or Cancel is called. Starting a run twice has no effect.
func (r *Run) Start(parent context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != domain.RunIdle {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.state = domain.RunRunning

	go r.loop(ctx)
}

// Cancel stops the run and waits until it is terminal. After Cancel returns no
// further step is applied. Cancelling a terminal run is a no-op.
func (r *Run) Cancel() {
	r.mu.Lock()
	switch r.state {
	case domain.RunIdle:
		r.state = domain.RunCancelled
		close(r.done)
		r.mu.Unlock()
		return
	case domain.RunRunning:
		r.cancel()
	}
	r.mu.Unlock()

	<-r.done
}

// Wait blocks until the run is terminal or ctx is done.
func (r *Run) Wait(ctx context.Context) (domain.RunState, error) {
	select {
	case <-r.done:
		return r.State(), nil
	case <-ctx.Done():
		return r.State(), ctx.Err()
	}
}

func (r *Run) loop(ctx context.Context) {
	defer close(r.done)

	hookCtx := context.WithoutCancel(ctx)
	logger := r.seq.logger.With("run_id", r.id, "pattern", r.pattern.Name)
	logger.Debug("Run started", "steps", len(r.pattern.Steps))

	if h := r.seq.hooks.OnRunStart; h != nil {
		h(hookCtx, &domain.RunEvent{
			Timestamp: time.Now(),
			RunID:     r.id,
			Pattern:   r.pattern.Name,
			State:     domain.RunRunning,
		})
	}

	final := domain.RunCompleted
	for i, step := range r.pattern.Steps {
		if ctx.Err() != nil {
			final = domain.RunCancelled
			break
		}

		dx, dy := r.sens.Scale(step.DX, step.DY)
		cmd := domain.Command{
			RunID:    r.id,
			Pattern:  r.pattern.Name,
			Index:    i,
			DX:       dx,
			DY:       dy,
			Duration: step.Duration,
		}

		err := r.seq.actuator.Apply(ctx, cmd)
		if err != nil && ctx.Err() != nil {
			final = domain.RunCancelled
			break
		}
		if err != nil {
			logger.Warn("Actuator failed, continuing", "step", i, "err", err)
		}

		r.mu.Lock()
		r.index = i
		r.mu.Unlock()

		if h := r.seq.hooks.OnStepApplied; h != nil {
			h(hookCtx, &domain.StepEvent{Command: cmd, Err: err})
		}

		if !dwell(ctx, step.Duration) {
			final = domain.RunCancelled
			break
		}
	}

	r.mu.Lock()
	r.state = final
	r.mu.Unlock()
	r.cancel()

	logger.Debug("Run finished", "state", final)
	if h := r.seq.hooks.OnRunFinish; h != nil {
		h(hookCtx, &domain.RunEvent{
			Timestamp: time.Now(),
			RunID:     r.id,
			Pattern:   r.pattern.Name,
			State:     final,
		})
	}
}

// dwell waits d and reports false when ctx ends first.
func dwell(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
