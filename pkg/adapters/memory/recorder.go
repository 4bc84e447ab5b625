package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/pacer/pkg/domain"
)

// Applied is one command observed by a Recorder.
type Applied struct {
	At      time.Time
	Command domain.Command
}

// Recorder implements ports.Actuator by recording every command it receives.
type Recorder struct {
	mu      sync.Mutex
	applied []Applied
	notify  chan struct{}
	err     func(domain.Command) error
	now     func() time.Time
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		notify: make(chan struct{}, 1),
		now:    time.Now,
	}
}

// FailWith makes Apply return fn(cmd) after recording it. A nil fn clears it.
func (r *Recorder) FailWith(fn func(domain.Command) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = fn
}

// Apply records cmd.
func (r *Recorder) Apply(ctx context.Context, cmd domain.Command) error {
	r.mu.Lock()
	r.applied = append(r.applied, Applied{At: r.now(), Command: cmd})
	fail := r.err
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}

	if fail != nil {
		return fail(cmd)
	}
	return nil
}

// Applied returns a copy of everything recorded so far.
func (r *Recorder) Applied() []Applied {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Applied(nil), r.applied...)
}

// Commands returns the recorded commands without timestamps.
func (r *Recorder) Commands() []domain.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Command, len(r.applied))
	for i, a := range r.applied {
		out[i] = a.Command
	}
	return out
}

// Len returns the number of recorded commands.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.applied)
}

// WaitFor blocks until at least n commands were recorded or ctx is done.
func (r *Recorder) WaitFor(ctx context.Context, n int) error {
	for {
		if r.Len() >= n {
			return nil
		}
		select {
		case <-r.notify:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Reset forgets every recorded command.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = nil
}
