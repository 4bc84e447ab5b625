// Package registry maps actuator driver names to constructors.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/pacer/pkg/ports"
)

// Options carries the driver-independent actuator settings.
// Each factory reads only the fields it understands.
type Options struct {
	URL     string
	Timeout time.Duration
	// CommandFile points to a YAML or JSON command definition for exec drivers.
	CommandFile string
	Logger      *slog.Logger
}

// Factory builds an actuator from options.
type Factory func(opts Options) (ports.Actuator, error)

// Registry manages the available actuator drivers.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a driver to the registry.
// If a driver with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = fn
}

// Build looks up a driver by name and constructs the actuator.
// Returns an error if the driver is not found.
func (r *Registry) Build(name string, opts Options) (ports.Actuator, error) {
	r.mu.RLock()
	fn, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("actuator driver not found: %s (available: %v)", name, r.Drivers())
	}

	return fn(opts)
}

// Drivers returns the registered driver names, sorted.
func (r *Registry) Drivers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
