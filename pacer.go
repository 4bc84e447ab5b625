package pacer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/pacer/internal/logging"
	"github.com/aretw0/pacer/internal/runtime"
	"github.com/aretw0/pacer/pkg/adapters/device"
	"github.com/aretw0/pacer/pkg/adapters/file"
	"github.com/aretw0/pacer/pkg/domain"
	"github.com/aretw0/pacer/pkg/patterns"
	"github.com/aretw0/pacer/pkg/persistence/middleware"
	"github.com/aretw0/pacer/pkg/ports"
	"github.com/aretw0/pacer/pkg/schema"
)

// ErrNotWatchable is returned by Watch when the persister cannot signal changes.
var ErrNotWatchable = errors.New("current persister does not support watching")

// Engine is the high-level entry point for the pacer library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	controller *runtime.Controller
	store      *patterns.Store
	persister  ports.ConfigPersister
	actuator   ports.Actuator
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	format     schema.Format
	runIDs     func() string

	locker  ports.DistributedLocker
	lockKey string
	lockTTL time.Duration
}

var _ ports.Engine = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithPersister injects a custom ConfigPersister, bypassing the default file storage.
func WithPersister(p ports.ConfigPersister) Option {
	return func(e *Engine) {
		e.persister = p
	}
}

// WithActuator sets where steps are applied. The default logs every step.
func WithActuator(a ports.Actuator) Option {
	return func(e *Engine) {
		e.actuator = a
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithFormat selects the serialization used when saving a PatternSet.
func WithFormat(format schema.Format) Option {
	return func(e *Engine) {
		e.format = format
	}
}

// WithLocker holds a distributed lock around every configuration write.
func WithLocker(locker ports.DistributedLocker, key string, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = locker
		e.lockKey = key
		e.lockTTL = ttl
	}
}

// WithRunIDs replaces the run id generator.
func WithRunIDs(fn func() string) Option {
	return func(e *Engine) {
		e.runIDs = fn
	}
}

// New initializes a new Engine and installs the persisted document.
// By default, the document is a file at path (file.DefaultPath when empty).
// If WithPersister is provided, path is ignored.
// A persister holding nothing yet starts the engine with an empty set.
func New(path string, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.persister == nil {
		if path == "" {
			path = file.DefaultPath
		}
		eng.persister = file.New(path)
		if eng.format == "" {
			eng.format = schema.FormatFromPath(path)
		}
	}
	if eng.format == "" {
		eng.format = schema.FormatJSON
	}
	if eng.actuator == nil {
		eng.actuator = device.NewLogActuator(eng.logger, slog.LevelInfo)
	}

	seqOpts := []runtime.SequencerOption{
		runtime.WithSequencerLogger(eng.logger),
		runtime.WithSequencerHooks(eng.hooks),
	}
	if eng.runIDs != nil {
		seqOpts = append(seqOpts, runtime.WithRunIDs(eng.runIDs))
	}

	ctrlOpts := []runtime.Option{
		runtime.WithLogger(eng.logger),
		runtime.WithHooks(eng.hooks),
		runtime.WithFormat(eng.format),
	}
	if eng.locker != nil {
		ctrlOpts = append(ctrlOpts, runtime.WithLocker(eng.locker, eng.lockKey, eng.lockTTL))
	}

	eng.store = patterns.NewStore()
	eng.controller = runtime.NewController(
		eng.store,
		eng.persister,
		runtime.NewSequencer(eng.actuator, seqOpts...),
		ctrlOpts...,
	)

	if err := eng.controller.Init(context.Background()); err != nil {
		eng.controller.Close()
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}
	return eng, nil
}

// GetConfig returns a copy of the installed pattern set.
func (e *Engine) GetConfig() domain.PatternSet {
	return e.controller.GetConfig()
}

// SetActivePattern stops the current run and starts the named pattern from its first step.
func (e *Engine) SetActivePattern(ctx context.Context, name string) error {
	return e.controller.SetActivePattern(ctx, name)
}

// ClearActivePattern stops the current run and leaves nothing selected.
func (e *Engine) ClearActivePattern(ctx context.Context) error {
	return e.controller.ClearActivePattern(ctx)
}

// SaveConfig validates, persists and installs set.
func (e *Engine) SaveConfig(ctx context.Context, set domain.PatternSet) error {
	return e.controller.SaveConfig(ctx, set)
}

// SaveConfigBytes decodes a raw JSON or YAML document and saves it.
func (e *Engine) SaveConfigBytes(ctx context.Context, data []byte) error {
	return e.controller.SaveConfigBytes(ctx, data)
}

// ReloadConfig re-reads the persisted document and installs it.
func (e *Engine) ReloadConfig(ctx context.Context) error {
	return e.controller.ReloadConfig(ctx)
}

// Status reports the active execution.
func (e *Engine) Status() domain.Status {
	return e.controller.Status()
}

// Subscribe registers a pattern-selected subscriber.
func (e *Engine) Subscribe() ports.Subscription {
	return e.controller.Subscribe()
}

// Wait blocks until the current run finishes or ctx is done.
func (e *Engine) Wait(ctx context.Context) (domain.RunState, error) {
	return e.controller.Wait(ctx)
}

// Persister returns the ConfigPersister used by the engine.
func (e *Engine) Persister() ports.ConfigPersister {
	return e.persister
}

// Watch returns a channel that signals when the persisted document changes.
// Returns ErrNotWatchable if the persister does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan struct{}, error) {
	if w, ok := middleware.Unwrap(e.persister).(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, ErrNotWatchable
}

// AutoReload reloads the configuration every time the persisted document
// changes, until ctx is done. Failed reloads are logged and leave the
// running pattern untouched.
func (e *Engine) AutoReload(ctx context.Context) error {
	changes, err := e.Watch(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			if err := e.ReloadConfig(ctx); err != nil {
				e.logger.Warn("Hot reload failed, keeping current configuration", "err", err)
				continue
			}
			e.logger.Info("Hot reload applied", "revision", e.store.Version())
		}
	}
}

// Close stops the current run and rejects further commands.
func (e *Engine) Close() error {
	return e.controller.Close()
}
