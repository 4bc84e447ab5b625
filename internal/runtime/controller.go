package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/pacer/internal/logging"
	"github.com/aretw0/pacer/pkg/domain"
	"github.com/aretw0/pacer/pkg/events"
	"github.com/aretw0/pacer/pkg/patterns"
	"github.com/aretw0/pacer/pkg/ports"
	"github.com/aretw0/pacer/pkg/schema"
)

// DefaultLockKey is the key guarding configuration writes.
const DefaultLockKey = "pacer:config"

// Controller owns the active execution. Every command runs inside one
// critical section, and notifications are published only after the change
// they describe is committed.
type Controller struct {
	mu sync.Mutex

	store     *patterns.Store
	persister ports.ConfigPersister
	sequencer *Sequencer
	broker    *events.Broker

	locker  ports.DistributedLocker
	lockKey string
	lockTTL time.Duration

	format schema.Format
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	now    func() time.Time

	baseCtx    context.Context
	baseCancel context.CancelFunc

	active string
	run    *Run
	closed bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithHooks sets the lifecycle hooks fired on configuration installs.
// Run and step hooks belong to the Sequencer.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithLocker serializes persistence writes across processes sharing one backend.
func WithLocker(locker ports.DistributedLocker, key string, ttl time.Duration) Option {
	return func(c *Controller) {
		c.locker = locker
		if key != "" {
			c.lockKey = key
		}
		if ttl > 0 {
			c.lockTTL = ttl
		}
	}
}

// WithFormat selects the encoding written by SaveConfig.
func WithFormat(format schema.Format) Option {
	return func(c *Controller) {
		c.format = format
	}
}

// WithBroker replaces the notification broker.
func WithBroker(broker *events.Broker) Option {
	return func(c *Controller) {
		c.broker = broker
	}
}

// WithClock replaces the timestamp source used in notifications.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// NewController wires the pattern store, persistence and sequencer together.
func NewController(store *patterns.Store, persister ports.ConfigPersister, sequencer *Sequencer, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		store:      store,
		persister:  persister,
		sequencer:  sequencer,
		lockKey:    DefaultLockKey,
		lockTTL:    10 * time.Second,
		format:     schema.FormatJSON,
		logger:     logging.NewNop(),
		now:        time.Now,
		baseCtx:    ctx,
		baseCancel: cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.broker == nil {
		c.broker = events.NewBroker(events.WithLogger(c.logger))
	}
	return c
}

// Init installs the persisted document. A missing document installs the empty set.
func (c *Controller) Init(ctx context.Context) error {
	err := c.ReloadConfig(ctx)
	if errors.Is(err, domain.ErrConfigNotFound) {
		c.logger.Info("No persisted configuration, starting empty")
		return nil
	}
	return err
}

// GetConfig returns a copy of the installed set.
func (c *Controller) GetConfig() domain.PatternSet {
	return c.store.Snapshot()
}

// SetActivePattern stops the current run, waits for it to reach a terminal
// state and starts name from its first step. Selecting the active name again
// restarts it. An unknown name returns domain.ErrPatternNotFound and leaves
// the current run untouched.
func (c *Controller) SetActivePattern(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrEngineClosed
	}

	pattern, err := c.store.Get(name)
	if err != nil {
		return err
	}

	c.stopRun()

	run := c.sequencer.NewRun(pattern, c.store.Sensitivity())
	run.Start(c.baseCtx)
	c.run = run
	c.active = name

	c.logger.Info("Pattern selected", "pattern", name, "run_id", run.ID())
	c.publish(name, run.ID())
	return nil
}

// ClearActivePattern stops the current run and deselects it.
// Clearing when nothing is selected does not publish.
func (c *Controller) ClearActivePattern(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrEngineClosed
	}
	if c.active == "" && c.run == nil {
		return nil
	}

	c.deselect("cleared")
	return nil
}

// ReloadConfig reads the persisted document and installs it. On any error the
// installed set and the active run are untouched.
func (c *Controller) ReloadConfig(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrEngineClosed
	}

	data, err := c.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: load config: %w", domain.ErrPersistence, err)
	}

	set, err := c.store.Load(data)
	if err != nil {
		c.logger.Warn("Reload rejected", "err", err)
		return err
	}

	return c.install(ctx, set, "reload")
}

// SaveConfig validates set, writes it through the persister and installs it.
// An invalid set never reaches storage. A failed write leaves memory untouched.
func (c *Controller) SaveConfig(ctx context.Context, set domain.PatternSet) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrEngineClosed
	}

	data, err := schema.Encode(set, c.format)
	if err != nil {
		return err
	}

	if err := c.persist(ctx, data); err != nil {
		return err
	}

	return c.install(ctx, set, "save")
}

// SaveConfigBytes decodes a raw document of any accepted version and saves it.
func (c *Controller) SaveConfigBytes(ctx context.Context, data []byte) error {
	set, err := c.store.Load(data)
	if err != nil {
		return err
	}
	return c.SaveConfig(ctx, set)
}

// Status reports the active execution.
func (c *Controller) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := domain.Status{
		ActivePattern:  c.active,
		State:          domain.RunIdle,
		StepIndex:      -1,
		ConfigRevision: c.store.Version(),
	}
	if c.run != nil {
		st.RunID = c.run.ID()
		st.State = c.run.State()
		st.StepIndex = c.run.Progress()
	}
	return st
}

// Subscribe registers a pattern-selected subscriber.
func (c *Controller) Subscribe() *events.Subscription {
	return c.broker.Subscribe()
}

// Wait blocks until the current run, if any, is terminal.
func (c *Controller) Wait(ctx context.Context) (domain.RunState, error) {
	c.mu.Lock()
	run := c.run
	c.mu.Unlock()

	if run == nil {
		return domain.RunIdle, nil
	}
	return run.Wait(ctx)
}

// Close cancels the current run, rejects further commands and closes every subscription.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.stopRun()
	c.active = ""
	c.baseCancel()
	c.broker.Close()
	c.logger.Debug("Controller closed")
	return nil
}

func (c *Controller) persist(ctx context.Context, data []byte) error {
	if c.locker != nil {
		unlock, err := c.locker.Lock(ctx, c.lockKey, c.lockTTL)
		if err != nil {
			return fmt.Errorf("%w: acquire lock: %w", domain.ErrPersistence, err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				c.logger.Warn("Failed to release config lock", "key", c.lockKey, "err", err)
			}
		}()
	}

	if err := c.persister.Save(ctx, data); err != nil {
		return fmt.Errorf("%w: save config: %w", domain.ErrPersistence, err)
	}
	return nil
}

// install swaps the set in and deselects the active pattern only when its
// name is gone. A run whose name survives keeps going with the steps it started with.
func (c *Controller) install(ctx context.Context, set domain.PatternSet, source string) error {
	revision, err := c.store.Replace(set)
	if err != nil {
		return err
	}

	c.logger.Info("Configuration installed", "source", source, "revision", revision, "patterns", len(set.Patterns))
	if h := c.hooks.OnConfigInstalled; h != nil {
		h(ctx, &domain.ConfigEvent{
			Timestamp: c.now(),
			Revision:  revision,
			Patterns:  len(set.Patterns),
			Source:    source,
		})
	}

	if c.active != "" && !set.Has(c.active) {
		c.deselect("removed by " + source)
	}
	return nil
}

func (c *Controller) deselect(reason string) {
	prev := c.active
	c.stopRun()
	c.active = ""
	c.run = nil

	c.logger.Info("Pattern deselected", "pattern", prev, "reason", reason)
	c.publish("", "")
}

func (c *Controller) stopRun() {
	if c.run != nil {
		c.run.Cancel()
	}
}

func (c *Controller) publish(name, runID string) {
	c.broker.Publish(domain.PatternSelected{
		Name:      name,
		RunID:     runID,
		Timestamp: c.now(),
	})
}
