// Package events fans pattern-selected notifications out to subscribers.
//
// Every subscriber owns an unbounded queue drained by its own goroutine, so
// Publish never blocks and never drops. All subscribers observe the same order.
package events

import (
	"log/slog"
	"sync"

	"github.com/aretw0/pacer/internal/logging"
	"github.com/aretw0/pacer/pkg/domain"
	"github.com/aretw0/pacer/pkg/ports"
)

// Broker manages the explicit subscriber list.
type Broker struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
	logger *slog.Logger
}

// Option configures a Broker.
type Option func(*Broker)

// WithLogger sets the broker logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broker) {
		b.logger = logger
	}
}

// NewBroker creates a broker with no subscribers.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		subs:   make(map[*Subscription]struct{}),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a subscriber. It receives every event published after this call.
// Subscribing to a closed broker returns an already-closed subscription.
func (b *Broker) Subscribe() *Subscription {
	s := &Subscription{
		broker: b,
		out:    make(chan domain.PatternSelected),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		quit:   make(chan struct{}),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.finish()
		close(s.out)
		return s
	}
	b.subs[s] = struct{}{}
	go s.pump()

	b.logger.Debug("Subscriber added", "subscribers", len(b.subs))
	return s
}

// Publish enqueues evt for every current subscriber.
// Events published after Close are discarded.
func (b *Broker) Publish(evt domain.PatternSelected) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.logger.Debug("Publishing", "event", domain.EventPatternSelected, "name", evt.Name, "subscribers", len(b.subs))
	for s := range b.subs {
		s.enqueue(evt)
	}
}

// Len returns the number of active subscribers.
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close stops every subscription. Queued events are still delivered before
// each subscriber's channel is closed.
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[*Subscription]struct{})
	b.mu.Unlock()

	for s := range subs {
		s.finish()
	}
}

func (b *Broker) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, s)
}

// Subscription is a single subscriber's ordered stream.
type Subscription struct {
	broker *Broker

	mu    sync.Mutex
	queue []domain.PatternSelected

	out  chan domain.PatternSelected
	wake chan struct{}
	// done is closed on unsubscribe or broker shutdown; quit only on unsubscribe.
	done     chan struct{}
	quit     chan struct{}
	doneOnce sync.Once
	quitOnce sync.Once
}

var _ ports.Subscription = (*Subscription)(nil)

// C returns the delivery channel. It is closed after Close or broker shutdown.
func (s *Subscription) C() <-chan domain.PatternSelected {
	return s.out
}

// Close unsubscribes. Undelivered events are discarded.
func (s *Subscription) Close() {
	s.broker.remove(s)
	s.quitOnce.Do(func() { close(s.quit) })
	s.finish()
}

func (s *Subscription) enqueue(evt domain.PatternSelected) {
	s.mu.Lock()
	s.queue = append(s.queue, evt)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

// next pops the head of the queue.
func (s *Subscription) next() (domain.PatternSelected, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return domain.PatternSelected{}, false
	}
	evt := s.queue[0]
	s.queue[0] = domain.PatternSelected{}
	s.queue = s.queue[1:]
	return evt, true
}

func (s *Subscription) pump() {
	defer close(s.out)

	for {
		evt, ok := s.next()
		if !ok {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				s.flush()
				return
			}
		}

		select {
		case s.out <- evt:
		case <-s.quit:
			return
		case <-s.done:
			s.deliver(evt)
			s.flush()
			return
		}
	}
}

// flush delivers whatever is still queued after broker shutdown, until the
// subscriber unsubscribes.
func (s *Subscription) flush() {
	for {
		evt, ok := s.next()
		if !ok {
			return
		}
		if !s.deliver(evt) {
			return
		}
	}
}

func (s *Subscription) deliver(evt domain.PatternSelected) bool {
	select {
	case s.out <- evt:
		return true
	case <-s.quit:
		return false
	}
}
