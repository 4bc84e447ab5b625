package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/pacer/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Persister implements ports.ConfigPersister using Redis.
// The document lives under one key; every Save also publishes on a channel
// so that other instances can hot-reload through Watch.
type Persister struct {
	client *backend.Client
	prefix string
	name   string
}

type Option func(*Persister)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(p *Persister) {
		p.prefix = prefix
	}
}

// WithName selects which document under the prefix this persister owns.
func WithName(name string) Option {
	return func(p *Persister) {
		p.name = name
	}
}

// New creates a new Redis persister with options.
func New(address, password string, db int, opts ...Option) *Persister {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis persister from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Persister {
	p := &Persister{
		client: client,
		prefix: "pacer:",
		name:   "patterns",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Client exposes the underlying client so a Locker can share it.
func (p *Persister) Client() *backend.Client {
	return p.client
}

func (p *Persister) key() string {
	return p.prefix + "config:" + p.name
}

func (p *Persister) channel() string {
	return p.prefix + "changed:" + p.name
}

// Save stores the document and announces the change.
func (p *Persister) Save(ctx context.Context, data []byte) error {
	pipe := p.client.Pipeline()
	pipe.Set(ctx, p.key(), data, 0)
	pipe.Publish(ctx, p.channel(), len(data))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save config to redis: %w", err)
	}
	return nil
}

// Load reads the document.
func (p *Persister) Load(ctx context.Context) ([]byte, error) {
	data, err := p.client.Get(ctx, p.key()).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to load config from redis: %w", err)
	}
	return data, nil
}

// Watch implements ports.Watchable through Redis pub/sub.
func (p *Persister) Watch(ctx context.Context) (<-chan struct{}, error) {
	sub := p.client.Subscribe(ctx, p.channel())
	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", p.channel(), err)
	}

	ch := make(chan struct{}, 1)
	msgs := sub.Channel()

	go func() {
		defer close(ch)
		defer sub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()

	return ch, nil
}
