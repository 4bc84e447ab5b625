package memory

import (
	"context"
	"sync"

	"github.com/aretw0/pacer/pkg/domain"
)

// Persister implements ports.ConfigPersister in memory.
// Safe for concurrent use.
type Persister struct {
	mu      sync.RWMutex
	data    []byte
	saves   int
	loadErr error
	saveErr error
}

// NewPersister creates an empty in-memory persister.
func NewPersister() *Persister {
	return &Persister{}
}

// NewPersisterWith creates a persister already holding data.
func NewPersisterWith(data []byte) *Persister {
	return &Persister{data: append([]byte{}, data...)}
}

// Load returns a copy of the stored document.
func (p *Persister) Load(ctx context.Context) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.loadErr != nil {
		return nil, p.loadErr
	}
	if p.data == nil {
		return nil, domain.ErrConfigNotFound
	}
	return append([]byte(nil), p.data...), nil
}

// Save stores a copy of data.
func (p *Persister) Save(ctx context.Context, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.saveErr != nil {
		return p.saveErr
	}
	p.data = append([]byte{}, data...)
	p.saves++
	return nil
}

// Saves counts successful Save calls.
func (p *Persister) Saves() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.saves
}

// FailLoad makes every Load return err until it is called again with nil.
func (p *Persister) FailLoad(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loadErr = err
}

// FailSave makes every Save return err until it is called again with nil.
func (p *Persister) FailSave(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saveErr = err
}
