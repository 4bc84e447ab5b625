package patterns

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aretw0/pacer/pkg/domain"
	"github.com/aretw0/pacer/pkg/schema"
)

type snapshot struct {
	set      domain.PatternSet
	index    map[string]int
	revision uint64
}

// Store is the in-memory owner of the installed PatternSet.
type Store struct {
	current atomic.Pointer[snapshot]
	// writeMu orders Replace calls so revisions stay monotonic.
	writeMu sync.Mutex
}

// NewStore creates a store holding an empty pattern set at revision 0.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(newSnapshot(domain.PatternSet{}, 0))
	return s
}

func newSnapshot(set domain.PatternSet, revision uint64) *snapshot {
	index := make(map[string]int, len(set.Patterns))
	for i, p := range set.Patterns {
		index[p.Name] = i
	}
	return &snapshot{set: set, index: index, revision: revision}
}

// Load decodes and validates a raw document without installing it.
func (s *Store) Load(raw []byte) (domain.PatternSet, error) {
	return schema.Decode(raw)
}

// Get returns a copy of the named pattern.
func (s *Store) Get(name string) (domain.Pattern, error) {
	snap := s.current.Load()
	i, ok := snap.index[name]
	if !ok {
		return domain.Pattern{}, fmt.Errorf("%w: %q", domain.ErrPatternNotFound, name)
	}
	return snap.set.Patterns[i].Clone(), nil
}

// Has reports whether the installed set contains name.
func (s *Store) Has(name string) bool {
	_, ok := s.current.Load().index[name]
	return ok
}

// All returns a copy of every pattern in configuration order.
func (s *Store) All() []domain.Pattern {
	return s.Snapshot().Patterns
}

// Snapshot returns a deep copy of the installed set.
func (s *Store) Snapshot() domain.PatternSet {
	return s.current.Load().set.Clone()
}

// Sensitivity returns the installed divisor, nil when unscaled.
func (s *Store) Sensitivity() *domain.Sensitivity {
	sens := s.current.Load().set.Sensitivity
	if sens == nil {
		return nil
	}
	c := *sens
	return &c
}

// Version is the revision of the installed set. It increases by one on every Replace.
func (s *Store) Version() uint64 {
	return s.current.Load().revision
}

// Replace validates set and installs a private copy of it.
// On error the installed set is left untouched.
func (s *Store) Replace(set domain.PatternSet) (uint64, error) {
	if err := schema.Validate(set); err != nil {
		return 0, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := newSnapshot(set.Clone(), s.current.Load().revision+1)
	s.current.Store(next)
	return next.revision, nil
}
