package middleware_test

import (
	"context"

	"github.com/aretw0/pacer/pkg/domain"
	"github.com/aretw0/pacer/pkg/ports"
)

// MockStore is a single-slot persister for testing middleware.
type MockStore struct {
	data []byte
	set  bool
}

func NewMockStore() *MockStore {
	return &MockStore{}
}

func (s *MockStore) Save(ctx context.Context, data []byte) error {
	s.data = append([]byte(nil), data...)
	s.set = true
	return nil
}

func (s *MockStore) Load(ctx context.Context) ([]byte, error) {
	if !s.set {
		return nil, domain.ErrConfigNotFound
	}
	return append([]byte(nil), s.data...), nil
}

var _ ports.ConfigPersister = (*MockStore)(nil)
