package saga

import (
	"context"
	"sync"
)

// Store persists saga instances so live workflows survive a restart.
// Completed instances are deleted; LoadActive returns only live ones.
type Store interface {
	Save(ctx context.Context, in Instance) error
	Delete(ctx context.Context, orderID string) error
	LoadActive(ctx context.Context) ([]Instance, error)
}

type MemoryStore struct {
	mu        sync.RWMutex
	instances map[string]Instance
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		instances: make(map[string]Instance),
	}
}

func (s *MemoryStore) Save(_ context.Context, in Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.instances[in.OrderID] = in

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.instances, orderID)

	return nil
}

func (s *MemoryStore) LoadActive(_ context.Context) ([]Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Instance, 0, len(s.instances))
	for _, in := range s.instances {
		out = append(out, in)
	}

	return out, nil
}
