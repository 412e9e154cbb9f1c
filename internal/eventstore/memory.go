package eventstore

import (
	"context"
	"sync"
	"time"

	"github.com/Athul-Krishna/ProjectTransac/internal/core"
)

// MemoryStore keeps streams in process memory. Used by tests and local runs
// that do not need durability.
type MemoryStore struct {
	mu      sync.RWMutex
	streams map[string][]Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		streams: make(map[string][]Event),
	}
}

func (s *MemoryStore) Load(_ context.Context, aggregateID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[aggregateID]
	out := make([]Event, len(stream))
	copy(out, stream)

	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, aggregateID string, expectedVersion int64, payloads []core.EventPayload) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[aggregateID]
	if int64(len(stream)) != expectedVersion {
		return nil, ErrVersionConflict
	}

	now := time.Now()
	committed := make([]Event, 0, len(payloads))
	for i, payload := range payloads {
		committed = append(committed, Event{
			AggregateID: aggregateID,
			Sequence:    expectedVersion + int64(i),
			Type:        payload.EventName(),
			Payload:     payload,
			Timestamp:   now,
		})
	}

	s.streams[aggregateID] = append(stream, committed...)

	return committed, nil
}
