package memory

import (
	"context"
	"sync"
	"time"
)

// StateStore is a process-local OAuth state store with a fixed TTL.
type StateStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	states map[string]time.Time
}

// NewStateStore creates an empty in-memory state store.
func NewStateStore(ttl time.Duration) *StateStore {
	return &StateStore{ttl: ttl, states: make(map[string]time.Time)}
}

func (s *StateStore) Put(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = time.Now().Add(s.ttl)
	return nil
}

func (s *StateStore) Consume(_ context.Context, state string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deadline, ok := s.states[state]
	if !ok {
		return false, nil
	}
	delete(s.states, state)
	return time.Now().Before(deadline), nil
}
