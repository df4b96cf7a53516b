package eventlog

import (
	"context"
	"sync"

	"github.com/kilianp07/evcharge/core/events"
)

// MemoryStore keeps events in memory.
type MemoryStore struct {
	mu     sync.Mutex
	events []events.Event
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Append(_ context.Context, e events.Event) error {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Query(_ context.Context, q Query) ([]events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []events.Event
	for _, e := range s.events {
		if q.matches(e) {
			res = append(res, e)
		}
	}
	return res, nil
}

func (s *MemoryStore) Close() error { return nil }
