package memory

import (
	"context"
	"sync"

	"github.com/vsinha/storereq/pkg/domain/repositories"
)

// CounterStore provides in-memory sequence counters
type CounterStore struct {
	mutex    sync.Mutex
	counters map[repositories.CounterKey]int64
}

// NewCounterStore creates a new in-memory counter store
func NewCounterStore() *CounterStore {
	return &CounterStore{
		counters: make(map[repositories.CounterKey]int64),
	}
}

// Verify interface compliance
var _ repositories.CounterStore = (*CounterStore)(nil)

// Increment raises the counter for key by one and returns the new value
func (s *CounterStore) Increment(ctx context.Context, key repositories.CounterKey) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.counters[key]++
	return s.counters[key], nil
}

// RaiseTo sets the counter to value if value is higher
func (s *CounterStore) RaiseTo(ctx context.Context, key repositories.CounterKey, value int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if value > s.counters[key] {
		s.counters[key] = value
	}
	return nil
}

// Current returns the counter value for key
func (s *CounterStore) Current(ctx context.Context, key repositories.CounterKey) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.counters[key], nil
}

// Reset sets the counter for key back to zero
func (s *CounterStore) Reset(ctx context.Context, key repositories.CounterKey) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.counters, key)
	return nil
}
