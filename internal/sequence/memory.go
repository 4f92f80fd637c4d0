package sequence

import (
	"context"
	"sync"
)

// MemoryStore is a mutex-guarded in-process CounterStore. It backs unit
// tests and single-node deployments without a database.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[CounterRef]int
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[CounterRef]int)}
}

// FetchOrCreate registers the counter row for (prefix, dateKey).
func (s *MemoryStore) FetchOrCreate(_ context.Context, prefix, dateKey string) (CounterRef, error) {
	ref := CounterRef{Prefix: prefix, DateKey: dateKey}
	s.mu.Lock()
	if _, ok := s.counters[ref]; !ok {
		s.counters[ref] = 0
	}
	s.mu.Unlock()
	return ref, nil
}

// IncrementAtomic bumps the counter under the store lock, refusing to
// advance past MaxSequence.
func (s *MemoryStore) IncrementAtomic(_ context.Context, ref CounterRef) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.counters[ref]
	if current >= MaxSequence {
		return 0, ErrSequenceExhausted
	}
	s.counters[ref] = current + 1
	return current + 1, nil
}

// Peek returns the current counter value without advancing it.
func (s *MemoryStore) Peek(prefix, dateKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[CounterRef{Prefix: prefix, DateKey: dateKey}]
}

// Set forces a counter value. Intended for tests exercising overflow.
func (s *MemoryStore) Set(prefix, dateKey string, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[CounterRef{Prefix: prefix, DateKey: dateKey}] = value
}
