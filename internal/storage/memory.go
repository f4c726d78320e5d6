package storage

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used by tests and as a throwaway
// backend for one-shot console runs.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) SetPair(_ context.Context, key1, value1, key2, value2 string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	applyPair(s.data, key1, value1)
	applyPair(s.data, key2, value2)
	return nil
}

func (s *MemoryStore) DeletePair(_ context.Context, key1, key2 string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key1)
	delete(s.data, key2)
	return nil
}
