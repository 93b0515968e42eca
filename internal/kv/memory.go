package kv

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a process-local LookupStore for development and tests.
// It is not shared between instances.
type MemoryStore struct {
	mu   sync.RWMutex
	urls map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{urls: make(map[string]string)}
}

func (s *MemoryStore) PutIfAbsent(_ context.Context, key, longURL string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.urls[key]; exists {
		return false, nil
	}
	s.urls[key] = longURL
	return true, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	longURL, ok := s.urls[key]
	if !ok {
		return "", ErrNotFound
	}
	return longURL, nil
}

// Scan visits keys in sorted order over a snapshot taken at call time
func (s *MemoryStore) Scan(ctx context.Context, fn func(key, longURL string) error) error {
	s.mu.RLock()
	snapshot := make(map[string]string, len(s.urls))
	for k, v := range s.urls {
		snapshot[k] = v
	}
	s.mu.RUnlock()

	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(k, snapshot[k]); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored mappings
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.urls)
}
