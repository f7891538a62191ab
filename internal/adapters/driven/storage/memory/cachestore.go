package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/paperlens/internal/core/domain"
	"github.com/custodia-labs/paperlens/internal/core/ports/driven"
)

// Ensure CacheStore implements the interface.
var _ driven.EmbeddingCacheStore = (*CacheStore)(nil)

// cacheEntry pairs a vector with the model that produced it.
type cacheEntry struct {
	vector []float32
	model  string
}

// CacheStore is an in-memory embedding cache store.
type CacheStore struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCacheStore creates an empty cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{
		entries: make(map[string]cacheEntry),
	}
}

// Get retrieves a cached vector and its model.
func (s *CacheStore) Get(_ context.Context, key string) ([]float32, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	return entry.vector, entry.model, nil
}

// Put stores a vector under the key.
func (s *CacheStore) Put(_ context.Context, key string, vector []float32, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = cacheEntry{vector: vector, model: model}
	return nil
}

// Len reports the number of entries. Test helper.
func (s *CacheStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
