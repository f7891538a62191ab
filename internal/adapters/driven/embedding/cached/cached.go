// Package cached decorates an embedding service with a two-tier cache:
// a bounded in-process map and an optional persisted store. A cache
// hit never reaches the underlying service. The persisted store is the
// durable tier; the map is strictly an optimisation.
package cached

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/paperlens/internal/core/domain"
	"github.com/custodia-labs/paperlens/internal/core/ports/driven"
	"github.com/custodia-labs/paperlens/internal/logger"
)

// Ensure Service implements the interface.
var _ driven.EmbeddingService = (*Service)(nil)

// DefaultMaxEntries bounds the in-process tier. Past the bound the
// oldest-inserted entry is evicted.
const DefaultMaxEntries = 1000

// Service wraps an embedding service with caching.
type Service struct {
	inner driven.EmbeddingService
	store driven.EmbeddingCacheStore // optional persisted tier

	mu         sync.Mutex
	entries    map[string][]float32
	order      []string // insertion order for eviction
	maxEntries int
}

// Option configures the cache.
type Option func(*Service)

// WithMaxEntries sets the in-process entry bound.
func WithMaxEntries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// New creates a caching decorator around inner. The persisted store
// may be nil, leaving only the in-process tier.
func New(inner driven.EmbeddingService, store driven.EmbeddingCacheStore, opts ...Option) *Service {
	s := &Service{
		inner:      inner,
		store:      store,
		entries:    make(map[string][]float32),
		maxEntries: DefaultMaxEntries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the cache key for a text: the SHA-256 of its lower-cased,
// trimmed form.
func Key(text string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(text))))
	return hex.EncodeToString(sum[:])
}

// Embed returns the cached vector for the text, or embeds and caches it.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	key := Key(text)

	if vec, ok := s.lookup(ctx, key); ok {
		return vec, nil
	}

	vec, err := s.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	s.insert(ctx, key, vec)
	return vec, nil
}

// EmbedBatch resolves cached texts locally and embeds only the misses
// in one underlying batch call.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	var missTexts []string
	var missIndexes []int

	for i, text := range texts {
		if vec, ok := s.lookup(ctx, Key(text)); ok {
			vectors[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIndexes = append(missIndexes, i)
	}

	logger.Debug("Embedding cache: %d/%d hits", len(texts)-len(missTexts), len(texts))

	if len(missTexts) == 0 {
		return vectors, nil
	}

	fresh, err := s.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, vec := range fresh {
		idx := missIndexes[j]
		vectors[idx] = vec
		s.insert(ctx, Key(texts[idx]), vec)
	}

	return vectors, nil
}

// Dimensions returns the embedding vector size of the inner service.
func (s *Service) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the inner model name.
func (s *Service) ModelName() string {
	return s.inner.ModelName()
}

// Version returns the inner model version fingerprint.
func (s *Service) Version() string {
	return s.inner.Version()
}

// Close releases the inner service.
func (s *Service) Close() error {
	return s.inner.Close()
}

// lookup consults the in-process tier, then the persisted tier.
// Cache misses are never errors.
func (s *Service) lookup(ctx context.Context, key string) ([]float32, bool) {
	s.mu.Lock()
	vec, ok := s.entries[key]
	s.mu.Unlock()
	if ok {
		return vec, true
	}

	if s.store == nil {
		return nil, false
	}

	vec, model, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Persisted embedding cache read failed: %v", err)
		}
		return nil, false
	}

	// An entry from a different model must not be served.
	if model != s.inner.ModelName() {
		return nil, false
	}

	s.remember(key, vec)
	return vec, true
}

// insert stores the vector in both tiers.
func (s *Service) insert(ctx context.Context, key string, vec []float32) {
	s.remember(key, vec)

	if s.store == nil {
		return
	}
	if err := s.store.Put(ctx, key, vec, s.inner.ModelName()); err != nil {
		logger.Warn("Persisted embedding cache write failed: %v", err)
	}
}

// remember inserts into the bounded in-process tier, evicting the
// oldest-inserted entry when full.
func (s *Service) remember(key string, vec []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; exists {
		return
	}

	for len(s.entries) >= s.maxEntries && len(s.order) > 0 {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.entries, oldest)
	}

	s.entries[key] = vec
	s.order = append(s.order, key)
}

// Len reports the in-process entry count. Test helper.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
