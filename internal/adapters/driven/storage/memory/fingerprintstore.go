package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/paperlens/internal/core/domain"
	"github.com/custodia-labs/paperlens/internal/core/ports/driven"
)

// Ensure FingerprintStore implements the interface.
var _ driven.FingerprintStore = (*FingerprintStore)(nil)

// FingerprintStore is an in-memory fingerprint store.
type FingerprintStore struct {
	mu           sync.RWMutex
	fingerprints map[string]domain.Fingerprint
}

// NewFingerprintStore creates an empty fingerprint store.
func NewFingerprintStore() *FingerprintStore {
	return &FingerprintStore{
		fingerprints: make(map[string]domain.Fingerprint),
	}
}

// Save stores or overwrites the fingerprint for a document.
func (s *FingerprintStore) Save(_ context.Context, fp *domain.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fingerprints[fp.DocumentID] = *fp
	return nil
}

// Get retrieves the fingerprint for a document.
func (s *FingerprintStore) Get(_ context.Context, documentID string) (*domain.Fingerprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fp, ok := s.fingerprints[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &fp, nil
}

// Delete removes the fingerprint for a document.
func (s *FingerprintStore) Delete(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fingerprints, documentID)
	return nil
}
