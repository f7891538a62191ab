// Package memory provides in-memory store implementations used by
// tests and ephemeral runs. They mirror the SQLite adapter semantics,
// including atomic chunk replacement.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/paperlens/internal/core/domain"
	"github.com/custodia-labs/paperlens/internal/core/ports/driven"
)

// Ensure DocStore implements the interface.
var _ driven.DocumentStore = (*DocStore)(nil)

// DocStore is an in-memory document store.
type DocStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk   // by document ID, stored order
	sections  map[string][]domain.Section // by document ID, document order
}

// NewDocStore creates an empty document store.
func NewDocStore() *DocStore {
	return &DocStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
		sections:  make(map[string][]domain.Section),
	}
}

// SaveDocument stores or updates a document.
func (s *DocStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ReplaceChunks swaps the full chunk set for a document in one step.
func (s *DocStore) ReplaceChunks(_ context.Context, documentID string, chunks []domain.Chunk) error {
	copied := make([]domain.Chunk, len(chunks))
	copy(copied, chunks)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[documentID] = copied
	return nil
}

// ReplaceSections swaps the stored section list for a document.
func (s *DocStore) ReplaceSections(_ context.Context, documentID string, sections []domain.Section) error {
	copied := make([]domain.Section, len(sections))
	copy(copied, sections)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sections[documentID] = copied
	return nil
}

// GetChunks retrieves all chunks for a document in stored order.
func (s *DocStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks := make([]domain.Chunk, len(s.chunks[documentID]))
	copy(chunks, s.chunks[documentID])
	return chunks, nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *DocStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, chunks := range s.chunks {
		for i := range chunks {
			if chunks[i].ID == id {
				chunk := chunks[i]
				return &chunk, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

// GetAdjacentChunks returns same-document, same-section-type chunks
// within pageWindow pages, excluding the chunk itself.
func (s *DocStore) GetAdjacentChunks(_ context.Context, chunk *domain.Chunk, pageWindow int) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var adjacent []domain.Chunk
	for _, c := range s.chunks[chunk.DocumentID] {
		if c.ID == chunk.ID {
			continue
		}
		if c.Metadata.SectionType != chunk.Metadata.SectionType {
			continue
		}
		delta := c.Metadata.PageNumber - chunk.Metadata.PageNumber
		if delta < -pageWindow || delta > pageWindow {
			continue
		}
		adjacent = append(adjacent, c)
	}
	return adjacent, nil
}

// DeleteDocument removes a document with its chunks and sections.
func (s *DocStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.documents, id)
	delete(s.chunks, id)
	delete(s.sections, id)
	return nil
}

// Stats computes chunk statistics for a document.
func (s *DocStore) Stats(_ context.Context, documentID string) (*domain.DocumentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.DocumentStats{
		SectionDistribution: make(map[domain.SectionType]int),
		PageDistribution:    make(map[int]int),
	}

	total := 0
	for _, c := range s.chunks[documentID] {
		stats.TotalChunks++
		total += len(c.Content)
		stats.SectionDistribution[c.Metadata.SectionType]++
		stats.PageDistribution[c.Metadata.PageNumber]++
	}

	if stats.TotalChunks > 0 {
		stats.AverageChunkSize = float64(total) / float64(stats.TotalChunks)
	}
	return stats, nil
}

// Sections returns the stored section list for a document.
// Test helper; the SQLite adapter exposes the same data via SQL.
func (s *DocStore) Sections(documentID string) []domain.Section {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sections := make([]domain.Section, len(s.sections[documentID]))
	copy(sections, s.sections[documentID])
	return sections
}
