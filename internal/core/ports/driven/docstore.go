package driven

import (
	"context"

	"github.com/custodia-labs/paperlens/internal/core/domain"
)

// DocumentStore persists documents, sections and chunks.
// Backed by SQLite; the on-disk store is the single source of truth.
type DocumentStore interface {
	// SaveDocument stores or updates a document record.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ReplaceChunks atomically replaces the full chunk set for a
	// document in one transaction. A partially written set is never
	// visible to readers; on failure the prior set remains intact.
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error

	// ReplaceSections atomically replaces the stored section tree for
	// a document, flattened in document order.
	ReplaceSections(ctx context.Context, documentID string, sections []domain.Section) error

	// GetChunks retrieves all chunks for a document in stored order.
	// A document with no chunks yields an empty slice, not an error.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// GetAdjacentChunks returns chunks of the same document and
	// section type within pageWindow pages of the given chunk,
	// excluding the chunk itself.
	GetAdjacentChunks(ctx context.Context, chunk *domain.Chunk, pageWindow int) ([]domain.Chunk, error)

	// DeleteDocument removes a document, its sections and its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// Stats computes chunk statistics for a document.
	Stats(ctx context.Context, documentID string) (*domain.DocumentStats, error)
}

// FingerprintStore persists per-document processing fingerprints.
type FingerprintStore interface {
	// Save stores or overwrites the fingerprint for a document.
	// Called only after the chunk transaction commits.
	Save(ctx context.Context, fp *domain.Fingerprint) error

	// Get retrieves the fingerprint for a document.
	// Returns domain.ErrNotFound when no pass has completed yet.
	Get(ctx context.Context, documentID string) (*domain.Fingerprint, error)

	// Delete removes the fingerprint for a document.
	Delete(ctx context.Context, documentID string) error
}

// EmbeddingCacheStore is the persisted tier of the embedding cache,
// keyed by a content hash of normalised text. It survives restarts;
// the in-process tier in front of it is purely an optimisation.
type EmbeddingCacheStore interface {
	// Get retrieves a cached vector and the model that produced it.
	// Returns domain.ErrNotFound on a miss; misses are never errors
	// for callers, who fall through to the embedding service.
	Get(ctx context.Context, key string) ([]float32, string, error)

	// Put stores a vector under the key for the given model.
	Put(ctx context.Context, key string, vector []float32, model string) error
}
