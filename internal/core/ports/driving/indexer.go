package driving

import (
	"context"

	"github.com/custodia-labs/paperlens/internal/core/domain"
)

// ProcessOptions configures one document-processing pass.
type ProcessOptions struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the overlap between sliding-window chunks.
	ChunkOverlap int

	// PreserveStructure selects structure-preserving chunking along
	// the section tree; false falls back to sliding windows over raw
	// page text.
	PreserveStructure bool
}

// IndexingService turns parsed pages into a stored, searchable index.
type IndexingService interface {
	// ProcessDocument analyzes, chunks, embeds and stores the pages
	// for a document, replacing any prior index. Skips work and
	// returns the stored chunks when the fingerprint is unchanged.
	ProcessDocument(ctx context.Context, documentID string, pages []domain.ParsedPage, opts ProcessOptions) ([]domain.Chunk, error)

	// NeedsReprocessing reports whether the pages differ from the
	// stored fingerprint in content, structure or embedding version.
	NeedsReprocessing(ctx context.Context, documentID string, pages []domain.ParsedPage) (bool, error)

	// DocumentStats summarises the indexed state of a document.
	DocumentStats(ctx context.Context, documentID string) (*domain.DocumentStats, error)
}
