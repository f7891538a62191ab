package domain

import "time"

// Fingerprint records the hashes that decide whether a document must be
// re-chunked and re-embedded. One fingerprint exists per document and is
// only written after a processing pass commits.
type Fingerprint struct {
	// DocumentID links to the fingerprinted document.
	DocumentID string

	// ContentHash covers the full extracted text, the source path and
	// a date bucket.
	ContentHash string

	// StructureHash covers the section count, types and titles.
	StructureHash string

	// EmbeddingVersion identifies the embedding model and generation
	// epoch used for the stored vectors.
	EmbeddingVersion string

	// LastProcessed is when the fingerprinted pass completed.
	LastProcessed time.Time

	// ChunkCount is the number of chunks produced by that pass.
	ChunkCount int
}

// Matches reports whether other describes the same content, structure
// and embedding version. A mismatch on any field requires reprocessing.
func (f *Fingerprint) Matches(other *Fingerprint) bool {
	if f == nil || other == nil {
		return false
	}
	return f.ContentHash == other.ContentHash &&
		f.StructureHash == other.StructureHash &&
		f.EmbeddingVersion == other.EmbeddingVersion
}
