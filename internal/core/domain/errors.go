package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input, such as a
	// non-positive chunk size. Rejected before any work begins.
	ErrInvalidInput = errors.New("invalid input")

	// ErrParseFailure indicates the PDF text extraction produced
	// nothing usable. Fatal for the document; no partial index is
	// created.
	ErrParseFailure = errors.New("parse failure")

	// ErrEmbeddingUnavailable indicates the embedding service is down
	// or timed out. Retryable after backoff; cached embeddings remain
	// usable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrStorageFailure indicates a storage transaction could not
	// commit. The processing pass is rolled back and the fingerprint
	// is not updated.
	ErrStorageFailure = errors.New("storage failure")

	// ErrDimensionMismatch indicates a stored embedding does not match
	// the dimensionality of the active model.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrProcessingFailed indicates a document produced no chunks from
	// non-empty input. The document is marked failed, not partially
	// indexed.
	ErrProcessingFailed = errors.New("document processing failed")
)
