package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations may include:
//   - the local sentence-transformers service (all-MiniLM-L6-v2)
//   - OpenAI-compatible APIs (text-embedding-3-small, ...)
//
// Calls are latency-bearing network I/O and must honour the context
// deadline. Callers never hold a storage transaction open across a call.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	// Implementations split the input into model-sized batches.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g. 384, 1536).
	// Stored vectors must match this on read.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Version identifies the model and generation epoch for
	// fingerprinting. Changing it forces reprocessing.
	Version() string

	// Close releases resources.
	Close() error
}
