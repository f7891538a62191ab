package domain

import "time"

// Document represents one uploaded PDF paper.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Filename is the original upload filename.
	Filename string

	// SourcePath is the stored location of the PDF on disk.
	SourcePath string

	// Title is the inferred paper title, if detection succeeded.
	Title string

	// Authors is the inferred author line, if any.
	Authors string

	// Abstract is the inferred abstract text, if any.
	Abstract string

	// PageCount is the number of pages in the PDF.
	PageCount int

	// ByteSize is the size of the uploaded file in bytes.
	ByteSize int64

	// UploadedAt is when the document was first stored.
	UploadedAt time.Time

	// ProcessedAt is when chunking and embedding last completed.
	// Zero until a processing pass finishes (or is explicitly failed).
	ProcessedAt time.Time
}

// Chunk is the atomic unit of retrieval and embedding.
// Chunks are immutable once stored; reprocessing replaces the whole set
// for a document rather than editing rows.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Metadata carries the structural provenance of the chunk.
	Metadata ChunkMetadata

	// Embedding is the vector representation for semantic search.
	// Nil until the embedding pass has run.
	Embedding []float32

	// CreatedAt is when the chunk was produced.
	CreatedAt time.Time
}

// ChunkMetadata records where a chunk came from within the document.
type ChunkMetadata struct {
	// PageNumber is the 1-based page the chunk starts on.
	PageNumber int

	// SectionTitle is the title of the originating section.
	SectionTitle string

	// SectionType classifies the originating section.
	SectionType SectionType

	// StartPosition is the character offset of the chunk start within
	// its section (structure-preserving mode) or page (sliding window).
	StartPosition int

	// EndPosition is the character offset one past the chunk end.
	// Always strictly greater than StartPosition.
	EndPosition int

	// BoundingBox is the page-space region of the chunk, when known.
	BoundingBox *BoundingBox

	// Confidence is the detection confidence inherited from the
	// structural analyzer, in [0,1].
	Confidence float64
}

// BoundingBox is a rectangle in PDF page space.
type BoundingBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Length returns the content length of the chunk in characters.
func (c *Chunk) Length() int {
	return len(c.Content)
}

// DocumentStats summarises the indexed state of one document.
type DocumentStats struct {
	// TotalChunks is the number of stored chunks.
	TotalChunks int

	// AverageChunkSize is the mean chunk content length in characters.
	AverageChunkSize float64

	// SectionDistribution counts chunks per section type.
	SectionDistribution map[SectionType]int

	// PageDistribution counts chunks per page number.
	PageDistribution map[int]int
}
