package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/paperlens/internal/core/domain"
	"github.com/custodia-labs/paperlens/internal/logger"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters
// between sliding-window chunks.
const DefaultChunkOverlap = 200

// boundaryLookback is how far the sliding window scans backwards for a
// sentence boundary before accepting a hard cut.
const boundaryLookback = 100

// Chunker splits analyzed documents into bounded retrieval chunks.
type Chunker struct{}

// NewChunker creates a chunker.
func NewChunker() *Chunker {
	return &Chunker{}
}

// validate rejects malformed chunking parameters before any work.
func validateChunking(chunkSize, chunkOverlap int) error {
	if chunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidInput, chunkSize)
	}
	if chunkOverlap < 0 {
		return fmt.Errorf("%w: chunk overlap must be non-negative, got %d", domain.ErrInvalidInput, chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", domain.ErrInvalidInput, chunkOverlap, chunkSize)
	}
	return nil
}

// ChunkSections walks the section tree and emits structure-preserving
// chunks. A section whose content fits in chunkSize becomes a single
// chunk; larger sections are packed greedily along sentence
// boundaries, so no sentence is ever split. Chunk offsets partition
// the section content without gaps.
func (c *Chunker) ChunkSections(documentID string, sections []*domain.Section, chunkSize, chunkOverlap int) ([]domain.Chunk, error) {
	if err := validateChunking(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}

	var chunks []domain.Chunk
	for _, root := range sections {
		root.Walk(func(s *domain.Section) {
			chunks = append(chunks, c.chunkSection(documentID, s, chunkSize)...)
		})
	}

	logger.Debug("Structure-preserving chunking: %d chunks for document %s", len(chunks), documentID)
	return chunks, nil
}

// chunkSection emits the chunks for one section.
func (c *Chunker) chunkSection(documentID string, s *domain.Section, chunkSize int) []domain.Chunk {
	if strings.TrimSpace(s.Content) == "" {
		return nil
	}

	if len(s.Content) <= chunkSize {
		return []domain.Chunk{c.newChunk(documentID, s, s.Content, 0, len(s.Content))}
	}

	// Greedy sentence packing: a group closes once adding the next
	// sentence would exceed the limit.
	var chunks []domain.Chunk
	groupStart := 0
	cursor := 0

	for _, sentence := range splitSentences(s.Content) {
		// Locate the sentence in the original content so offsets
		// stay exact even after trimming.
		idx := strings.Index(s.Content[cursor:], sentence)
		if idx < 0 {
			continue
		}
		sentenceStart := cursor + idx
		sentenceEnd := sentenceStart + len(sentence)

		if cursor > groupStart && sentenceEnd-groupStart > chunkSize {
			// Close the group at the end of the previous sentence;
			// the next group starts right there so the chunk ranges
			// partition the section without gaps.
			chunks = append(chunks, c.newChunk(documentID, s, s.Content[groupStart:cursor], groupStart, cursor))
			groupStart = cursor
		}

		cursor = sentenceEnd
	}

	if groupStart < len(s.Content) {
		chunks = append(chunks, c.newChunk(documentID, s, s.Content[groupStart:], groupStart, len(s.Content)))
	}

	return chunks
}

// ChunkPages slides fixed-size windows over raw page text, used when
// structure-preserving chunking is disabled. The window end moves back
// to the nearest sentence boundary within the lookback when that keeps
// at least half the target size; consecutive windows overlap by
// chunkOverlap characters and the start strictly increases.
func (c *Chunker) ChunkPages(documentID string, pages []domain.ParsedPage, chunkSize, chunkOverlap int) ([]domain.Chunk, error) {
	if err := validateChunking(chunkSize, chunkOverlap); err != nil {
		return nil, err
	}

	var chunks []domain.Chunk
	for _, page := range pages {
		chunks = append(chunks, c.chunkPage(documentID, page, chunkSize, chunkOverlap)...)
	}

	logger.Debug("Sliding-window chunking: %d chunks for document %s", len(chunks), documentID)
	return chunks, nil
}

// chunkPage windows one page of text.
func (c *Chunker) chunkPage(documentID string, page domain.ParsedPage, chunkSize, chunkOverlap int) []domain.Chunk {
	text := page.Text
	if strings.TrimSpace(text) == "" {
		return nil
	}

	section := &domain.Section{
		Type:       domain.SectionOther,
		Title:      fmt.Sprintf("Page %d", page.Number),
		StartPage:  page.Number,
		Confidence: 1.0,
	}

	var chunks []domain.Chunk
	start := 0

	for start < len(text) {
		end := start + chunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = adjustToSentenceBoundary(text, start, end, chunkSize)
		}

		chunks = append(chunks, c.newChunk(documentID, section, text[start:end], start, end))

		if end >= len(text) {
			break
		}

		next := end - chunkOverlap
		if next <= start {
			// Forward progress is mandatory even when the overlap
			// swallows the whole window.
			next = start + 1
		}
		start = next
	}

	return chunks
}

// adjustToSentenceBoundary moves the window end backwards to just
// after the nearest sentence terminator, provided one exists within
// the lookback and the shortened window keeps at least half the
// target chunk size. Otherwise the hard boundary stands.
func adjustToSentenceBoundary(text string, start, end, chunkSize int) int {
	lookbackStart := end - boundaryLookback
	if lookbackStart < start {
		lookbackStart = start
	}

	for i := end - 1; i >= lookbackStart; i-- {
		ch := text[i]
		if ch == '.' || ch == '!' || ch == '?' {
			candidate := i + 1
			if candidate-start >= chunkSize/2 {
				return candidate
			}
			break
		}
	}

	return end
}

// newChunk builds a chunk with provenance metadata from its section.
func (c *Chunker) newChunk(documentID string, s *domain.Section, content string, start, end int) domain.Chunk {
	return domain.Chunk{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		Content:    content,
		Metadata: domain.ChunkMetadata{
			PageNumber:    s.StartPage,
			SectionTitle:  s.Title,
			SectionType:   s.Type,
			StartPosition: start,
			EndPosition:   end,
			Confidence:    s.Confidence,
		},
		CreatedAt: time.Now().UTC(),
	}
}
