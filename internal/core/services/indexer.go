package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/paperlens/internal/core/domain"
	"github.com/custodia-labs/paperlens/internal/core/ports/driven"
	"github.com/custodia-labs/paperlens/internal/core/ports/driving"
	"github.com/custodia-labs/paperlens/internal/logger"
)

// Ensure Indexer implements the interface.
var _ driving.IndexingService = (*Indexer)(nil)

// embedBatchSize bounds each embedding request; it matches the batch
// cap of the embedding service.
const embedBatchSize = 32

// maxConcurrentBatches bounds the parallel embedding requests for one
// document. Each chunk's embedding is independent, so batches only
// share the cache.
const maxConcurrentBatches = 4

// Indexer turns parsed pages into a stored, searchable index:
// analyze, chunk, embed, commit, fingerprint.
type Indexer struct {
	analyzer    *Analyzer
	chunker     *Chunker
	fingerprint *FingerprintTracker
	docStore    driven.DocumentStore
	embedder    driven.EmbeddingService
}

// NewIndexer creates an indexing service.
func NewIndexer(
	analyzer *Analyzer,
	chunker *Chunker,
	fingerprint *FingerprintTracker,
	docStore driven.DocumentStore,
	embedder driven.EmbeddingService,
) *Indexer {
	return &Indexer{
		analyzer:    analyzer,
		chunker:     chunker,
		fingerprint: fingerprint,
		docStore:    docStore,
		embedder:    embedder,
	}
}

// ProcessDocument runs one full processing pass. The pass is
// idempotent: an unchanged fingerprint short-circuits to the stored
// chunks. Chunk storage is atomic and the fingerprint is written only
// after the commit, so a failed pass leaves the prior index intact.
func (ix *Indexer) ProcessDocument(ctx context.Context, documentID string, pages []domain.ParsedPage, opts driving.ProcessOptions) ([]domain.Chunk, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: empty document id", domain.ErrInvalidInput)
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if err := validateChunking(opts.ChunkSize, opts.ChunkOverlap); err != nil {
		return nil, err
	}

	if !hasText(pages) {
		return nil, fmt.Errorf("%w: document %s has no extractable text", domain.ErrParseFailure, documentID)
	}

	logger.Section("Document Processing")
	logger.Info("Processing document %s (%d pages)", documentID, len(pages))

	doc, err := ix.docStore.GetDocument(ctx, documentID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get document: %w", err)
	}

	sections := ix.analyzer.Analyze(pages)

	sourcePath := ""
	if doc != nil {
		sourcePath = doc.SourcePath
	}
	contentHash := ix.fingerprint.ContentHash(pages, sourcePath)
	structureHash := ix.fingerprint.StructureHash(sections)

	needed, err := ix.fingerprint.NeedsReprocessing(ctx, documentID, contentHash, structureHash)
	if err != nil {
		return nil, err
	}
	if !needed {
		logger.Info("Document %s unchanged, reusing stored chunks", documentID)
		return ix.docStore.GetChunks(ctx, documentID)
	}

	var chunks []domain.Chunk
	if opts.PreserveStructure {
		chunks, err = ix.chunker.ChunkSections(documentID, sections, opts.ChunkSize, opts.ChunkOverlap)
	} else {
		chunks, err = ix.chunker.ChunkPages(documentID, pages, opts.ChunkSize, opts.ChunkOverlap)
	}
	if err != nil {
		return nil, err
	}

	if len(chunks) == 0 {
		// Non-empty input that chunks to nothing is a failure, never
		// a silently empty index.
		return nil, fmt.Errorf("%w: document %s produced no chunks", domain.ErrProcessingFailed, documentID)
	}

	if err := ix.embedChunks(ctx, chunks); err != nil {
		return nil, err
	}

	// The document row must exist before sections and chunks can
	// reference it.
	if doc == nil {
		doc = &domain.Document{ID: documentID, UploadedAt: time.Now().UTC()}
		if err := ix.docStore.SaveDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("save document: %w", err)
		}
	}

	flat := flattenSections(sections)
	if err := ix.docStore.ReplaceSections(ctx, documentID, flat); err != nil {
		return nil, fmt.Errorf("replace sections: %w", err)
	}
	if err := ix.docStore.ReplaceChunks(ctx, documentID, chunks); err != nil {
		return nil, fmt.Errorf("replace chunks: %w", err)
	}

	// Only after the chunk transaction commits.
	if err := ix.fingerprint.Commit(ctx, documentID, contentHash, structureHash, len(chunks)); err != nil {
		return nil, err
	}

	ix.updateDocumentRecord(ctx, doc, documentID, pages, sections)

	logger.Info("Document %s processed: %d chunks", documentID, len(chunks))
	return chunks, nil
}

// NeedsReprocessing analyzes the pages and compares hashes against the
// stored fingerprint without doing any chunking or embedding.
func (ix *Indexer) NeedsReprocessing(ctx context.Context, documentID string, pages []domain.ParsedPage) (bool, error) {
	if documentID == "" {
		return false, fmt.Errorf("%w: empty document id", domain.ErrInvalidInput)
	}

	sections := ix.analyzer.Analyze(pages)

	sourcePath := ""
	if doc, err := ix.docStore.GetDocument(ctx, documentID); err == nil {
		sourcePath = doc.SourcePath
	}

	return ix.fingerprint.NeedsReprocessing(ctx, documentID,
		ix.fingerprint.ContentHash(pages, sourcePath),
		ix.fingerprint.StructureHash(sections))
}

// DocumentStats summarises the indexed state of a document.
func (ix *Indexer) DocumentStats(ctx context.Context, documentID string) (*domain.DocumentStats, error) {
	stats, err := ix.docStore.Stats(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("stats for %s: %w", documentID, err)
	}
	return stats, nil
}

// embedChunks fills in chunk embeddings in place. Batches run in
// parallel up to the concurrency bound; any batch failure fails the
// pass before anything is stored.
func (ix *Indexer) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	if ix.embedder == nil {
		return fmt.Errorf("%w: no embedding service configured", domain.ErrEmbeddingUnavailable)
	}

	type batch struct {
		start int
		texts []string
	}

	var batches []batch
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			texts = append(texts, chunks[i].Content)
		}
		batches = append(batches, batch{start: start, texts: texts})
	}

	logger.Debug("Embedding %d chunks in %d batches", len(chunks), len(batches))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	sem := make(chan struct{}, maxConcurrentBatches)

	for _, b := range batches {
		wg.Add(1)
		go func(b batch) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			vectors, err := ix.embedder.EmbedBatch(ctx, b.texts)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
				}
				mu.Unlock()
				return
			}

			mu.Lock()
			for i, vec := range vectors {
				chunks[b.start+i].Embedding = vec
			}
			mu.Unlock()
		}(b)
	}

	wg.Wait()
	return firstErr
}

// updateDocumentRecord refreshes the document row with inferred
// metadata and the processing timestamp. Best effort: a failure here
// does not invalidate the committed index.
func (ix *Indexer) updateDocumentRecord(ctx context.Context, doc *domain.Document, documentID string, pages []domain.ParsedPage, sections []*domain.Section) {
	if doc == nil {
		doc = &domain.Document{ID: documentID, UploadedAt: time.Now().UTC()}
	}

	doc.PageCount = len(pages)
	doc.ProcessedAt = time.Now().UTC()

	for _, root := range sections {
		root.Walk(func(s *domain.Section) {
			switch s.Type {
			case domain.SectionTitle:
				if doc.Title == "" {
					doc.Title = s.Title
				}
			case domain.SectionAbstract:
				if doc.Abstract == "" {
					doc.Abstract = s.Content
				}
			}
		})
	}

	if err := ix.docStore.SaveDocument(ctx, doc); err != nil {
		logger.Warn("Updating document record %s failed: %v", documentID, err)
	}
}

// flattenSections returns the tree in depth-first document order.
func flattenSections(sections []*domain.Section) []domain.Section {
	var flat []domain.Section
	for _, root := range sections {
		root.Walk(func(s *domain.Section) {
			flat = append(flat, *s)
		})
	}
	return flat
}

// hasText reports whether any page carries non-whitespace text.
func hasText(pages []domain.ParsedPage) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}
