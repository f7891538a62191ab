package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/custodia-labs/paperlens/internal/core/domain"
	"github.com/custodia-labs/paperlens/internal/core/ports/driven"
	"github.com/custodia-labs/paperlens/internal/core/ports/driving"
	"github.com/custodia-labs/paperlens/internal/logger"
)

// Ensure SearchEngine implements the interface.
var _ driving.SearchService = (*SearchEngine)(nil)

// Fusion and ranking constants.
const (
	// semanticWeight and lexicalWeight fuse hybrid scores. They sum
	// to 1.0, which bounds a fused score by the larger component.
	semanticWeight = 0.7
	lexicalWeight  = 0.3

	// adjacentDiscount scales the similarity of chunks pulled in by
	// contextual expansion.
	adjacentDiscount = 0.8

	// adjacentMinSimilarity gates contextual expansion: an adjacent
	// chunk joins the results only if its own query similarity
	// exceeds this.
	adjacentMinSimilarity = 0.5

	// optimalChunkLength is the content length the re-ranking pass
	// favours.
	optimalChunkLength = 500

	// minTermLength: lexical terms must be longer than this.
	minTermLength = 2

	// defaultSearchLimit applies when options carry no limit.
	defaultSearchLimit = 10

	// DefaultAdjacentPageWindow is the ±page window for contextual
	// adjacency. The window size is a heuristic with no documented
	// rationale, so it stays configurable.
	DefaultAdjacentPageWindow = 1
)

// SearchEngine serves multi-strategy similarity queries against the
// stored chunk index of a document.
type SearchEngine struct {
	docStore   driven.DocumentStore
	embedder   driven.EmbeddingService
	pageWindow int
}

// SearchOption configures the engine.
type SearchOption func(*SearchEngine)

// WithAdjacentPageWindow sets the contextual adjacency page window.
func WithAdjacentPageWindow(window int) SearchOption {
	return func(e *SearchEngine) {
		if window > 0 {
			e.pageWindow = window
		}
	}
}

// NewSearchEngine creates a search engine. The embedder is required
// for semantic, hybrid and contextual strategies; lexical search works
// without it.
func NewSearchEngine(docStore driven.DocumentStore, embedder driven.EmbeddingService, opts ...SearchOption) *SearchEngine {
	e := &SearchEngine{
		docStore:   docStore,
		embedder:   embedder,
		pageWindow: DefaultAdjacentPageWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs the given strategy for the query against one document.
// A document with zero chunks returns an empty slice and no error. An
// embedding-service failure propagates so callers can tell "no
// matches" from "search failed".
func (e *SearchEngine) Search(ctx context.Context, query, documentID string, strategy domain.SearchStrategy, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if !strategy.IsValid() {
		return nil, fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidInput, strategy)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	logger.Section("Search Execution")
	logger.Debug("Query: %q, document: %s, strategy: %s, limit: %d", query, documentID, strategy, limit)

	chunks, err := e.docStore.GetChunks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get chunks for %s: %w", documentID, err)
	}

	chunks = filterChunks(chunks, opts)
	if len(chunks) == 0 {
		logger.Debug("No candidate chunks for document %s", documentID)
		return []domain.SearchResult{}, nil
	}

	var results []domain.SearchResult

	switch strategy {
	case domain.StrategySemantic:
		results, err = e.semanticSearch(ctx, query, documentID, chunks, opts)
	case domain.StrategyLexical:
		results = e.lexicalSearch(query, chunks)
	case domain.StrategyHybrid:
		results, err = e.hybridSearch(ctx, query, documentID, chunks, opts)
	case domain.StrategyContextual:
		results, err = e.contextualSearch(ctx, query, documentID, chunks, opts)
	}

	if err != nil {
		return nil, err
	}

	if opts.Boosts != nil {
		applyBoosts(results, opts.Boosts)
		sortBySimilarity(results)
	}

	if opts.Rerank {
		rerankByLength(results)
	}

	if len(results) > limit {
		results = results[:limit]
	}

	assignRanks(results)
	logger.Debug("Search returned %d results", len(results))
	return results, nil
}

// semanticSearch embeds the query and ranks chunks by cosine
// similarity, dropping hits below the threshold.
func (e *SearchEngine) semanticSearch(ctx context.Context, query, documentID string, chunks []domain.Chunk, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	queryVec, err := e.embedQuery(ctx, query, documentID)
	if err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(chunks))
	for i := range chunks {
		if chunks[i].Embedding == nil {
			continue
		}

		sim, err := cosineSimilarity(queryVec, chunks[i].Embedding)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", chunks[i].ID, err)
		}

		if sim < opts.SimilarityThreshold {
			continue
		}

		results = append(results, domain.SearchResult{Chunk: chunks[i], Similarity: sim})
	}

	sortBySimilarity(results)
	return results, nil
}

// lexicalSearch scores chunks by Jaccard similarity between the query
// term set and the chunk term set. Embeddings are ignored entirely.
func (e *SearchEngine) lexicalSearch(query string, chunks []domain.Chunk) []domain.SearchResult {
	queryTerms := tokenizeTerms(query, minTermLength)

	results := make([]domain.SearchResult, 0, len(chunks))
	for i := range chunks {
		score := jaccard(queryTerms, tokenizeTerms(chunks[i].Content, minTermLength))
		if score <= 0 {
			continue
		}
		results = append(results, domain.SearchResult{Chunk: chunks[i], Similarity: score})
	}

	sortBySimilarity(results)
	return results
}

// hybridSearch fuses independent semantic and lexical runs with a
// weighted sum, merged by chunk ID. A chunk present in only one list
// keeps that list's weighted score.
func (e *SearchEngine) hybridSearch(ctx context.Context, query, documentID string, chunks []domain.Chunk, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	semantic, err := e.semanticSearch(ctx, query, documentID, chunks, opts)
	if err != nil {
		return nil, err
	}
	lexical := e.lexicalSearch(query, chunks)

	merged := make(map[string]*domain.SearchResult, len(semantic)+len(lexical))
	for i := range semantic {
		r := semantic[i]
		r.Similarity *= semanticWeight
		merged[r.Chunk.ID] = &r
	}
	for i := range lexical {
		weighted := lexical[i].Similarity * lexicalWeight
		if existing, ok := merged[lexical[i].Chunk.ID]; ok {
			existing.Similarity += weighted
		} else {
			r := lexical[i]
			r.Similarity = weighted
			merged[r.Chunk.ID] = &r
		}
	}

	results := make([]domain.SearchResult, 0, len(merged))
	for _, r := range merged {
		results = append(results, *r)
	}

	sortBySimilarity(results)
	return results, nil
}

// contextualSearch widens semantic hits with structurally adjacent
// chunks: same document, same section type, within the page window.
// An adjacent chunk joins only when its own similarity to the query
// exceeds the gate, discounted so the source hit still leads.
func (e *SearchEngine) contextualSearch(ctx context.Context, query, documentID string, chunks []domain.Chunk, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	results, err := e.semanticSearch(ctx, query, documentID, chunks, opts)
	if err != nil {
		return nil, err
	}

	queryVec, err := e.embedQuery(ctx, query, documentID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(results))
	for i := range results {
		seen[results[i].Chunk.ID] = true
	}

	var expanded []domain.SearchResult
	for i := range results {
		adjacent, err := e.docStore.GetAdjacentChunks(ctx, &results[i].Chunk, e.pageWindow)
		if err != nil {
			return nil, fmt.Errorf("adjacent chunks for %s: %w", results[i].Chunk.ID, err)
		}

		for j := range adjacent {
			if seen[adjacent[j].ID] || adjacent[j].Embedding == nil {
				continue
			}

			sim, err := cosineSimilarity(queryVec, adjacent[j].Embedding)
			if err != nil {
				return nil, fmt.Errorf("chunk %s: %w", adjacent[j].ID, err)
			}
			if sim <= adjacentMinSimilarity {
				continue
			}

			seen[adjacent[j].ID] = true
			expanded = append(expanded, domain.SearchResult{
				Chunk:        adjacent[j],
				Similarity:   sim * adjacentDiscount,
				Explanations: []string{fmt.Sprintf("adjacent to %s on page %d", results[i].Chunk.ID, results[i].Chunk.Metadata.PageNumber)},
			})
		}
	}

	results = append(results, expanded...)
	sortBySimilarity(results)
	return results, nil
}

// embedQuery embeds the query text, attaching diagnostics on failure.
func (e *SearchEngine) embedQuery(ctx context.Context, query, documentID string) ([]float32, error) {
	if e.embedder == nil {
		return nil, fmt.Errorf("%w: query %q, document %s", domain.ErrEmbeddingUnavailable, query, documentID)
	}

	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query %q, document %s: %w", domain.ErrEmbeddingUnavailable, query, documentID, err)
	}
	return vec, nil
}

// filterChunks applies the section-type and page-range filters.
func filterChunks(chunks []domain.Chunk, opts domain.SearchOptions) []domain.Chunk {
	if len(opts.SectionTypes) == 0 && opts.Pages == nil {
		return chunks
	}

	allowed := make(map[domain.SectionType]bool, len(opts.SectionTypes))
	for _, t := range opts.SectionTypes {
		allowed[t] = true
	}

	filtered := make([]domain.Chunk, 0, len(chunks))
	for i := range chunks {
		if len(allowed) > 0 && !allowed[chunks[i].Metadata.SectionType] {
			continue
		}
		if opts.Pages != nil && !opts.Pages.Contains(chunks[i].Metadata.PageNumber) {
			continue
		}
		filtered = append(filtered, chunks[i])
	}
	return filtered
}

// applyBoosts multiplies similarities by section-type and keyword
// factors, recording an explanation per applied boost. Scores are
// clamped back into [0,1].
func applyBoosts(results []domain.SearchResult, boosts *domain.BoostFactors) {
	keywordWeight := boosts.KeywordWeight
	if keywordWeight == 0 && len(boosts.Keywords) > 0 {
		keywordWeight = 1.1
	}

	for i := range results {
		r := &results[i]

		if factor, ok := boosts.SectionTypes[r.Chunk.Metadata.SectionType]; ok && factor != 1.0 {
			r.Similarity *= factor
			r.Explanations = append(r.Explanations,
				fmt.Sprintf("section type %s boosted x%.2f", r.Chunk.Metadata.SectionType, factor))
		}

		if len(boosts.Keywords) > 0 {
			content := strings.ToLower(r.Chunk.Content)
			for _, kw := range boosts.Keywords {
				if strings.Contains(content, strings.ToLower(kw)) {
					r.Similarity *= keywordWeight
					r.Explanations = append(r.Explanations,
						fmt.Sprintf("keyword %q matched x%.2f", kw, keywordWeight))
					break
				}
			}
		}

		if r.Similarity > 1.0 {
			r.Similarity = 1.0
		}
		if r.Similarity < 0 {
			r.Similarity = 0
		}
	}
}

// rerankByLength applies the length-penalty factor favouring chunks
// near the optimal length and sorts by the resulting relevance score.
func rerankByLength(results []domain.SearchResult) {
	for i := range results {
		dist := math.Abs(float64(results[i].Chunk.Length() - optimalChunkLength))
		penalty := 0.7 + 0.3*math.Exp(-dist/1000)
		results[i].RelevanceScore = results[i].Similarity * penalty
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
}

// sortBySimilarity orders results by non-increasing similarity.
func sortBySimilarity(results []domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
}

// assignRanks sets dense 1-based ranks in the current order.
func assignRanks(results []domain.SearchResult) {
	for i := range results {
		results[i].Rank = i + 1
	}
}

// cosineSimilarity computes the cosine of two vectors, mapped into
// [0,1]. Dimension mismatches are schema violations, not scores.
func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", domain.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	// Map [-1,1] to [0,1] so thresholds and fusion weights operate on
	// a non-negative scale.
	return (cos + 1) / 2, nil
}
