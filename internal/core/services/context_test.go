package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/paperlens/internal/core/domain"
)

func result(id string, sim float64, page int, sectionType domain.SectionType, content string) domain.SearchResult {
	return domain.SearchResult{
		Chunk: domain.Chunk{
			ID:         id,
			DocumentID: "doc1",
			Content:    content,
			Metadata: domain.ChunkMetadata{
				PageNumber:  page,
				SectionType: sectionType,
			},
		},
		Similarity: sim,
	}
}

// uniformResults builds n equal-similarity results with contentLen-byte
// bodies, so selection depends only on compression and budget.
func uniformResults(n, contentLen int) []domain.SearchResult {
	results := make([]domain.SearchResult, n)
	for i := range results {
		results[i] = result(fmt.Sprintf("c%d", i), 0.9, i+1, domain.SectionOther,
			strings.Repeat("x", contentLen))
	}
	return results
}

func TestOptimize_NegativeMaxTokens(t *testing.T) {
	_, err := NewContextOptimizer().Optimize(context.Background(), nil,
		domain.ConversationState{}, domain.ContextOptions{MaxTokens: -1})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOptimize_EmptyResults(t *testing.T) {
	window, err := NewContextOptimizer().Optimize(context.Background(), nil,
		domain.ConversationState{}, domain.ContextOptions{})

	require.NoError(t, err)
	assert.Empty(t, window.Chunks)
	assert.Zero(t, window.TotalTokens)
	assert.Zero(t, window.CompressionRatio)
}

func TestOptimize_TokenBudgetPacking(t *testing.T) {
	// 400 characters estimate to 100 tokens each.
	results := uniformResults(3, 400)

	window, err := NewContextOptimizer().Optimize(context.Background(), results,
		domain.ConversationState{Level: domain.LevelPhD}, domain.ContextOptions{MaxTokens: 250})

	require.NoError(t, err)
	assert.Len(t, window.Chunks, 2, "third chunk would exceed the budget")
	assert.Equal(t, 200, window.TotalTokens)
	assert.InDelta(t, 2.0/3.0, window.CompressionRatio, 1e-9)
}

func TestOptimize_CompressionTargetPerLevel(t *testing.T) {
	tests := []struct {
		level domain.EducationLevel
		keep  int
	}{
		{domain.LevelHighSchool, 3},
		{domain.LevelNonTechnical, 3},
		{domain.LevelUndergraduate, 5},
		{domain.LevelMasters, 7},
		{domain.LevelPhD, 8},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			window, err := NewContextOptimizer().Optimize(context.Background(), uniformResults(10, 40),
				domain.ConversationState{Level: tt.level}, domain.ContextOptions{})

			require.NoError(t, err)
			assert.Len(t, window.Chunks, tt.keep)
		})
	}
}

func TestOptimize_CallerCompressionCapsLevelTarget(t *testing.T) {
	results := uniformResults(10, 40)

	window, err := NewContextOptimizer().Optimize(context.Background(), results,
		domain.ConversationState{Level: domain.LevelPhD},
		domain.ContextOptions{TargetCompression: 0.2})

	require.NoError(t, err)
	assert.Len(t, window.Chunks, 2)

	// A looser caller target than the level's does nothing.
	window, err = NewContextOptimizer().Optimize(context.Background(), results,
		domain.ConversationState{Level: domain.LevelHighSchool},
		domain.ContextOptions{TargetCompression: 0.9})

	require.NoError(t, err)
	assert.Len(t, window.Chunks, 3)
}

func TestOptimize_KeepsAtLeastOneChunk(t *testing.T) {
	results := uniformResults(1, 40)

	window, err := NewContextOptimizer().Optimize(context.Background(), results,
		domain.ConversationState{Level: domain.LevelHighSchool},
		domain.ContextOptions{TargetCompression: 0.01})

	require.NoError(t, err)
	assert.Len(t, window.Chunks, 1)
}

func TestOptimize_HistoryOverlapBoost(t *testing.T) {
	results := []domain.SearchResult{
		result("plain", 0.8, 1, domain.SectionOther, "unrelated botany fieldwork"),
		result("boosted", 0.8, 2, domain.SectionOther, "gradient descent convergence rates"),
	}

	window, err := NewContextOptimizer().Optimize(context.Background(), results,
		domain.ConversationState{
			Level:   domain.LevelPhD,
			History: []string{"tell me about gradient descent"},
		}, domain.ContextOptions{})

	require.NoError(t, err)
	require.NotEmpty(t, window.Chunks)
	assert.Equal(t, "boosted", window.Chunks[0].ID)
}

func TestOptimize_FocusAreaBoost(t *testing.T) {
	results := []domain.SearchResult{
		result("plain", 0.8, 1, domain.SectionOther, "background material"),
		result("focused", 0.8, 2, domain.SectionOther, "the attention mechanism in detail"),
	}

	window, err := NewContextOptimizer().Optimize(context.Background(), results,
		domain.ConversationState{
			Level:      domain.LevelPhD,
			FocusAreas: []string{"Attention"},
		}, domain.ContextOptions{})

	require.NoError(t, err)
	assert.Equal(t, "focused", window.Chunks[0].ID)
}

func TestOptimize_HighlightedPageBoost(t *testing.T) {
	results := []domain.SearchResult{
		result("offpage", 0.8, 1, domain.SectionOther, "some text"),
		result("onpage", 0.8, 3, domain.SectionOther, "other text"),
	}

	window, err := NewContextOptimizer().Optimize(context.Background(), results,
		domain.ConversationState{
			Level:           domain.LevelPhD,
			HighlightedText: "selected words",
			HighlightedPage: 3,
		}, domain.ContextOptions{})

	require.NoError(t, err)
	assert.Equal(t, "onpage", window.Chunks[0].ID)
}

func TestOptimize_HighlightOverlapOffPage(t *testing.T) {
	results := []domain.SearchResult{
		result("plain", 0.8, 1, domain.SectionOther, "unrelated content entirely"),
		result("overlap", 0.8, 2, domain.SectionOther, "residual connections help training"),
	}

	window, err := NewContextOptimizer().Optimize(context.Background(), results,
		domain.ConversationState{
			Level:           domain.LevelPhD,
			HighlightedText: "residual connections",
		}, domain.ContextOptions{})

	require.NoError(t, err)
	assert.Equal(t, "overlap", window.Chunks[0].ID)
}

func TestOptimize_LevelAffinityReordersSections(t *testing.T) {
	results := []domain.SearchResult{
		result("refs", 0.8, 1, domain.SectionReferences, "reference list"),
		result("methods", 0.8, 2, domain.SectionMethodology, "method details"),
	}

	// PhD readers favour the technical core over references.
	window, err := NewContextOptimizer().Optimize(context.Background(), results,
		domain.ConversationState{Level: domain.LevelPhD}, domain.ContextOptions{})

	require.NoError(t, err)
	assert.Equal(t, "methods", window.Chunks[0].ID)

	// Non-technical readers rank methodology down instead.
	results = []domain.SearchResult{
		result("intro", 0.8, 1, domain.SectionIntroduction, "introduction text"),
		result("methods", 0.8, 2, domain.SectionMethodology, "method details"),
	}
	window, err = NewContextOptimizer().Optimize(context.Background(), results,
		domain.ConversationState{Level: domain.LevelNonTechnical}, domain.ContextOptions{})

	require.NoError(t, err)
	assert.Equal(t, "intro", window.Chunks[0].ID)
}

func TestOptimize_RelevanceScoreTakesPrecedence(t *testing.T) {
	reranked := result("reranked", 0.5, 1, domain.SectionOther, "aa")
	reranked.RelevanceScore = 0.95
	results := []domain.SearchResult{
		result("similar", 0.8, 2, domain.SectionOther, "bb"),
		reranked,
	}

	window, err := NewContextOptimizer().Optimize(context.Background(), results,
		domain.ConversationState{Level: domain.LevelPhD}, domain.ContextOptions{})

	require.NoError(t, err)
	assert.Equal(t, "reranked", window.Chunks[0].ID)
}

func TestOptimize_PreserveCoherenceReadsInOrder(t *testing.T) {
	late := result("late", 0.9, 5, domain.SectionOther, "page five")
	early := result("early", 0.7, 2, domain.SectionOther, "page two")
	sameEarly := result("same-page", 0.8, 2, domain.SectionOther, "page two later")
	sameEarly.Chunk.Metadata.StartPosition = 400

	window, err := NewContextOptimizer().Optimize(context.Background(),
		[]domain.SearchResult{late, early, sameEarly},
		domain.ConversationState{Level: domain.LevelPhD},
		domain.ContextOptions{PreserveCoherence: true})

	require.NoError(t, err)
	require.Len(t, window.Chunks, 3)
	assert.Equal(t, "early", window.Chunks[0].ID)
	assert.Equal(t, "same-page", window.Chunks[1].ID)
	assert.Equal(t, "late", window.Chunks[2].ID)
}

func TestOptimize_CitationsFollowSelectionOrder(t *testing.T) {
	results := []domain.SearchResult{
		result("a", 0.9, 4, domain.SectionOther, "first"),
		result("b", 0.8, 7, domain.SectionOther, "second"),
		result("c", 0.7, 2, domain.SectionOther, "third"),
	}

	window, err := NewContextOptimizer().Optimize(context.Background(), results,
		domain.ConversationState{Level: domain.LevelPhD}, domain.ContextOptions{})

	require.NoError(t, err)
	require.Len(t, window.Citations, len(window.Chunks))

	for i, citation := range window.Citations {
		assert.Equal(t, window.Chunks[i].ID, citation.ChunkID)
		assert.Equal(t, window.Chunks[i].Metadata.PageNumber, citation.PageNumber)
		assert.InDelta(t, 0.9, citation.Confidence, 1e-9)
	}

	assert.InDelta(t, 1.0, window.Citations[0].Relevance, 1e-9)
	assert.InDelta(t, 0.95, window.Citations[1].Relevance, 1e-9)
	assert.InDelta(t, 0.9, window.Citations[2].Relevance, 1e-9)
}

func TestOptimize_CitationRelevanceFloor(t *testing.T) {
	window, err := NewContextOptimizer().Optimize(context.Background(), uniformResults(25, 40),
		domain.ConversationState{Level: domain.LevelPhD}, domain.ContextOptions{})

	require.NoError(t, err)
	require.Len(t, window.Citations, 20)
	assert.InDelta(t, 0.1, window.Citations[19].Relevance, 1e-9)
}
