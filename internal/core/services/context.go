package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/custodia-labs/paperlens/internal/core/domain"
	"github.com/custodia-labs/paperlens/internal/core/ports/driving"
	"github.com/custodia-labs/paperlens/internal/logger"
)

// Ensure ContextOptimizer implements the interface.
var _ driving.ContextService = (*ContextOptimizer)(nil)

// Optimizer constants.
const (
	// defaultMaxTokens applies when options carry no budget.
	defaultMaxTokens = 2000

	// historyBoostMax is the ceiling of the conversation-history
	// overlap boost (+30%).
	historyBoostMax = 0.3

	// focusBoostMax is the ceiling of the focus-area boost (+20%).
	focusBoostMax = 0.2

	// highlightPageBoost applies to chunks on the highlighted page.
	highlightPageBoost = 0.4

	// highlightOverlapMax is the ceiling of the highlighted-text
	// overlap boost (+30%), used off the highlighted page.
	highlightOverlapMax = 0.3

	// citationConfidence is the fixed confidence attached to every
	// citation.
	citationConfidence = 0.9
)

// levelAffinity weights section types by reader level. High-school and
// non-technical readers get the narrative sections; graduate readers
// get the technical core.
var levelAffinity = map[domain.EducationLevel]map[domain.SectionType]float64{
	domain.LevelHighSchool: {
		domain.SectionIntroduction: 1.3,
		domain.SectionConclusion:   1.3,
		domain.SectionDiscussion:   1.2,
		domain.SectionAbstract:     1.2,
		domain.SectionMethodology:  0.7,
		domain.SectionResults:      0.8,
		domain.SectionReferences:   0.5,
	},
	domain.LevelNonTechnical: {
		domain.SectionIntroduction: 1.3,
		domain.SectionConclusion:   1.3,
		domain.SectionDiscussion:   1.2,
		domain.SectionAbstract:     1.2,
		domain.SectionMethodology:  0.6,
		domain.SectionResults:      0.7,
		domain.SectionReferences:   0.5,
	},
	domain.LevelUndergraduate: {
		domain.SectionIntroduction: 1.1,
		domain.SectionMethodology:  1.1,
		domain.SectionResults:      1.1,
		domain.SectionReferences:   0.7,
	},
	domain.LevelMasters: {
		domain.SectionMethodology: 1.2,
		domain.SectionResults:     1.2,
		domain.SectionDiscussion:  1.1,
		domain.SectionReferences:  0.8,
	},
	domain.LevelPhD: {
		domain.SectionMethodology: 1.3,
		domain.SectionResults:     1.3,
		domain.SectionDiscussion:  1.1,
		domain.SectionReferences:  0.9,
	},
}

// ContextOptimizer selects, compresses and orders a token-bounded
// chunk set for one conversational turn.
type ContextOptimizer struct{}

// NewContextOptimizer creates a context optimizer.
func NewContextOptimizer() *ContextOptimizer {
	return &ContextOptimizer{}
}

// scoredResult pairs a result with its conversation-adjusted score.
type scoredResult struct {
	result domain.SearchResult
	score  float64
}

// Optimize re-ranks the results against the conversation state,
// applies the education-level compression target, packs the token
// budget greedily and attaches one citation per retained chunk.
func (o *ContextOptimizer) Optimize(_ context.Context, results []domain.SearchResult, state domain.ConversationState, opts domain.ContextOptions) (*domain.ContextWindow, error) {
	if opts.MaxTokens < 0 {
		return nil, fmt.Errorf("%w: max tokens must be non-negative, got %d", domain.ErrInvalidInput, opts.MaxTokens)
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	if len(results) == 0 {
		return &domain.ContextWindow{CompressionRatio: 0}, nil
	}

	logger.Section("Context Optimisation")
	logger.Debug("Candidates: %d, budget: %d tokens, level: %s", len(results), maxTokens, state.Level)

	scored := o.scoreResults(results, state)

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	// Education-level compression, capped by the caller's target.
	target := state.Level.CompressionTarget()
	if opts.TargetCompression > 0 && opts.TargetCompression < target {
		target = opts.TargetCompression
	}
	keep := int(math.Ceil(float64(len(scored)) * target))
	if keep < 1 {
		keep = 1
	}
	if keep < len(scored) {
		scored = scored[:keep]
	}

	// Greedy token packing: stop at the first chunk that would blow
	// the budget.
	var selected []domain.Chunk
	totalTokens := 0
	for _, sr := range scored {
		tokens := estimateTokens(sr.result.Chunk.Length())
		if totalTokens+tokens > maxTokens {
			break
		}
		selected = append(selected, sr.result.Chunk)
		totalTokens += tokens
	}

	if opts.PreserveCoherence {
		// Approximate original reading order.
		sort.SliceStable(selected, func(i, j int) bool {
			if selected[i].Metadata.PageNumber != selected[j].Metadata.PageNumber {
				return selected[i].Metadata.PageNumber < selected[j].Metadata.PageNumber
			}
			return selected[i].Metadata.StartPosition < selected[j].Metadata.StartPosition
		})
	}

	citations := make([]domain.Citation, len(selected))
	for i := range selected {
		relevance := 1.0 - float64(i)*0.05
		if relevance < 0.1 {
			relevance = 0.1
		}
		citations[i] = domain.Citation{
			ChunkID:    selected[i].ID,
			PageNumber: selected[i].Metadata.PageNumber,
			Confidence: citationConfidence,
			Relevance:  relevance,
		}
	}

	window := &domain.ContextWindow{
		Chunks:           selected,
		Citations:        citations,
		TotalTokens:      totalTokens,
		CompressionRatio: float64(len(selected)) / float64(len(results)),
	}

	logger.Debug("Selected %d/%d chunks, %d tokens, compression %.2f",
		len(selected), len(results), totalTokens, window.CompressionRatio)
	return window, nil
}

// scoreResults applies the multiplicative conversation boosts.
func (o *ContextOptimizer) scoreResults(results []domain.SearchResult, state domain.ConversationState) []scoredResult {
	historyTerms := tokenizeTerms(strings.Join(state.History, " "), minTermLength)
	highlightTerms := tokenizeTerms(state.HighlightedText, minTermLength)
	affinity := levelAffinity[state.Level]

	scored := make([]scoredResult, len(results))
	for i := range results {
		r := results[i]
		score := r.Similarity
		if r.RelevanceScore > 0 {
			score = r.RelevanceScore
		}

		chunkTerms := tokenizeTerms(r.Chunk.Content, minTermLength)

		// Conversation-history overlap, up to +30%.
		if len(historyTerms) > 0 {
			score *= 1 + historyBoostMax*overlapRatio(historyTerms, chunkTerms)
		}

		// Focus-area containment, up to +20%.
		if len(state.FocusAreas) > 0 {
			content := strings.ToLower(r.Chunk.Content)
			matched := 0
			for _, focus := range state.FocusAreas {
				if strings.Contains(content, strings.ToLower(focus)) {
					matched++
				}
			}
			score *= 1 + focusBoostMax*float64(matched)/float64(len(state.FocusAreas))
		}

		// Highlighted text: fixed boost on the same page, term
		// overlap elsewhere.
		if state.HighlightedText != "" {
			if state.HighlightedPage > 0 && r.Chunk.Metadata.PageNumber == state.HighlightedPage {
				score *= 1 + highlightPageBoost
			} else if len(highlightTerms) > 0 {
				score *= 1 + highlightOverlapMax*overlapRatio(highlightTerms, chunkTerms)
			}
		}

		// Education-level affinity for the section type.
		if factor, ok := affinity[r.Chunk.Metadata.SectionType]; ok {
			score *= factor
		}

		scored[i] = scoredResult{result: r, score: score}
	}

	return scored
}
