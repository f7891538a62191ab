package domain

// SearchStrategy selects how a query is matched against stored chunks.
type SearchStrategy string

const (
	// StrategySemantic ranks by cosine similarity of embeddings.
	StrategySemantic SearchStrategy = "semantic"

	// StrategyLexical ranks by Jaccard term overlap, ignoring embeddings.
	StrategyLexical SearchStrategy = "lexical"

	// StrategyHybrid fuses semantic and lexical scores by weighted sum.
	StrategyHybrid SearchStrategy = "hybrid"

	// StrategyContextual widens semantic hits with structurally
	// adjacent chunks from the same section type.
	StrategyContextual SearchStrategy = "contextual"
)

// IsValid reports whether s is a recognised strategy.
func (s SearchStrategy) IsValid() bool {
	switch s {
	case StrategySemantic, StrategyLexical, StrategyHybrid, StrategyContextual:
		return true
	}
	return false
}

// PageRange restricts a search to an inclusive page interval.
type PageRange struct {
	Start int
	End   int
}

// Contains reports whether page falls inside the range.
func (r PageRange) Contains(page int) bool {
	return page >= r.Start && page <= r.End
}

// SearchOptions configures a search query.
type SearchOptions struct {
	// Limit is the maximum number of results. Defaults to 10.
	Limit int

	// SimilarityThreshold drops semantic hits scoring below it.
	SimilarityThreshold float64

	// SectionTypes filters results to the listed section types.
	// Empty means no filter.
	SectionTypes []SectionType

	// Pages restricts results to a page interval when non-nil.
	Pages *PageRange

	// Boosts applies post-retrieval score multipliers when non-nil.
	Boosts *BoostFactors

	// Rerank applies the length-penalty relevance pass when true.
	Rerank bool
}

// BoostFactors are multiplicative score adjustments applied after
// retrieval. Each applied boost appends an explanation to the result.
type BoostFactors struct {
	// SectionTypes maps a section type to its multiplier,
	// e.g. abstract 1.2, references 0.8.
	SectionTypes map[SectionType]float64

	// Keywords multiplies scores of chunks containing any of the
	// listed terms by KeywordWeight.
	Keywords []string

	// KeywordWeight is the multiplier for keyword matches.
	// Defaults to 1.1 when Keywords is non-empty and the weight is 0.
	KeywordWeight float64
}

// SearchResult is one ranked hit produced by a search. Results are
// ephemeral and never persisted.
type SearchResult struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Similarity is the strategy score in [0,1] after boosting.
	Similarity float64

	// Rank is the dense 1-based position after the final sort.
	Rank int

	// RelevanceScore is set by the re-ranking pass; zero when the
	// pass did not run.
	RelevanceScore float64

	// Explanations lists human-readable notes for applied boosts.
	Explanations []string
}
