package domain

// EducationLevel describes the reader the tutor is explaining to.
// It drives both section-type affinity and compression targets.
type EducationLevel string

const (
	LevelHighSchool    EducationLevel = "high_school"
	LevelUndergraduate EducationLevel = "undergraduate"
	LevelMasters       EducationLevel = "masters"
	LevelPhD           EducationLevel = "phd"
	LevelNonTechnical  EducationLevel = "non_technical"
)

// CompressionTarget returns the fraction of candidate chunks retained
// for the level. Unknown levels fall back to the undergraduate target.
func (l EducationLevel) CompressionTarget() float64 {
	switch l {
	case LevelHighSchool, LevelNonTechnical:
		return 0.3
	case LevelUndergraduate:
		return 0.5
	case LevelMasters:
		return 0.7
	case LevelPhD:
		return 0.8
	}
	return 0.5
}

// ConversationState is the dialogue context the optimizer folds into
// ranking: what was said, what the user cares about, and what text they
// highlighted in the viewer.
type ConversationState struct {
	// History is recent conversation turns, most recent last.
	History []string

	// FocusAreas are topics the user declared interest in.
	FocusAreas []string

	// HighlightedText is the text currently selected in the PDF view.
	HighlightedText string

	// HighlightedPage is the page of the selection, 0 if none.
	HighlightedPage int

	// Level is the reader's education level.
	Level EducationLevel
}

// ContextOptions bound the optimizer output.
type ContextOptions struct {
	// MaxTokens caps the estimated token total of the window.
	MaxTokens int

	// TargetCompression caps the fraction of chunks retained; the
	// education-level target applies when it is lower. Zero means no
	// caller cap.
	TargetCompression float64

	// PreserveCoherence reorders the final set into reading order
	// (page, start position) instead of relevance order.
	PreserveCoherence bool
}

// Citation points a generated answer back at a source chunk.
type Citation struct {
	// ChunkID is the cited chunk.
	ChunkID string

	// PageNumber is the page the chunk starts on.
	PageNumber int

	// Confidence is a fixed citation confidence.
	Confidence float64

	// Relevance decreases monotonically with citation order.
	Relevance float64
}

// ContextWindow is the token-bounded chunk set selected for one
// conversational turn, with provenance for the answer synthesiser.
type ContextWindow struct {
	// Chunks are the selected chunks, in final presentation order.
	Chunks []Chunk

	// Citations has one entry per selected chunk, in the same order.
	Citations []Citation

	// TotalTokens is the estimated token count of Chunks.
	TotalTokens int

	// CompressionRatio is retained chunks over candidate chunks.
	CompressionRatio float64
}
