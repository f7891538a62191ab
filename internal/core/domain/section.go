package domain

// SectionType classifies a structural element of an academic paper.
type SectionType string

// Section types recognised by the structural analyzer.
const (
	SectionTitle        SectionType = "title"
	SectionAbstract     SectionType = "abstract"
	SectionIntroduction SectionType = "introduction"
	SectionMethodology  SectionType = "methodology"
	SectionResults      SectionType = "results"
	SectionDiscussion   SectionType = "discussion"
	SectionConclusion   SectionType = "conclusion"
	SectionReferences   SectionType = "references"
	SectionFigure       SectionType = "figure"
	SectionTable        SectionType = "table"
	SectionEquation     SectionType = "equation"
	SectionOther        SectionType = "other"
)

// IsValid reports whether t is one of the recognised section types.
func (t SectionType) IsValid() bool {
	switch t {
	case SectionTitle, SectionAbstract, SectionIntroduction, SectionMethodology,
		SectionResults, SectionDiscussion, SectionConclusion, SectionReferences,
		SectionFigure, SectionTable, SectionEquation, SectionOther:
		return true
	}
	return false
}

// ParsedPage is the raw text of one PDF page, as produced by the
// extraction adapter. Lines preserve the original page order.
type ParsedPage struct {
	// Number is the 1-based page number.
	Number int

	// Text is the full extracted text of the page.
	Text string
}

// Section is a node in the structural tree of a document.
//
// Level semantics: 0 marks figure/table anchors (always leaves), 1 is a
// top-level section, 2 and deeper are nested subsections. Along any
// root-to-leaf path a child's level is strictly greater than its
// parent's, except for level-0 anchors.
type Section struct {
	// ID is the unique identifier for the section.
	ID string

	// Type classifies the section.
	Type SectionType

	// Title is the heading text (or caption for figures/tables).
	Title string

	// Level is the hierarchy depth derived from heading numbering.
	Level int

	// Content is the raw text between this heading and the next.
	Content string

	// StartPage and EndPage bound the pages the section spans.
	StartPage int
	EndPage   int

	// Confidence is the detection confidence of the heading rule that
	// produced this section, in [0,1].
	Confidence float64

	// Keywords are the top distinct content terms, stop-word filtered.
	Keywords []string

	// SentenceCount is the number of sentences in Content.
	SentenceCount int

	// Readability is a Flesch-reading-ease style score in [0,100].
	Readability float64

	// ParentID is the ID of the enclosing section, empty for roots.
	ParentID string

	// Children are the nested subsections in document order.
	Children []*Section
}

// Walk visits s and every descendant in depth-first document order.
func (s *Section) Walk(fn func(*Section)) {
	fn(s)
	for _, child := range s.Children {
		child.Walk(fn)
	}
}
