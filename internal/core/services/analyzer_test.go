package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/paperlens/internal/core/domain"
)

func analyzeText(t *testing.T, pages ...string) []*domain.Section {
	t.Helper()

	parsed := make([]domain.ParsedPage, len(pages))
	for i, text := range pages {
		parsed[i] = domain.ParsedPage{Number: i + 1, Text: text}
	}
	return NewAnalyzer().Analyze(parsed)
}

// collect flattens the forest in document order.
func collect(roots []*domain.Section) []*domain.Section {
	var flat []*domain.Section
	for _, root := range roots {
		root.Walk(func(s *domain.Section) {
			flat = append(flat, s)
		})
	}
	return flat
}

func TestAnalyze_EmptyInput(t *testing.T) {
	assert.Nil(t, NewAnalyzer().Analyze(nil))
}

func TestAnalyze_NumberedHeadingLevels(t *testing.T) {
	roots := analyzeText(t,
		"1. Introduction\nProteins fold into structures.\n"+
			"2. Methods\nWe trained a model.\n"+
			"2.1 Data Collection\nWe collected samples.\n"+
			"2.1.1 Preprocessing\nSamples were cleaned.")

	require.Len(t, roots, 2)

	intro := roots[0]
	assert.Equal(t, domain.SectionIntroduction, intro.Type)
	assert.Equal(t, 1, intro.Level)
	assert.Empty(t, intro.Children)

	methods := roots[1]
	assert.Equal(t, domain.SectionMethodology, methods.Type)
	require.Len(t, methods.Children, 1)

	data := methods.Children[0]
	assert.Equal(t, 2, data.Level)
	assert.Equal(t, methods.ID, data.ParentID)
	require.Len(t, data.Children, 1)
	assert.Equal(t, 3, data.Children[0].Level)
}

func TestAnalyze_BareKeywordHeadings(t *testing.T) {
	roots := analyzeText(t,
		"Abstract\nWe study folding.\n"+
			"Introduction\nFolding matters.\n"+
			"Conclusion\nIt worked.\n"+
			"References\n[1] Smith 2020.")

	require.Len(t, roots, 4)
	assert.Equal(t, domain.SectionAbstract, roots[0].Type)
	assert.Equal(t, domain.SectionIntroduction, roots[1].Type)
	assert.Equal(t, domain.SectionConclusion, roots[2].Type)
	assert.Equal(t, domain.SectionReferences, roots[3].Type)

	for _, root := range roots {
		assert.Equal(t, 1, root.Level)
	}
}

func TestAnalyze_FigureCaptionBecomesLeaf(t *testing.T) {
	roots := analyzeText(t,
		"1. Results\nAccuracy improved.\n"+
			"Figure 1: Model architecture\nThe diagram shows layers.\n"+
			"2. Discussion\nWe discuss.")

	require.Len(t, roots, 2)

	results := roots[0]
	require.Len(t, results.Children, 1)

	figure := results.Children[0]
	assert.Equal(t, domain.SectionFigure, figure.Type)
	assert.Equal(t, 0, figure.Level)
	assert.Equal(t, results.ID, figure.ParentID)
	assert.Empty(t, figure.Children, "anchors never gain children")

	// The section after the figure folds back to root level.
	assert.Equal(t, domain.SectionDiscussion, roots[1].Type)
}

func TestAnalyze_TableCaption(t *testing.T) {
	roots := analyzeText(t, "1. Results\nNumbers follow.\nTable 2. Benchmark scores\nRow data.")

	require.Len(t, roots, 1)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, domain.SectionTable, roots[0].Children[0].Type)
}

func TestAnalyze_NoHeadingsFallsBackToSingleSection(t *testing.T) {
	roots := analyzeText(t,
		"just some plain prose without any structure at all",
		"and it continues on the second page")

	require.Len(t, roots, 1)
	root := roots[0]
	assert.Equal(t, domain.SectionOther, root.Type)
	assert.Equal(t, 1, root.StartPage)
	assert.Equal(t, 2, root.EndPage)
	assert.Contains(t, root.Content, "plain prose")
	assert.Contains(t, root.Content, "second page")
	assert.Positive(t, root.SentenceCount)
}

func TestAnalyze_TitleDetectedOnFirstPage(t *testing.T) {
	roots := analyzeText(t,
		"Deep Learning for Protein Structure Prediction\n"+
			"anonymous authors\n"+
			"Abstract\nWe present a model.")

	flat := collect(roots)
	require.NotEmpty(t, flat)
	assert.Equal(t, domain.SectionTitle, flat[0].Type)
	assert.Equal(t, "Deep Learning for Protein Structure Prediction", flat[0].Title)
}

func TestAnalyze_TitleNotDetectedOnLaterPages(t *testing.T) {
	roots := analyzeText(t,
		"1. Introduction\nBody text.",
		"Another Capitalised Line Here\nmore body text.")

	for _, s := range collect(roots) {
		assert.NotEqual(t, domain.SectionTitle, s.Type)
	}
}

func TestAnalyze_TextBeforeFirstHeadingIsKept(t *testing.T) {
	roots := analyzeText(t,
		"arXiv preprint, under review. do not distribute.",
		"1. Introduction\nBody text.")

	require.Len(t, roots, 2)

	pre := roots[0]
	assert.Equal(t, domain.SectionOther, pre.Type)
	assert.Contains(t, pre.Content, "under review")
	assert.Equal(t, 1, pre.StartPage)
	assert.Equal(t, 1, pre.EndPage)
	assert.Positive(t, pre.SentenceCount)

	assert.Equal(t, domain.SectionIntroduction, roots[1].Type)
}

func TestAnalyze_PreambleSpansPages(t *testing.T) {
	roots := analyzeText(t,
		"arXiv preprint, under review. do not distribute.",
		"submitted to the workshop track.",
		"1. Introduction\nBody text.")

	require.Len(t, roots, 2)
	pre := roots[0]
	assert.Contains(t, pre.Content, "under review")
	assert.Contains(t, pre.Content, "workshop track")
	assert.Equal(t, 1, pre.StartPage)
	assert.Equal(t, 2, pre.EndPage)
}

func TestAnalyze_ContentContinuesAcrossPages(t *testing.T) {
	roots := analyzeText(t,
		"1. Introduction\nfirst page text.",
		"continuation on the next page.\n2. Methods\nmethod text.")

	require.Len(t, roots, 2)
	intro := roots[0]
	assert.Contains(t, intro.Content, "first page text")
	assert.Contains(t, intro.Content, "continuation on the next page")
	assert.Equal(t, 1, intro.StartPage)
	assert.Equal(t, 2, intro.EndPage)
}

func TestAnalyze_LongLinesAreNotHeadings(t *testing.T) {
	long := "1. " + strings.Repeat("very long heading text ", 10)
	roots := analyzeText(t, long+"\nplain body.")

	// Falls back: the only candidate line is too long to be a heading.
	require.Len(t, roots, 1)
	assert.Equal(t, domain.SectionOther, roots[0].Type)
}

func TestAnalyze_SectionStatsDerived(t *testing.T) {
	roots := analyzeText(t,
		"1. Introduction\nThe model works well. The model runs fast.")

	intro := roots[0]
	assert.Equal(t, 2, intro.SentenceCount)
	assert.Equal(t, "model", intro.Keywords[0])
	assert.Positive(t, intro.Readability)
}

func TestClassifyHeadingText(t *testing.T) {
	assert.Equal(t, domain.SectionResults, classifyHeadingText("Experimental Results"))
	assert.Equal(t, domain.SectionIntroduction, classifyHeadingText("Background"))
	assert.Equal(t, domain.SectionOther, classifyHeadingText("Ablation Study"))
}

func TestFoldHierarchy_SiblingsAfterDeepNesting(t *testing.T) {
	flat := []*domain.Section{
		{ID: "a", Level: 1},
		{ID: "b", Level: 2},
		{ID: "c", Level: 3},
		{ID: "d", Level: 2},
		{ID: "e", Level: 1},
	}

	roots := foldHierarchy(flat)

	require.Len(t, roots, 2)
	require.Len(t, roots[0].Children, 2)
	assert.Equal(t, "b", roots[0].Children[0].ID)
	assert.Equal(t, "d", roots[0].Children[1].ID)
	assert.Equal(t, "c", roots[0].Children[0].Children[0].ID)
}

func TestFoldHierarchy_AnchorWithoutParentBecomesRoot(t *testing.T) {
	flat := []*domain.Section{{ID: "fig", Level: 0, Type: domain.SectionFigure}}

	roots := foldHierarchy(flat)

	require.Len(t, roots, 1)
	assert.Equal(t, "fig", roots[0].ID)
}
