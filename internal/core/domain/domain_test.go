package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchStrategy_IsValid(t *testing.T) {
	for _, s := range []SearchStrategy{StrategySemantic, StrategyLexical, StrategyHybrid, StrategyContextual} {
		assert.True(t, s.IsValid(), "%s", s)
	}
	assert.False(t, SearchStrategy("fuzzy").IsValid())
	assert.False(t, SearchStrategy("").IsValid())
}

func TestSectionType_IsValid(t *testing.T) {
	for _, st := range []SectionType{
		SectionTitle, SectionAbstract, SectionIntroduction, SectionMethodology,
		SectionResults, SectionDiscussion, SectionConclusion, SectionReferences,
		SectionFigure, SectionTable, SectionEquation, SectionOther,
	} {
		assert.True(t, st.IsValid(), "%s", st)
	}
	assert.False(t, SectionType("appendix").IsValid())
}

func TestPageRange_Contains(t *testing.T) {
	r := PageRange{Start: 3, End: 5}

	assert.False(t, r.Contains(2))
	assert.True(t, r.Contains(3))
	assert.True(t, r.Contains(4))
	assert.True(t, r.Contains(5))
	assert.False(t, r.Contains(6))
}

func TestFingerprint_Matches(t *testing.T) {
	base := &Fingerprint{ContentHash: "c", StructureHash: "s", EmbeddingVersion: "v1"}

	assert.True(t, base.Matches(&Fingerprint{ContentHash: "c", StructureHash: "s", EmbeddingVersion: "v1"}))
	assert.False(t, base.Matches(&Fingerprint{ContentHash: "x", StructureHash: "s", EmbeddingVersion: "v1"}))
	assert.False(t, base.Matches(&Fingerprint{ContentHash: "c", StructureHash: "x", EmbeddingVersion: "v1"}))
	assert.False(t, base.Matches(&Fingerprint{ContentHash: "c", StructureHash: "s", EmbeddingVersion: "v2"}))
	assert.False(t, base.Matches(nil))
	assert.False(t, (*Fingerprint)(nil).Matches(base))
}

func TestSection_WalkDepthFirst(t *testing.T) {
	root := &Section{
		ID: "a",
		Children: []*Section{
			{ID: "b", Children: []*Section{{ID: "c"}}},
			{ID: "d"},
		},
	}

	var order []string
	root.Walk(func(s *Section) { order = append(order, s.ID) })

	assert.Equal(t, []string{"a", "b", "c", "d"}, order)
}

func TestChunk_Length(t *testing.T) {
	c := Chunk{Content: "hello"}
	assert.Equal(t, 5, c.Length())
	assert.Zero(t, (&Chunk{}).Length())
}

func TestEducationLevel_CompressionTarget(t *testing.T) {
	assert.InDelta(t, 0.3, LevelHighSchool.CompressionTarget(), 1e-9)
	assert.InDelta(t, 0.3, LevelNonTechnical.CompressionTarget(), 1e-9)
	assert.InDelta(t, 0.5, LevelUndergraduate.CompressionTarget(), 1e-9)
	assert.InDelta(t, 0.7, LevelMasters.CompressionTarget(), 1e-9)
	assert.InDelta(t, 0.8, LevelPhD.CompressionTarget(), 1e-9)
	assert.InDelta(t, 0.5, EducationLevel("unknown").CompressionTarget(), 1e-9)
}
