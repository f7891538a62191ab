package services

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/paperlens/internal/core/domain"
	"github.com/custodia-labs/paperlens/internal/logger"
)

// maxKeywords caps the keyword list derived per section.
const maxKeywords = 10

// headingRule maps a line pattern to a section classification.
// Rules are evaluated in order; the first match wins. A Level of -1
// means the level is derived from the numbering depth captured by the
// pattern's first group.
type headingRule struct {
	pattern     *regexp.Regexp
	sectionType domain.SectionType
	level       int
	confidence  float64
}

// defaultHeadingRules is the prioritized rule table for academic
// papers. Detection is heuristic: short figure captions can resemble
// titles and bare keyword headings carry less confidence than
// numbered ones. That trade-off is deliberate.
var defaultHeadingRules = []headingRule{
	// Figure and table captions anchor level-0 leaves.
	{regexp.MustCompile(`(?i)^(?:figure|fig\.?)\s*\d+[.:]?\s*`), domain.SectionFigure, 0, 0.9},
	{regexp.MustCompile(`(?i)^table\s*\d+[.:]?\s*`), domain.SectionTable, 0, 0.9},
	{regexp.MustCompile(`(?i)^(?:equation|eq\.?)\s*[(\[]?\d+[)\]]?[.:]?\s*$`), domain.SectionEquation, 0, 0.7},

	// Numbered headings: level comes from the numbering depth.
	{regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+(\S.*)$`), "", -1, 0.85},

	// Bare academic section names default to level 1.
	{regexp.MustCompile(`(?i)^abstract\s*$`), domain.SectionAbstract, 1, 0.95},
	{regexp.MustCompile(`(?i)^(?:introduction|background)\s*$`), domain.SectionIntroduction, 1, 0.9},
	{regexp.MustCompile(`(?i)^related\s+work\s*$`), domain.SectionIntroduction, 1, 0.8},
	{regexp.MustCompile(`(?i)^(?:methodology|methods?|approach|materials\s+and\s+methods)\s*$`), domain.SectionMethodology, 1, 0.9},
	{regexp.MustCompile(`(?i)^(?:results?|findings|evaluation|experiments?)\s*$`), domain.SectionResults, 1, 0.9},
	{regexp.MustCompile(`(?i)^discussion\s*$`), domain.SectionDiscussion, 1, 0.9},
	{regexp.MustCompile(`(?i)^(?:conclusions?|summary)\s*$`), domain.SectionConclusion, 1, 0.9},
	{regexp.MustCompile(`(?i)^(?:references|bibliography)\s*$`), domain.SectionReferences, 1, 0.95},
	{regexp.MustCompile(`(?i)^acknowledg(?:e)?ments?\s*$`), domain.SectionOther, 1, 0.8},
	{regexp.MustCompile(`(?i)^appendix(?:\s+[a-z])?\s*$`), domain.SectionOther, 1, 0.8},
}

// sectionKeywordTypes classifies the text of a numbered heading.
var sectionKeywordTypes = []struct {
	keyword string
	typ     domain.SectionType
}{
	{"abstract", domain.SectionAbstract},
	{"introduction", domain.SectionIntroduction},
	{"background", domain.SectionIntroduction},
	{"related work", domain.SectionIntroduction},
	{"method", domain.SectionMethodology},
	{"approach", domain.SectionMethodology},
	{"result", domain.SectionResults},
	{"finding", domain.SectionResults},
	{"evaluation", domain.SectionResults},
	{"experiment", domain.SectionResults},
	{"discussion", domain.SectionDiscussion},
	{"conclusion", domain.SectionConclusion},
	{"summary", domain.SectionConclusion},
	{"reference", domain.SectionReferences},
	{"bibliography", domain.SectionReferences},
}

// Analyzer infers the hierarchical section structure of a paper from
// its per-page extracted text.
type Analyzer struct {
	rules []headingRule
}

// AnalyzerOption configures the analyzer.
type AnalyzerOption func(*Analyzer)

// WithHeadingRules replaces the default rule table.
func WithHeadingRules(rules []headingRule) AnalyzerOption {
	return func(a *Analyzer) {
		if len(rules) > 0 {
			a.rules = rules
		}
	}
}

// NewAnalyzer creates a structural analyzer with the default rules.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{rules: defaultHeadingRules}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// detectedHeading is an intermediate heading match within a page.
type detectedHeading struct {
	line       int
	title      string
	typ        domain.SectionType
	level      int
	confidence float64
	page       int
}

// Analyze parses the pages into a hierarchy of sections. A document
// with no detected headings yields a single root of type "other"
// spanning all pages, never an empty tree.
func (a *Analyzer) Analyze(pages []domain.ParsedPage) []*domain.Section {
	if len(pages) == 0 {
		return nil
	}

	var flat []*domain.Section
	var preamble *domain.Section
	for _, page := range pages {
		sections, leading := a.analyzePage(page)

		// Text above the first heading of a page continues the
		// section that was open at the end of the previous page.
		// Before any heading has been seen it accumulates into a
		// preamble section so no page text is lost.
		if leading != "" {
			switch {
			case len(flat) > 0:
				last := flat[len(flat)-1]
				last.Content = strings.TrimSpace(last.Content + "\n" + leading)
				last.EndPage = page.Number
			case preamble == nil:
				preamble = &domain.Section{
					ID:         uuid.New().String(),
					Type:       domain.SectionOther,
					Title:      "Preamble",
					Level:      1,
					Content:    leading,
					StartPage:  page.Number,
					EndPage:    page.Number,
					Confidence: 0.5,
				}
			default:
				preamble.Content = strings.TrimSpace(preamble.Content + "\n" + leading)
				preamble.EndPage = page.Number
			}
		}

		flat = append(flat, sections...)
	}

	if len(flat) == 0 {
		logger.Debug("No headings detected, falling back to a single section")
		return []*domain.Section{a.fallbackSection(pages)}
	}

	if preamble != nil {
		flat = append([]*domain.Section{preamble}, flat...)
	}

	for _, s := range flat {
		a.deriveStats(s)
	}

	roots := foldHierarchy(flat)
	logger.Debug("Structural analysis: %d sections, %d roots", len(flat), len(roots))
	return roots
}

// analyzePage scans one page for headings and slices its content. It
// returns the sections started on the page and any text that precedes
// the first heading.
func (a *Analyzer) analyzePage(page domain.ParsedPage) ([]*domain.Section, string) {
	lines := strings.Split(page.Text, "\n")

	var headings []detectedHeading
	for i, line := range lines {
		h, ok := a.matchHeading(line, page.Number, i)
		if ok {
			headings = append(headings, h)
		}
	}

	// Title detection applies to the first page only, and only for
	// lines above the first detected heading.
	if page.Number == 1 {
		limit := len(lines)
		if len(headings) > 0 {
			limit = headings[0].line
		}
		if t, ok := detectTitle(lines[:limit]); ok {
			headings = append([]detectedHeading{{
				line:       t.line,
				title:      t.title,
				typ:        domain.SectionTitle,
				level:      1,
				confidence: 0.7,
				page:       page.Number,
			}}, headings...)
		}
	}

	var leading string
	if len(headings) > 0 && headings[0].line > 0 {
		leading = strings.TrimSpace(strings.Join(lines[:headings[0].line], "\n"))
	} else if len(headings) == 0 {
		leading = strings.TrimSpace(page.Text)
	}

	sections := make([]*domain.Section, 0, len(headings))
	for i, h := range headings {
		// Content runs from the line after the heading to the line
		// before the next heading, or the end of the page.
		endLine := len(lines)
		if i+1 < len(headings) {
			endLine = headings[i+1].line
		}

		content := strings.TrimSpace(strings.Join(lines[h.line+1:endLine], "\n"))

		sections = append(sections, &domain.Section{
			ID:         uuid.New().String(),
			Type:       h.typ,
			Title:      h.title,
			Level:      h.level,
			Content:    content,
			StartPage:  h.page,
			EndPage:    h.page,
			Confidence: h.confidence,
		})
	}

	return sections, leading
}

// deriveStats computes keywords, sentence count and readability once
// a section's content is final.
func (a *Analyzer) deriveStats(s *domain.Section) {
	s.Keywords = extractKeywords(s.Content, maxKeywords)
	s.SentenceCount = len(splitSentences(s.Content))
	s.Readability = fleschReadingEase(s.Content)
}

// matchHeading evaluates the rule table against a trimmed line.
func (a *Analyzer) matchHeading(line string, page, lineNo int) (detectedHeading, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || len(trimmed) > 120 {
		return detectedHeading{}, false
	}

	for _, rule := range a.rules {
		m := rule.pattern.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}

		h := detectedHeading{
			line:       lineNo,
			title:      trimmed,
			typ:        rule.sectionType,
			level:      rule.level,
			confidence: rule.confidence,
			page:       page,
		}

		if rule.level == -1 {
			// Numbered heading: depth of the numbering gives the
			// level, the remaining text gives the type.
			h.level = strings.Count(m[1], ".") + 1
			h.title = trimmed
			h.typ = classifyHeadingText(m[2])
		}
		if h.typ == "" {
			h.typ = domain.SectionOther
		}

		return h, true
	}

	return detectedHeading{}, false
}

// fallbackSection wraps all pages into one "other" root.
func (a *Analyzer) fallbackSection(pages []domain.ParsedPage) *domain.Section {
	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.Text)
	}
	content := strings.TrimSpace(b.String())

	return &domain.Section{
		ID:            uuid.New().String(),
		Type:          domain.SectionOther,
		Title:         "Document",
		Level:         1,
		Content:       content,
		StartPage:     pages[0].Number,
		EndPage:       pages[len(pages)-1].Number,
		Confidence:    0.5,
		Keywords:      extractKeywords(content, maxKeywords),
		SentenceCount: len(splitSentences(content)),
		Readability:   fleschReadingEase(content),
	}
}

// classifyHeadingText maps the text of a numbered heading to a type.
func classifyHeadingText(text string) domain.SectionType {
	lower := strings.ToLower(text)
	for _, kw := range sectionKeywordTypes {
		if strings.Contains(lower, kw.keyword) {
			return kw.typ
		}
	}
	return domain.SectionOther
}

// titleCandidate is a possible paper title on the first page.
type titleCandidate struct {
	line  int
	title string
}

// detectTitle looks for a title-like line: short, multi-word, with a
// majority of capitalised words. Only the first candidate counts.
func detectTitle(lines []string) (titleCandidate, bool) {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || len(trimmed) > 150 {
			continue
		}

		words := strings.Fields(trimmed)
		if len(words) < 2 || len(words) > 20 {
			continue
		}

		capitalised := 0
		for _, w := range words {
			r := []rune(w)
			if len(r) > 0 && r[0] >= 'A' && r[0] <= 'Z' {
				capitalised++
			}
		}

		if capitalised*2 > len(words) {
			return titleCandidate{line: i, title: trimmed}, true
		}
	}
	return titleCandidate{}, false
}

// foldHierarchy turns the flat, document-ordered section list into a
// forest using an explicit stack. When a new section's level is less
// than or equal to the top's, the stack pops until the top is strictly
// shallower; the section then attaches to the remaining top, or
// becomes a root. Level-0 anchors (figures, tables, equations) attach
// to the current top as leaves and are never pushed.
func foldHierarchy(flat []*domain.Section) []*domain.Section {
	var roots []*domain.Section
	var stack []*domain.Section

	for _, section := range flat {
		if section.Level == 0 {
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				section.ParentID = top.ID
				top.Children = append(top.Children, section)
			} else {
				roots = append(roots, section)
			}
			continue
		}

		for len(stack) > 0 && stack[len(stack)-1].Level >= section.Level {
			stack = stack[:len(stack)-1]
		}

		if len(stack) > 0 {
			top := stack[len(stack)-1]
			section.ParentID = top.ID
			top.Children = append(top.Children, section)
		} else {
			roots = append(roots, section)
		}

		stack = append(stack, section)
	}

	return roots
}
