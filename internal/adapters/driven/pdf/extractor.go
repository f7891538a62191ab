// Package pdf extracts per-page text from PDF files.
package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/paperlens/internal/core/domain"
	"github.com/custodia-labs/paperlens/internal/core/ports/driven"
	"github.com/custodia-labs/paperlens/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.PageExtractor = (*Extractor)(nil)

// Extractor reads PDF files and returns their text page by page.
type Extractor struct{}

// NewExtractor creates a PDF page extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractPages reads the PDF at path and returns its pages in order.
// Pages whose text cannot be decoded are kept as empty pages so page
// numbering stays aligned with the source document.
func (e *Extractor) ExtractPages(ctx context.Context, path string) ([]domain.ParsedPage, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", domain.ErrParseFailure, path, err)
	}
	defer f.Close()

	total := reader.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("%w: %s has no pages", domain.ErrParseFailure, path)
	}

	pages := make([]domain.ParsedPage, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, domain.ParsedPage{Number: i})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("Page %d of %s: text extraction failed: %v", i, path, err)
			text = ""
		}

		pages = append(pages, domain.ParsedPage{
			Number: i,
			Text:   strings.TrimSpace(text),
		})
	}

	return pages, nil
}
