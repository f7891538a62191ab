package driven

import (
	"context"

	"github.com/custodia-labs/paperlens/internal/core/domain"
)

// PageExtractor turns a PDF file into per-page text.
// Extraction failures map to domain.ErrParseFailure.
type PageExtractor interface {
	// ExtractPages reads the PDF at path and returns its pages in
	// order. An unreadable or empty PDF is a parse failure.
	ExtractPages(ctx context.Context, path string) ([]domain.ParsedPage, error)
}
