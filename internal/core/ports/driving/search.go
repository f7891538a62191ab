package driving

import (
	"context"

	"github.com/custodia-labs/paperlens/internal/core/domain"
)

// SearchService serves similarity queries against a document's index.
type SearchService interface {
	// Search runs the given strategy for the query against one
	// document. A document with no chunks returns an empty result
	// set; an embedding-service failure returns an error so callers
	// can distinguish "no matches" from "search failed".
	Search(ctx context.Context, query, documentID string, strategy domain.SearchStrategy, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
