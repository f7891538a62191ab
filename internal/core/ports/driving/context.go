package driving

import (
	"context"

	"github.com/custodia-labs/paperlens/internal/core/domain"
)

// ContextService selects and orders a token-bounded chunk set for one
// conversational turn.
type ContextService interface {
	// Optimize re-ranks raw search results against the conversation
	// state, selects into the token budget, applies the education
	// level compression target and attaches citations.
	Optimize(ctx context.Context, results []domain.SearchResult, state domain.ConversationState, opts domain.ContextOptions) (*domain.ContextWindow, error)
}
