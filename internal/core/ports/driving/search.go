package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// SearchService retrieves chunks relevant to a query.
type SearchService interface {
	// Search returns the user's most relevant chunks, best first.
	// Never returns chunks of documents owned by another user.
	Search(ctx context.Context, query, userID string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
