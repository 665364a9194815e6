package ports

import (
	"context"

	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// TrackProvider resolves queries into tracks.
// Implementations must not fail: lookup errors yield an empty result.
type TrackProvider interface {
	Search(
		ctx context.Context,
		query *domain.SearchQuery,
		requester domain.Requester,
	) domain.SearchResult
}

// Suggestion is a lightweight search hit for autocomplete.
type Suggestion struct {
	Title string
	URL   string
}

// SuggestionProvider returns quick suggestions while a user types a query.
type SuggestionProvider interface {
	Suggest(ctx context.Context, query string, limit int) ([]Suggestion, error)
}
