package usecases

import (
	"context"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// DefaultSuggestionLimit is the number of suggestions offered while typing.
const DefaultSuggestionLimit = 10

// GetQueueTracksInput contains the input for the GetQueueTracks use case.
type GetQueueTracksInput struct {
	GuildID snowflake.ID
}

// GetQueueTracksOutput contains the output for the GetQueueTracks use case.
type GetQueueTracksOutput struct {
	Tracks []*domain.Track // upcoming tracks, position 1 first
}

// SuggestInput contains the input for the Suggest use case.
type SuggestInput struct {
	Query string
	Limit int
}

// SuggestOutput contains the result of the Suggest use case.
type SuggestOutput struct {
	Suggestions []ports.Suggestion
}

// AutocompleteService handles autocomplete-related operations.
type AutocompleteService struct {
	players     PlayerRegistry
	suggestions ports.SuggestionProvider
}

// NewAutocompleteService creates a new AutocompleteService.
func NewAutocompleteService(
	players PlayerRegistry,
	suggestions ports.SuggestionProvider,
) *AutocompleteService {
	return &AutocompleteService{
		players:     players,
		suggestions: suggestions,
	}
}

// GetQueueTracks returns the upcoming tracks for autocomplete suggestions.
func (s *AutocompleteService) GetQueueTracks(input GetQueueTracksInput) *GetQueueTracksOutput {
	player := s.players.Get(input.GuildID)
	if player == nil {
		return &GetQueueTracksOutput{Tracks: nil}
	}

	return &GetQueueTracksOutput{
		Tracks: player.Queue().Upcoming,
	}
}

// Suggest returns search suggestions for a partially typed query. URLs are
// not searched; the caller offers them verbatim.
func (s *AutocompleteService) Suggest(ctx context.Context, input SuggestInput) (*SuggestOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" || s.suggestions == nil || domain.NewSearchQuery(query).IsURL {
		return &SuggestOutput{}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}

	suggestions, err := s.suggestions.Suggest(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return &SuggestOutput{Suggestions: suggestions}, nil
}
