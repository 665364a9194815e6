package infrastructure

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ppalone/ytsearch"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
)

// maxSuggestionTitle is Discord's limit for an autocomplete choice name.
const maxSuggestionTitle = 100

// YouTubeSuggestionProvider suggests videos for autocomplete by scraping
// YouTube search results, which is much faster than a yt-dlp search.
type YouTubeSuggestionProvider struct {
	client *ytsearch.Client
}

// NewYouTubeSuggestionProvider creates a new YouTubeSuggestionProvider.
func NewYouTubeSuggestionProvider() *YouTubeSuggestionProvider {
	return &YouTubeSuggestionProvider{client: ytsearch.NewClient(nil)}
}

// Suggest returns at most limit suggestions for query.
func (p *YouTubeSuggestionProvider) Suggest(
	ctx context.Context,
	query string,
	limit int,
) ([]ports.Suggestion, error) {
	res, err := p.client.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search YouTube: %w", err)
	}

	suggestions := make([]ports.Suggestion, 0, min(limit, len(res.Results)))
	seen := make(map[string]bool)
	for _, video := range res.Results {
		if len(suggestions) >= limit {
			break
		}
		if video.VideoID == "" || seen[video.VideoID] {
			continue
		}
		seen[video.VideoID] = true

		suggestions = append(suggestions, ports.Suggestion{
			Title: suggestionTitle(video.Title, video.Channel, video.Duration),
			URL:   "https://www.youtube.com/watch?v=" + video.VideoID,
		})
	}
	return suggestions, nil
}

// suggestionTitle renders "title - channel (duration)", truncating the title
// so the whole label fits in an autocomplete choice.
func suggestionTitle(title, channel, duration string) string {
	suffix := ""
	if channel != "" {
		suffix += " - " + channel
	}
	if duration != "" {
		suffix += " (" + duration + ")"
	}

	budget := maxSuggestionTitle - utf8.RuneCountInString(suffix)
	if budget < 10 {
		suffix = ""
		budget = maxSuggestionTitle
	}

	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) > budget {
		runes := []rune(title)
		title = string(runes[:budget-1]) + "…"
	}
	return title + suffix
}

// Ensure YouTubeSuggestionProvider implements ports.SuggestionProvider.
var _ ports.SuggestionProvider = (*YouTubeSuggestionProvider)(nil)
