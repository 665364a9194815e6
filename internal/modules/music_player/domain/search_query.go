package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// SearchSource represents the source for searching tracks.
type SearchSource string

const (
	// SourceYouTube searches YouTube.
	SourceYouTube SearchSource = "ytsearch"
	// SourceYouTubeMusic searches YouTube Music.
	SourceYouTubeMusic SearchSource = "ytmsearch"
	// SourceSoundCloud searches SoundCloud.
	SourceSoundCloud SearchSource = "scsearch"
	// SourceDirect indicates a direct URL (no search prefix).
	SourceDirect SearchSource = ""
)

// SearchQuery represents a query for searching tracks.
type SearchQuery struct {
	Query  string       // The search term or URL
	Source SearchSource // The search source
	IsURL  bool         // Whether the query is a direct URL
}

// knownSources lists the search prefixes a user may type explicitly.
var knownSources = []SearchSource{SourceYouTubeMusic, SourceYouTube, SourceSoundCloud}

// NewSearchQuery creates a SearchQuery from user input.
// If the input is a URL, it returns a direct query. An explicit source prefix
// such as "scsearch:" selects that source; otherwise YouTube search is used.
func NewSearchQuery(input string) *SearchQuery {
	input = strings.TrimSpace(input)

	for _, source := range knownSources {
		prefix := string(source) + ":"
		if len(input) > len(prefix) && strings.EqualFold(input[:len(prefix)], prefix) {
			return NewSearchQueryWithSource(input[len(prefix):], source)
		}
	}

	return NewSearchQueryWithSource(input, SourceYouTube)
}

// NewSearchQueryWithSource creates a SearchQuery with a specific source.
func NewSearchQueryWithSource(input string, source SearchSource) *SearchQuery {
	input = strings.TrimSpace(input)

	if link, ok := normalizeURL(input); ok {
		return &SearchQuery{
			Query:  link,
			Source: SourceDirect,
			IsURL:  true,
		}
	}

	return &SearchQuery{
		Query:  input,
		Source: source,
		IsURL:  false,
	}
}

// LavalinkQuery returns the query string formatted for Lavalink.
func (q *SearchQuery) LavalinkQuery() string {
	if q.IsURL {
		return q.Query
	}
	return string(q.Source) + ":" + q.Query
}

// YtdlpQuery returns the query string formatted for yt-dlp, asking for at most
// limit search results.
func (q *SearchQuery) YtdlpQuery(limit int) string {
	if q.IsURL {
		return q.Query
	}
	return fmt.Sprintf("%s%d:%s", q.Source, limit, q.Query)
}

// IsValid returns true if the query is not empty.
func (q *SearchQuery) IsValid() bool {
	return q.Query != ""
}

// normalizeURL reports whether input is an http(s) link with a host. Links
// typed without a scheme ("www.") get https.
func normalizeURL(input string) (string, bool) {
	if strings.Contains(input, " ") {
		return "", false
	}
	if strings.HasPrefix(strings.ToLower(input), "www.") {
		input = "https://" + input
	}

	u, err := url.Parse(input)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return input, true
}
