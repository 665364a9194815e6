package domain

// SearchKind describes the shape of a search result.
type SearchKind string

const (
	SearchKindSingle   SearchKind = "single"
	SearchKindPlaylist SearchKind = "playlist"
	SearchKindEmpty    SearchKind = "empty"
)

// SearchResult is what a track provider returns for a query.
// Provider failures are represented as an empty result, never as an error.
type SearchResult struct {
	Kind         SearchKind
	Tracks       []*Track
	PlaylistName string
}

// EmptySearchResult returns a result with no tracks.
func EmptySearchResult() SearchResult {
	return SearchResult{Kind: SearchKindEmpty}
}

// IsEmpty returns true if the result carries no tracks.
func (r SearchResult) IsEmpty() bool {
	return len(r.Tracks) == 0
}

// IsPlaylist returns true if the result represents a whole playlist.
func (r SearchResult) IsPlaylist() bool {
	return r.Kind == SearchKindPlaylist
}
