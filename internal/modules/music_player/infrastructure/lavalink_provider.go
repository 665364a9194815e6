package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// errNoNode is returned when no Lavalink node is connected.
var errNoNode = errors.New("no available Lavalink node")

// LavalinkProvider resolves queries through the node's track loader.
type LavalinkProvider struct {
	link disgolink.Client
}

// NewLavalinkProvider creates a new LavalinkProvider.
func NewLavalinkProvider(link disgolink.Client) *LavalinkProvider {
	return &LavalinkProvider{link: link}
}

// Search loads tracks for the query. Failures yield an empty result.
func (p *LavalinkProvider) Search(
	ctx context.Context,
	query *domain.SearchQuery,
	requester domain.Requester,
) domain.SearchResult {
	result, err := p.load(ctx, query.LavalinkQuery())
	if err != nil {
		slog.Warn("failed to load tracks", "query", query.Query, "error", err)
		return domain.EmptySearchResult()
	}
	return convertLoadResult(result, requester)
}

// Encode returns the node's encoded form of the track, loading it by URI
// when the track came from another provider.
func (p *LavalinkProvider) Encode(ctx context.Context, track *domain.Track) (string, error) {
	if track.Encoded != "" {
		return track.Encoded, nil
	}

	result, err := p.load(ctx, track.URI)
	if err != nil {
		return "", err
	}
	loaded := convertLoadResult(result, track.Requester)
	if loaded.IsEmpty() {
		return "", fmt.Errorf("no playable track at %s", track.URI)
	}
	return loaded.Tracks[0].Encoded, nil
}

func (p *LavalinkProvider) load(ctx context.Context, identifier string) (*lavalink.LoadResult, error) {
	node := p.link.BestNode()
	if node == nil {
		return nil, errNoNode
	}

	result, err := node.LoadTracks(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}
	return result, nil
}

// convertLoadResult converts a Lavalink load result into a search result.
func convertLoadResult(result *lavalink.LoadResult, requester domain.Requester) domain.SearchResult {
	if result == nil {
		return domain.EmptySearchResult()
	}

	switch data := result.Data.(type) {
	case lavalink.Track:
		tracks := convertTracks([]lavalink.Track{data}, requester)
		if len(tracks) == 0 {
			return domain.EmptySearchResult()
		}
		return domain.SearchResult{
			Kind:   domain.SearchKindSingle,
			Tracks: tracks,
		}

	case lavalink.Playlist:
		tracks := convertTracks(data.Tracks, requester)
		if len(tracks) == 0 {
			return domain.EmptySearchResult()
		}
		return domain.SearchResult{
			Kind:         domain.SearchKindPlaylist,
			Tracks:       tracks,
			PlaylistName: data.Info.Name,
		}

	case lavalink.Search:
		tracks := convertTracks(data, requester)
		if len(tracks) == 0 {
			return domain.EmptySearchResult()
		}
		return domain.SearchResult{
			Kind:   domain.SearchKindSingle,
			Tracks: tracks,
		}

	case lavalink.Exception:
		slog.Warn("lavalink load exception", "error", data.Message)
		return domain.EmptySearchResult()

	default:
		return domain.EmptySearchResult()
	}
}

// convertTracks converts Lavalink tracks, dropping those without a playable URI.
func convertTracks(tracks []lavalink.Track, requester domain.Requester) []*domain.Track {
	converted := make([]*domain.Track, 0, len(tracks))
	for _, track := range tracks {
		if t := convertTrack(track, requester); t.IsValid() {
			converted = append(converted, t)
		} else {
			slog.Debug("dropping track without uri",
				"source", track.Info.SourceName,
				"identifier", track.Info.Identifier,
			)
		}
	}
	return converted
}

// convertTrack converts a Lavalink track to a domain track.
func convertTrack(track lavalink.Track, requester domain.Requester) *domain.Track {
	info := track.Info
	durationMS := int64(info.Length)

	uri := ""
	if info.URI != nil {
		uri = *info.URI
	}
	if uri == "" && info.SourceName == string(domain.TrackSourceYouTube) && info.Identifier != "" {
		uri = "https://www.youtube.com/watch?v=" + info.Identifier
	}

	return domain.NewTrack(domain.TrackData{
		Title:      &info.Title,
		Author:     &info.Author,
		URI:        uri,
		Encoded:    track.Encoded,
		ArtworkURL: info.ArtworkURL,
		SourceName: &info.SourceName,
		DurationMS: &durationMS,
		IsStream:   info.IsStream,
	}, requester)
}

// Ensure LavalinkProvider implements ports.TrackProvider.
var _ ports.TrackProvider = (*LavalinkProvider)(nil)
