package usecases

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// PlayInput contains the input for the Play use case.
type PlayInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	NotificationChannelID snowflake.ID
	Query                 string
	Requester             domain.Requester
	Next                  bool // insert ahead of the other upcoming tracks
}

// PlayOutput contains the result of the Play use case.
type PlayOutput struct {
	Tracks       []*domain.Track // tracks added to the queue
	PlaylistName string          // non-empty when a playlist was added
	Position     int             // 1-indexed upcoming position of Tracks[0], 0 if it is playing now
	Started      bool
}

// SearchTracksInput contains the input for the SearchTracks use case.
type SearchTracksInput struct {
	Query     string
	Limit     int
	Requester domain.Requester
}

// SearchTracksOutput contains the result of the SearchTracks use case.
type SearchTracksOutput struct {
	Tracks       []*domain.Track
	IsPlaylist   bool
	PlaylistName string
	TrackCount   int // tracks in the full result, before the limit
}

// TrackLoaderService resolves queries and feeds the results into the queue.
type TrackLoaderService struct {
	players PlayerRegistry
	voice   *VoiceChannelService
}

// NewTrackLoaderService creates a new TrackLoaderService.
func NewTrackLoaderService(players PlayerRegistry, voice *VoiceChannelService) *TrackLoaderService {
	return &TrackLoaderService{
		players: players,
		voice:   voice,
	}
}

// Play resolves the query, joins the user's voice channel if needed and
// queues the result. A playlist is queued as a whole, a search only by its
// first hit. Playback starts when nothing was loaded.
func (s *TrackLoaderService) Play(ctx context.Context, input PlayInput) (*PlayOutput, error) {
	query := domain.NewSearchQuery(input.Query)
	if !query.IsValid() {
		return nil, ErrNoResults
	}

	player, _, err := s.voice.ensurePlayer(ctx, JoinInput{
		GuildID:               input.GuildID,
		UserID:                input.UserID,
		NotificationChannelID: input.NotificationChannelID,
	})
	if err != nil {
		return nil, err
	}

	result := player.Search(ctx, query, input.Requester)
	if result.IsEmpty() {
		return nil, ErrNoResults
	}

	tracks := result.Tracks
	if !result.IsPlaylist() {
		tracks = tracks[:1]
	}

	position := -1
	if input.Next {
		position = 0
	}

	index, started, err := player.Enqueue(ctx, position, tracks...)
	if err != nil {
		return nil, err
	}

	output := &PlayOutput{
		Tracks:   tracks,
		Position: index + 1,
		Started:  started,
	}
	if started {
		output.Position = 0
	}
	if result.IsPlaylist() {
		output.PlaylistName = result.PlaylistName
	}
	return output, nil
}

// SearchTracks searches for tracks matching the query without touching any player.
func (s *TrackLoaderService) SearchTracks(
	ctx context.Context,
	input SearchTracksInput,
) (*SearchTracksOutput, error) {
	if input.Query == "" {
		return &SearchTracksOutput{Tracks: nil}, nil
	}

	result := s.players.Search(ctx, domain.NewSearchQuery(input.Query), input.Requester)
	if result.IsEmpty() {
		return &SearchTracksOutput{Tracks: nil}, nil
	}

	limit := input.Limit
	if limit <= 0 || limit > len(result.Tracks) {
		limit = len(result.Tracks)
	}

	return &SearchTracksOutput{
		Tracks:       result.Tracks[:limit],
		IsPlaylist:   result.IsPlaylist(),
		PlaylistName: result.PlaylistName,
		TrackCount:   len(result.Tracks),
	}, nil
}
