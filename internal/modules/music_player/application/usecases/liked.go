package usecases

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// LikeInput contains the input for the Like use case.
type LikeInput struct {
	GuildID snowflake.ID
	UserID  snowflake.ID
}

// LikeOutput contains the result of the Like use case.
type LikeOutput struct {
	Track       domain.LikedTrack
	TotalTracks int
}

// ListLikedInput contains the input for the ListLiked use case.
type ListLikedInput struct {
	UserID   snowflake.ID
	Page     int // 1-indexed page number
	PageSize int // Items per page (optional, defaults to 10)
}

// ListLikedOutput contains the result of the ListLiked use case.
type ListLikedOutput struct {
	Tracks        []domain.LikedTrack
	StartPosition int // 1-indexed position of Tracks[0]
	TotalTracks   int
	CurrentPage   int
	TotalPages    int
}

// UnlikeInput contains the input for the Unlike use case.
type UnlikeInput struct {
	UserID   snowflake.ID
	Position int // 1-indexed position in the liked list
}

// UnlikeOutput contains the result of the Unlike use case.
type UnlikeOutput struct {
	Track domain.LikedTrack
}

// PlayLikedInput contains the input for the PlayLiked use case.
type PlayLikedInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	NotificationChannelID snowflake.ID
	Requester             domain.Requester
	Shuffle               bool
}

// LikedTracksService manages each user's persisted liked tracks.
type LikedTracksService struct {
	players PlayerRegistry
	voice   *VoiceChannelService
	store   ports.KeyValueStore
	now     func() time.Time

	// mu serialises read-modify-write cycles on the store.
	mu sync.Mutex
}

// NewLikedTracksService creates a new LikedTracksService.
func NewLikedTracksService(
	players PlayerRegistry,
	voice *VoiceChannelService,
	store ports.KeyValueStore,
) *LikedTracksService {
	return &LikedTracksService{
		players: players,
		voice:   voice,
		store:   store,
		now:     time.Now,
	}
}

// Like adds the guild's current track to the user's liked tracks.
func (s *LikedTracksService) Like(ctx context.Context, input LikeInput) (*LikeOutput, error) {
	player := s.players.Get(input.GuildID)
	if player == nil {
		return nil, ErrNotConnected
	}
	current := player.Current()
	if current == nil {
		return nil, ErrNotPlaying
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	liked, err := s.load(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	track := domain.NewLikedTrack(current, s.now().UTC())
	liked, added := liked.Add(track)
	if !added {
		return nil, ErrAlreadyLiked
	}

	if err := s.save(ctx, input.UserID, liked); err != nil {
		return nil, err
	}
	return &LikeOutput{Track: track, TotalTracks: len(liked)}, nil
}

// List returns a page of the user's liked tracks.
func (s *LikedTracksService) List(ctx context.Context, input ListLikedInput) (*ListLikedOutput, error) {
	s.mu.Lock()
	liked, err := s.load(ctx, input.UserID)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	totalTracks := len(liked)
	totalPages := max((totalTracks+pageSize-1)/pageSize, 1)
	page := min(max(input.Page, 1), totalPages)

	start := (page - 1) * pageSize
	end := min(start+pageSize, totalTracks)

	var tracks []domain.LikedTrack
	if start < totalTracks {
		tracks = liked[start:end]
	}

	return &ListLikedOutput{
		Tracks:        tracks,
		StartPosition: start + 1,
		TotalTracks:   totalTracks,
		CurrentPage:   page,
		TotalPages:    totalPages,
	}, nil
}

// Unlike removes the liked track at the given position.
func (s *LikedTracksService) Unlike(ctx context.Context, input UnlikeInput) (*UnlikeOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	liked, err := s.load(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if len(liked) == 0 {
		return nil, ErrNoLikedTracks
	}
	if input.Position < 1 || input.Position > len(liked) {
		return nil, ErrInvalidPosition
	}

	removed := liked[input.Position-1]
	liked, _ = liked.Remove(input.Position - 1)

	if err := s.save(ctx, input.UserID, liked); err != nil {
		return nil, err
	}
	return &UnlikeOutput{Track: removed}, nil
}

// PlayLiked queues all of the user's liked tracks, joining their voice channel if needed.
func (s *LikedTracksService) PlayLiked(ctx context.Context, input PlayLikedInput) (*PlayOutput, error) {
	s.mu.Lock()
	liked, err := s.load(ctx, input.UserID)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if len(liked) == 0 {
		return nil, ErrNoLikedTracks
	}

	player, _, err := s.voice.ensurePlayer(ctx, JoinInput{
		GuildID:               input.GuildID,
		UserID:                input.UserID,
		NotificationChannelID: input.NotificationChannelID,
	})
	if err != nil {
		return nil, err
	}

	tracks := make([]*domain.Track, len(liked))
	for i, l := range liked {
		tracks[i] = l.Track(input.Requester)
	}
	if input.Shuffle {
		rand.Shuffle(len(tracks), func(i, j int) {
			tracks[i], tracks[j] = tracks[j], tracks[i]
		})
	}

	index, started, err := player.Enqueue(ctx, -1, tracks...)
	if err != nil {
		return nil, err
	}

	output := &PlayOutput{
		Tracks:       tracks,
		PlaylistName: "Liked tracks",
		Position:     index + 1,
		Started:      started,
	}
	if started {
		output.Position = 0
	}
	return output, nil
}

func (s *LikedTracksService) load(ctx context.Context, userID snowflake.ID) (domain.LikedTracks, error) {
	value, err := s.store.Get(ctx, domain.LikedTracksKey(userID))
	if errors.Is(err, ports.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return domain.ParseLikedTracks(value)
}

func (s *LikedTracksService) save(ctx context.Context, userID snowflake.ID, liked domain.LikedTracks) error {
	if len(liked) == 0 {
		return s.store.Delete(ctx, domain.LikedTracksKey(userID))
	}
	value, err := liked.Encode()
	if err != nil {
		return err
	}
	return s.store.Set(ctx, domain.LikedTracksKey(userID), value)
}
