package usecases

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/playback"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// Re-export domain types for presentation layer use.
// This allows presentation to depend only on usecases without importing domain directly.

// Track is an alias for domain.Track.
type Track = domain.Track

// Requester is an alias for domain.Requester.
type Requester = domain.Requester

// LikedTrack is an alias for domain.LikedTrack.
type LikedTrack = domain.LikedTrack

// PlayerRegistry is the subset of playback.Controller the use cases need.
type PlayerRegistry interface {
	CreatePlayer(ctx context.Context, session playback.SessionDescriptor) (*playback.Player, error)
	Get(guildID snowflake.ID) *playback.Player
	Destroy(ctx context.Context, guildID snowflake.ID) bool
	Search(ctx context.Context, query *domain.SearchQuery, requester domain.Requester) domain.SearchResult
}

// connectedPlayer returns the guild's player and moves its notifications to
// notificationChannelID when that is non-zero.
func connectedPlayer(
	players PlayerRegistry,
	guildID snowflake.ID,
	notificationChannelID snowflake.ID,
) (*playback.Player, error) {
	player := players.Get(guildID)
	if player == nil {
		return nil, ErrNotConnected
	}
	player.SetNotificationChannelID(notificationChannelID)
	return player, nil
}
