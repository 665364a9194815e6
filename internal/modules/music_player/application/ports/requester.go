package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// RequesterResolver resolves the guild-specific identity credited for queued
// tracks.
type RequesterResolver interface {
	ResolveRequester(ctx context.Context, guildID, userID snowflake.ID) (domain.Requester, error)
}
