package ports

import (
	"context"

	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// LifecyclePublisher publishes player lifecycle events.
// Publishing must not block the caller.
type LifecyclePublisher interface {
	PublishPlayerStart(event domain.PlayerStartEvent)
	PublishPlayerEnd(event domain.PlayerEndEvent)
	PublishPlayerEmpty(event domain.PlayerEmptyEvent)
	PublishPlayerError(event domain.PlayerErrorEvent)
	PublishPlayerDestroy(event domain.PlayerDestroyEvent)
	PublishChannelEmpty(event domain.ChannelEmptyEvent)
}

// LifecycleSubscriber registers handlers for player lifecycle events.
type LifecycleSubscriber interface {
	OnPlayerStart(handler func(context.Context, domain.PlayerStartEvent))
	OnPlayerEnd(handler func(context.Context, domain.PlayerEndEvent))
	OnPlayerEmpty(handler func(context.Context, domain.PlayerEmptyEvent))
	OnPlayerError(handler func(context.Context, domain.PlayerErrorEvent))
	OnPlayerDestroy(handler func(context.Context, domain.PlayerDestroyEvent))
	OnChannelEmpty(handler func(context.Context, domain.ChannelEmptyEvent))
}
