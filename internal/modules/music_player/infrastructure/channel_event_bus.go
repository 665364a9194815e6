package infrastructure

import (
	"context"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// DefaultEventBufferSize is the default buffer size for event channels.
const DefaultEventBufferSize = 100

// Compile-time checks that ChannelEventBus implements ports interfaces.
var (
	_ ports.LifecyclePublisher  = (*ChannelEventBus)(nil)
	_ ports.LifecycleSubscriber = (*ChannelEventBus)(nil)
)

// topic is one typed event channel with its registered handlers.
type topic[E any] struct {
	name     string
	events   chan E
	handlers []func(context.Context, E)
}

func newTopic[E any](name string, bufferSize int) *topic[E] {
	return &topic[E]{
		name:   name,
		events: make(chan E, bufferSize),
	}
}

// ChannelEventBus delivers player lifecycle events asynchronously.
// Each event type has its own channel and dispatcher goroutine, so events of
// one type reach handlers in publish order.
type ChannelEventBus struct {
	playerStart   *topic[domain.PlayerStartEvent]
	playerEnd     *topic[domain.PlayerEndEvent]
	playerEmpty   *topic[domain.PlayerEmptyEvent]
	playerError   *topic[domain.PlayerErrorEvent]
	playerDestroy *topic[domain.PlayerDestroyEvent]
	channelEmpty  *topic[domain.ChannelEmptyEvent]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.RWMutex
}

// NewChannelEventBus creates a new ChannelEventBus with the given buffer size.
func NewChannelEventBus(bufferSize int) *ChannelEventBus {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	bus := &ChannelEventBus{
		playerStart:   newTopic[domain.PlayerStartEvent]("PlayerStart", bufferSize),
		playerEnd:     newTopic[domain.PlayerEndEvent]("PlayerEnd", bufferSize),
		playerEmpty:   newTopic[domain.PlayerEmptyEvent]("PlayerEmpty", bufferSize),
		playerError:   newTopic[domain.PlayerErrorEvent]("PlayerError", bufferSize),
		playerDestroy: newTopic[domain.PlayerDestroyEvent]("PlayerDestroy", bufferSize),
		channelEmpty:  newTopic[domain.ChannelEmptyEvent]("ChannelEmpty", bufferSize),
		ctx:           ctx,
		cancel:        cancel,
	}

	bus.wg.Add(6)
	go dispatch(bus, bus.playerStart)
	go dispatch(bus, bus.playerEnd)
	go dispatch(bus, bus.playerEmpty)
	go dispatch(bus, bus.playerError)
	go dispatch(bus, bus.playerDestroy)
	go dispatch(bus, bus.channelEmpty)

	return bus
}

// dispatch delivers events from t to its handlers until the bus closes.
func dispatch[E any](b *ChannelEventBus, t *topic[E]) {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-t.events:
			if !ok {
				return
			}
			b.mu.RLock()
			handlers := t.handlers
			b.mu.RUnlock()
			for _, handler := range handlers {
				handler(b.ctx, event)
			}
		}
	}
}

// publish enqueues event on t.
// Non-blocking: if the channel buffer is full, the event is dropped with a warning.
func publish[E any](b *ChannelEventBus, t *topic[E], event E, guildID snowflake.ID) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", t.name)
		return
	}

	select {
	case t.events <- event:
		slog.Debug("published event", "type", t.name, "guild", guildID)
	default:
		slog.Warn("event buffer full, dropping event", "type", t.name, "guild", guildID)
	}
}

func subscribe[E any](b *ChannelEventBus, t *topic[E], handler func(context.Context, E)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t.handlers = append(t.handlers, handler)
}

// --- LifecyclePublisher interface ---

// PublishPlayerStart publishes a PlayerStartEvent.
func (b *ChannelEventBus) PublishPlayerStart(event domain.PlayerStartEvent) {
	publish(b, b.playerStart, event, event.GuildID)
}

// PublishPlayerEnd publishes a PlayerEndEvent.
func (b *ChannelEventBus) PublishPlayerEnd(event domain.PlayerEndEvent) {
	publish(b, b.playerEnd, event, event.GuildID)
}

// PublishPlayerEmpty publishes a PlayerEmptyEvent.
func (b *ChannelEventBus) PublishPlayerEmpty(event domain.PlayerEmptyEvent) {
	publish(b, b.playerEmpty, event, event.GuildID)
}

// PublishPlayerError publishes a PlayerErrorEvent.
func (b *ChannelEventBus) PublishPlayerError(event domain.PlayerErrorEvent) {
	publish(b, b.playerError, event, event.GuildID)
}

// PublishPlayerDestroy publishes a PlayerDestroyEvent.
func (b *ChannelEventBus) PublishPlayerDestroy(event domain.PlayerDestroyEvent) {
	publish(b, b.playerDestroy, event, event.GuildID)
}

// PublishChannelEmpty publishes a ChannelEmptyEvent.
func (b *ChannelEventBus) PublishChannelEmpty(event domain.ChannelEmptyEvent) {
	publish(b, b.channelEmpty, event, event.GuildID)
}

// --- LifecycleSubscriber interface ---

// OnPlayerStart registers a handler for PlayerStartEvent.
func (b *ChannelEventBus) OnPlayerStart(handler func(context.Context, domain.PlayerStartEvent)) {
	subscribe(b, b.playerStart, handler)
}

// OnPlayerEnd registers a handler for PlayerEndEvent.
func (b *ChannelEventBus) OnPlayerEnd(handler func(context.Context, domain.PlayerEndEvent)) {
	subscribe(b, b.playerEnd, handler)
}

// OnPlayerEmpty registers a handler for PlayerEmptyEvent.
func (b *ChannelEventBus) OnPlayerEmpty(handler func(context.Context, domain.PlayerEmptyEvent)) {
	subscribe(b, b.playerEmpty, handler)
}

// OnPlayerError registers a handler for PlayerErrorEvent.
func (b *ChannelEventBus) OnPlayerError(handler func(context.Context, domain.PlayerErrorEvent)) {
	subscribe(b, b.playerError, handler)
}

// OnPlayerDestroy registers a handler for PlayerDestroyEvent.
func (b *ChannelEventBus) OnPlayerDestroy(
	handler func(context.Context, domain.PlayerDestroyEvent),
) {
	subscribe(b, b.playerDestroy, handler)
}

// OnChannelEmpty registers a handler for ChannelEmptyEvent.
func (b *ChannelEventBus) OnChannelEmpty(handler func(context.Context, domain.ChannelEmptyEvent)) {
	subscribe(b, b.channelEmpty, handler)
}

// Close stops accepting events, delivers the ones already buffered and stops
// the dispatchers.
func (b *ChannelEventBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.playerStart.events)
	close(b.playerEnd.events)
	close(b.playerEmpty.events)
	close(b.playerError.events)
	close(b.playerDestroy.events)
	close(b.channelEmpty.events)

	b.wg.Wait()
	b.cancel()

	slog.Debug("channel event bus closed")
}
