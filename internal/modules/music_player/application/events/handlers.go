package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/playback"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// autoplayRequester is credited for tracks queued by autoplay.
var autoplayRequester = domain.Requester{Name: "Autoplay"}

// PlayerRegistry looks up and destroys players by guild.
type PlayerRegistry interface {
	Get(guildID snowflake.ID) *playback.Player
	Destroy(ctx context.Context, guildID snowflake.ID) bool
}

// NotificationEventHandler keeps the "Now Playing" message of each guild in
// sync with the player and reports playback errors.
type NotificationEventHandler struct {
	notifier ports.NotificationSender
	players  PlayerRegistry

	// mu serialises now-playing bookkeeping across the start and end dispatchers.
	mu sync.Mutex
}

// NewNotificationEventHandler creates a new NotificationEventHandler.
func NewNotificationEventHandler(
	notifier ports.NotificationSender,
	players PlayerRegistry,
) *NotificationEventHandler {
	return &NotificationEventHandler{
		notifier: notifier,
		players:  players,
	}
}

// Register subscribes the handler to lifecycle events.
func (h *NotificationEventHandler) Register(subscriber ports.LifecycleSubscriber) {
	subscriber.OnPlayerStart(h.handlePlayerStart)
	subscriber.OnPlayerEnd(h.handlePlayerEnd)
	subscriber.OnPlayerError(h.handlePlayerError)
	subscriber.OnPlayerDestroy(h.handlePlayerDestroy)
	slog.Debug("notification event handler registered")
}

func (h *NotificationEventHandler) handlePlayerStart(_ context.Context, event domain.PlayerStartEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	player := h.players.Get(event.GuildID)
	if player == nil {
		return
	}
	// A track that already ended would leave an orphaned message behind.
	if current := player.Current(); current == nil || current.EntryID != event.Track.EntryID {
		slog.Debug("skipping now playing notification, track no longer current",
			"guild", event.GuildID,
			"track", event.Track.Title,
		)
		return
	}

	messageID, err := h.notifier.SendNowPlaying(
		event.NotificationChannelID,
		nowPlayingInfo(event.Track, player.Backend()),
	)
	if err != nil {
		slog.Error("failed to send now playing notification",
			"guild", event.GuildID,
			"error", err,
		)
		return
	}

	previous := storedNowPlaying(player)
	player.Data().Set(domain.DataKeyNowPlaying, domain.NewNowPlayingMessage(
		event.NotificationChannelID,
		messageID,
		event.Track.EntryID,
	))

	if previous != nil {
		h.deleteMessage(event.GuildID, *previous)
	}
}

func (h *NotificationEventHandler) handlePlayerEnd(_ context.Context, event domain.PlayerEndEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	player := h.players.Get(event.GuildID)
	if player == nil || event.Track == nil {
		return
	}

	stored := storedNowPlaying(player)
	if stored == nil || stored.EntryID != event.Track.EntryID {
		return
	}
	// Looping keeps the entry current; the replay's start replaces the message.
	if current := player.Current(); current != nil && current.EntryID == event.Track.EntryID {
		return
	}

	player.Data().Delete(domain.DataKeyNowPlaying)
	h.deleteMessage(event.GuildID, *stored)
}

func (h *NotificationEventHandler) handlePlayerError(_ context.Context, event domain.PlayerErrorEvent) {
	title := "the track"
	if event.Track != nil {
		title = fmt.Sprintf("**%s**", event.Track.Title)
	}

	message := fmt.Sprintf("Could not play %s, skipping.", title)
	if err := h.notifier.SendError(event.NotificationChannelID, message); err != nil {
		slog.Warn("failed to send playback error notification",
			"guild", event.GuildID,
			"error", err,
		)
	}
}

func (h *NotificationEventHandler) handlePlayerDestroy(_ context.Context, event domain.PlayerDestroyEvent) {
	if event.NowPlayingMessage == nil {
		return
	}
	h.deleteMessage(event.GuildID, *event.NowPlayingMessage)
}

func (h *NotificationEventHandler) deleteMessage(guildID snowflake.ID, msg domain.NowPlayingMessage) {
	slog.Debug("deleting now playing message",
		"guild", guildID,
		"message_id", msg.MessageID,
	)

	if err := h.notifier.DeleteMessage(msg.ChannelID, msg.MessageID); err != nil {
		slog.Warn("failed to delete now playing message",
			"guild", guildID,
			"error", err,
		)
	}
}

func storedNowPlaying(player *playback.Player) *domain.NowPlayingMessage {
	v, ok := player.Data().Get(domain.DataKeyNowPlaying)
	if !ok {
		return nil
	}
	msg, ok := v.(domain.NowPlayingMessage)
	if !ok {
		return nil
	}
	return &msg
}

func nowPlayingInfo(track *domain.Track, backend string) *ports.NowPlayingInfo {
	return &ports.NowPlayingInfo{
		Identifier:         track.Identifier,
		Title:              track.Title,
		Artist:             track.Author,
		Duration:           track.FormattedDuration(),
		URI:                track.URI,
		ArtworkURL:         track.ArtworkURL,
		SourceName:         track.SourceName,
		IsStream:           track.IsStream,
		Backend:            backend,
		RequesterID:        track.Requester.ID,
		RequesterName:      track.Requester.Name,
		RequesterAvatarURL: track.Requester.AvatarURL,
		EnqueuedAt:         track.EnqueuedAt,
	}
}

// QueueEndEventHandler decides what happens when a queue drains: autoplay
// queues a related track, otherwise the channel is told the queue finished.
type QueueEndEventHandler struct {
	notifier ports.NotificationSender
	players  PlayerRegistry
}

// NewQueueEndEventHandler creates a new QueueEndEventHandler.
func NewQueueEndEventHandler(
	notifier ports.NotificationSender,
	players PlayerRegistry,
) *QueueEndEventHandler {
	return &QueueEndEventHandler{
		notifier: notifier,
		players:  players,
	}
}

// Register subscribes the handler to lifecycle events.
func (h *QueueEndEventHandler) Register(subscriber ports.LifecycleSubscriber) {
	subscriber.OnPlayerEmpty(h.handlePlayerEmpty)
	slog.Debug("queue end event handler registered")
}

func (h *QueueEndEventHandler) handlePlayerEmpty(ctx context.Context, event domain.PlayerEmptyEvent) {
	player := h.players.Get(event.GuildID)
	if player == nil {
		return
	}

	if event.LastTrack != nil && player.Data().Bool(domain.DataKeyAutoplay) {
		if track := h.relatedTrack(ctx, player, event.LastTrack); track != nil {
			if _, _, err := player.Enqueue(ctx, -1, track); err != nil {
				slog.Error("failed to enqueue autoplay track",
					"guild", event.GuildID,
					"error", err,
				)
				return
			}
			slog.Info("autoplay queued track",
				"guild", event.GuildID,
				"track", track.Title,
			)
			return
		}
		h.sendInfo(event, "Autoplay could not find a related track.")
		return
	}

	h.sendInfo(event, "Queue finished. Add more tracks with `/play`.")
}

// relatedTrack searches for another track by the same author that has not
// been played recently.
func (h *QueueEndEventHandler) relatedTrack(
	ctx context.Context,
	player *playback.Player,
	last *domain.Track,
) *domain.Track {
	term := last.Author
	if term == "" || term == domain.DefaultTrackAuthor {
		term = last.Title
	}

	result := player.Search(ctx, domain.NewSearchQuery(term), autoplayRequester)
	if result.IsEmpty() {
		return nil
	}

	played := map[string]bool{last.Identifier: true, last.URI: true}
	for _, track := range player.Queue().Previous {
		played[track.Identifier] = true
		played[track.URI] = true
	}

	for _, track := range result.Tracks {
		if played[track.URI] || (track.Identifier != "" && played[track.Identifier]) {
			continue
		}
		return track
	}
	return nil
}

func (h *QueueEndEventHandler) sendInfo(event domain.PlayerEmptyEvent, message string) {
	if err := h.notifier.SendInfo(event.NotificationChannelID, message); err != nil {
		slog.Warn("failed to send queue end notification",
			"guild", event.GuildID,
			"error", err,
		)
	}
}

// ChannelEmptyEventHandler leaves voice channels that no listener remains in,
// unless the guild enabled 24/7 mode.
type ChannelEmptyEventHandler struct {
	notifier ports.NotificationSender
	players  PlayerRegistry
	store    ports.KeyValueStore
}

// NewChannelEmptyEventHandler creates a new ChannelEmptyEventHandler.
func NewChannelEmptyEventHandler(
	notifier ports.NotificationSender,
	players PlayerRegistry,
	store ports.KeyValueStore,
) *ChannelEmptyEventHandler {
	return &ChannelEmptyEventHandler{
		notifier: notifier,
		players:  players,
		store:    store,
	}
}

// Register subscribes the handler to lifecycle events.
func (h *ChannelEmptyEventHandler) Register(subscriber ports.LifecycleSubscriber) {
	subscriber.OnChannelEmpty(h.handleChannelEmpty)
	slog.Debug("channel empty event handler registered")
}

func (h *ChannelEmptyEventHandler) handleChannelEmpty(ctx context.Context, event domain.ChannelEmptyEvent) {
	_, err := h.store.Get(ctx, domain.StayKey(event.GuildID))
	switch {
	case err == nil:
		slog.Debug("voice channel empty, staying for 24/7 mode",
			"guild", event.GuildID,
			"channel", event.VoiceChannelID,
		)
		return
	case !errors.Is(err, ports.ErrKeyNotFound):
		slog.Warn("failed to read 24/7 setting",
			"guild", event.GuildID,
			"error", err,
		)
	}

	if !h.players.Destroy(ctx, event.GuildID) {
		return
	}

	slog.Info("left empty voice channel",
		"guild", event.GuildID,
		"channel", event.VoiceChannelID,
	)

	if err := h.notifier.SendInfo(
		event.NotificationChannelID,
		"Left the voice channel because everyone else left.",
	); err != nil {
		slog.Warn("failed to send channel empty notification",
			"guild", event.GuildID,
			"error", err,
		)
	}
}
