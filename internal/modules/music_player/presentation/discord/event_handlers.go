package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/bot"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/playback"
)

// VoiceStateRouter receives voice membership changes.
type VoiceStateRouter interface {
	HandleVoiceStateUpdate(ctx context.Context, change playback.VoiceStateChange)
}

// VoiceEventForwarder receives the raw voice events a remote audio node needs.
type VoiceEventForwarder interface {
	OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate)
	OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate)
}

// Rejoiner restores the voice connections of guilds in 24/7 mode.
type Rejoiner interface {
	Rejoin(ctx context.Context, guildIDs []snowflake.ID) int
}

// EventHandlers handles Discord gateway events for the music player.
type EventHandlers struct {
	botID        snowflake.ID
	router       VoiceStateRouter
	forwarder    VoiceEventForwarder
	rejoiner     Rejoiner
	autocomplete *AutocompleteHandler
}

// NewEventHandlers creates a new EventHandlers. forwarder may be nil when no
// remote node is configured.
func NewEventHandlers(
	botID snowflake.ID,
	router VoiceStateRouter,
	forwarder VoiceEventForwarder,
	rejoiner Rejoiner,
	autocomplete *AutocompleteHandler,
) *EventHandlers {
	return &EventHandlers{
		botID:        botID,
		router:       router,
		forwarder:    forwarder,
		rejoiner:     rejoiner,
		autocomplete: autocomplete,
	}
}

// Handlers returns the gateway handlers to register on the session.
func (h *EventHandlers) Handlers() []bot.EventHandler {
	return []bot.EventHandler{
		h.HandleVoiceStateUpdate,
		h.HandleVoiceServerUpdate,
		h.HandleGuildCreate,
		h.HandleInteractionCreate,
	}
}

// HandleVoiceStateUpdate forwards the bot's own voice state to the remote node
// and reports membership changes to the player controller.
func (h *EventHandlers) HandleVoiceStateUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	if event.VoiceState == nil {
		return
	}

	isSelf := event.UserID == h.botID.String()
	if isSelf && h.forwarder != nil {
		h.forwarder.OnVoiceStateUpdate(event)
	}

	change, err := voiceStateChange(event)
	if err != nil {
		slog.Error("failed to parse voice state update", "error", err)
		return
	}
	change.IsSelf = isSelf

	h.router.HandleVoiceStateUpdate(context.Background(), change)
}

func voiceStateChange(event *discordgo.VoiceStateUpdate) (playback.VoiceStateChange, error) {
	var change playback.VoiceStateChange
	var err error

	if change.GuildID, err = snowflake.Parse(event.GuildID); err != nil {
		return change, err
	}
	if change.UserID, err = snowflake.Parse(event.UserID); err != nil {
		return change, err
	}
	// An empty channel ID means the user left voice.
	if event.ChannelID != "" {
		if change.ChannelID, err = snowflake.Parse(event.ChannelID); err != nil {
			return change, err
		}
	}
	if event.BeforeUpdate != nil && event.BeforeUpdate.ChannelID != "" {
		if change.PreviousChannelID, err = snowflake.Parse(event.BeforeUpdate.ChannelID); err != nil {
			return change, err
		}
	}
	return change, nil
}

// HandleVoiceServerUpdate forwards voice server updates to the remote node.
func (h *EventHandlers) HandleVoiceServerUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceServerUpdate,
) {
	if h.forwarder != nil {
		h.forwarder.OnVoiceServerUpdate(event)
	}
}

// HandleGuildCreate rejoins the 24/7 voice channel of a guild once it becomes
// available after startup.
func (h *EventHandlers) HandleGuildCreate(
	_ *discordgo.Session,
	event *discordgo.GuildCreate,
) {
	if event.Guild == nil || event.Unavailable {
		return
	}

	guildID, err := snowflake.Parse(event.ID)
	if err != nil {
		slog.Error("failed to parse guild ID in guild create", "error", err)
		return
	}

	h.rejoiner.Rejoin(context.Background(), []snowflake.ID{guildID})
}

// HandleInteractionCreate answers autocomplete interactions. Commands are
// routed by the bot itself.
func (h *EventHandlers) HandleInteractionCreate(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
) {
	if i.Type != discordgo.InteractionApplicationCommandAutocomplete {
		return
	}

	if err := h.autocomplete.Handle(s, i, bot.NewDiscordResponder(s, i.Interaction)); err != nil {
		slog.Warn("failed to respond to autocomplete",
			"command", i.ApplicationCommandData().Name,
			"error", err,
		)
	}
}
