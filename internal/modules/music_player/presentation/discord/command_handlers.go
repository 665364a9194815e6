package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/bot"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// Services bundles the use cases the command handlers call.
type Services struct {
	VoiceChannel        *usecases.VoiceChannelService
	Playback            *usecases.PlaybackService
	Queue               *usecases.QueueService
	TrackLoader         *usecases.TrackLoaderService
	NotificationChannel *usecases.NotificationChannelService
	Stay                *usecases.StayService
	Liked               *usecases.LikedTracksService
}

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	voiceChannel        *usecases.VoiceChannelService
	playback            *usecases.PlaybackService
	queue               *usecases.QueueService
	trackLoader         *usecases.TrackLoaderService
	notificationChannel *usecases.NotificationChannelService
	stay                *usecases.StayService
	liked               *usecases.LikedTracksService
	requesters          ports.RequesterResolver
}

// NewCommandHandlers creates new CommandHandlers. requesters may be nil, in
// which case requesters are described from the interaction alone.
func NewCommandHandlers(services Services, requesters ports.RequesterResolver) *CommandHandlers {
	return &CommandHandlers{
		voiceChannel:        services.VoiceChannel,
		playback:            services.Playback,
		queue:               services.Queue,
		trackLoader:         services.TrackLoader,
		notificationChannel: services.NotificationChannel,
		stay:                services.Stay,
		liked:               services.Liked,
		requesters:          requesters,
	}
}

// interaction holds the IDs every music command needs.
type interaction struct {
	guildID   snowflake.ID
	channelID snowflake.ID
	userID    snowflake.ID
	member    *discordgo.Member
}

// parseInteraction extracts the guild, channel and user of a guild interaction.
// On failure it returns the message to show to the user.
func parseInteraction(i *discordgo.InteractionCreate) (interaction, string) {
	var in interaction
	var err error

	if i.Member == nil || i.Member.User == nil {
		return in, "This command can only be used in a server"
	}
	in.member = i.Member

	if in.guildID, err = snowflake.Parse(i.GuildID); err != nil {
		return in, "Invalid guild"
	}
	if in.userID, err = snowflake.Parse(i.Member.User.ID); err != nil {
		return in, "Invalid user"
	}
	if in.channelID, err = snowflake.Parse(i.ChannelID); err != nil {
		return in, "Invalid notification channel"
	}
	return in, ""
}

// requester describes the invoking user for tracks they queue.
func (h *CommandHandlers) requester(ctx context.Context, in interaction) domain.Requester {
	fallback := domain.Requester{
		ID:        in.userID,
		Name:      displayName(in.member),
		AvatarURL: in.member.AvatarURL(""),
	}
	if h.requesters == nil {
		return fallback
	}

	requester, err := h.requesters.ResolveRequester(ctx, in.guildID, in.userID)
	if err != nil {
		slog.Debug("failed to resolve requester, using interaction member",
			"guild", in.guildID,
			"user", in.userID,
			"error", err,
		)
		return fallback
	}
	return requester
}

// HandleJoin handles the /join command.
func (h *CommandHandlers) HandleJoin(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	in, msg := parseInteraction(i)
	if msg != "" {
		return respondError(r, msg)
	}

	var voiceChannelID snowflake.ID
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name != "channel" {
			continue
		}
		id, err := snowflake.Parse(channelOptionID(s, opt))
		if err != nil {
			return respondError(r, "Invalid voice channel")
		}
		voiceChannelID = id
	}

	r, err := deferResponse(r)
	if err != nil {
		return err
	}

	output, err := h.voiceChannel.Join(context.Background(), usecases.JoinInput{
		GuildID:               in.guildID,
		UserID:                in.userID,
		NotificationChannelID: in.channelID,
		VoiceChannelID:        voiceChannelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	if output.AlreadyJoined {
		return respondSuccess(r, fmt.Sprintf("Already connected to <#%d>.", output.VoiceChannelID))
	}
	return respondSuccess(r, fmt.Sprintf("Connected to <#%d>.", output.VoiceChannelID))
}

// channelOptionID returns the ID of a channel option without requiring the
// session state cache.
func channelOptionID(s *discordgo.Session, opt *discordgo.ApplicationCommandInteractionDataOption) string {
	if id, ok := opt.Value.(string); ok {
		return id
	}
	if s == nil {
		return ""
	}
	return opt.ChannelValue(s).ID
}

// HandleLeave handles the /leave command.
func (h *CommandHandlers) HandleLeave(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	in, msg := parseInteraction(i)
	if msg != "" {
		return respondError(r, msg)
	}

	if err := h.voiceChannel.Leave(context.Background(), usecases.LeaveInput{
		GuildID: in.guildID,
	}); err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, "Disconnected.")
}

// HandlePlay handles the /play command.
func (h *CommandHandlers) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	in, msg := parseInteraction(i)
	if msg != "" {
		return respondError(r, msg)
	}

	var query string
	var next bool
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "query":
			query = opt.StringValue()
		case "next":
			next = opt.BoolValue()
		}
	}

	r, err := deferResponse(r)
	if err != nil {
		return err
	}

	ctx := context.Background()
	output, err := h.trackLoader.Play(ctx, usecases.PlayInput{
		GuildID:               in.guildID,
		UserID:                in.userID,
		NotificationChannelID: in.channelID,
		Query:                 query,
		Requester:             h.requester(ctx, in),
		Next:                  next,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	// "Now Playing" is sent as a separate message by the notification handler.
	return respondSuccess(r, playDescription(output))
}

func playDescription(output *usecases.PlayOutput) string {
	if output.PlaylistName != "" {
		return fmt.Sprintf(
			"Added **%d** tracks from **%s** to the queue.",
			len(output.Tracks),
			output.PlaylistName,
		)
	}

	track := output.Tracks[0]
	link := trackLink(track.Title, track.URI)
	if output.Started || output.Position == 0 {
		return fmt.Sprintf("Added %s to the queue.", link)
	}
	return fmt.Sprintf("Added %s to the queue at position %d.", link, output.Position)
}

// HandleStop handles the /stop command.
func (h *CommandHandlers) HandleStop(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	in, msg := parseInteraction(i)
	if msg != "" {
		return respondError(r, msg)
	}

	if err := h.playback.Stop(context.Background(), usecases.StopInput{
		GuildID:               in.guildID,
		NotificationChannelID: in.channelID,
	}); err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, "Stopped playback and cleared the queue.")
}

// HandlePause handles the /pause command.
func (h *CommandHandlers) HandlePause(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	in, msg := parseInteraction(i)
	if msg != "" {
		return respondError(r, msg)
	}

	if err := h.playback.Pause(context.Background(), usecases.PauseInput{
		GuildID:               in.guildID,
		NotificationChannelID: in.channelID,
	}); err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, "Paused playback.")
}

// HandleResume handles the /resume command.
func (h *CommandHandlers) HandleResume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	in, msg := parseInteraction(i)
	if msg != "" {
		return respondError(r, msg)
	}

	if err := h.playback.Resume(context.Background(), usecases.ResumeInput{
		GuildID:               in.guildID,
		NotificationChannelID: in.channelID,
	}); err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, "Resumed playback.")
}

// HandleSkip handles the /skip command.
func (h *CommandHandlers) HandleSkip(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	in, msg := parseInteraction(i)
	if msg != "" {
		return respondError(r, msg)
	}

	output, err := h.playback.Skip(context.Background(), usecases.SkipInput{
		GuildID:               in.guildID,
		NotificationChannelID: in.channelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf(
		"Skipped %s.",
		trackLink(output.SkippedTrack.Title, output.SkippedTrack.URI),
	))
}

// HandleBack handles the /back command.
func (h *CommandHandlers) HandleBack(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	in, msg := parseInteraction(i)
	if msg != "" {
		return respondError(r, msg)
	}

	output, err := h.playback.Back(context.Background(), usecases.BackInput{
		GuildID:               in.guildID,
		NotificationChannelID: in.channelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf(
		"Went back to %s.",
		trackLink(output.Track.Title, output.Track.URI),
	))
}

// HandleSeek handles the /seek command.
func (h *CommandHandlers) HandleSeek(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	in, msg := parseInteraction(i)
	if msg != "" {
		return respondError(r, msg)
	}

	var raw string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "position" {
			raw = opt.StringValue()
		}
	}
	position, ok := domain.ParsePosition(raw)
	if !ok {
		return respondError(r, "Invalid position. Use a format such as 1:30 or 90.")
	}

	output, err := h.playback.Seek(context.Background(), usecases.SeekInput{
		GuildID:               in.guildID,
		Position:              position,
		NotificationChannelID: in.channelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}
	if !output.Repositioned {
		return respondError(r, "Seeking is not supported for this track.")
	}

	return respondSuccess(r, fmt.Sprintf("Jumped to `%s`.", domain.FormatDuration(output.Position)))
}

// HandleVolume handles the /volume command.
func (h *CommandHandlers) HandleVolume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	in, msg := parseInteraction(i)
	if msg != "" {
		return respondError(r, msg)
	}

	var level int
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "level" {
			level = int(opt.IntValue())
		}
	}

	output, err := h.playback.SetVolume(context.Background(), usecases.SetVolumeInput{
		GuildID:               in.guildID,
		Volume:                level,
		NotificationChannelID: in.channelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Volume set to **%d%%**.", output.Volume))
}

// HandleLoop handles the /loop command.
func (h *CommandHandlers) HandleLoop(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	in, msg := parseInteraction(i)
	if msg != "" {
		return respondError(r, msg)
	}

	var modeStr string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "mode" {
			modeStr = opt.StringValue()
		}
	}

	newMode := modeStr
	if modeStr != "" {
		err := h.playback.SetLoopMode(ctx, usecases.SetLoopModeInput{
			GuildID:               in.guildID,
			Mode:                  modeStr,
			NotificationChannelID: in.channelID,
		})
		if err != nil {
			return respondError(r, errorMessage(err))
		}
	} else {
		output, err := h.playback.CycleLoopMode(ctx, usecases.CycleLoopModeInput{
			GuildID:               in.guildID,
			NotificationChannelID: in.channelID,
		})
		if err != nil {
			return respondError(r, errorMessage(err))
		}
		newMode = output.NewMode
	}

	return respondSuccess(r, loopModeDescription(newMode))
}

// HandleAutoplay handles the /autoplay command.
func (h *CommandHandlers) HandleAutoplay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	in, msg := parseInteraction(i)
	if msg != "" {
		return respondError(r, msg)
	}

	output, err := h.playback.ToggleAutoplay(context.Background(), usecases.ToggleAutoplayInput{
		GuildID:               in.guildID,
		NotificationChannelID: in.channelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	if output.Enabled {
		return respondSuccess(r, "Autoplay enabled. Related tracks will be queued when the queue ends.")
	}
	return respondSuccess(r, "Autoplay disabled.")
}

// HandleStay handles the /247 command.
func (h *CommandHandlers) HandleStay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	in, msg := parseInteraction(i)
	if msg != "" {
		return respondError(r, msg)
	}

	output, err := h.stay.Toggle(context.Background(), usecases.ToggleStayInput{
		GuildID:               in.guildID,
		NotificationChannelID: in.channelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	if output.Enabled {
		return respondSuccess(r, fmt.Sprintf("24/7 mode enabled. Staying in <#%d>.", output.VoiceChannelID))
	}
	return respondSuccess(r, "24/7 mode disabled.")
}

// HandleNowPlaying handles the /nowplaying command.
func (h *CommandHandlers) HandleNowPlaying(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	in, msg := parseInteraction(i)
	if msg != "" {
		return respondError(r, msg)
	}

	if changed, _ := h.notificationChannel.Set(ctx, usecases.SetNotificationChannelInput{
		GuildID:   in.guildID,
		ChannelID: in.channelID,
	}); changed {
		slog.Debug("moved notifications to command channel", "guild", in.guildID, "channel", in.channelID)
	}

	output, err := h.playback.NowPlaying(ctx, usecases.NowPlayingInput{GuildID: in.guildID})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondEmbed(r, nowPlayingEmbed(output))
}

func nowPlayingEmbed(output *usecases.NowPlayingOutput) *discordgo.MessageEmbed {
	track := output.Track

	status := "Playing"
	if output.Paused {
		status = "Paused"
	}

	progress := "LIVE"
	if !track.IsStream {
		progress = fmt.Sprintf(
			"%s / %s",
			domain.FormatDuration(output.Position),
			track.FormattedDuration(),
		)
	}

	autoplay := "Off"
	if output.Autoplay {
		autoplay = "On"
	}

	embed := &discordgo.MessageEmbed{
		Title:       status + loopModeIcon(output.LoopMode),
		Description: fmt.Sprintf("%s\nby %s", trackLink(track.Title, track.URI), track.Author),
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Progress", Value: progress, Inline: true},
			{Name: "Volume", Value: fmt.Sprintf("%d%%", output.Volume), Inline: true},
			{Name: "Autoplay", Value: autoplay, Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Requested by %s • via %s", track.Requester.Name, output.Backend),
		},
	}
	if track.ArtworkURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: track.ArtworkURL}
	}
	return embed
}
