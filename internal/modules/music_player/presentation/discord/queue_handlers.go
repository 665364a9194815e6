package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/nerox/internal/bot"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// HandleQueue handles the /queue command.
func (h *CommandHandlers) HandleQueue(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	in, msg := parseInteraction(i)
	if msg != "" {
		return respondError(r, msg)
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, "Invalid subcommand")
	}

	subCmd := options[0]
	switch subCmd.Name {
	case "list":
		return h.handleQueueList(in, r, subCmd.Options)
	case "remove":
		return h.handleQueueRemove(in, r, subCmd.Options)
	case "move":
		return h.handleQueueMove(in, r, subCmd.Options)
	case "skipto":
		return h.handleQueueSkipTo(in, r, subCmd.Options)
	case "shuffle":
		return h.handleQueueShuffle(in, r)
	case "clear":
		return h.handleQueueClear(in, r)
	default:
		return respondError(r, "Unknown subcommand")
	}
}

// intOption returns the integer option with the given name, or 0.
func intOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) int {
	for _, opt := range options {
		if opt.Name == name {
			return int(opt.IntValue())
		}
	}
	return 0
}

func (h *CommandHandlers) handleQueueList(
	in interaction,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	output, err := h.queue.List(usecases.QueueListInput{
		GuildID:               in.guildID,
		Page:                  intOption(options, "page"),
		NotificationChannelID: in.channelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondEmbed(r, queueListEmbed(output))
}

func queueListEmbed(output *usecases.QueueListOutput) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Queue" + loopModeIcon(output.LoopMode),
		Color: colorInfo,
	}

	var sb strings.Builder
	if current := output.CurrentTrack; current != nil {
		sb.WriteString("### Now Playing\n")
		fmt.Fprintf(&sb, "%s - %s `%s`\n",
			trackLink(current.Title, current.URI),
			current.Author,
			current.FormattedDuration(),
		)
	}

	if len(output.Tracks) == 0 {
		sb.WriteString("### Up Next\nQueue is empty.\n")
	} else {
		sb.WriteString("### Up Next\n")
		for idx, track := range output.Tracks {
			writeTrackLine(
				&sb,
				output.StartPosition+idx,
				track.Title,
				track.URI,
				track.Author,
				track.FormattedDuration(),
			)
		}
	}

	embed.Description = sb.String()
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf(
			"Page %d/%d • %d tracks • %s",
			output.CurrentPage,
			output.TotalPages,
			output.TotalTracks,
			domain.FormatDuration(output.TotalDuration),
		),
	}
	return embed
}

func (h *CommandHandlers) handleQueueRemove(
	in interaction,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	output, err := h.queue.Remove(usecases.QueueRemoveInput{
		GuildID:               in.guildID,
		Position:              intOption(options, "position"),
		NotificationChannelID: in.channelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf(
		"Removed %s.",
		trackLink(output.RemovedTrack.Title, output.RemovedTrack.URI),
	))
}

func (h *CommandHandlers) handleQueueMove(
	in interaction,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	to := intOption(options, "to")
	output, err := h.queue.Move(usecases.QueueMoveInput{
		GuildID:               in.guildID,
		From:                  intOption(options, "from"),
		To:                    to,
		NotificationChannelID: in.channelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf(
		"Moved %s to position %d.",
		trackLink(output.MovedTrack.Title, output.MovedTrack.URI),
		to,
	))
}

func (h *CommandHandlers) handleQueueSkipTo(
	in interaction,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	position := intOption(options, "position")
	output, err := h.queue.SkipTo(context.Background(), usecases.QueueSkipToInput{
		GuildID:               in.guildID,
		Position:              position,
		NotificationChannelID: in.channelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf(
		"Jumped to position %d: %s.",
		position,
		trackLink(output.Track.Title, output.Track.URI),
	))
}

func (h *CommandHandlers) handleQueueShuffle(in interaction, r bot.Responder) error {
	output, err := h.queue.Shuffle(usecases.QueueShuffleInput{
		GuildID:               in.guildID,
		NotificationChannelID: in.channelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Shuffled %d tracks.", output.ShuffledCount))
}

func (h *CommandHandlers) handleQueueClear(in interaction, r bot.Responder) error {
	output, err := h.queue.Clear(usecases.QueueClearInput{
		GuildID:               in.guildID,
		NotificationChannelID: in.channelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf("Cleared %d tracks from the queue.", output.ClearedCount))
}
