package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/nerox/internal/bot"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// HandleLike handles the /like command.
func (h *CommandHandlers) HandleLike(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	in, msg := parseInteraction(i)
	if msg != "" {
		return respondError(r, msg)
	}

	output, err := h.liked.Like(context.Background(), usecases.LikeInput{
		GuildID: in.guildID,
		UserID:  in.userID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf(
		"Added %s to your liked tracks (%d/%d).",
		trackLink(output.Track.Title, output.Track.URI),
		output.TotalTracks,
		domain.MaxLikedTracks,
	))
}

// HandleLiked handles the /liked command.
func (h *CommandHandlers) HandleLiked(
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
		return h.handleLikedList(in, r, subCmd.Options)
	case "remove":
		return h.handleLikedRemove(in, r, subCmd.Options)
	case "play":
		return h.handleLikedPlay(in, r, subCmd.Options)
	default:
		return respondError(r, "Unknown subcommand")
	}
}

func (h *CommandHandlers) handleLikedList(
	in interaction,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	output, err := h.liked.List(context.Background(), usecases.ListLikedInput{
		UserID: in.userID,
		Page:   intOption(options, "page"),
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	var sb strings.Builder
	if output.TotalTracks == 0 {
		sb.WriteString("You have no liked tracks. Use `/like` while a track is playing.")
	}
	for idx, track := range output.Tracks {
		duration := "LIVE"
		if !track.IsStream {
			duration = domain.FormatDuration(time.Duration(track.DurationMS) * time.Millisecond)
		}
		writeTrackLine(&sb, output.StartPosition+idx, track.Title, track.URI, track.Author, duration)
	}

	return respondEmbed(r, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Liked tracks of %s", displayName(in.member)),
		Description: sb.String(),
		Color:       colorInfo,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf(
				"Page %d/%d • %d tracks",
				output.CurrentPage,
				output.TotalPages,
				output.TotalTracks,
			),
		},
	})
}

func (h *CommandHandlers) handleLikedRemove(
	in interaction,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	output, err := h.liked.Unlike(context.Background(), usecases.UnlikeInput{
		UserID:   in.userID,
		Position: intOption(options, "position"),
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, fmt.Sprintf(
		"Removed %s from your liked tracks.",
		trackLink(output.Track.Title, output.Track.URI),
	))
}

func (h *CommandHandlers) handleLikedPlay(
	in interaction,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	var shuffle bool
	for _, opt := range options {
		if opt.Name == "shuffle" {
			shuffle = opt.BoolValue()
		}
	}

	r, err := deferResponse(r)
	if err != nil {
		return err
	}

	ctx := context.Background()
	output, err := h.liked.PlayLiked(ctx, usecases.PlayLikedInput{
		GuildID:               in.guildID,
		UserID:                in.userID,
		NotificationChannelID: in.channelID,
		Requester:             h.requester(ctx, in),
		Shuffle:               shuffle,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondSuccess(r, playDescription(output))
}
