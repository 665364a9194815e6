package discord

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/nerox/internal/bot"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/playback"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
	colorInfo    = 0x5865F2
)

// userFacingErrors are shown to the user verbatim.
var userFacingErrors = []error{
	usecases.ErrNotConnected,
	usecases.ErrUserNotInVoice,
	usecases.ErrInOtherChannel,
	usecases.ErrNotPlaying,
	usecases.ErrAlreadyPaused,
	usecases.ErrNotPaused,
	usecases.ErrNoResults,
	usecases.ErrQueueEmpty,
	usecases.ErrNothingToClear,
	usecases.ErrInvalidPosition,
	usecases.ErrNoHistory,
	usecases.ErrInvalidLoopMode,
	usecases.ErrAlreadyLiked,
	usecases.ErrNoLikedTracks,
	playback.ErrNoBackend,
}

// errorMessage turns a use case error into a sentence for the user.
// Unexpected errors are logged and replaced with a generic message.
func errorMessage(err error) string {
	for _, known := range userFacingErrors {
		if errors.Is(err, known) {
			return sentence(known.Error())
		}
	}

	var connErr *playback.ConnectionError
	if errors.As(err, &connErr) {
		return "Could not connect to the voice channel."
	}

	slog.Error("failed to handle music command", "error", err)
	return "Something went wrong."
}

func sentence(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:] + "."
}

// deferredResponder turns responses into edits of an already deferred
// interaction. Ephemeral flags cannot be applied to an edit, so errors that
// follow a deferral are visible to the channel.
type deferredResponder struct {
	bot.Responder
}

func (d deferredResponder) Respond(response *discordgo.InteractionResponse) error {
	edit := &discordgo.WebhookEdit{}
	if response.Data != nil {
		embeds := response.Data.Embeds
		edit.Embeds = &embeds
		if response.Data.Content != "" {
			edit.Content = &response.Data.Content
		}
	}
	return d.Edit(edit)
}

// deferResponse acknowledges the interaction before slow work such as
// connecting to voice or searching. The returned responder edits the
// acknowledgement.
func deferResponse(r bot.Responder) (bot.Responder, error) {
	if err := r.Defer(); err != nil {
		return nil, err
	}
	return deferredResponder{Responder: r}, nil
}

func respondError(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Error",
					Description: message,
					Color:       colorError,
				},
			},
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

func respondSuccess(r bot.Responder, description string) error {
	return respondEmbed(r, &discordgo.MessageEmbed{
		Description: description,
		Color:       colorSuccess,
	})
}

func respondEmbed(r bot.Responder, embed *discordgo.MessageEmbed) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

// trackLink renders a track as a markdown link when it has a URI.
func trackLink(title, uri string) string {
	if uri != "" {
		return fmt.Sprintf("[%s](%s)", title, uri)
	}
	return fmt.Sprintf("**%s**", title)
}

// writeTrackLine writes a single track line to the string builder.
// Escapes period to prevent Discord markdown list formatting.
func writeTrackLine(sb *strings.Builder, displayIndex int, title, uri, author, duration string) {
	fmt.Fprintf(sb, "%d\\. %s - %s `%s`\n", displayIndex, trackLink(title, uri), author, duration)
}

func loopModeDescription(mode string) string {
	parsed, _ := domain.ParseLoopMode(mode)
	switch parsed {
	case domain.LoopModeTrack:
		return "Now looping the current track."
	case domain.LoopModeQueue:
		return "Now looping the queue."
	default:
		return "Loop disabled."
	}
}

func loopModeIcon(mode string) string {
	parsed, _ := domain.ParseLoopMode(mode)
	switch parsed {
	case domain.LoopModeTrack:
		return " \U0001F502"
	case domain.LoopModeQueue:
		return " \U0001F501"
	default:
		return ""
	}
}

// displayName returns the effective display name for a guild member.
// Priority: guild nickname > global display name > username.
func displayName(member *discordgo.Member) string {
	if member.Nick != "" {
		return member.Nick
	}
	if member.User.GlobalName != "" {
		return member.User.GlobalName
	}
	return member.User.Username
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
