package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/bot"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// maxChoices is the number of autocomplete choices Discord accepts.
const maxChoices = 25

// minQueryLength is the shortest query worth searching for.
const minQueryLength = 2

// AutocompleteHandler handles autocomplete requests.
type AutocompleteHandler struct {
	autocomplete *usecases.AutocompleteService
}

// NewAutocompleteHandler creates a new AutocompleteHandler.
func NewAutocompleteHandler(autocomplete *usecases.AutocompleteService) *AutocompleteHandler {
	return &AutocompleteHandler{autocomplete: autocomplete}
}

// Handle routes an autocomplete interaction to the handler of its command.
func (h *AutocompleteHandler) Handle(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	data := i.ApplicationCommandData()

	switch data.Name {
	case "play":
		return h.HandlePlay(s, i, r)
	case "queue":
		return h.HandleQueuePosition(s, i, r)
	default:
		return respondChoices(r, nil)
	}
}

// HandlePlay handles autocomplete for play command.
func (h *AutocompleteHandler) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	query := strings.TrimSpace(focusedValue(i.ApplicationCommandData().Options))
	if len([]rune(query)) < minQueryLength {
		return respondChoices(r, nil)
	}

	// URLs are offered as typed; suggestions only help with search terms.
	if domain.NewSearchQuery(query).IsURL {
		return respondChoices(r, []*discordgo.ApplicationCommandOptionChoice{
			{Name: truncate(query, 100), Value: truncate(query, 100)},
		})
	}

	output, err := h.autocomplete.Suggest(context.Background(), usecases.SuggestInput{
		Query: query,
		Limit: maxChoices - 1,
	})
	if err != nil {
		slog.Warn("failed to get search suggestions", "error", err)
		output = &usecases.SuggestOutput{}
	}

	// The typed query stays selectable so that a plain search remains possible.
	choices := []*discordgo.ApplicationCommandOptionChoice{
		{Name: truncate("🔍 "+query, 100), Value: truncate(query, 100)},
	}
	for _, suggestion := range output.Suggestions {
		value := suggestion.URL
		if value == "" || len(value) > 100 {
			value = truncate(suggestion.Title, 100)
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate("🎵 "+suggestion.Title, 100),
			Value: value,
		})
	}

	return respondChoices(r, choices)
}

// HandleQueuePosition handles autocomplete for the queue position options.
func (h *AutocompleteHandler) HandleQueuePosition(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		slog.Warn("failed to parse guild ID in autocomplete", "error", err, "guildID", i.GuildID)
		return respondChoices(r, nil)
	}

	output := h.autocomplete.GetQueueTracks(usecases.GetQueueTracksInput{GuildID: guildID})

	typed := strings.ToLower(strings.TrimSpace(focusedValue(i.ApplicationCommandData().Options)))

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, min(len(output.Tracks), maxChoices))
	for idx, track := range output.Tracks {
		position := idx + 1
		name := fmt.Sprintf("%d. %s", position, truncate(track.Title, 90))
		if typed != "" && !strings.Contains(strings.ToLower(name), typed) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  name,
			Value: position,
		})
		if len(choices) == maxChoices {
			break
		}
	}

	return respondChoices(r, choices)
}

// focusedValue returns the raw value of the focused option, searching
// through subcommands.
func focusedValue(options []*discordgo.ApplicationCommandInteractionDataOption) string {
	for _, opt := range options {
		if opt.Focused {
			return fmt.Sprint(opt.Value)
		}
		if v := focusedValue(opt.Options); v != "" {
			return v
		}
	}
	return ""
}

func respondChoices(r bot.Responder, choices []*discordgo.ApplicationCommandOptionChoice) error {
	if choices == nil {
		choices = []*discordgo.ApplicationCommandOptionChoice{}
	}
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
}
