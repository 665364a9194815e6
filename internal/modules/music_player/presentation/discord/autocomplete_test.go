package discord

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/nerox/internal/bot"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/playback"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/usecases"
)

type fakeSuggestions struct {
	suggestions []ports.Suggestion
	err         error
}

func (f *fakeSuggestions) Suggest(context.Context, string, int) ([]ports.Suggestion, error) {
	return f.suggestions, f.err
}

func autocompleteInteraction(name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	i := commandInteraction(name, options...)
	i.Type = discordgo.InteractionApplicationCommandAutocomplete
	return i
}

func focused(opt *discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	opt.Focused = true
	return opt
}

func choiceNames(t *testing.T, r *bot.MockResponder) []string {
	t.Helper()
	if r.LastResponse == nil || r.LastResponse.Type != discordgo.InteractionApplicationCommandAutocompleteResult {
		t.Fatal("expected an autocomplete result")
	}
	names := make([]string, len(r.LastResponse.Data.Choices))
	for i, choice := range r.LastResponse.Data.Choices {
		names[i] = choice.Name
	}
	return names
}

func newTestAutocomplete(t *testing.T, suggestions ports.SuggestionProvider) (*AutocompleteHandler, *playback.Controller) {
	t.Helper()
	th := newTestHandlers(t)
	return NewAutocompleteHandler(usecases.NewAutocompleteService(th.controller, suggestions)), th.controller
}

func TestAutocompleteHandler_Play(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		suggestions *fakeSuggestions
		want        []string
	}{
		{
			name:  "suggestions",
			query: "lofi",
			suggestions: &fakeSuggestions{suggestions: []ports.Suggestion{
				{Title: "lofi hip hop radio", URL: "https://www.youtube.com/watch?v=jfKfPfyJRdk"},
			}},
			want: []string{"🔍 lofi", "🎵 lofi hip hop radio"},
		},
		{
			name:        "too short",
			query:       "l",
			suggestions: &fakeSuggestions{},
			want:        []string{},
		},
		{
			name:        "url",
			query:       "https://youtu.be/jfKfPfyJRdk",
			suggestions: &fakeSuggestions{},
			want:        []string{"https://youtu.be/jfKfPfyJRdk"},
		},
		{
			name:        "provider failure keeps the typed query",
			query:       "lofi",
			suggestions: &fakeSuggestions{err: errors.New("quota")},
			want:        []string{"🔍 lofi"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := newTestAutocomplete(t, tt.suggestions)

			r := &bot.MockResponder{}
			i := autocompleteInteraction("play", focused(stringOption("query", tt.query)))
			if err := handler.Handle(nil, i, r); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := choiceNames(t, r)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for idx := range tt.want {
				if got[idx] != tt.want[idx] {
					t.Errorf("choice %d: expected %q, got %q", idx, tt.want[idx], got[idx])
				}
			}
		})
	}
}

func TestAutocompleteHandler_QueuePosition(t *testing.T) {
	handler, controller := newTestAutocomplete(t, nil)

	r := &bot.MockResponder{}
	i := autocompleteInteraction("queue", subcommand("remove", focused(stringOption("position", ""))))
	if err := handler.Handle(nil, i, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := choiceNames(t, r); len(got) != 0 {
		t.Errorf("expected no choices without a player, got %v", got)
	}

	player, err := controller.CreatePlayer(context.Background(), playback.SessionDescriptor{
		GuildID:        1,
		VoiceChannelID: testVoiceID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := player.Enqueue(
		context.Background(),
		-1,
		testTrack("Current"),
		testTrack("Alpha"),
		testTrack("Beta"),
	); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r = &bot.MockResponder{}
	if err := handler.Handle(nil, i, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := choiceNames(t, r)
	if len(got) != 2 || got[0] != "1. Alpha" || got[1] != "2. Beta" {
		t.Errorf("expected upcoming tracks, got %v", got)
	}
	if value := r.LastResponse.Data.Choices[1].Value; value != 2 {
		t.Errorf("expected position value 2, got %v", value)
	}

	r = &bot.MockResponder{}
	filtered := autocompleteInteraction("queue", subcommand("skipto", focused(stringOption("position", "bet"))))
	if err := handler.Handle(nil, filtered, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := choiceNames(t, r); len(got) != 1 || got[0] != "2. Beta" {
		t.Errorf("expected filtered choices, got %v", got)
	}
}

func TestFocusedValue(t *testing.T) {
	options := []*discordgo.ApplicationCommandInteractionDataOption{
		subcommand("move",
			integerOption("to", 3),
			focused(stringOption("from", "12")),
		),
	}
	if got := focusedValue(options); got != "12" {
		t.Errorf("expected %q, got %q", "12", got)
	}

	var none []*discordgo.ApplicationCommandInteractionDataOption
	if got := focusedValue(none); got != "" {
		t.Errorf("expected empty value, got %q", got)
	}
}
