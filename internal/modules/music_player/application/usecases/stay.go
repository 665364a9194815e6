package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/playback"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// ToggleStayInput contains the input for the ToggleStay use case.
type ToggleStayInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// ToggleStayOutput contains the result of the ToggleStay use case.
type ToggleStayOutput struct {
	Enabled        bool
	VoiceChannelID snowflake.ID
}

// StayService manages 24/7 mode, in which the bot stays in its voice channel
// after every listener left and rejoins it after a restart.
type StayService struct {
	players PlayerRegistry
	store   ports.KeyValueStore
}

// NewStayService creates a new StayService.
func NewStayService(players PlayerRegistry, store ports.KeyValueStore) *StayService {
	return &StayService{
		players: players,
		store:   store,
	}
}

// Toggle enables 24/7 mode for the player's current channels, or disables it
// when it is already enabled.
func (s *StayService) Toggle(ctx context.Context, input ToggleStayInput) (*ToggleStayOutput, error) {
	player, err := connectedPlayer(s.players, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	key := domain.StayKey(input.GuildID)
	_, err = s.store.Get(ctx, key)
	switch {
	case err == nil:
		if err := s.store.Delete(ctx, key); err != nil {
			return nil, err
		}
		return &ToggleStayOutput{Enabled: false}, nil
	case !errors.Is(err, ports.ErrKeyNotFound):
		return nil, err
	}

	setting := domain.StaySetting{
		GuildID:               input.GuildID,
		VoiceChannelID:        player.VoiceChannelID(),
		NotificationChannelID: player.NotificationChannelID(),
	}
	if err := s.store.Set(ctx, key, setting.Encode()); err != nil {
		return nil, err
	}

	return &ToggleStayOutput{
		Enabled:        true,
		VoiceChannelID: setting.VoiceChannelID,
	}, nil
}

// Rejoin recreates the players of the given guilds that have 24/7 mode
// enabled. Guilds that already have a player are skipped. It returns the
// number of players created.
func (s *StayService) Rejoin(ctx context.Context, guildIDs []snowflake.ID) int {
	joined := 0
	for _, guildID := range guildIDs {
		if s.players.Get(guildID) != nil {
			continue
		}
		setting, err := s.setting(ctx, guildID)
		if errors.Is(err, ports.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			slog.Warn("failed to read 24/7 setting", "guild", guildID, "error", err)
			continue
		}

		if _, err := s.players.CreatePlayer(ctx, playback.SessionDescriptor{
			GuildID:               guildID,
			VoiceChannelID:        setting.VoiceChannelID,
			NotificationChannelID: setting.NotificationChannelID,
		}); err != nil {
			slog.Warn("failed to rejoin 24/7 voice channel",
				"guild", guildID,
				"channel", setting.VoiceChannelID,
				"error", err,
			)
			continue
		}

		slog.Info("rejoined 24/7 voice channel", "guild", guildID, "channel", setting.VoiceChannelID)
		joined++
	}
	return joined
}

func (s *StayService) setting(ctx context.Context, guildID snowflake.ID) (domain.StaySetting, error) {
	value, err := s.store.Get(ctx, domain.StayKey(guildID))
	if err != nil {
		return domain.StaySetting{}, err
	}
	setting, err := domain.ParseStaySetting(guildID, value)
	if err != nil {
		return domain.StaySetting{}, fmt.Errorf("failed to parse 24/7 setting: %w", err)
	}
	return setting, nil
}
