package usecases

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/playback"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
)

// JoinInput contains the input for the Join use case.
type JoinInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	NotificationChannelID snowflake.ID
	VoiceChannelID        snowflake.ID // Optional: specific channel to join (0 means use user's channel)
}

// JoinOutput contains the result of the Join use case.
type JoinOutput struct {
	VoiceChannelID snowflake.ID
	Backend        string
	AlreadyJoined  bool
}

// LeaveInput contains the input for the Leave use case.
type LeaveInput struct {
	GuildID snowflake.ID
}

// VoiceChannelService handles voice channel operations.
type VoiceChannelService struct {
	players    PlayerRegistry
	voiceState ports.VoiceStateProvider
}

// NewVoiceChannelService creates a new VoiceChannelService.
func NewVoiceChannelService(
	players PlayerRegistry,
	voiceState ports.VoiceStateProvider,
) *VoiceChannelService {
	return &VoiceChannelService{
		players:    players,
		voiceState: voiceState,
	}
}

// Join connects the bot to a voice channel and creates the guild's player.
// Joining the channel the bot is already in only updates the notification channel.
func (v *VoiceChannelService) Join(ctx context.Context, input JoinInput) (*JoinOutput, error) {
	player, alreadyJoined, err := v.ensurePlayer(ctx, input)
	if err != nil {
		return nil, err
	}

	return &JoinOutput{
		VoiceChannelID: player.VoiceChannelID(),
		Backend:        player.Backend(),
		AlreadyJoined:  alreadyJoined,
	}, nil
}

// ensurePlayer returns the guild's player, creating it in the requested (or
// the user's) voice channel when none exists.
func (v *VoiceChannelService) ensurePlayer(
	ctx context.Context,
	input JoinInput,
) (*playback.Player, bool, error) {
	voiceChannelID := input.VoiceChannelID
	if voiceChannelID == 0 {
		userChannel, err := v.voiceState.GetUserVoiceChannel(input.GuildID, input.UserID)
		if err != nil {
			return nil, false, err
		}
		if userChannel == 0 {
			return nil, false, ErrUserNotInVoice
		}
		voiceChannelID = userChannel
	}

	if existing := v.players.Get(input.GuildID); existing != nil {
		if existing.VoiceChannelID() != voiceChannelID {
			return nil, false, ErrInOtherChannel
		}
		existing.SetNotificationChannelID(input.NotificationChannelID)
		return existing, true, nil
	}

	player, err := v.players.CreatePlayer(ctx, playback.SessionDescriptor{
		GuildID:               input.GuildID,
		VoiceChannelID:        voiceChannelID,
		NotificationChannelID: input.NotificationChannelID,
	})
	if err != nil {
		return nil, false, err
	}
	return player, false, nil
}

// Leave destroys the guild's player and disconnects from voice.
func (v *VoiceChannelService) Leave(ctx context.Context, input LeaveInput) error {
	if !v.players.Destroy(ctx, input.GuildID) {
		return ErrNotConnected
	}
	return nil
}
