package usecases

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// NotificationChannelService follows the text channel a guild uses the bot
// from, so now playing and queue messages land where people are looking.
type NotificationChannelService struct {
	players PlayerRegistry
}

// NewNotificationChannelService creates a new NotificationChannelService.
func NewNotificationChannelService(players PlayerRegistry) *NotificationChannelService {
	return &NotificationChannelService{players: players}
}

// SetNotificationChannelInput contains the input for the Set use case.
type SetNotificationChannelInput struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
}

// Set points the player's notifications at input.ChannelID and reports
// whether the channel changed. A zero channel leaves the current one.
func (n *NotificationChannelService) Set(
	_ context.Context,
	input SetNotificationChannelInput,
) (bool, error) {
	player := n.players.Get(input.GuildID)
	if player == nil {
		return false, ErrNotConnected
	}
	if input.ChannelID == 0 || player.NotificationChannelID() == input.ChannelID {
		return false, nil
	}

	player.SetNotificationChannelID(input.ChannelID)
	return true, nil
}
