package domain

import (
	"fmt"
	"strings"

	"github.com/disgoorg/snowflake/v2"
)

// StaySetting is a guild's persisted 24/7 configuration: the player is kept
// in VoiceChannelID even when every listener leaves.
type StaySetting struct {
	GuildID               snowflake.ID
	VoiceChannelID        snowflake.ID
	NotificationChannelID snowflake.ID
}

// StayKey returns the key-value store key of a guild's 24/7 setting.
func StayKey(guildID snowflake.ID) string {
	return "247:" + guildID.String()
}

// Encode returns the stored form "<voice>:<text>".
func (s StaySetting) Encode() string {
	return s.VoiceChannelID.String() + ":" + s.NotificationChannelID.String()
}

// ParseStaySetting decodes a value written by StaySetting.Encode.
func ParseStaySetting(guildID snowflake.ID, value string) (StaySetting, error) {
	voice, text, ok := strings.Cut(value, ":")
	if !ok {
		return StaySetting{}, fmt.Errorf("malformed 24/7 setting %q", value)
	}

	voiceID, err := snowflake.Parse(voice)
	if err != nil {
		return StaySetting{}, fmt.Errorf("malformed voice channel in 24/7 setting: %w", err)
	}
	textID, err := snowflake.Parse(text)
	if err != nil {
		return StaySetting{}, fmt.Errorf("malformed text channel in 24/7 setting: %w", err)
	}

	return StaySetting{
		GuildID:               guildID,
		VoiceChannelID:        voiceID,
		NotificationChannelID: textID,
	}, nil
}
