package infrastructure

import (
	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
)

// VoiceStateProvider reads voice membership from the discordgo state cache.
type VoiceStateProvider struct {
	session *discordgo.Session
}

// NewVoiceStateProvider creates a new VoiceStateProvider.
func NewVoiceStateProvider(session *discordgo.Session) *VoiceStateProvider {
	return &VoiceStateProvider{
		session: session,
	}
}

// GetUserVoiceChannel returns the voice channel ID that the user is currently in.
// Returns 0 if the user is not in a voice channel.
func (v *VoiceStateProvider) GetUserVoiceChannel(
	guildID, userID snowflake.ID,
) (snowflake.ID, error) {
	states, err := v.voiceStates(guildID)
	if err != nil {
		return 0, err
	}

	for _, vs := range states {
		if vs.UserID == userID.String() && vs.ChannelID != "" {
			channelID, err := snowflake.Parse(vs.ChannelID)
			if err != nil {
				return 0, err
			}
			return channelID, nil
		}
	}

	return 0, nil
}

// CountListeners returns how many non-bot users sit in the voice channel.
func (v *VoiceStateProvider) CountListeners(guildID, channelID snowflake.ID) (int, error) {
	states, err := v.voiceStates(guildID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, vs := range states {
		if vs.ChannelID != channelID.String() {
			continue
		}
		if v.isBot(guildID.String(), vs) {
			continue
		}
		count++
	}
	return count, nil
}

// voiceStates copies the guild's voice states while holding the state read
// lock. The gateway mutates the slice and its entries in place.
func (v *VoiceStateProvider) voiceStates(guildID snowflake.ID) ([]discordgo.VoiceState, error) {
	guild, err := v.session.State.Guild(guildID.String())
	if err != nil {
		return nil, err
	}

	v.session.State.RLock()
	defer v.session.State.RUnlock()

	states := make([]discordgo.VoiceState, 0, len(guild.VoiceStates))
	for _, vs := range guild.VoiceStates {
		if vs == nil {
			continue
		}
		snapshot := *vs
		if vs.Member != nil {
			member := *vs.Member
			if member.User != nil {
				user := *member.User
				member.User = &user
			}
			snapshot.Member = &member
		}
		states = append(states, snapshot)
	}
	return states, nil
}

// isBot reports whether the voice state belongs to a bot account.
// Unknown members are counted as humans.
func (v *VoiceStateProvider) isBot(guildID string, vs discordgo.VoiceState) bool {
	if vs.Member != nil && vs.Member.User != nil {
		return vs.Member.User.Bot
	}
	if user := v.session.State.User; user != nil && vs.UserID == user.ID {
		return true
	}
	member, err := v.session.State.Member(guildID, vs.UserID)
	if err != nil || member.User == nil {
		return false
	}
	return member.User.Bot
}

// Ensure VoiceStateProvider implements ports.VoiceStateProvider.
var _ ports.VoiceStateProvider = (*VoiceStateProvider)(nil)
