package domain

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Volume bounds.
const (
	MinVolume     = 0
	MaxVolume     = 150
	DefaultVolume = 100
)

// PlaybackStatus is the coarse state of a player.
type PlaybackStatus int

const (
	StatusIdle PlaybackStatus = iota
	StatusPlaying
	StatusPaused
)

// String returns a human-readable representation of the status.
func (s PlaybackStatus) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "idle"
	}
}

// ClampVolume restricts v to [MinVolume, MaxVolume].
func ClampVolume(v int) int {
	return min(max(v, MinVolume), MaxVolume)
}

// PlayerState represents the state of a music player for a guild.
// Status only moves to paused from playing; the advisory position counter
// restarts on every MarkPlaying.
type PlayerState struct {
	guildID               snowflake.ID
	voiceChannelID        snowflake.ID
	notificationChannelID snowflake.ID
	status                PlaybackStatus
	loopMode              LoopMode
	volume                int

	startedAt time.Time     // when the current track started (or resumed) counting
	offset    time.Duration // position accumulated before startedAt

	data map[string]any
}

// NewPlayerState creates a new idle PlayerState for the given guild and channels.
func NewPlayerState(guildID, voiceChannelID, notificationChannelID snowflake.ID) *PlayerState {
	return &PlayerState{
		guildID:               guildID,
		voiceChannelID:        voiceChannelID,
		notificationChannelID: notificationChannelID,
		status:                StatusIdle,
		loopMode:              LoopModeNone,
		volume:                DefaultVolume,
		data:                  make(map[string]any),
	}
}

// GetGuildID returns the guild ID.
func (p *PlayerState) GetGuildID() snowflake.ID {
	// guildID must not be modified after initialization
	return p.guildID
}

// GetVoiceChannelID returns the current voice channel ID.
func (p *PlayerState) GetVoiceChannelID() snowflake.ID {
	return p.voiceChannelID
}

// SetVoiceChannelID updates the voice channel ID.
func (p *PlayerState) SetVoiceChannelID(channelID snowflake.ID) {
	p.voiceChannelID = channelID
}

// GetNotificationChannelID returns the text channel used for notifications.
func (p *PlayerState) GetNotificationChannelID() snowflake.ID {
	return p.notificationChannelID
}

// SetNotificationChannelID updates the notification channel ID.
func (p *PlayerState) SetNotificationChannelID(channelID snowflake.ID) {
	p.notificationChannelID = channelID
}

// Status returns the playback status.
func (p *PlayerState) Status() PlaybackStatus {
	return p.status
}

// IsPlaying returns true while a track is loaded, paused or not.
func (p *PlayerState) IsPlaying() bool {
	return p.status != StatusIdle
}

// IsPaused returns true if playback is paused.
func (p *PlayerState) IsPaused() bool {
	return p.status == StatusPaused
}

// IsIdle returns true if nothing is playing.
func (p *PlayerState) IsIdle() bool {
	return p.status == StatusIdle
}

// MarkPlaying records that the sink started audio at now and resets the position.
func (p *PlayerState) MarkPlaying(now time.Time) {
	p.status = StatusPlaying
	p.startedAt = now
	p.offset = 0
}

// MarkIdle records that the sink went idle and clears position tracking.
func (p *PlayerState) MarkIdle() {
	p.status = StatusIdle
	p.startedAt = time.Time{}
	p.offset = 0
}

// SetPaused toggles the paused flag. Pausing is only valid while playing and
// resuming only while paused; invalid toggles are ignored and return false.
func (p *PlayerState) SetPaused(paused bool, now time.Time) bool {
	switch {
	case paused && p.status == StatusPlaying:
		p.offset += now.Sub(p.startedAt)
		p.status = StatusPaused
		return true
	case !paused && p.status == StatusPaused:
		p.startedAt = now
		p.status = StatusPlaying
		return true
	default:
		return false
	}
}

// Position returns the advisory playback position at now, in whole seconds.
func (p *PlayerState) Position(now time.Time) time.Duration {
	position := p.offset
	if p.status == StatusPlaying {
		position += now.Sub(p.startedAt)
	}
	return position.Truncate(time.Second)
}

// SetPosition overrides the advisory position counter.
func (p *PlayerState) SetPosition(position time.Duration, now time.Time) {
	p.offset = max(position, 0)
	p.startedAt = now
}

// Volume returns the current volume.
func (p *PlayerState) Volume() int {
	return p.volume
}

// SetVolume clamps and stores the volume, returning the stored value.
func (p *PlayerState) SetVolume(v int) int {
	p.volume = ClampVolume(v)
	return p.volume
}

// GetLoopMode returns the current loop mode.
func (p *PlayerState) GetLoopMode() LoopMode {
	return p.loopMode
}

// SetLoopMode sets the loop mode.
func (p *PlayerState) SetLoopMode(mode LoopMode) {
	p.loopMode = mode
}

// CycleLoopMode cycles through loop modes: None -> Track -> Queue -> None.
// Returns the new loop mode.
func (p *PlayerState) CycleLoopMode() LoopMode {
	p.loopMode = p.loopMode.Next()
	return p.loopMode
}

// Get returns a value from the side store.
func (p *PlayerState) Get(key string) (any, bool) {
	v, ok := p.data[key]
	return v, ok
}

// Set stores a value in the side store.
func (p *PlayerState) Set(key string, value any) {
	p.data[key] = value
}

// Delete removes a value from the side store.
func (p *PlayerState) Delete(key string) {
	delete(p.data, key)
}
