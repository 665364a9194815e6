package domain

import (
	"github.com/disgoorg/snowflake/v2"
)

// TrackEndReason represents why a track ended.
type TrackEndReason string

const (
	// TrackEndFinished means the track finished normally.
	TrackEndFinished TrackEndReason = "finished"
	// TrackEndLoadFailed means the track failed to load.
	TrackEndLoadFailed TrackEndReason = "load_failed"
	// TrackEndStopped means the track was stopped by the user.
	TrackEndStopped TrackEndReason = "stopped"
	// TrackEndReplaced means the track was replaced by another.
	TrackEndReplaced TrackEndReason = "replaced"
	// TrackEndCleanup means the track was cleaned up.
	TrackEndCleanup TrackEndReason = "cleanup"
)

// ShouldAdvanceQueue returns true if this end reason should advance the queue.
// A replaced track is followed by the replacement's own start event, and a
// cleanup happens only when the player is going away.
func (r TrackEndReason) ShouldAdvanceQueue() bool {
	return r == TrackEndFinished || r == TrackEndLoadFailed || r == TrackEndStopped
}

// PlayerStartEvent is published when the sink confirms audio started for a track.
type PlayerStartEvent struct {
	GuildID               snowflake.ID
	Track                 *Track
	NotificationChannelID snowflake.ID
}

// PlayerEndEvent is published when a track stops producing audio.
type PlayerEndEvent struct {
	GuildID               snowflake.ID
	Track                 *Track
	Reason                TrackEndReason
	NotificationChannelID snowflake.ID
}

// PlayerEmptyEvent is published when the queue has drained and the player is idle.
type PlayerEmptyEvent struct {
	GuildID               snowflake.ID
	LastTrack             *Track // track that played last, nil if none
	NotificationChannelID snowflake.ID
}

// PlayerErrorEvent is published when a track could not be opened or decoded.
type PlayerErrorEvent struct {
	GuildID               snowflake.ID
	Track                 *Track
	Err                   error
	NotificationChannelID snowflake.ID
}

// PlayerDestroyEvent is published once when a player is destroyed.
type PlayerDestroyEvent struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID
	NowPlayingMessage     *NowPlayingMessage // message to clean up, if any
}

// ChannelEmptyEvent is published when every human member left the player's voice channel.
type ChannelEmptyEvent struct {
	GuildID               snowflake.ID
	VoiceChannelID        snowflake.ID
	NotificationChannelID snowflake.ID
}
