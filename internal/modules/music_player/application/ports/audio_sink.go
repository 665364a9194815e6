package ports

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// SinkEventType enumerates the signals an audio sink raises.
type SinkEventType int

const (
	// SinkStarted means audio for the track is flowing.
	SinkStarted SinkEventType = iota
	// SinkIdle means the track stopped producing audio (finished, stopped or replaced).
	SinkIdle
	// SinkError means the track could not be opened or decoded. It ends the track.
	SinkError
)

// String returns a human-readable representation of the event type.
func (t SinkEventType) String() string {
	switch t {
	case SinkStarted:
		return "started"
	case SinkIdle:
		return "idle"
	case SinkError:
		return "error"
	default:
		return "unknown"
	}
}

// SinkEvent is a signal raised by an AudioSink.
// Every Play produces at most one SinkStarted and exactly one terminal
// SinkIdle or SinkError, unless the sink is closed first.
type SinkEvent struct {
	Type   SinkEventType
	Track  *domain.Track
	Reason domain.TrackEndReason // set for SinkIdle
	Err    error                 // set for SinkError
}

// AudioSink is a connected voice output for one guild.
type AudioSink interface {
	// Play starts opening the track. Start, end and failure are reported on Events.
	Play(ctx context.Context, track *domain.Track) error

	// Pause pauses the audio.
	Pause(ctx context.Context) error

	// Resume resumes paused audio.
	Resume(ctx context.Context) error

	// Stop ends the current track; a SinkIdle with TrackEndStopped follows.
	Stop(ctx context.Context) error

	// Seek repositions the audio. It returns false when the backend cannot
	// reposition the stream, in which case audio keeps playing where it was.
	Seek(ctx context.Context, position time.Duration) (bool, error)

	// SetVolume applies the volume (0-150) to the live audio.
	SetVolume(ctx context.Context, volume int) error

	// Events returns the channel sink events are delivered on, in order.
	// The channel is closed by Close.
	Events() <-chan SinkEvent

	// Close stops audio and releases the voice connection. Safe to call more than once.
	Close(ctx context.Context) error
}

// SinkFactory opens voice sinks for a playback backend.
type SinkFactory interface {
	// Name identifies the backend, e.g. "lavalink" or "direct".
	Name() string

	// Available reports whether the backend can currently accept players.
	Available() bool

	// Open joins the voice channel and returns a ready sink.
	Open(ctx context.Context, guildID, channelID snowflake.ID) (AudioSink, error)

	// Provider returns the track provider paired with this backend.
	Provider() TrackProvider
}
