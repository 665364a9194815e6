package playback

import (
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// DefaultConnectTimeout bounds how long a player waits for its voice sink to become ready.
const DefaultConnectTimeout = 30 * time.Second

var (
	// ErrPlayerDestroyed is returned by operations on a destroyed player.
	ErrPlayerDestroyed = errors.New("player has been destroyed")

	// ErrAlreadyConnected is returned when Connect is called twice.
	ErrAlreadyConnected = errors.New("player is already connected")

	// ErrNotConnected is returned when an operation needs a voice sink that was never opened.
	ErrNotConnected = errors.New("player is not connected")

	// ErrNotPlaying is returned when an operation needs a loaded track.
	ErrNotPlaying = errors.New("nothing is currently playing")

	// ErrNoHistory is returned by Back when no track has finished yet.
	ErrNoHistory = errors.New("no previous track")

	// ErrInvalidIndex is returned when a queue index is out of range.
	ErrInvalidIndex = errors.New("queue index out of range")

	// ErrNoBackend is returned when no playback backend is available.
	ErrNoBackend = errors.New("no playback backend is available")
)

// ConnectionError is returned when the voice sink cannot be opened or does not
// become ready in time. The player is unusable afterwards.
type ConnectionError struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	Backend   string
	Err       error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf(
		"failed to connect to voice channel %s in guild %s (backend %s): %v",
		e.ChannelID, e.GuildID, e.Backend, e.Err,
	)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// StreamOpenError describes a track whose media stream could not be opened or decoded.
type StreamOpenError struct {
	Track *domain.Track
	Err   error
}

func (e *StreamOpenError) Error() string {
	title := "<nil>"
	if e.Track != nil {
		title = e.Track.Title
	}
	return fmt.Sprintf("failed to open stream for %q: %v", title, e.Err)
}

func (e *StreamOpenError) Unwrap() error {
	return e.Err
}
