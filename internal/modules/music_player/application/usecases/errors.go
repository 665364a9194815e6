package usecases

import (
	"errors"

	"github.com/sglre6355/nerox/internal/modules/music_player/application/playback"
)

// Errors returned by the music player use cases.
var (
	// ErrNotConnected is returned when an operation requires the bot to be in a voice channel.
	ErrNotConnected = errors.New("not connected to a voice channel")

	// ErrUserNotInVoice is returned when the user is not in a voice channel.
	ErrUserNotInVoice = errors.New("you must be in a voice channel")

	// ErrInOtherChannel is returned when the bot already plays in another voice channel of the guild.
	ErrInOtherChannel = errors.New("already playing in another voice channel")

	// ErrNotPlaying is returned when no track is currently playing.
	ErrNotPlaying = playback.ErrNotPlaying

	// ErrAlreadyPaused is returned when trying to pause while already paused.
	ErrAlreadyPaused = errors.New("playback is already paused")

	// ErrNotPaused is returned when trying to resume while not paused.
	ErrNotPaused = errors.New("playback is not paused")

	// ErrNoResults is returned when a search yields no results.
	ErrNoResults = errors.New("no results found")

	// ErrQueueEmpty is returned when there are no upcoming tracks.
	ErrQueueEmpty = errors.New("the queue is empty")

	// ErrNothingToClear is returned when there are no upcoming tracks to clear.
	ErrNothingToClear = errors.New("nothing to clear")

	// ErrInvalidPosition is returned when an invalid queue position is specified.
	ErrInvalidPosition = errors.New("invalid queue position")

	// ErrNoHistory is returned when there is no previous track to go back to.
	ErrNoHistory = playback.ErrNoHistory

	// ErrInvalidLoopMode is returned for an unknown loop mode name.
	ErrInvalidLoopMode = errors.New("invalid loop mode")

	// ErrAlreadyLiked is returned when liking a track that is already liked.
	ErrAlreadyLiked = errors.New("track is already in your liked tracks")

	// ErrNoLikedTracks is returned when a user has not liked any track.
	ErrNoLikedTracks = errors.New("you have no liked tracks")
)
