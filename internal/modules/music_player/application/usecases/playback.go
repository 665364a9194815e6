package usecases

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// PauseInput contains the input for the Pause use case.
type PauseInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// ResumeInput contains the input for the Resume use case.
type ResumeInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SkipInput contains the input for the Skip use case.
type SkipInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SkipOutput contains the result of the Skip use case.
type SkipOutput struct {
	SkippedTrack *domain.Track
	NextTrack    *domain.Track // nil if queue is empty
}

// StopInput contains the input for the Stop use case.
type StopInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// BackInput contains the input for the Back use case.
type BackInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// BackOutput contains the result of the Back use case.
type BackOutput struct {
	Track *domain.Track
}

// SeekInput contains the input for the Seek use case.
type SeekInput struct {
	GuildID               snowflake.ID
	Position              time.Duration
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SeekOutput contains the result of the Seek use case.
type SeekOutput struct {
	Position     time.Duration
	Repositioned bool // false when the backend cannot seek
}

// SetVolumeInput contains the input for the SetVolume use case.
type SetVolumeInput struct {
	GuildID               snowflake.ID
	Volume                int
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SetVolumeOutput contains the result of the SetVolume use case.
type SetVolumeOutput struct {
	Volume int // after clamping
}

// SetLoopModeInput contains the input for the SetLoopMode use case.
type SetLoopModeInput struct {
	GuildID               snowflake.ID
	Mode                  string       // "none", "track", "queue"
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// CycleLoopModeInput contains the input for the CycleLoopMode use case.
type CycleLoopModeInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// CycleLoopModeOutput contains the result of the CycleLoopMode use case.
type CycleLoopModeOutput struct {
	NewMode string // "none", "track", "queue"
}

// ToggleAutoplayInput contains the input for the ToggleAutoplay use case.
type ToggleAutoplayInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// ToggleAutoplayOutput contains the result of the ToggleAutoplay use case.
type ToggleAutoplayOutput struct {
	Enabled bool
}

// NowPlayingInput contains the input for the NowPlaying use case.
type NowPlayingInput struct {
	GuildID snowflake.ID
}

// NowPlayingOutput describes what the guild's player is doing.
type NowPlayingOutput struct {
	Track    *domain.Track
	Position time.Duration
	Paused   bool
	LoopMode string
	Volume   int
	Autoplay bool
	Backend  string
}

// PlaybackService handles playback operations.
type PlaybackService struct {
	players PlayerRegistry
}

// NewPlaybackService creates a new PlaybackService.
func NewPlaybackService(players PlayerRegistry) *PlaybackService {
	return &PlaybackService{players: players}
}

// Pause pauses the current playback.
func (p *PlaybackService) Pause(ctx context.Context, input PauseInput) error {
	player, err := connectedPlayer(p.players, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}

	switch player.Status() {
	case domain.StatusIdle:
		return ErrNotPlaying
	case domain.StatusPaused:
		return ErrAlreadyPaused
	}

	changed, err := player.Pause(ctx, true)
	if err != nil {
		return err
	}
	if !changed {
		return ErrNotPlaying
	}
	return nil
}

// Resume resumes the paused playback.
func (p *PlaybackService) Resume(ctx context.Context, input ResumeInput) error {
	player, err := connectedPlayer(p.players, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}

	switch player.Status() {
	case domain.StatusIdle:
		return ErrNotPlaying
	case domain.StatusPlaying:
		return ErrNotPaused
	}

	changed, err := player.Pause(ctx, false)
	if err != nil {
		return err
	}
	if !changed {
		return ErrNotPaused
	}
	return nil
}

// Skip stops the current track; the player advances to the next one.
// Skip always moves forward, even in track loop mode.
func (p *PlaybackService) Skip(ctx context.Context, input SkipInput) (*SkipOutput, error) {
	player, err := connectedPlayer(p.players, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	snapshot := player.Queue()

	skipped, err := player.Skip(ctx)
	if err != nil {
		return nil, err
	}

	output := &SkipOutput{SkippedTrack: skipped}
	switch {
	case len(snapshot.Upcoming) > 0:
		output.NextTrack = snapshot.Upcoming[0]
	case player.LoopMode() == domain.LoopModeQueue:
		output.NextTrack = skipped
	}
	return output, nil
}

// Stop stops playback and clears the queue. The bot stays in the voice channel.
func (p *PlaybackService) Stop(ctx context.Context, input StopInput) error {
	player, err := connectedPlayer(p.players, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}

	if player.Current() == nil && len(player.Queue().Upcoming) == 0 {
		return ErrNotPlaying
	}
	return player.Stop(ctx)
}

// Back replays the previous track.
func (p *PlaybackService) Back(ctx context.Context, input BackInput) (*BackOutput, error) {
	player, err := connectedPlayer(p.players, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	track, err := player.Back(ctx)
	if err != nil {
		return nil, err
	}
	return &BackOutput{Track: track}, nil
}

// Seek moves playback of the current track to the given position.
func (p *PlaybackService) Seek(ctx context.Context, input SeekInput) (*SeekOutput, error) {
	player, err := connectedPlayer(p.players, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	repositioned, err := player.Seek(ctx, input.Position)
	if err != nil {
		return nil, err
	}

	return &SeekOutput{
		Position:     player.Position(),
		Repositioned: repositioned,
	}, nil
}

// SetVolume sets the playback volume, clamped to the supported range.
func (p *PlaybackService) SetVolume(ctx context.Context, input SetVolumeInput) (*SetVolumeOutput, error) {
	player, err := connectedPlayer(p.players, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	return &SetVolumeOutput{Volume: player.SetVolume(ctx, input.Volume)}, nil
}

// SetLoopMode sets the loop mode for the guild's player.
func (p *PlaybackService) SetLoopMode(ctx context.Context, input SetLoopModeInput) error {
	player, err := connectedPlayer(p.players, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}

	mode, ok := domain.ParseLoopMode(input.Mode)
	if !ok {
		return ErrInvalidLoopMode
	}
	player.SetLoopMode(mode)

	return nil
}

// CycleLoopMode cycles through loop modes: None -> Track -> Queue -> None.
func (p *PlaybackService) CycleLoopMode(
	ctx context.Context,
	input CycleLoopModeInput,
) (*CycleLoopModeOutput, error) {
	player, err := connectedPlayer(p.players, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	return &CycleLoopModeOutput{
		NewMode: player.CycleLoopMode().String(),
	}, nil
}

// ToggleAutoplay flips whether a drained queue is refilled with related tracks.
func (p *PlaybackService) ToggleAutoplay(
	ctx context.Context,
	input ToggleAutoplayInput,
) (*ToggleAutoplayOutput, error) {
	player, err := connectedPlayer(p.players, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	data := player.Data()
	enabled := !data.Bool(domain.DataKeyAutoplay)
	data.Set(domain.DataKeyAutoplay, enabled)

	return &ToggleAutoplayOutput{Enabled: enabled}, nil
}

// NowPlaying reports the current track and player settings.
func (p *PlaybackService) NowPlaying(ctx context.Context, input NowPlayingInput) (*NowPlayingOutput, error) {
	player := p.players.Get(input.GuildID)
	if player == nil {
		return nil, ErrNotConnected
	}

	track := player.Current()
	if track == nil {
		return nil, ErrNotPlaying
	}

	return &NowPlayingOutput{
		Track:    track,
		Position: player.Position(),
		Paused:   player.Status() == domain.StatusPaused,
		LoopMode: player.LoopMode().String(),
		Volume:   player.Volume(),
		Autoplay: player.Data().Bool(domain.DataKeyAutoplay),
		Backend:  player.Backend(),
	}, nil
}
