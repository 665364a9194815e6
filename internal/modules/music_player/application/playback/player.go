package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// sinkCallTimeout bounds sink calls made while handling sink events.
const sinkCallTimeout = 10 * time.Second

// SessionDescriptor identifies the voice session a player is bound to.
type SessionDescriptor struct {
	GuildID               snowflake.ID
	VoiceChannelID        snowflake.ID
	NotificationChannelID snowflake.ID
}

// PlayerOptions tunes a new player. Zero values select defaults; a nil
// Volume keeps domain.DefaultVolume so that 0 stays a valid setting.
type PlayerOptions struct {
	HistoryLimit   int
	Volume         *int
	ConnectTimeout time.Duration
	Clock          func() time.Time
}

// QueueSnapshot is a point-in-time copy of a player's queue.
type QueueSnapshot struct {
	Current       *domain.Track
	Upcoming      []*domain.Track
	Previous      []*domain.Track
	TotalDuration time.Duration
}

// Player drives playback for one guild through a single audio sink.
// Sink events are consumed by one goroutine, so idle handling for a track
// always completes before the next track's events are processed.
type Player struct {
	mu sync.Mutex

	state *domain.PlayerState
	queue *domain.Queue

	factory   ports.SinkFactory
	sink      ports.AudioSink
	publisher ports.LifecyclePublisher

	connectTimeout time.Duration
	now            func() time.Time

	// skipRequested makes the next stopped-idle bypass track looping.
	skipRequested bool
	destroyed     bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	onDestroy func(*Player)
}

// NewPlayer creates an unconnected player for the session.
func NewPlayer(
	session SessionDescriptor,
	factory ports.SinkFactory,
	publisher ports.LifecyclePublisher,
	opts PlayerOptions,
) *Player {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	state := domain.NewPlayerState(
		session.GuildID,
		session.VoiceChannelID,
		session.NotificationChannelID,
	)
	if opts.Volume != nil {
		state.SetVolume(*opts.Volume)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Player{
		state:          state,
		queue:          domain.NewQueue(opts.HistoryLimit),
		factory:        factory,
		publisher:      publisher,
		connectTimeout: opts.ConnectTimeout,
		now:            opts.Clock,
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}
}

// GuildID returns the guild the player belongs to.
func (p *Player) GuildID() snowflake.ID {
	return p.state.GetGuildID()
}

// VoiceChannelID returns the voice channel the player is bound to.
func (p *Player) VoiceChannelID() snowflake.ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.GetVoiceChannelID()
}

// SetVoiceChannelID records that the bot now sits in another voice channel.
func (p *Player) SetVoiceChannelID(channelID snowflake.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.SetVoiceChannelID(channelID)
}

// NotificationChannelID returns the text channel used for notifications.
func (p *Player) NotificationChannelID() snowflake.ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.GetNotificationChannelID()
}

// SetNotificationChannelID updates the notification channel. Zero is ignored.
func (p *Player) SetNotificationChannelID(channelID snowflake.ID) {
	if channelID == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.SetNotificationChannelID(channelID)
}

// Backend returns the name of the backend serving this player.
func (p *Player) Backend() string {
	return p.factory.Name()
}

// Connect opens the voice sink. It fails with a *ConnectionError when the sink
// does not become ready within the connect timeout.
func (p *Player) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return ErrPlayerDestroyed
	}
	if p.sink != nil {
		return ErrAlreadyConnected
	}

	connectCtx, cancel := context.WithTimeout(ctx, p.connectTimeout)
	defer cancel()

	guildID := p.state.GetGuildID()
	channelID := p.state.GetVoiceChannelID()

	sink, err := p.factory.Open(connectCtx, guildID, channelID)
	if err != nil {
		return &ConnectionError{
			GuildID:   guildID,
			ChannelID: channelID,
			Backend:   p.factory.Name(),
			Err:       err,
		}
	}
	p.sink = sink

	if volume := p.state.Volume(); volume != domain.DefaultVolume {
		if err := sink.SetVolume(connectCtx, volume); err != nil {
			slog.Warn("failed to apply initial volume", "guild", guildID, "error", err)
		}
	}

	go p.run(sink.Events())

	slog.Info("player connected",
		"guild", guildID,
		"channel", channelID,
		"backend", p.factory.Name(),
	)

	return nil
}

// run consumes sink events until the sink closes its event channel.
func (p *Player) run(events <-chan ports.SinkEvent) {
	defer close(p.done)
	for event := range events {
		p.handleSinkEvent(event)
	}
}

// Play starts the current track, advancing into the pending tracks when
// nothing is loaded. It returns false without touching the sink when the
// queue is empty. The status becomes playing once the sink confirms audio.
func (p *Player) Play(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return false, ErrPlayerDestroyed
	}
	if p.sink == nil {
		return false, ErrNotConnected
	}

	return p.playLocked(ctx), nil
}

// playLocked hands the current track to the sink. Tracks the sink refuses
// synchronously are reported and skipped, each one exactly once.
func (p *Player) playLocked(ctx context.Context) bool {
	for {
		track := p.queue.Current()
		if track == nil {
			if p.queue.Len() == 0 {
				return false
			}
			track = p.queue.Next()
		}

		err := p.sink.Play(ctx, track)
		if err == nil {
			slog.Debug("handed track to sink",
				"guild", p.state.GetGuildID(),
				"track", track.Title,
			)
			return true
		}

		p.reportStreamError(track, err)
		p.state.MarkIdle()
		if p.queue.Next() == nil {
			p.publishEmpty(track)
			return false
		}
	}
}

// Pause pauses (true) or resumes (false) playback. Invalid toggles, such as
// pausing while idle, are ignored and return false.
func (p *Player) Pause(ctx context.Context, paused bool) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return false, ErrPlayerDestroyed
	}
	if p.sink == nil {
		return false, ErrNotConnected
	}

	status := p.state.Status()
	if paused && status != domain.StatusPlaying {
		return false, nil
	}
	if !paused && status != domain.StatusPaused {
		return false, nil
	}

	var err error
	if paused {
		err = p.sink.Pause(ctx)
	} else {
		err = p.sink.Resume(ctx)
	}
	if err != nil {
		return false, err
	}

	return p.state.SetPaused(paused, p.now()), nil
}

// Skip stops the current track. The queue advances through the usual idle
// handling, except that track looping does not replay the skipped track.
func (p *Player) Skip(ctx context.Context) (*domain.Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return nil, ErrPlayerDestroyed
	}
	if p.sink == nil {
		return nil, ErrNotConnected
	}

	current := p.queue.Current()
	if current == nil {
		return nil, ErrNotPlaying
	}

	p.skipRequested = true
	if err := p.sink.Stop(ctx); err != nil {
		p.skipRequested = false
		return nil, err
	}

	return current, nil
}

// Stop clears the queue and stops the sink. The player stays connected.
func (p *Player) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return ErrPlayerDestroyed
	}
	if p.sink == nil {
		return ErrNotConnected
	}

	wasLoaded := p.queue.Current() != nil
	p.queue.Clear()
	p.state.MarkIdle()

	if !wasLoaded {
		return nil
	}
	return p.sink.Stop(ctx)
}

// Enqueue appends tracks, or inserts them at position when position is
// non-negative, and starts playback when nothing is loaded. It returns the
// index of the first added track in the pending list and whether playback
// was started.
func (p *Player) Enqueue(ctx context.Context, position int, tracks ...*domain.Track) (int, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return 0, false, ErrPlayerDestroyed
	}
	if p.sink == nil {
		return 0, false, ErrNotConnected
	}

	index := p.queue.Len()
	if position >= 0 && position < index {
		p.queue.Insert(position, tracks...)
		index = position
	} else {
		p.queue.Add(tracks...)
	}

	if p.queue.Current() != nil {
		return index, false, nil
	}
	return index, p.playLocked(ctx), nil
}

// Back replays the most recently finished track. The current track, if any,
// returns to the head of the pending list.
func (p *Player) Back(ctx context.Context) (*domain.Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return nil, ErrPlayerDestroyed
	}
	if p.sink == nil {
		return nil, ErrNotConnected
	}

	track := p.queue.Back()
	if track == nil {
		return nil, ErrNoHistory
	}
	p.skipRequested = false
	p.playLocked(ctx)
	return track, nil
}

// SkipTo jumps to the pending track at index. Tracks in between are moved to
// the history.
func (p *Player) SkipTo(ctx context.Context, index int) (*domain.Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return nil, ErrPlayerDestroyed
	}
	if p.sink == nil {
		return nil, ErrNotConnected
	}

	track := p.queue.SkipTo(index)
	if track == nil {
		return nil, ErrInvalidIndex
	}
	p.skipRequested = false
	p.playLocked(ctx)
	return track, nil
}

// Seek moves playback to position. The advisory position is always updated;
// the returned bool reports whether the backend actually repositioned audio.
func (p *Player) Seek(ctx context.Context, position time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return false, ErrPlayerDestroyed
	}
	if p.sink == nil {
		return false, ErrNotConnected
	}

	current := p.queue.Current()
	if current == nil || p.state.IsIdle() {
		return false, ErrNotPlaying
	}

	position = max(position, 0)
	if current.Duration > 0 {
		position = min(position, current.Duration)
	}

	repositioned, err := p.sink.Seek(ctx, position)
	if err != nil {
		return false, err
	}

	p.state.SetPosition(position, p.now())

	return repositioned, nil
}

// SetVolume clamps v to the valid range, applies it to the live audio and
// returns the stored volume.
func (p *Player) SetVolume(ctx context.Context, v int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	volume := p.state.SetVolume(v)
	if p.sink != nil && !p.destroyed {
		if err := p.sink.SetVolume(ctx, volume); err != nil {
			slog.Warn("failed to apply volume",
				"guild", p.state.GetGuildID(),
				"volume", volume,
				"error", err,
			)
		}
	}
	return volume
}

// Volume returns the current volume.
func (p *Player) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Volume()
}

// SetLoopMode sets the loop mode.
func (p *Player) SetLoopMode(mode domain.LoopMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.SetLoopMode(mode)
}

// CycleLoopMode cycles None -> Track -> Queue -> None and returns the new mode.
func (p *Player) CycleLoopMode() domain.LoopMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.CycleLoopMode()
}

// LoopMode returns the current loop mode.
func (p *Player) LoopMode() domain.LoopMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.GetLoopMode()
}

// Status returns the playback status.
func (p *Player) Status() domain.PlaybackStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Status()
}

// Position returns the advisory playback position in whole seconds.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Position(p.now())
}

// Current returns the loaded track, or nil.
func (p *Player) Current() *domain.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Current()
}

// Queue returns a copy of the queue contents.
func (p *Player) Queue() QueueSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return QueueSnapshot{
		Current:       p.queue.Current(),
		Upcoming:      p.queue.Upcoming(),
		Previous:      p.queue.Previous(),
		TotalDuration: p.queue.TotalDuration(),
	}
}

// WithQueue runs fn with exclusive access to the queue.
func (p *Player) WithQueue(fn func(q *domain.Queue)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.queue)
}

// Data returns the player's in-memory side store.
func (p *Player) Data() SideStore {
	return SideStore{p: p}
}

// Search resolves a query with the provider paired with this player's backend.
func (p *Player) Search(
	ctx context.Context,
	query *domain.SearchQuery,
	requester domain.Requester,
) domain.SearchResult {
	return p.factory.Provider().Search(ctx, query, requester)
}

// IsDestroyed reports whether Destroy has been called.
func (p *Player) IsDestroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

// Destroy stops playback, clears the queue, releases the voice sink and
// removes the player from its controller. Only the first call has effect.
func (p *Player) Destroy(ctx context.Context) {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true

	var nowPlaying *domain.NowPlayingMessage
	if v, ok := p.state.Get(domain.DataKeyNowPlaying); ok {
		if msg, ok := v.(domain.NowPlayingMessage); ok {
			nowPlaying = &msg
		}
		p.state.Delete(domain.DataKeyNowPlaying)
	}

	p.queue.Clear()
	p.state.MarkIdle()
	p.cancel()

	sink := p.sink
	guildID := p.state.GetGuildID()
	notificationChannelID := p.state.GetNotificationChannelID()
	onDestroy := p.onDestroy
	p.mu.Unlock()

	if sink != nil {
		if err := sink.Close(ctx); err != nil {
			slog.Warn("failed to close audio sink", "guild", guildID, "error", err)
		}
		select {
		case <-p.done:
		case <-ctx.Done():
		}
	}

	if onDestroy != nil {
		onDestroy(p)
	}

	p.publisher.PublishPlayerDestroy(domain.PlayerDestroyEvent{
		GuildID:               guildID,
		NotificationChannelID: notificationChannelID,
		NowPlayingMessage:     nowPlaying,
	})

	slog.Info("player destroyed", "guild", guildID)
}

// handleSinkEvent applies one sink event to the player.
func (p *Player) handleSinkEvent(event ports.SinkEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return
	}

	switch event.Type {
	case ports.SinkStarted:
		p.handleStarted(event.Track)
	case ports.SinkIdle:
		p.handleIdle(event.Track, event.Reason)
	case ports.SinkError:
		p.handleError(event.Track, event.Err)
	}
}

func (p *Player) handleStarted(track *domain.Track) {
	if track == nil || track != p.queue.Current() {
		return
	}

	p.state.MarkPlaying(p.now())

	p.publisher.PublishPlayerStart(domain.PlayerStartEvent{
		GuildID:               p.state.GetGuildID(),
		Track:                 track,
		NotificationChannelID: p.state.GetNotificationChannelID(),
	})
}

// handleIdle advances the queue after a track stopped producing audio.
// Idle signals for tracks that are no longer current are ignored.
func (p *Player) handleIdle(track *domain.Track, reason domain.TrackEndReason) {
	if track != nil {
		p.publisher.PublishPlayerEnd(domain.PlayerEndEvent{
			GuildID:               p.state.GetGuildID(),
			Track:                 track,
			Reason:                reason,
			NotificationChannelID: p.state.GetNotificationChannelID(),
		})
	}

	current := p.queue.Current()
	if current == nil {
		p.state.MarkIdle()
		return
	}
	if track != current || !reason.ShouldAdvanceQueue() {
		return
	}

	p.state.MarkIdle()

	// A skip that raced a natural finish still counts as a skip.
	skipped := p.skipRequested
	p.skipRequested = false

	ctx, cancel := context.WithTimeout(p.ctx, sinkCallTimeout)
	defer cancel()

	switch p.state.GetLoopMode() {
	case domain.LoopModeTrack:
		if !skipped {
			p.playLocked(ctx)
			return
		}
	case domain.LoopModeQueue:
		p.queue.Add(current)
	}

	if p.queue.Next() == nil {
		p.publishEmpty(current)
		return
	}
	p.playLocked(ctx)
}

// handleError reports a broken track and moves on to the next one.
func (p *Player) handleError(track *domain.Track, err error) {
	if track == nil || track != p.queue.Current() {
		return
	}

	p.reportStreamError(track, err)
	p.state.MarkIdle()
	p.skipRequested = false

	if p.queue.Next() == nil {
		p.publishEmpty(track)
		return
	}

	ctx, cancel := context.WithTimeout(p.ctx, sinkCallTimeout)
	defer cancel()
	p.playLocked(ctx)
}

func (p *Player) reportStreamError(track *domain.Track, err error) {
	var openErr *StreamOpenError
	if !errors.As(err, &openErr) {
		openErr = &StreamOpenError{Track: track, Err: err}
	}

	slog.Warn("failed to play track",
		"guild", p.state.GetGuildID(),
		"track", track.Title,
		"error", err,
	)

	p.publisher.PublishPlayerError(domain.PlayerErrorEvent{
		GuildID:               p.state.GetGuildID(),
		Track:                 track,
		Err:                   openErr,
		NotificationChannelID: p.state.GetNotificationChannelID(),
	})
}

func (p *Player) publishEmpty(lastTrack *domain.Track) {
	p.publisher.PublishPlayerEmpty(domain.PlayerEmptyEvent{
		GuildID:               p.state.GetGuildID(),
		LastTrack:             lastTrack,
		NotificationChannelID: p.state.GetNotificationChannelID(),
	})
}

// SideStore is a player's in-memory key-value store for UI bookkeeping.
// It is not persisted.
type SideStore struct {
	p *Player
}

// Get returns the value stored under key.
func (s SideStore) Get(key string) (any, bool) {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	return s.p.state.Get(key)
}

// Set stores value under key.
func (s SideStore) Set(key string, value any) {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	s.p.state.Set(key, value)
}

// Delete removes key.
func (s SideStore) Delete(key string) {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	s.p.state.Delete(key)
}

// Bool returns the value under key as a bool, false when absent.
func (s SideStore) Bool(key string) bool {
	v, ok := s.Get(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
