package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// LavalinkBackendName identifies the remote node backend.
const LavalinkBackendName = "lavalink"

// errTrackStuck is reported when the node stops producing audio for a track.
var errTrackStuck = errors.New("track got stuck")

// pendingVoiceConnection tracks the state of a pending voice connection.
type pendingVoiceConnection struct {
	mu             sync.Mutex
	hasVoiceState  bool
	hasVoiceServer bool
	ready          chan struct{}
}

// onEvent marks an event as received and signals ready if both events are present.
func (p *pendingVoiceConnection) onEvent(isVoiceState bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if isVoiceState {
		p.hasVoiceState = true
	} else {
		p.hasVoiceServer = true
	}

	if p.hasVoiceState && p.hasVoiceServer {
		select {
		case <-p.ready:
			// Already closed
		default:
			close(p.ready)
		}
	}
}

// voiceEventBuffer buffers voice events to ensure both VoiceStateUpdate and
// VoiceServerUpdate are received before forwarding to Lavalink.
// This prevents "Partial Lavalink voice state" errors when events arrive out of order.
type voiceEventBuffer struct {
	mu sync.Mutex

	// From VoiceStateUpdate
	hasVoiceState bool
	channelID     *snowflake.ID
	sessionID     string

	// From VoiceServerUpdate
	hasVoiceServer bool
	token          string
	endpoint       string
}

// setVoiceState stores voice state data and returns true if both events are now ready.
func (b *voiceEventBuffer) setVoiceState(channelID *snowflake.ID, sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceState = true
	b.channelID = channelID
	b.sessionID = sessionID

	return b.hasVoiceState && b.hasVoiceServer
}

// setVoiceServer stores voice server data and returns true if both events are now ready.
func (b *voiceEventBuffer) setVoiceServer(token, endpoint string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceServer = true
	b.token = token
	b.endpoint = endpoint

	return b.hasVoiceState && b.hasVoiceServer
}

// getData returns the buffered data and resets the buffer.
func (b *voiceEventBuffer) getData() (channelID *snowflake.ID, sessionID, token, endpoint string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	channelID = b.channelID
	sessionID = b.sessionID
	token = b.token
	endpoint = b.endpoint

	b.hasVoiceState = false
	b.hasVoiceServer = false
	b.channelID = nil
	b.sessionID = ""
	b.token = ""
	b.endpoint = ""

	return
}

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	Address  string
	Password string
	Secure   bool
}

// LavalinkBackend plays audio on a remote Lavalink node through DisGoLink.
// It implements ports.SinkFactory and routes node events to per-guild sinks.
type LavalinkBackend struct {
	link     disgolink.Client
	session  *discordgo.Session
	botID    snowflake.ID
	provider *LavalinkProvider

	pendingMu sync.Mutex
	pending   map[snowflake.ID]*pendingVoiceConnection

	// voiceBuffers holds buffered voice events per guild to handle out-of-order events
	voiceBufferMu sync.Mutex
	voiceBuffers  map[snowflake.ID]*voiceEventBuffer

	sinksMu sync.Mutex
	sinks   map[snowflake.ID]*lavalinkSink
}

// NewLavalinkBackend creates a DisGoLink client and registers the configured node.
// A node that cannot be reached leaves the backend unavailable rather than failing.
func NewLavalinkBackend(
	ctx context.Context,
	session *discordgo.Session,
	config LavalinkConfig,
) (*LavalinkBackend, error) {
	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bot ID: %w", err)
	}

	backend := &LavalinkBackend{
		session:      session,
		botID:        botID,
		pending:      make(map[snowflake.ID]*pendingVoiceConnection),
		voiceBuffers: make(map[snowflake.ID]*voiceEventBuffer),
		sinks:        make(map[snowflake.ID]*lavalinkSink),
	}

	backend.link = disgolink.New(botID,
		disgolink.WithListenerFunc(backend.onTrackStart),
		disgolink.WithListenerFunc(backend.onTrackEnd),
		disgolink.WithListenerFunc(backend.onTrackException),
		disgolink.WithListenerFunc(backend.onTrackStuck),
	)
	backend.provider = NewLavalinkProvider(backend.link)

	node, err := backend.link.AddNode(ctx, disgolink.NodeConfig{
		Name:     "main",
		Address:  config.Address,
		Password: config.Password,
		Secure:   config.Secure,
	})
	if err != nil {
		slog.Warn("failed to connect to Lavalink, remote playback unavailable",
			"address", config.Address,
			"error", err,
		)
		return backend, nil
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)

	return backend, nil
}

// Name returns the backend name.
func (b *LavalinkBackend) Name() string {
	return LavalinkBackendName
}

// Available reports whether a connected node can take players.
func (b *LavalinkBackend) Available() bool {
	return b.link.BestNode() != nil
}

// Provider returns the Lavalink track provider.
func (b *LavalinkBackend) Provider() ports.TrackProvider {
	return b.provider
}

// Open joins the voice channel and waits until both voice events were forwarded
// to the node, or until ctx expires.
func (b *LavalinkBackend) Open(
	ctx context.Context,
	guildID, channelID snowflake.ID,
) (ports.AudioSink, error) {
	pending := &pendingVoiceConnection{
		ready: make(chan struct{}),
	}

	b.pendingMu.Lock()
	b.pending[guildID] = pending
	b.pendingMu.Unlock()

	defer func() {
		b.pendingMu.Lock()
		delete(b.pending, guildID)
		b.pendingMu.Unlock()
	}()

	err := b.session.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, true)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}

	select {
	case <-pending.ready:
	case <-ctx.Done():
		b.leaveChannel(guildID)
		return nil, fmt.Errorf("timed out waiting for voice connection: %w", ctx.Err())
	}

	sink := &lavalinkSink{
		backend: b,
		guildID: guildID,
		events:  newSinkEvents(),
	}

	b.sinksMu.Lock()
	if old := b.sinks[guildID]; old != nil {
		old.events.close()
	}
	b.sinks[guildID] = sink
	b.sinksMu.Unlock()

	return sink, nil
}

// Close disconnects from every node.
func (b *LavalinkBackend) Close() {
	b.link.Close()
}

func (b *LavalinkBackend) leaveChannel(guildID snowflake.ID) {
	if err := b.session.ChannelVoiceJoinManual(guildID.String(), "", false, false); err != nil {
		slog.Warn("failed to leave voice channel", "guild", guildID, "error", err)
	}
}

func (b *LavalinkBackend) sink(guildID snowflake.ID) *lavalinkSink {
	b.sinksMu.Lock()
	defer b.sinksMu.Unlock()
	return b.sinks[guildID]
}

func (b *LavalinkBackend) removeSink(s *lavalinkSink) {
	b.sinksMu.Lock()
	defer b.sinksMu.Unlock()
	if b.sinks[s.guildID] == s {
		delete(b.sinks, s.guildID)
	}
}

// OnVoiceServerUpdate handles Discord voice server updates.
// This must be called from the Discord event handler.
func (b *LavalinkBackend) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	buffer := b.getOrCreateVoiceBuffer(guildID)
	if buffer.setVoiceServer(event.Token, event.Endpoint) {
		b.forwardBufferedVoiceEvents(guildID, buffer)
	}

	b.signalPending(guildID, false)
}

// OnVoiceStateUpdate handles Discord voice state updates.
// This must be called from the Discord event handler.
func (b *LavalinkBackend) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	// Only handle updates for the bot itself
	if event.UserID != b.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	var channelID *snowflake.ID
	if event.ChannelID != "" {
		id, err := snowflake.Parse(event.ChannelID)
		if err != nil {
			slog.Error("failed to parse channel ID in voice state update", "error", err)
			return
		}
		channelID = &id
	}

	// Handle disconnect immediately (no need to wait for VoiceServerUpdate)
	if channelID == nil {
		b.link.OnVoiceStateUpdate(context.Background(), guildID, nil, event.SessionID)
		b.clearVoiceBuffer(guildID)
		return
	}

	buffer := b.getOrCreateVoiceBuffer(guildID)
	if buffer.setVoiceState(channelID, event.SessionID) {
		b.forwardBufferedVoiceEvents(guildID, buffer)
	}

	b.signalPending(guildID, true)
}

func (b *LavalinkBackend) signalPending(guildID snowflake.ID, isVoiceState bool) {
	b.pendingMu.Lock()
	pending := b.pending[guildID]
	b.pendingMu.Unlock()

	if pending != nil {
		pending.onEvent(isVoiceState)
	}
}

// getOrCreateVoiceBuffer returns the voice buffer for a guild, creating one if needed.
func (b *LavalinkBackend) getOrCreateVoiceBuffer(guildID snowflake.ID) *voiceEventBuffer {
	b.voiceBufferMu.Lock()
	defer b.voiceBufferMu.Unlock()

	buffer, exists := b.voiceBuffers[guildID]
	if !exists {
		buffer = &voiceEventBuffer{}
		b.voiceBuffers[guildID] = buffer
	}
	return buffer
}

// clearVoiceBuffer removes the voice buffer for a guild.
func (b *LavalinkBackend) clearVoiceBuffer(guildID snowflake.ID) {
	b.voiceBufferMu.Lock()
	defer b.voiceBufferMu.Unlock()
	delete(b.voiceBuffers, guildID)
}

// forwardBufferedVoiceEvents sends the buffered voice events to Lavalink.
func (b *LavalinkBackend) forwardBufferedVoiceEvents(
	guildID snowflake.ID,
	buffer *voiceEventBuffer,
) {
	channelID, sessionID, token, endpoint := buffer.getData()

	slog.Debug("forwarding buffered voice events to Lavalink",
		"guild", guildID,
		"channel", channelID,
		"hasSessionID", sessionID != "",
	)

	b.link.OnVoiceStateUpdate(context.Background(), guildID, channelID, sessionID)
	b.link.OnVoiceServerUpdate(context.Background(), guildID, token, endpoint)
}

func (b *LavalinkBackend) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)

	if sink := b.sink(player.GuildID()); sink != nil {
		sink.onStart(event.Track.Encoded)
	}
}

func (b *LavalinkBackend) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	slog.Debug("track ended", "guild", player.GuildID(), "reason", event.Reason)

	if sink := b.sink(player.GuildID()); sink != nil {
		sink.onEnd(convertEndReason(event.Reason))
	}
}

func (b *LavalinkBackend) onTrackException(
	player disgolink.Player,
	event lavalink.TrackExceptionEvent,
) {
	slog.Warn("track exception", "guild", player.GuildID(), "error", event.Exception.Message)

	if sink := b.sink(player.GuildID()); sink != nil {
		sink.onException(errors.New(event.Exception.Message))
	}
}

func (b *LavalinkBackend) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	slog.Warn("track stuck", "guild", player.GuildID(), "threshold", event.Threshold)

	if sink := b.sink(player.GuildID()); sink != nil {
		sink.onStuck()
	}
}

func convertEndReason(reason lavalink.TrackEndReason) domain.TrackEndReason {
	switch reason {
	case lavalink.TrackEndReasonFinished:
		return domain.TrackEndFinished
	case lavalink.TrackEndReasonLoadFailed:
		return domain.TrackEndLoadFailed
	case lavalink.TrackEndReasonStopped:
		return domain.TrackEndStopped
	case lavalink.TrackEndReasonReplaced:
		return domain.TrackEndReplaced
	case lavalink.TrackEndReasonCleanup:
		return domain.TrackEndCleanup
	default:
		return domain.TrackEndStopped
	}
}

// lavalinkSink is the AudioSink for one guild on the Lavalink node.
type lavalinkSink struct {
	backend *LavalinkBackend
	guildID snowflake.ID
	events  *sinkEvents

	mu sync.Mutex
	// playing is the track last handed to the node; replaced is the one it displaced.
	playing  *domain.Track
	replaced *domain.Track
	failure  error
	closed   bool
}

func (s *lavalinkSink) player() disgolink.Player {
	return s.backend.link.Player(s.guildID)
}

func (s *lavalinkSink) Play(ctx context.Context, track *domain.Track) error {
	encoded, err := s.backend.provider.Encode(ctx, track)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("sink closed")
	}
	s.replaced = s.playing
	s.playing = track
	s.failure = nil
	s.mu.Unlock()

	// Use WithEncodedTrack to avoid userData:null issue
	if err := s.player().Update(ctx, lavalink.WithEncodedTrack(encoded)); err != nil {
		s.mu.Lock()
		s.playing = s.replaced
		s.replaced = nil
		s.mu.Unlock()
		return fmt.Errorf("failed to play track: %w", err)
	}

	return nil
}

func (s *lavalinkSink) Pause(ctx context.Context) error {
	if err := s.player().Update(ctx, lavalink.WithPaused(true)); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}
	return nil
}

func (s *lavalinkSink) Resume(ctx context.Context) error {
	if err := s.player().Update(ctx, lavalink.WithPaused(false)); err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}
	return nil
}

func (s *lavalinkSink) Stop(ctx context.Context) error {
	if err := s.player().Update(ctx, lavalink.WithNullTrack()); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	return nil
}

func (s *lavalinkSink) Seek(ctx context.Context, position time.Duration) (bool, error) {
	if err := s.player().Update(
		ctx,
		lavalink.WithPosition(lavalink.Duration(position.Milliseconds())),
	); err != nil {
		return false, fmt.Errorf("failed to seek: %w", err)
	}
	return true, nil
}

func (s *lavalinkSink) SetVolume(ctx context.Context, volume int) error {
	if err := s.player().Update(ctx, lavalink.WithVolume(volume)); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}
	return nil
}

func (s *lavalinkSink) Events() <-chan ports.SinkEvent {
	return s.events.events()
}

func (s *lavalinkSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.backend.removeSink(s)
	s.events.close()

	var errs []error
	if player := s.backend.link.ExistingPlayer(s.guildID); player != nil {
		if err := player.Destroy(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to destroy player: %w", err))
		}
	}
	if err := s.backend.session.ChannelVoiceJoinManual(s.guildID.String(), "", false, false); err != nil {
		errs = append(errs, fmt.Errorf("failed to leave voice channel: %w", err))
	}
	return errors.Join(errs...)
}

func (s *lavalinkSink) onStart(encoded string) {
	s.mu.Lock()
	track := s.playing
	s.mu.Unlock()

	if track == nil || (track.Encoded != "" && track.Encoded != encoded) {
		return
	}
	s.events.emit(ports.SinkEvent{Type: ports.SinkStarted, Track: track})
}

func (s *lavalinkSink) onEnd(reason domain.TrackEndReason) {
	s.mu.Lock()
	var track *domain.Track
	if reason == domain.TrackEndReplaced {
		track = s.replaced
		s.replaced = nil
	} else {
		track = s.playing
		s.playing = nil
	}
	failure := s.failure
	s.failure = nil
	s.mu.Unlock()

	if track == nil {
		return
	}

	switch {
	case reason == domain.TrackEndLoadFailed:
		if failure == nil {
			failure = errors.New("track failed to load")
		}
		s.events.emit(ports.SinkEvent{Type: ports.SinkError, Track: track, Err: failure})
	case failure != nil && reason != domain.TrackEndReplaced:
		s.events.emit(ports.SinkEvent{Type: ports.SinkError, Track: track, Err: failure})
	default:
		s.events.emit(ports.SinkEvent{Type: ports.SinkIdle, Track: track, Reason: reason})
	}
}

func (s *lavalinkSink) onException(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = err
}

// onStuck records the failure and unloads the track; the resulting end event
// is reported as an error.
func (s *lavalinkSink) onStuck() {
	s.mu.Lock()
	s.failure = errTrackStuck
	s.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Stop(ctx); err != nil {
			slog.Warn("failed to stop stuck track", "guild", s.guildID, "error", err)
		}
	}()
}

// Ensure LavalinkBackend and lavalinkSink implement port interfaces.
var (
	_ ports.SinkFactory = (*LavalinkBackend)(nil)
	_ ports.AudioSink   = (*lavalinkSink)(nil)
)
