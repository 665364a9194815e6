package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// ControllerConfig holds the settings applied to every player a controller creates.
type ControllerConfig struct {
	HistoryLimit   int
	DefaultVolume  *int // nil keeps domain.DefaultVolume
	ConnectTimeout time.Duration
	Clock          func() time.Time
}

// VoiceStateChange is a voice membership change observed in a guild.
type VoiceStateChange struct {
	GuildID   snowflake.ID
	UserID    snowflake.ID
	IsSelf    bool         // the change concerns the bot's own connection
	ChannelID snowflake.ID // 0 when the user left voice
	// PreviousChannelID is the channel the user was in before, 0 if unknown.
	PreviousChannelID snowflake.ID
}

// pendingCreate lets concurrent CreatePlayer calls for one guild share a single connect.
type pendingCreate struct {
	done   chan struct{}
	player *Player
	err    error
}

// Controller is the registry of players, one per guild.
type Controller struct {
	mu         sync.Mutex
	players    map[snowflake.ID]*Player
	connecting map[snowflake.ID]*pendingCreate

	backends   []ports.SinkFactory
	publisher  ports.LifecyclePublisher
	voiceState ports.VoiceStateProvider
	config     ControllerConfig
}

// NewController creates a controller. Backends are listed in order of
// preference; a player uses the first one that is available when it is created.
func NewController(
	backends []ports.SinkFactory,
	publisher ports.LifecyclePublisher,
	voiceState ports.VoiceStateProvider,
	config ControllerConfig,
) *Controller {
	return &Controller{
		players:    make(map[snowflake.ID]*Player),
		connecting: make(map[snowflake.ID]*pendingCreate),
		backends:   backends,
		publisher:  publisher,
		voiceState: voiceState,
		config:     config,
	}
}

// CreatePlayer returns the guild's player, creating and connecting one if
// none is registered. A player is registered only after it connected.
func (c *Controller) CreatePlayer(ctx context.Context, session SessionDescriptor) (*Player, error) {
	c.mu.Lock()
	if player, ok := c.players[session.GuildID]; ok {
		c.mu.Unlock()
		return player, nil
	}
	if pending, ok := c.connecting[session.GuildID]; ok {
		c.mu.Unlock()
		select {
		case <-pending.done:
			return pending.player, pending.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	pending := &pendingCreate{done: make(chan struct{})}
	c.connecting[session.GuildID] = pending
	c.mu.Unlock()

	player, err := c.connect(ctx, session)

	c.mu.Lock()
	delete(c.connecting, session.GuildID)
	if err == nil {
		c.players[session.GuildID] = player
	}
	c.mu.Unlock()

	pending.player, pending.err = player, err
	close(pending.done)

	if err != nil {
		return nil, err
	}
	return player, nil
}

func (c *Controller) connect(ctx context.Context, session SessionDescriptor) (*Player, error) {
	backend := c.selectBackend()
	if backend == nil {
		return nil, &ConnectionError{
			GuildID:   session.GuildID,
			ChannelID: session.VoiceChannelID,
			Backend:   "none",
			Err:       ErrNoBackend,
		}
	}

	player := NewPlayer(session, backend, c.publisher, PlayerOptions{
		HistoryLimit:   c.config.HistoryLimit,
		Volume:         c.config.DefaultVolume,
		ConnectTimeout: c.config.ConnectTimeout,
		Clock:          c.config.Clock,
	})
	player.onDestroy = c.remove

	if err := player.Connect(ctx); err != nil {
		slog.Warn("failed to create player",
			"guild", session.GuildID,
			"backend", backend.Name(),
			"error", err,
		)
		return nil, err
	}

	return player, nil
}

// selectBackend returns the first available backend, or nil.
func (c *Controller) selectBackend() ports.SinkFactory {
	for _, backend := range c.backends {
		if backend.Available() {
			return backend
		}
	}
	return nil
}

// remove unregisters p if it is still the guild's registered player.
func (c *Controller) remove(p *Player) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.players[p.GuildID()] == p {
		delete(c.players, p.GuildID())
	}
}

// Get returns the guild's player, or nil.
func (c *Controller) Get(guildID snowflake.ID) *Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.players[guildID]
}

// Players returns all registered players.
func (c *Controller) Players() []*Player {
	c.mu.Lock()
	defer c.mu.Unlock()

	players := make([]*Player, 0, len(c.players))
	for _, p := range c.players {
		players = append(players, p)
	}
	return players
}

// Destroy destroys the guild's player. It returns false if none is registered.
func (c *Controller) Destroy(ctx context.Context, guildID snowflake.ID) bool {
	c.mu.Lock()
	player, ok := c.players[guildID]
	if ok {
		delete(c.players, guildID)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	player.Destroy(ctx)
	return true
}

// Shutdown destroys every registered player.
func (c *Controller) Shutdown(ctx context.Context) {
	for _, player := range c.Players() {
		player.Destroy(ctx)
	}
}

// Backend returns the name of the backend new players would use, or "".
func (c *Controller) Backend() string {
	if backend := c.selectBackend(); backend != nil {
		return backend.Name()
	}
	return ""
}

// Search resolves a query without needing a player. It uses the provider of
// the backend a new player would get and yields an empty result when none is available.
func (c *Controller) Search(
	ctx context.Context,
	query *domain.SearchQuery,
	requester domain.Requester,
) domain.SearchResult {
	if query == nil || !query.IsValid() {
		return domain.EmptySearchResult()
	}

	backend := c.selectBackend()
	if backend == nil {
		return domain.EmptySearchResult()
	}
	return backend.Provider().Search(ctx, query, requester)
}

// HandleVoiceStateUpdate reacts to voice membership changes in guilds with a player.
// A forced disconnect of the bot destroys the player; the last human leaving
// the player's channel publishes a ChannelEmptyEvent.
func (c *Controller) HandleVoiceStateUpdate(ctx context.Context, change VoiceStateChange) {
	player := c.Get(change.GuildID)
	if player == nil {
		return
	}

	if change.IsSelf {
		if change.ChannelID == 0 {
			slog.Info("bot disconnected from voice, destroying player", "guild", change.GuildID)
			c.Destroy(ctx, change.GuildID)
			return
		}
		if change.ChannelID != player.VoiceChannelID() {
			slog.Info("bot moved to another voice channel",
				"guild", change.GuildID,
				"channel", change.ChannelID,
			)
			player.SetVoiceChannelID(change.ChannelID)
			c.checkChannelEmpty(player)
		}
		return
	}

	voiceChannelID := player.VoiceChannelID()
	if change.PreviousChannelID != 0 && change.PreviousChannelID != voiceChannelID {
		return
	}
	if change.ChannelID == voiceChannelID {
		return
	}
	c.checkChannelEmpty(player)
}

func (c *Controller) checkChannelEmpty(player *Player) {
	if c.voiceState == nil {
		return
	}

	voiceChannelID := player.VoiceChannelID()
	count, err := c.voiceState.CountListeners(player.GuildID(), voiceChannelID)
	if err != nil {
		slog.Warn("failed to count voice channel listeners",
			"guild", player.GuildID(),
			"channel", voiceChannelID,
			"error", err,
		)
		return
	}
	if count > 0 {
		return
	}

	c.publisher.PublishChannelEmpty(domain.ChannelEmptyEvent{
		GuildID:               player.GuildID(),
		VoiceChannelID:        voiceChannelID,
		NotificationChannelID: player.NotificationChannelID(),
	})
}
