package music_player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"
	"github.com/sglre6355/nerox/internal/bot"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/events"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/playback"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/nerox/internal/modules/music_player/infrastructure"
	"github.com/sglre6355/nerox/internal/modules/music_player/presentation/discord"
)

func init() {
	bot.Register(&MusicPlayerModule{})
}

// Compile-time interface checks.
var _ bot.ConfigurableModule = (*MusicPlayerModule)(nil)

// MusicPlayerModule provides music playback commands.
type MusicPlayerModule struct {
	config          *Config
	commandHandlers *discord.CommandHandlers
	eventHandlers   *discord.EventHandlers

	eventBus   *infrastructure.ChannelEventBus
	lavalink   *infrastructure.LavalinkBackend
	controller *playback.Controller
	store      ports.KeyValueStore
	stay       *usecases.StayService

	// rejoinCancel stops the startup 24/7 rejoin sweep.
	rejoinCancel context.CancelFunc
	rejoinDone   chan struct{}
}

// Name returns the module name.
func (m *MusicPlayerModule) Name() string {
	return "music_player"
}

// Commands returns the slash commands for this module.
func (m *MusicPlayerModule) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *MusicPlayerModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"join":       m.commandHandlers.HandleJoin,
		"leave":      m.commandHandlers.HandleLeave,
		"play":       m.commandHandlers.HandlePlay,
		"stop":       m.commandHandlers.HandleStop,
		"pause":      m.commandHandlers.HandlePause,
		"resume":     m.commandHandlers.HandleResume,
		"skip":       m.commandHandlers.HandleSkip,
		"back":       m.commandHandlers.HandleBack,
		"seek":       m.commandHandlers.HandleSeek,
		"volume":     m.commandHandlers.HandleVolume,
		"nowplaying": m.commandHandlers.HandleNowPlaying,
		"autoplay":   m.commandHandlers.HandleAutoplay,
		"247":        m.commandHandlers.HandleStay,
		"queue":      m.commandHandlers.HandleQueue,
		"loop":       m.commandHandlers.HandleLoop,
		"like":       m.commandHandlers.HandleLike,
		"liked":      m.commandHandlers.HandleLiked,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *MusicPlayerModule) EventHandlers() []bot.EventHandler {
	if m.eventHandlers == nil {
		return nil
	}
	return m.eventHandlers.Handlers()
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *MusicPlayerModule) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init wires the playback engine to the Discord session.
func (m *MusicPlayerModule) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil || deps.Session.State == nil || deps.Session.State.User == nil {
		return errors.New("music_player requires an open Discord session")
	}
	if m.config == nil {
		if err := m.LoadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	ctx := context.Background()
	session := deps.Session

	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return fmt.Errorf("failed to parse bot ID: %w", err)
	}

	store, err := m.openStore(ctx)
	if err != nil {
		return err
	}
	m.store = store

	backends, err := m.buildBackends(ctx, session)
	if err != nil {
		return errors.Join(err, store.Close())
	}

	voiceState := infrastructure.NewVoiceStateProvider(session)
	m.eventBus = infrastructure.NewChannelEventBus(infrastructure.DefaultEventBufferSize)
	m.controller = playback.NewController(
		backends,
		m.eventBus,
		voiceState,
		playback.ControllerConfig{
			HistoryLimit:   m.config.HistoryLimit,
			DefaultVolume:  lo.ToPtr(m.config.DefaultVolume),
			ConnectTimeout: m.config.VoiceConnectTimeout,
		},
	)

	notifier := infrastructure.NewNotifier(session)
	events.NewNotificationEventHandler(notifier, m.controller).Register(m.eventBus)
	events.NewQueueEndEventHandler(notifier, m.controller).Register(m.eventBus)
	events.NewChannelEmptyEventHandler(notifier, m.controller, store).Register(m.eventBus)

	voiceChannel := usecases.NewVoiceChannelService(m.controller, voiceState)
	m.stay = usecases.NewStayService(m.controller, store)

	m.commandHandlers = discord.NewCommandHandlers(
		discord.Services{
			VoiceChannel:        voiceChannel,
			Playback:            usecases.NewPlaybackService(m.controller),
			Queue:               usecases.NewQueueService(m.controller),
			TrackLoader:         usecases.NewTrackLoaderService(m.controller, voiceChannel),
			NotificationChannel: usecases.NewNotificationChannelService(m.controller),
			Stay:                m.stay,
			Liked:               usecases.NewLikedTracksService(m.controller, voiceChannel, store),
		},
		infrastructure.NewMemberRequesterResolver(session),
	)

	autocomplete := discord.NewAutocompleteHandler(
		usecases.NewAutocompleteService(m.controller, infrastructure.NewYouTubeSuggestionProvider()),
	)

	// A nil *LavalinkBackend must not become a non-nil interface.
	var forwarder discord.VoiceEventForwarder
	if m.lavalink != nil {
		forwarder = m.lavalink
	}
	m.eventHandlers = discord.NewEventHandlers(botID, m.controller, forwarder, m.stay, autocomplete)

	m.startRejoinSweep(session)

	slog.Info("initialized music_player module",
		"backends", len(backends),
		"lavalink", m.lavalink != nil,
		"store", m.config.StoreBackend,
	)

	return nil
}

func (m *MusicPlayerModule) openStore(ctx context.Context) (ports.KeyValueStore, error) {
	switch m.config.StoreBackend {
	case StoreSQLite:
		store, err := infrastructure.NewSQLiteStore(ctx, m.config.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil
	case StoreRedis:
		store, err := infrastructure.NewRedisStore(ctx, infrastructure.RedisConfig{
			Address:  m.config.RedisAddress,
			Password: m.config.RedisPassword,
			DB:       m.config.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis store: %w", err)
		}
		return store, nil
	default:
		return infrastructure.NewMemoryStore(), nil
	}
}

// buildBackends returns the sink factories in order of preference.
func (m *MusicPlayerModule) buildBackends(
	ctx context.Context,
	session *discordgo.Session,
) ([]ports.SinkFactory, error) {
	var backends []ports.SinkFactory

	if m.config.LavalinkEnabled() {
		lavalink, err := infrastructure.NewLavalinkBackend(ctx, session, infrastructure.LavalinkConfig{
			Address:  m.config.LavalinkAddress,
			Password: m.config.LavalinkPassword,
			Secure:   m.config.LavalinkSecure,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create lavalink backend: %w", err)
		}
		m.lavalink = lavalink
		backends = append(backends, m.limitSearches(lavalink))
	}

	ytdlpConfig := infrastructure.YtdlpConfig{Proxy: m.config.YtdlpProxy}
	direct := infrastructure.NewDirectBackend(
		session,
		infrastructure.NewYtdlpStreamOpener(ytdlpConfig),
		infrastructure.NewYtdlpProvider(ytdlpConfig),
		infrastructure.DirectConfig{FFmpegPath: m.config.FFmpegPath},
	)
	backends = append(backends, m.limitSearches(direct))

	return backends, nil
}

func (m *MusicPlayerModule) limitSearches(factory ports.SinkFactory) ports.SinkFactory {
	return infrastructure.WithSearchLimit(factory, m.config.SearchRateLimit, m.config.SearchBurst)
}

// startRejoinSweep rejoins 24/7 channels of guilds already known from READY,
// covering guild creates that arrived before the handlers were registered.
func (m *MusicPlayerModule) startRejoinSweep(session *discordgo.Session) {
	session.State.RLock()
	guildIDs := make([]snowflake.ID, 0, len(session.State.Guilds))
	for _, guild := range session.State.Guilds {
		id, err := snowflake.Parse(guild.ID)
		if err != nil {
			continue
		}
		guildIDs = append(guildIDs, id)
	}
	session.State.RUnlock()

	if len(guildIDs) == 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.rejoinCancel = cancel
	m.rejoinDone = make(chan struct{})

	go func() {
		defer close(m.rejoinDone)
		if joined := m.stay.Rejoin(ctx, guildIDs); joined > 0 {
			slog.Info("rejoined 24/7 voice channels", "count", joined)
		}
	}()
}

// Shutdown destroys every player and releases the module's connections.
func (m *MusicPlayerModule) Shutdown(ctx context.Context) error {
	if m.rejoinCancel != nil {
		m.rejoinCancel()
		select {
		case <-m.rejoinDone:
		case <-ctx.Done():
		}
	}

	if m.controller != nil {
		m.controller.Shutdown(ctx)
	}

	// Destroy events are still delivered while the bus drains.
	if m.eventBus != nil {
		m.eventBus.Close()
	}

	if m.lavalink != nil {
		m.lavalink.Close()
	}

	if m.store != nil {
		if err := m.store.Close(); err != nil {
			return fmt.Errorf("failed to close store: %w", err)
		}
	}

	return nil
}
