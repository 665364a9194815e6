package usecases

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/playback"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

const (
	testGuildID      = snowflake.ID(1)
	testUserID       = snowflake.ID(10)
	testVoiceChannel = snowflake.ID(100)
	testTextChannel  = snowflake.ID(200)
	testOtherChannel = snowflake.ID(300)
)

func mockTrack(id string) *domain.Track {
	title := "Track " + id
	author := "Artist"
	duration := int64(3 * time.Minute / time.Millisecond)
	return domain.NewTrack(domain.TrackData{
		Title:      &title,
		Author:     &author,
		URI:        "https://example.com/" + id,
		DurationMS: &duration,
	}, domain.Requester{ID: testUserID, Name: "listener"})
}

// mockSink records the calls the player makes.
type mockSink struct {
	mu      sync.Mutex
	played  []*domain.Track
	paused  int
	resumed int
	stopped int
	canSeek bool
	volume  int

	events chan ports.SinkEvent
	once   sync.Once
}

func (s *mockSink) Play(_ context.Context, track *domain.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played = append(s.played, track)
	return nil
}

func (s *mockSink) Pause(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused++
	return nil
}

func (s *mockSink) Resume(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumed++
	return nil
}

func (s *mockSink) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
	return nil
}

func (s *mockSink) Seek(context.Context, time.Duration) (bool, error) {
	return s.canSeek, nil
}

func (s *mockSink) SetVolume(_ context.Context, volume int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = volume
	return nil
}

func (s *mockSink) Events() <-chan ports.SinkEvent {
	return s.events
}

func (s *mockSink) Close(context.Context) error {
	s.once.Do(func() { close(s.events) })
	return nil
}

// emit hands a sink event to the player's event loop.
func (s *mockSink) emit(event ports.SinkEvent) {
	s.events <- event
}

// mockProvider returns a fixed search result.
type mockProvider struct {
	mu      sync.Mutex
	result  domain.SearchResult
	queries []*domain.SearchQuery
}

func (p *mockProvider) Search(_ context.Context, query *domain.SearchQuery, _ domain.Requester) domain.SearchResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, query)
	return p.result
}

// mockFactory opens mockSinks.
type mockFactory struct {
	mu       sync.Mutex
	provider *mockProvider
	openErr  error
	sinks    []*mockSink
}

func (f *mockFactory) Name() string { return "mock" }

func (f *mockFactory) Available() bool { return true }

func (f *mockFactory) Open(context.Context, snowflake.ID, snowflake.ID) (ports.AudioSink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	sink := &mockSink{events: make(chan ports.SinkEvent)}
	f.sinks = append(f.sinks, sink)
	return sink, nil
}

func (f *mockFactory) Provider() ports.TrackProvider { return f.provider }

func (f *mockFactory) lastSink() *mockSink {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sinks) == 0 {
		return nil
	}
	return f.sinks[len(f.sinks)-1]
}

// nopPublisher discards lifecycle events.
type nopPublisher struct{}

func (nopPublisher) PublishPlayerStart(domain.PlayerStartEvent) {}

func (nopPublisher) PublishPlayerEnd(domain.PlayerEndEvent) {}

func (nopPublisher) PublishPlayerEmpty(domain.PlayerEmptyEvent) {}

func (nopPublisher) PublishPlayerError(domain.PlayerErrorEvent) {}

func (nopPublisher) PublishPlayerDestroy(domain.PlayerDestroyEvent) {}

func (nopPublisher) PublishChannelEmpty(domain.ChannelEmptyEvent) {}

type mockVoiceStateProvider struct {
	channels map[snowflake.ID]snowflake.ID // userID -> channelID
	err      error
}

func (m *mockVoiceStateProvider) GetUserVoiceChannel(_, userID snowflake.ID) (snowflake.ID, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.channels[userID], nil
}

func (m *mockVoiceStateProvider) CountListeners(snowflake.ID, snowflake.ID) (int, error) {
	return 1, nil
}

// mockStore is a map-backed ports.KeyValueStore.
type mockStore struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
}

func newMockStore() *mockStore {
	return &mockStore{values: make(map[string]string)}
}

func (s *mockStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", s.getErr
	}
	v, ok := s.values[key]
	if !ok {
		return "", ports.ErrKeyNotFound
	}
	return v, nil
}

func (s *mockStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *mockStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *mockStore) Close() error { return nil }

var errStoreDown = errors.New("store down")

// testEnv bundles a controller backed by mocks.
type testEnv struct {
	controller *playback.Controller
	factory    *mockFactory
	provider   *mockProvider
	voiceState *mockVoiceStateProvider
	store      *mockStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	provider := &mockProvider{result: domain.EmptySearchResult()}
	factory := &mockFactory{provider: provider}
	voiceState := &mockVoiceStateProvider{
		channels: map[snowflake.ID]snowflake.ID{testUserID: testVoiceChannel},
	}

	controller := playback.NewController(
		[]ports.SinkFactory{factory},
		nopPublisher{},
		voiceState,
		playback.ControllerConfig{},
	)
	t.Cleanup(func() { controller.Shutdown(context.Background()) })

	return &testEnv{
		controller: controller,
		factory:    factory,
		provider:   provider,
		voiceState: voiceState,
		store:      newMockStore(),
	}
}

// connect creates the guild's player in the test voice channel.
func (e *testEnv) connect(t *testing.T) *playback.Player {
	t.Helper()

	player, err := e.controller.CreatePlayer(context.Background(), playback.SessionDescriptor{
		GuildID:               testGuildID,
		VoiceChannelID:        testVoiceChannel,
		NotificationChannelID: testTextChannel,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return player
}

// connectPlaying creates the guild's player and queues tracks; the first one plays.
func (e *testEnv) connectPlaying(t *testing.T, tracks ...*domain.Track) *playback.Player {
	t.Helper()

	player := e.connect(t)
	if _, _, err := player.Enqueue(context.Background(), -1, tracks...); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e.factory.lastSink().emit(ports.SinkEvent{Type: ports.SinkStarted, Track: tracks[0]})
	waitUntil(t, func() bool { return player.Status() == domain.StatusPlaying })
	return player
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
