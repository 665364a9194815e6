package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

const (
	testGuildID        = snowflake.ID(1)
	testVoiceChannel   = snowflake.ID(100)
	testTextChannel    = snowflake.ID(200)
	testAnotherChannel = snowflake.ID(300)
)

var errStreamBroken = errors.New("stream broken")

// fakeSink records calls and lets tests control failures.
type fakeSink struct {
	mu sync.Mutex

	played   []*domain.Track
	playErr  map[*domain.Track]error
	pauses   int
	resumes  int
	stops    int
	seeks    []time.Duration
	canSeek  bool
	volumes  []int
	closes   int
	events   chan ports.SinkEvent
	isClosed bool
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		playErr: make(map[*domain.Track]error),
		events:  make(chan ports.SinkEvent, 16),
	}
}

func (s *fakeSink) Play(_ context.Context, track *domain.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played = append(s.played, track)
	return s.playErr[track]
}

func (s *fakeSink) Pause(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauses++
	return nil
}

func (s *fakeSink) Resume(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumes++
	return nil
}

func (s *fakeSink) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

func (s *fakeSink) Seek(_ context.Context, position time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeks = append(s.seeks, position)
	return s.canSeek, nil
}

func (s *fakeSink) SetVolume(_ context.Context, volume int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volumes = append(s.volumes, volume)
	return nil
}

func (s *fakeSink) Events() <-chan ports.SinkEvent {
	return s.events
}

func (s *fakeSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	if !s.isClosed {
		s.isClosed = true
		close(s.events)
	}
	return nil
}

func (s *fakeSink) playedTracks() []*domain.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.Track(nil), s.played...)
}

// fakeProvider returns a fixed result.
type fakeProvider struct {
	result  domain.SearchResult
	queries []string
}

func (p *fakeProvider) Search(
	_ context.Context,
	query *domain.SearchQuery,
	_ domain.Requester,
) domain.SearchResult {
	p.queries = append(p.queries, query.Query)
	return p.result
}

// fakeFactory hands out fakeSinks.
type fakeFactory struct {
	mu sync.Mutex

	name      string
	available bool
	openErr   error
	opens     int
	sinks     []*fakeSink
	canSeek   bool
	provider  *fakeProvider
}

func newFakeFactory(name string) *fakeFactory {
	return &fakeFactory{
		name:      name,
		available: true,
		provider:  &fakeProvider{result: domain.EmptySearchResult()},
	}
}

func (f *fakeFactory) Name() string { return f.name }

func (f *fakeFactory) Available() bool { return f.available }

func (f *fakeFactory) Open(context.Context, snowflake.ID, snowflake.ID) (ports.AudioSink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if f.openErr != nil {
		return nil, f.openErr
	}
	sink := newFakeSink()
	sink.canSeek = f.canSeek
	f.sinks = append(f.sinks, sink)
	return sink, nil
}

func (f *fakeFactory) Provider() ports.TrackProvider { return f.provider }

func (f *fakeFactory) lastSink() *fakeSink {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sinks) == 0 {
		return nil
	}
	return f.sinks[len(f.sinks)-1]
}

// recordingPublisher records every lifecycle event.
type recordingPublisher struct {
	mu sync.Mutex

	starts       []domain.PlayerStartEvent
	ends         []domain.PlayerEndEvent
	empties      []domain.PlayerEmptyEvent
	errs         []domain.PlayerErrorEvent
	destroys     []domain.PlayerDestroyEvent
	channelEmpty []domain.ChannelEmptyEvent
}

func (r *recordingPublisher) PublishPlayerStart(e domain.PlayerStartEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, e)
}

func (r *recordingPublisher) PublishPlayerEnd(e domain.PlayerEndEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ends = append(r.ends, e)
}

func (r *recordingPublisher) PublishPlayerEmpty(e domain.PlayerEmptyEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.empties = append(r.empties, e)
}

func (r *recordingPublisher) PublishPlayerError(e domain.PlayerErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, e)
}

func (r *recordingPublisher) PublishPlayerDestroy(e domain.PlayerDestroyEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroys = append(r.destroys, e)
}

func (r *recordingPublisher) PublishChannelEmpty(e domain.ChannelEmptyEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channelEmpty = append(r.channelEmpty, e)
}

// fakeVoiceState reports a fixed listener count.
type fakeVoiceState struct {
	listeners int
	err       error
}

func (v *fakeVoiceState) GetUserVoiceChannel(snowflake.ID, snowflake.ID) (snowflake.ID, error) {
	return 0, nil
}

func (v *fakeVoiceState) CountListeners(snowflake.ID, snowflake.ID) (int, error) {
	return v.listeners, v.err
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testSession() SessionDescriptor {
	return SessionDescriptor{
		GuildID:               testGuildID,
		VoiceChannelID:        testVoiceChannel,
		NotificationChannelID: testTextChannel,
	}
}

func testTrack(title string) *domain.Track {
	uri := "https://www.youtube.com/watch?v=" + title
	return domain.NewTrack(domain.TrackData{
		Title: &title,
		URI:   uri,
	}, domain.Requester{ID: 42, Name: "listener"})
}

// newConnectedPlayer returns a connected player together with its sink.
func newConnectedPlayer(t *testing.T) (*Player, *fakeSink, *recordingPublisher, *fakeClock) {
	t.Helper()

	factory := newFakeFactory("fake")
	publisher := &recordingPublisher{}
	clock := newFakeClock()

	player := NewPlayer(testSession(), factory, publisher, PlayerOptions{Clock: clock.Now})
	if err := player.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected connect error: %v", err)
	}
	t.Cleanup(func() { player.Destroy(context.Background()) })

	return player, factory.lastSink(), publisher, clock
}

func started(track *domain.Track) ports.SinkEvent {
	return ports.SinkEvent{Type: ports.SinkStarted, Track: track}
}

func idle(track *domain.Track, reason domain.TrackEndReason) ports.SinkEvent {
	return ports.SinkEvent{Type: ports.SinkIdle, Track: track, Reason: reason}
}

func failed(track *domain.Track, err error) ports.SinkEvent {
	return ports.SinkEvent{Type: ports.SinkError, Track: track, Err: err}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
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
