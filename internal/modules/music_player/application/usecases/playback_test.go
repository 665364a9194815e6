package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

func TestPlaybackService_NotConnected(t *testing.T) {
	env := newTestEnv(t)
	service := NewPlaybackService(env.controller)
	ctx := context.Background()

	calls := map[string]func() error{
		"pause":  func() error { return service.Pause(ctx, PauseInput{GuildID: testGuildID}) },
		"resume": func() error { return service.Resume(ctx, ResumeInput{GuildID: testGuildID}) },
		"stop":   func() error { return service.Stop(ctx, StopInput{GuildID: testGuildID}) },
		"skip": func() error {
			_, err := service.Skip(ctx, SkipInput{GuildID: testGuildID})
			return err
		},
		"loop": func() error {
			return service.SetLoopMode(ctx, SetLoopModeInput{GuildID: testGuildID, Mode: "track"})
		},
		"now playing": func() error {
			_, err := service.NowPlaying(ctx, NowPlayingInput{GuildID: testGuildID})
			return err
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			if err := call(); !errors.Is(err, ErrNotConnected) {
				t.Errorf("expected ErrNotConnected, got %v", err)
			}
		})
	}
}

func TestPlaybackService_PauseResume(t *testing.T) {
	env := newTestEnv(t)
	service := NewPlaybackService(env.controller)
	ctx := context.Background()

	env.connect(t)
	if err := service.Pause(ctx, PauseInput{GuildID: testGuildID}); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("expected ErrNotPlaying while idle, got %v", err)
	}

	player := env.connectPlaying(t, mockTrack("1"))
	sink := env.factory.lastSink()

	if err := service.Resume(ctx, ResumeInput{GuildID: testGuildID}); !errors.Is(err, ErrNotPaused) {
		t.Errorf("expected ErrNotPaused, got %v", err)
	}

	if err := service.Pause(ctx, PauseInput{GuildID: testGuildID, NotificationChannelID: testOtherChannel}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if player.Status() != domain.StatusPaused || sink.paused != 1 {
		t.Error("expected the player and sink to be paused")
	}
	if player.NotificationChannelID() != testOtherChannel {
		t.Error("expected the notification channel to follow the command")
	}

	if err := service.Pause(ctx, PauseInput{GuildID: testGuildID}); !errors.Is(err, ErrAlreadyPaused) {
		t.Errorf("expected ErrAlreadyPaused, got %v", err)
	}

	if err := service.Resume(ctx, ResumeInput{GuildID: testGuildID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if player.Status() != domain.StatusPlaying || sink.resumed != 1 {
		t.Error("expected the player and sink to be resumed")
	}
}

func TestPlaybackService_Skip(t *testing.T) {
	tests := []struct {
		name     string
		tracks   []string
		loopMode string
		wantNext string
	}{
		{name: "next upcoming track", tracks: []string{"1", "2"}, loopMode: "none", wantNext: "Track 2"},
		{name: "last track", tracks: []string{"1"}, loopMode: "none", wantNext: ""},
		{name: "last track with queue loop", tracks: []string{"1"}, loopMode: "queue", wantNext: "Track 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			service := NewPlaybackService(env.controller)

			tracks := make([]*domain.Track, len(tt.tracks))
			for i, id := range tt.tracks {
				tracks[i] = mockTrack(id)
			}
			env.connectPlaying(t, tracks...)
			if err := service.SetLoopMode(context.Background(), SetLoopModeInput{
				GuildID: testGuildID,
				Mode:    tt.loopMode,
			}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			output, err := service.Skip(context.Background(), SkipInput{GuildID: testGuildID})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if output.SkippedTrack != tracks[0] {
				t.Error("expected the current track to be skipped")
			}
			gotNext := ""
			if output.NextTrack != nil {
				gotNext = output.NextTrack.Title
			}
			if gotNext != tt.wantNext {
				t.Errorf("expected next %q, got %q", tt.wantNext, gotNext)
			}
			if env.factory.lastSink().stopped != 1 {
				t.Error("expected the sink to be stopped")
			}
		})
	}
}

func TestPlaybackService_Skip_NothingPlaying(t *testing.T) {
	env := newTestEnv(t)
	service := NewPlaybackService(env.controller)
	env.connect(t)

	if _, err := service.Skip(context.Background(), SkipInput{GuildID: testGuildID}); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("expected ErrNotPlaying, got %v", err)
	}
}

func TestPlaybackService_Stop(t *testing.T) {
	env := newTestEnv(t)
	service := NewPlaybackService(env.controller)
	ctx := context.Background()

	env.connect(t)
	if err := service.Stop(ctx, StopInput{GuildID: testGuildID}); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("expected ErrNotPlaying, got %v", err)
	}

	player := env.connectPlaying(t, mockTrack("1"), mockTrack("2"))
	if err := service.Stop(ctx, StopInput{GuildID: testGuildID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snapshot := player.Queue()
	if snapshot.Current != nil || len(snapshot.Upcoming) != 0 {
		t.Error("expected the queue to be cleared")
	}
	if env.controller.Get(testGuildID) == nil {
		t.Error("expected the player to stay connected")
	}
}

func TestPlaybackService_Back(t *testing.T) {
	env := newTestEnv(t)
	service := NewPlaybackService(env.controller)
	ctx := context.Background()

	t1, t2 := mockTrack("1"), mockTrack("2")
	player := env.connectPlaying(t, t1, t2)

	if _, err := service.Back(ctx, BackInput{GuildID: testGuildID}); !errors.Is(err, ErrNoHistory) {
		t.Errorf("expected ErrNoHistory, got %v", err)
	}

	if _, err := player.SkipTo(ctx, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output, err := service.Back(ctx, BackInput{GuildID: testGuildID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Track != t1 || player.Current() != t1 {
		t.Error("expected the previous track to be current again")
	}
}

func TestPlaybackService_Seek(t *testing.T) {
	env := newTestEnv(t)
	service := NewPlaybackService(env.controller)
	env.connectPlaying(t, mockTrack("1"))
	env.factory.lastSink().canSeek = true

	output, err := service.Seek(context.Background(), SeekInput{
		GuildID:  testGuildID,
		Position: 90 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !output.Repositioned {
		t.Error("expected the sink to reposition")
	}
	if output.Position < 90*time.Second || output.Position > 91*time.Second {
		t.Errorf("expected position near 1m30s, got %v", output.Position)
	}
}

func TestPlaybackService_SetVolume(t *testing.T) {
	tests := []struct {
		name  string
		input int
		want  int
	}{
		{name: "within range", input: 80, want: 80},
		{name: "above maximum", input: 500, want: domain.MaxVolume},
		{name: "below minimum", input: -5, want: domain.MinVolume},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			service := NewPlaybackService(env.controller)
			env.connect(t)

			output, err := service.SetVolume(context.Background(), SetVolumeInput{
				GuildID: testGuildID,
				Volume:  tt.input,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if output.Volume != tt.want {
				t.Errorf("expected volume %d, got %d", tt.want, output.Volume)
			}
			if got := env.factory.lastSink().volume; got != tt.want {
				t.Errorf("expected sink volume %d, got %d", tt.want, got)
			}
		})
	}
}

func TestPlaybackService_LoopMode(t *testing.T) {
	env := newTestEnv(t)
	service := NewPlaybackService(env.controller)
	ctx := context.Background()
	player := env.connect(t)

	if err := service.SetLoopMode(ctx, SetLoopModeInput{GuildID: testGuildID, Mode: "forever"}); !errors.Is(err, ErrInvalidLoopMode) {
		t.Errorf("expected ErrInvalidLoopMode, got %v", err)
	}

	if err := service.SetLoopMode(ctx, SetLoopModeInput{GuildID: testGuildID, Mode: "queue"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if player.LoopMode() != domain.LoopModeQueue {
		t.Errorf("expected queue loop, got %s", player.LoopMode())
	}

	output, err := service.CycleLoopMode(ctx, CycleLoopModeInput{GuildID: testGuildID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.NewMode != "none" {
		t.Errorf("expected queue to cycle to none, got %s", output.NewMode)
	}
}

func TestPlaybackService_ToggleAutoplay(t *testing.T) {
	env := newTestEnv(t)
	service := NewPlaybackService(env.controller)
	player := env.connect(t)

	for _, want := range []bool{true, false} {
		output, err := service.ToggleAutoplay(context.Background(), ToggleAutoplayInput{GuildID: testGuildID})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.Enabled != want {
			t.Errorf("expected enabled=%v, got %v", want, output.Enabled)
		}
		if player.Data().Bool(domain.DataKeyAutoplay) != want {
			t.Errorf("expected side store autoplay=%v", want)
		}
	}
}

func TestPlaybackService_NowPlaying(t *testing.T) {
	env := newTestEnv(t)
	service := NewPlaybackService(env.controller)

	env.connect(t)
	if _, err := service.NowPlaying(context.Background(), NowPlayingInput{GuildID: testGuildID}); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("expected ErrNotPlaying, got %v", err)
	}

	track := mockTrack("1")
	env.connectPlaying(t, track)

	output, err := service.NowPlaying(context.Background(), NowPlayingInput{GuildID: testGuildID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Track != track || output.Paused || output.LoopMode != "none" || output.Backend != "mock" {
		t.Errorf("unexpected output: %+v", output)
	}
	if output.Volume != domain.DefaultVolume {
		t.Errorf("expected default volume, got %d", output.Volume)
	}
}
