package infrastructure

import (
	"errors"
	"testing"
	"time"

	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

func lavalinkTrack(id, title string) lavalink.Track {
	uri := "https://www.youtube.com/watch?v=" + id
	return lavalink.Track{
		Encoded: "encoded-" + id,
		Info: lavalink.TrackInfo{
			Identifier: id,
			Title:      title,
			Author:     "Artist",
			Length:     180000,
			URI:        &uri,
			SourceName: "youtube",
		},
	}
}

// opaqueTrack is a non-YouTube track that Lavalink returned without a URI.
func opaqueTrack(title string) lavalink.Track {
	return lavalink.Track{
		Encoded: "encoded-" + title,
		Info: lavalink.TrackInfo{
			Identifier: "opaque-" + title,
			Title:      title,
			SourceName: "http",
		},
	}
}

func TestConvertLoadResult(t *testing.T) {
	requester := domain.Requester{ID: 42}

	tests := []struct {
		name         string
		result       *lavalink.LoadResult
		wantKind     domain.SearchKind
		wantTracks   int
		wantPlaylist string
	}{
		{
			name:       "single track",
			result:     &lavalink.LoadResult{Data: lavalinkTrack("dQw4w9WgXcQ", "Song")},
			wantKind:   domain.SearchKindSingle,
			wantTracks: 1,
		},
		{
			name: "search results",
			result: &lavalink.LoadResult{Data: lavalink.Search{
				lavalinkTrack("aaaaaaaaaaa", "A"),
				lavalinkTrack("bbbbbbbbbbb", "B"),
			}},
			wantKind:   domain.SearchKindSingle,
			wantTracks: 2,
		},
		{
			name: "playlist",
			result: &lavalink.LoadResult{Data: lavalink.Playlist{
				Info:   lavalink.PlaylistInfo{Name: "Mix"},
				Tracks: []lavalink.Track{lavalinkTrack("aaaaaaaaaaa", "A")},
			}},
			wantKind:     domain.SearchKindPlaylist,
			wantTracks:   1,
			wantPlaylist: "Mix",
		},
		{
			name: "search drops tracks without uri",
			result: &lavalink.LoadResult{Data: lavalink.Search{
				lavalinkTrack("aaaaaaaaaaa", "A"),
				opaqueTrack("B"),
			}},
			wantKind:   domain.SearchKindSingle,
			wantTracks: 1,
		},
		{
			name:     "single track without uri",
			result:   &lavalink.LoadResult{Data: opaqueTrack("A")},
			wantKind: domain.SearchKindEmpty,
		},
		{
			name: "playlist of tracks without uri",
			result: &lavalink.LoadResult{Data: lavalink.Playlist{
				Info:   lavalink.PlaylistInfo{Name: "Mix"},
				Tracks: []lavalink.Track{opaqueTrack("A")},
			}},
			wantKind: domain.SearchKindEmpty,
		},
		{
			name:     "empty search",
			result:   &lavalink.LoadResult{Data: lavalink.Search{}},
			wantKind: domain.SearchKindEmpty,
		},
		{
			name:     "empty",
			result:   &lavalink.LoadResult{Data: lavalink.Empty{}},
			wantKind: domain.SearchKindEmpty,
		},
		{
			name:     "exception",
			result:   &lavalink.LoadResult{Data: lavalink.Exception{Message: "boom"}},
			wantKind: domain.SearchKindEmpty,
		},
		{
			name:     "nil result",
			result:   nil,
			wantKind: domain.SearchKindEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertLoadResult(tt.result, requester)

			if got.Kind != tt.wantKind {
				t.Errorf("expected kind %s, got %s", tt.wantKind, got.Kind)
			}
			if len(got.Tracks) != tt.wantTracks {
				t.Errorf("expected %d tracks, got %d", tt.wantTracks, len(got.Tracks))
			}
			if got.PlaylistName != tt.wantPlaylist {
				t.Errorf("expected playlist %q, got %q", tt.wantPlaylist, got.PlaylistName)
			}
		})
	}
}

func TestConvertTrack(t *testing.T) {
	track := convertTrack(lavalinkTrack("dQw4w9WgXcQ", "Never Gonna Give You Up"), domain.Requester{ID: 7})

	if track.Identifier != "dQw4w9WgXcQ" {
		t.Errorf("expected identifier dQw4w9WgXcQ, got %q", track.Identifier)
	}
	if track.Encoded != "encoded-dQw4w9WgXcQ" {
		t.Errorf("unexpected encoded value %q", track.Encoded)
	}
	if track.Duration != 3*time.Minute {
		t.Errorf("expected 3m, got %v", track.Duration)
	}
	if track.Requester.ID != snowflake.ID(7) {
		t.Errorf("expected requester 7, got %s", track.Requester.ID)
	}
}

func TestConvertTrack_MissingURI(t *testing.T) {
	lt := lavalinkTrack("dQw4w9WgXcQ", "Song")
	lt.Info.URI = nil

	track := convertTrack(lt, domain.Requester{})

	if track.URI != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("expected URI rebuilt from identifier, got %q", track.URI)
	}
}

func TestConvertEndReason(t *testing.T) {
	tests := []struct {
		input lavalink.TrackEndReason
		want  domain.TrackEndReason
	}{
		{lavalink.TrackEndReasonFinished, domain.TrackEndFinished},
		{lavalink.TrackEndReasonLoadFailed, domain.TrackEndLoadFailed},
		{lavalink.TrackEndReasonStopped, domain.TrackEndStopped},
		{lavalink.TrackEndReasonReplaced, domain.TrackEndReplaced},
		{lavalink.TrackEndReasonCleanup, domain.TrackEndCleanup},
	}

	for _, tt := range tests {
		if got := convertEndReason(tt.input); got != tt.want {
			t.Errorf("convertEndReason(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func newTestLavalinkSink() *lavalinkSink {
	return &lavalinkSink{guildID: 1, events: newSinkEvents()}
}

func receive(t *testing.T, s *lavalinkSink) ports.SinkEvent {
	t.Helper()
	select {
	case event := <-s.Events():
		return event
	case <-time.After(time.Second):
		t.Fatal("expected a sink event")
		return ports.SinkEvent{}
	}
}

func TestLavalinkSink_NodeEvents(t *testing.T) {
	t.Run("start and finish", func(t *testing.T) {
		s := newTestLavalinkSink()
		track := &domain.Track{Title: "A", Encoded: "enc-a"}
		s.playing = track

		s.onStart("enc-a")
		s.onEnd(domain.TrackEndFinished)

		if e := receive(t, s); e.Type != ports.SinkStarted || e.Track != track {
			t.Errorf("expected started for A, got %+v", e)
		}
		if e := receive(t, s); e.Type != ports.SinkIdle || e.Reason != domain.TrackEndFinished {
			t.Errorf("expected finished idle, got %+v", e)
		}
	})

	t.Run("replaced track is reported", func(t *testing.T) {
		s := newTestLavalinkSink()
		a := &domain.Track{Title: "A"}
		b := &domain.Track{Title: "B"}
		s.replaced = a
		s.playing = b

		s.onEnd(domain.TrackEndReplaced)

		e := receive(t, s)
		if e.Track != a || e.Reason != domain.TrackEndReplaced {
			t.Errorf("expected replaced idle for A, got %+v", e)
		}
		if s.playing != b {
			t.Error("expected B to stay playing")
		}
	})

	t.Run("exception then load failure", func(t *testing.T) {
		s := newTestLavalinkSink()
		track := &domain.Track{Title: "A"}
		s.playing = track

		s.onException(errors.New("video unavailable"))
		s.onEnd(domain.TrackEndLoadFailed)

		e := receive(t, s)
		if e.Type != ports.SinkError || e.Track != track {
			t.Fatalf("expected error event for A, got %+v", e)
		}
		if e.Err == nil || e.Err.Error() != "video unavailable" {
			t.Errorf("expected exception message, got %v", e.Err)
		}
	})

	t.Run("start for another track is ignored", func(t *testing.T) {
		s := newTestLavalinkSink()
		s.playing = &domain.Track{Title: "A", Encoded: "enc-a"}

		s.onStart("enc-b")
		s.onEnd(domain.TrackEndStopped)

		if e := receive(t, s); e.Type != ports.SinkIdle {
			t.Errorf("expected only the idle event, got %+v", e)
		}
	})

	t.Run("end without a track is ignored", func(t *testing.T) {
		s := newTestLavalinkSink()

		s.onEnd(domain.TrackEndFinished)
		s.events.close()

		if _, ok := <-s.Events(); ok {
			t.Error("expected no event")
		}
	})
}

func TestVoiceEventBuffer(t *testing.T) {
	buffer := &voiceEventBuffer{}
	channelID := snowflake.ID(100)

	if buffer.setVoiceServer("token", "endpoint") {
		t.Error("expected buffer not ready with only the server update")
	}
	if !buffer.setVoiceState(&channelID, "session") {
		t.Error("expected buffer ready after both updates")
	}

	gotChannel, sessionID, token, endpoint := buffer.getData()
	if gotChannel == nil || *gotChannel != channelID {
		t.Error("unexpected channel")
	}
	if sessionID != "session" || token != "token" || endpoint != "endpoint" {
		t.Errorf("unexpected data: %q %q %q", sessionID, token, endpoint)
	}

	if buffer.setVoiceState(&channelID, "session") {
		t.Error("expected buffer to be reset after getData")
	}
}

func TestPendingVoiceConnection(t *testing.T) {
	pending := &pendingVoiceConnection{ready: make(chan struct{})}

	pending.onEvent(true)
	select {
	case <-pending.ready:
		t.Fatal("expected not ready after one event")
	default:
	}

	pending.onEvent(false)
	pending.onEvent(false)
	select {
	case <-pending.ready:
	default:
		t.Fatal("expected ready after both events")
	}
}
