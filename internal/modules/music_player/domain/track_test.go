package domain

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

func TestNewTrack(t *testing.T) {
	requester := Requester{ID: snowflake.ID(123456789), Name: "TestUser"}
	track := NewTrack(TrackData{
		Title:      strPtr("Test Song"),
		Author:     strPtr("Test Artist"),
		URI:        "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Encoded:    "encoded-data",
		ArtworkURL: strPtr("https://example.com/artwork.jpg"),
		SourceName: strPtr("youtube"),
		DurationMS: int64Ptr(210_000),
	}, requester)

	if track.Title != "Test Song" {
		t.Errorf("expected Title 'Test Song', got %q", track.Title)
	}
	if track.Author != "Test Artist" {
		t.Errorf("expected Author 'Test Artist', got %q", track.Author)
	}
	if track.Duration != 3*time.Minute+30*time.Second {
		t.Errorf("expected Duration 3m30s, got %v", track.Duration)
	}
	if track.Identifier != "dQw4w9WgXcQ" {
		t.Errorf("expected Identifier 'dQw4w9WgXcQ', got %q", track.Identifier)
	}
	if track.Encoded != "encoded-data" {
		t.Errorf("expected Encoded 'encoded-data', got %q", track.Encoded)
	}
	if track.Requester != requester {
		t.Errorf("expected Requester %v, got %v", requester, track.Requester)
	}
	if track.EntryID == "" {
		t.Error("expected EntryID to be set")
	}
	if track.EnqueuedAt.IsZero() {
		t.Error("expected EnqueuedAt to be set")
	}
}

func TestNewTrack_Defaults(t *testing.T) {
	track := NewTrack(TrackData{URI: "https://example.com/audio.mp3"}, Requester{})

	if track.Title != DefaultTrackTitle {
		t.Errorf("expected Title %q, got %q", DefaultTrackTitle, track.Title)
	}
	if track.Author != DefaultTrackAuthor {
		t.Errorf("expected Author %q, got %q", DefaultTrackAuthor, track.Author)
	}
	if track.SourceName != DefaultSourceName {
		t.Errorf("expected SourceName %q, got %q", DefaultSourceName, track.SourceName)
	}
	if track.Duration != 0 {
		t.Errorf("expected zero Duration, got %v", track.Duration)
	}
	if track.ArtworkURL != "" {
		t.Errorf("expected empty ArtworkURL, got %q", track.ArtworkURL)
	}
}

func TestNewTrack_BlankTitleUsesDefault(t *testing.T) {
	track := NewTrack(TrackData{Title: strPtr("   "), URI: "https://example.com/a"}, Requester{})

	if track.Title != DefaultTrackTitle {
		t.Errorf("expected Title %q, got %q", DefaultTrackTitle, track.Title)
	}
}

func TestNewTrack_StreamHasNoDuration(t *testing.T) {
	track := NewTrack(TrackData{
		URI:        "https://www.twitch.tv/somebody",
		DurationMS: int64Ptr(9_223_372_036_854),
		IsStream:   true,
	}, Requester{})

	if track.Duration != 0 {
		t.Errorf("expected zero Duration for stream, got %v", track.Duration)
	}
}

func TestNewTrack_UniqueEntryIDs(t *testing.T) {
	data := TrackData{URI: "https://youtu.be/dQw4w9WgXcQ"}
	a := NewTrack(data, Requester{})
	b := NewTrack(data, Requester{})

	if a.EntryID == b.EntryID {
		t.Error("expected distinct EntryIDs for separate entries of the same track")
	}
	if a.Identifier != b.Identifier {
		t.Error("expected identical Identifiers for the same URI")
	}
}

func TestExtractIdentifier(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want string
	}{
		{name: "watch URL", uri: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{name: "watch URL with extra params", uri: "https://youtube.com/watch?list=PL1&v=dQw4w9WgXcQ&t=3", want: "dQw4w9WgXcQ"},
		{name: "short URL", uri: "https://youtu.be/dQw4w9WgXcQ?si=abc", want: "dQw4w9WgXcQ"},
		{name: "shorts URL", uri: "https://www.youtube.com/shorts/abcdefghijk", want: "abcdefghijk"},
		{name: "music URL", uri: "https://music.youtube.com/watch?v=A-b_C1d2E3f", want: "A-b_C1d2E3f"},
		{name: "other URL uses last segment", uri: "https://soundcloud.com/artist/song-name?in=x", want: "song-name"},
		{name: "trailing slash", uri: "https://example.com/tracks/42/", want: "42"},
		{name: "opaque URI", uri: "spotify:track:4uLU6hMCjMI75M1A2tKUQC", want: ""},
		{name: "host only", uri: "https://example.com", want: ""},
		{name: "empty", uri: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractIdentifier(tt.uri); got != tt.want {
				t.Errorf("ExtractIdentifier(%q) = %q, want %q", tt.uri, got, tt.want)
			}
		})
	}
}

func TestTrack_FormattedDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		isStream bool
		want     string
	}{
		{name: "seconds only", duration: 45 * time.Second, want: "00:45"},
		{name: "minutes and seconds", duration: 3*time.Minute + 5*time.Second, want: "03:05"},
		{name: "hours", duration: time.Hour + 2*time.Minute + 3*time.Second, want: "01:02:03"},
		{name: "zero", duration: 0, want: "00:00"},
		{name: "stream", duration: time.Hour, isStream: true, want: "LIVE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track := &Track{Duration: tt.duration, IsStream: tt.isStream}
			if got := track.FormattedDuration(); got != tt.want {
				t.Errorf("FormattedDuration() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTrack_IsValid(t *testing.T) {
	var nilTrack *Track
	if nilTrack.IsValid() {
		t.Error("expected nil track to be invalid")
	}
	if (&Track{Title: "x"}).IsValid() {
		t.Error("expected track without URI to be invalid")
	}
	if !(&Track{URI: "https://example.com/a"}).IsValid() {
		t.Error("expected track with URI to be valid")
	}
}

func TestParseTrackSource(t *testing.T) {
	tests := []struct {
		input string
		want  TrackSource
	}{
		{"youtube", TrackSourceYouTube},
		{"spotify", TrackSourceSpotify},
		{"soundcloud", TrackSourceSoundCloud},
		{"twitch", TrackSourceTwitch},
		{"bandcamp", TrackSourceOther},
		{"", TrackSourceOther},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseTrackSource(tt.input); got != tt.want {
				t.Errorf("ParseTrackSource(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		input  string
		want   time.Duration
		wantOK bool
	}{
		{input: "90", want: 90 * time.Second, wantOK: true},
		{input: "1:30", want: 90 * time.Second, wantOK: true},
		{input: "1:02:03", want: time.Hour + 2*time.Minute + 3*time.Second, wantOK: true},
		{input: "1m30s", want: 90 * time.Second, wantOK: true},
		{input: " 0 ", want: 0, wantOK: true},
		{input: "", wantOK: false},
		{input: "abc", wantOK: false},
		{input: "1:2:3:4", wantOK: false},
		{input: "-5s", wantOK: false},
		{input: "1:-5", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParsePosition(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParsePosition(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParsePosition(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
