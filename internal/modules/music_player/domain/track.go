package domain

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
)

// Defaults applied when provider data omits a field.
const (
	DefaultTrackTitle  = "Unknown"
	DefaultTrackAuthor = "Unknown"
	DefaultSourceName  = "youtube"
)

// youtubeIDPattern matches the 11-character video id in the common YouTube URL shapes.
var youtubeIDPattern = regexp.MustCompile(
	`(?:youtube\.com/(?:watch\?(?:.*&)?v=|embed/|shorts/|v/|live/)|youtu\.be/)([A-Za-z0-9_-]{11})`,
)

// Requester identifies the Discord user who asked for a track.
type Requester struct {
	ID        snowflake.ID
	Name      string
	AvatarURL string
}

// Track represents a playable audio track.
// Tracks are never mutated by the player once created.
type Track struct {
	EntryID    string // unique per queue entry, distinguishes duplicates of the same track
	Identifier string // derived from URI; empty when the URI is opaque
	Encoded    string // Lavalink encoded track data, empty for direct-stream tracks
	Title      string
	Author     string
	URI        string
	ArtworkURL string
	SourceName string // e.g., "youtube", "spotify", "soundcloud"
	Duration   time.Duration
	IsStream   bool
	Requester  Requester
	EnqueuedAt time.Time
}

// TrackData is loosely-shaped track metadata as returned by a provider.
// Nil fields fall back to the documented defaults.
type TrackData struct {
	Title      *string
	Author     *string
	URI        string
	Encoded    string
	ArtworkURL *string
	SourceName *string
	DurationMS *int64
	IsStream   bool
}

// NewTrack builds a Track from provider data, applying defaults for missing fields.
func NewTrack(data TrackData, requester Requester) *Track {
	track := &Track{
		EntryID:    uuid.NewString(),
		Identifier: ExtractIdentifier(data.URI),
		Encoded:    data.Encoded,
		Title:      valueOr(data.Title, DefaultTrackTitle),
		Author:     valueOr(data.Author, DefaultTrackAuthor),
		URI:        data.URI,
		ArtworkURL: valueOr(data.ArtworkURL, ""),
		SourceName: valueOr(data.SourceName, DefaultSourceName),
		IsStream:   data.IsStream,
		Requester:  requester,
		EnqueuedAt: time.Now().UTC(),
	}
	if data.DurationMS != nil && *data.DurationMS > 0 && !data.IsStream {
		track.Duration = time.Duration(*data.DurationMS) * time.Millisecond
	}
	return track
}

func valueOr(s *string, fallback string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return fallback
	}
	return *s
}

// ExtractIdentifier derives a stable identifier from a track URI.
// YouTube URLs yield the 11-character video id; other URLs yield their last
// path segment without the query string. Returns "" when nothing usable exists.
func ExtractIdentifier(uri string) string {
	if uri == "" {
		return ""
	}
	if m := youtubeIDPattern.FindStringSubmatch(uri); m != nil {
		return m[1]
	}

	u, err := url.Parse(uri)
	if err != nil || u.Path == "" {
		return ""
	}
	segment := path.Base(strings.TrimRight(u.Path, "/"))
	if segment == "." || segment == "/" {
		return ""
	}
	return segment
}

// Source returns the parsed TrackSource for this track.
func (t *Track) Source() TrackSource {
	return ParseTrackSource(t.SourceName)
}

// IsValid returns true if the track can be handed to a sink.
func (t *Track) IsValid() bool {
	return t != nil && t.URI != ""
}

// FormattedDuration returns the duration as a human-readable string (mm:ss or hh:mm:ss).
func (t *Track) FormattedDuration() string {
	if t.IsStream {
		return "LIVE"
	}
	return FormatDuration(t.Duration)
}

// FormatDuration formats d as mm:ss, or hh:mm:ss when it spans an hour or more.
func FormatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return pad(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return pad(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// ParsePosition parses a playback position given as seconds ("90"),
// a clock ("1:30", "1:02:03") or a Go duration ("1m30s").
func ParsePosition(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, d >= 0
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, false
	}

	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, true
}
