package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// MaxLikedTracks caps a user's liked list.
const MaxLikedTracks = 200

// LikedTracksKey returns the key-value store key of a user's liked tracks.
func LikedTracksKey(userID snowflake.ID) string {
	return "liked:" + userID.String()
}

// LikedTrack is the persisted form of a liked track.
type LikedTrack struct {
	Identifier string    `json:"identifier"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	URI        string    `json:"uri"`
	ArtworkURL string    `json:"artwork_url,omitempty"`
	SourceName string    `json:"source_name"`
	DurationMS int64     `json:"duration_ms"`
	IsStream   bool      `json:"is_stream"`
	LikedAt    time.Time `json:"liked_at"`
}

// NewLikedTrack snapshots track for persistence.
func NewLikedTrack(track *Track, likedAt time.Time) LikedTrack {
	return LikedTrack{
		Identifier: track.Identifier,
		Title:      track.Title,
		Author:     track.Author,
		URI:        track.URI,
		ArtworkURL: track.ArtworkURL,
		SourceName: track.SourceName,
		DurationMS: track.Duration.Milliseconds(),
		IsStream:   track.IsStream,
		LikedAt:    likedAt,
	}
}

// Track rebuilds a queueable track. Backends that need encoded data resolve
// it from the URI.
func (l LikedTrack) Track(requester Requester) *Track {
	return NewTrack(TrackData{
		Title:      &l.Title,
		Author:     &l.Author,
		URI:        l.URI,
		ArtworkURL: &l.ArtworkURL,
		SourceName: &l.SourceName,
		DurationMS: &l.DurationMS,
		IsStream:   l.IsStream,
	}, requester)
}

// key identifies the track for deduplication. Opaque URIs fall back to the URI itself.
func (l LikedTrack) key() string {
	if l.Identifier != "" {
		return l.Identifier
	}
	return l.URI
}

// LikedTracks is a user's liked list, most recent last.
type LikedTracks []LikedTrack

// ParseLikedTracks decodes a stored list. An empty value is an empty list.
func ParseLikedTracks(value string) (LikedTracks, error) {
	if value == "" {
		return nil, nil
	}
	var tracks LikedTracks
	if err := json.Unmarshal([]byte(value), &tracks); err != nil {
		return nil, fmt.Errorf("failed to decode liked tracks: %w", err)
	}
	return tracks, nil
}

// Encode returns the stored JSON form.
func (l LikedTracks) Encode() (string, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return "", fmt.Errorf("failed to encode liked tracks: %w", err)
	}
	return string(data), nil
}

// Contains reports whether a track with the same identity is already liked.
func (l LikedTracks) Contains(track LikedTrack) bool {
	return slices.ContainsFunc(l, func(t LikedTrack) bool { return t.key() == track.key() })
}

// Add appends track unless it is already liked. When the list is full the
// oldest entry is dropped. Returns false if the track was a duplicate.
func (l LikedTracks) Add(track LikedTrack) (LikedTracks, bool) {
	if l.Contains(track) {
		return l, false
	}
	l = append(l, track)
	if len(l) > MaxLikedTracks {
		l = l[len(l)-MaxLikedTracks:]
	}
	return l, true
}

// Remove deletes the entry at index. Returns false if index is out of bounds.
func (l LikedTracks) Remove(index int) (LikedTracks, bool) {
	if index < 0 || index >= len(l) {
		return l, false
	}
	return slices.Delete(l, index, index+1), true
}
