package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorRed  = 0xE74C3C
	colorBlue = 0x3498DB
)

const (
	thumbnailProbeTimeout = 5 * time.Second
	thumbnailCacheSize    = 256
)

// Notifier posts playback notifications to the guild's notification channel.
type Notifier struct {
	session    *discordgo.Session
	thumbnails *thumbnailResolver
}

// NewNotifier creates a new Notifier.
func NewNotifier(session *discordgo.Session) *Notifier {
	return &Notifier{
		session:    session,
		thumbnails: newThumbnailResolver(&http.Client{Timeout: thumbnailProbeTimeout}, "https://img.youtube.com"),
	}
}

// SendNowPlaying sends a "Now Playing" embed to the channel and returns the message ID.
func (n *Notifier) SendNowPlaying(
	channelID snowflake.ID,
	info *ports.NowPlayingInfo,
) (snowflake.ID, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*thumbnailProbeTimeout)
	defer cancel()

	source := domain.ParseTrackSource(info.SourceName)
	thumbnail := n.thumbnails.resolve(ctx, source, info.Identifier, info.ArtworkURL)

	msg, err := n.session.ChannelMessageSendEmbed(channelID.String(), nowPlayingEmbed(info, thumbnail))
	if err != nil {
		return 0, fmt.Errorf("failed to send now playing message: %w", err)
	}
	return snowflake.Parse(msg.ID)
}

// DeleteMessage deletes a message from the channel.
func (n *Notifier) DeleteMessage(channelID snowflake.ID, messageID snowflake.ID) error {
	return n.session.ChannelMessageDelete(channelID.String(), messageID.String())
}

// SendInfo sends a neutral informational embed to the channel.
func (n *Notifier) SendInfo(channelID snowflake.ID, message string) error {
	return n.sendDescription(channelID, message, colorBlue)
}

// SendError sends an error message embed to the channel.
func (n *Notifier) SendError(channelID snowflake.ID, message string) error {
	return n.sendDescription(channelID, message, colorRed)
}

func (n *Notifier) sendDescription(channelID snowflake.ID, message string, color int) error {
	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), &discordgo.MessageEmbed{
		Description: message,
		Color:       color,
	})
	return err
}

// nowPlayingEmbed renders info; thumbnail may be empty.
func nowPlayingEmbed(info *ports.NowPlayingInfo, thumbnail string) *discordgo.MessageEmbed {
	source := domain.ParseTrackSource(info.SourceName)

	length := info.Duration
	if info.IsStream {
		length = "🔴 LIVE"
	}

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name:    "Now Playing",
			IconURL: source.IconURL(),
		},
		Title: info.Title,
		URL:   info.URI,
		Color: source.Color(),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Artist", Value: info.Artist, Inline: true},
			{Name: "Duration", Value: length, Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text:    footerText(info),
			IconURL: info.RequesterAvatarURL,
		},
	}
	if info.RequesterID != 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Requested by",
			Value:  fmt.Sprintf("<@%s>", info.RequesterID),
			Inline: true,
		})
	}
	if !info.EnqueuedAt.IsZero() {
		embed.Timestamp = info.EnqueuedAt.UTC().Format(time.RFC3339)
	}
	if thumbnail != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: thumbnail}
	}

	return embed
}

// footerText names the requester and, when known, the backend serving the track.
func footerText(info *ports.NowPlayingInfo) string {
	name := info.RequesterName
	if name == "" {
		name = "Unknown"
	}
	if info.Backend == "" {
		return fmt.Sprintf("Requested by %s", name)
	}
	return fmt.Sprintf("Requested by %s • via %s", name, info.Backend)
}

// thumbnailResolver upgrades artwork URLs to the largest image that exists.
// Results are cached per identifier since looped tracks announce repeatedly.
type thumbnailResolver struct {
	client      *http.Client
	youtubeBase string

	mu    sync.Mutex
	cache map[string]string
}

func newThumbnailResolver(client *http.Client, youtubeBase string) *thumbnailResolver {
	return &thumbnailResolver{
		client:      client,
		youtubeBase: strings.TrimSuffix(youtubeBase, "/"),
		cache:       make(map[string]string),
	}
}

func (r *thumbnailResolver) resolve(
	ctx context.Context,
	source domain.TrackSource,
	identifier string,
	artworkURL string,
) string {
	switch source {
	case domain.TrackSourceYouTube:
		if identifier == "" {
			return artworkURL
		}
		return r.cached("yt:"+identifier, func() string {
			return r.youtube(ctx, identifier, artworkURL)
		})
	case domain.TrackSourceTwitch:
		highRes := twitchHighRes(artworkURL)
		if highRes == artworkURL {
			return artworkURL
		}
		return r.cached("twitch:"+artworkURL, func() string {
			if r.exists(ctx, highRes) {
				return highRes
			}
			return artworkURL
		})
	default:
		return artworkURL
	}
}

func (r *thumbnailResolver) cached(key string, lookup func() string) string {
	r.mu.Lock()
	if url, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return url
	}
	r.mu.Unlock()

	url := lookup()

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.cache) >= thumbnailCacheSize {
		clear(r.cache)
	}
	r.cache[key] = url
	return url
}

func (r *thumbnailResolver) youtube(ctx context.Context, videoID, fallbackURL string) string {
	for _, quality := range []string{"maxresdefault", "sddefault", "hqdefault", "mqdefault"} {
		url := fmt.Sprintf("%s/vi/%s/%s.jpg", r.youtubeBase, videoID, quality)
		if r.exists(ctx, url) {
			return url
		}
	}
	return fallbackURL
}

// twitchHighRes swaps the 440x248 preview size for 1280x720.
func twitchHighRes(artworkURL string) string {
	return strings.Replace(artworkURL, "440x248", "1280x720", 1)
}

func (r *thumbnailResolver) exists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

var _ ports.NotificationSender = (*Notifier)(nil)
