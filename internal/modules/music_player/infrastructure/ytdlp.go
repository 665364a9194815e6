package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

const (
	ytdlpSearchLimit   = 5
	ytdlpPlaylistLimit = 100

	// ytdlpPrintFormat yields one tab-separated line per entry.
	ytdlpPrintFormat = "%(webpage_url,url)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(is_live)s\t%(playlist_title)s"

	// ytdlpMissing is what yt-dlp prints for absent fields.
	ytdlpMissing = "NA"
)

// YtdlpConfig configures yt-dlp invocations.
type YtdlpConfig struct {
	Proxy string
}

func newYtdlpCommand(config YtdlpConfig) *ytdlp.Command {
	cmd := ytdlp.New().
		NoWarnings().
		IgnoreConfig()

	if config.Proxy != "" {
		cmd.Proxy(config.Proxy)
	}

	return cmd
}

// YtdlpProvider resolves queries by running yt-dlp. It backs the direct
// stream backend when no Lavalink node is available.
type YtdlpProvider struct {
	config YtdlpConfig
}

// NewYtdlpProvider creates a new YtdlpProvider.
func NewYtdlpProvider(config YtdlpConfig) *YtdlpProvider {
	return &YtdlpProvider{config: config}
}

// Search runs a flat extraction for URLs and an N-result search otherwise.
// Failures yield an empty result.
func (p *YtdlpProvider) Search(
	ctx context.Context,
	query *domain.SearchQuery,
	requester domain.Requester,
) domain.SearchResult {
	limit := ytdlpSearchLimit
	if query.IsURL {
		limit = ytdlpPlaylistLimit
	}

	result, err := newYtdlpCommand(p.config).
		FlatPlaylist().
		Print(ytdlpPrintFormat).
		PlaylistItems(fmt.Sprintf("1-%d", limit)).
		Run(ctx, query.YtdlpQuery(limit))
	if err != nil {
		slog.Warn("failed to run yt-dlp search", "query", query.Query, "error", err)
		return domain.EmptySearchResult()
	}

	entries := parseYtdlpOutput(result.Stdout)
	return buildYtdlpResult(entries, query.IsURL, requester)
}

// ytdlpEntry is one parsed line of yt-dlp print output.
type ytdlpEntry struct {
	URL           string
	Title         string
	Uploader      string
	Duration      time.Duration
	IsLive        bool
	PlaylistTitle string
}

// parseYtdlpOutput parses ytdlpPrintFormat lines, skipping malformed ones.
func parseYtdlpOutput(stdout string) []ytdlpEntry {
	var entries []ytdlpEntry
	for line := range strings.SplitSeq(strings.TrimSpace(stdout), "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) < 4 || ytdlpField(parts[0]) == "" {
			continue
		}

		entry := ytdlpEntry{
			URL:      parts[0],
			Title:    ytdlpField(parts[1]),
			Uploader: ytdlpField(parts[2]),
		}
		if d, err := time.ParseDuration(parts[3] + "s"); err == nil {
			entry.Duration = d
		}
		if len(parts) > 4 {
			entry.IsLive = parts[4] == "True"
		}
		if len(parts) > 5 {
			entry.PlaylistTitle = ytdlpField(parts[5])
		}
		entries = append(entries, entry)
	}
	return entries
}

func ytdlpField(value string) string {
	value = strings.TrimSpace(value)
	if value == ytdlpMissing {
		return ""
	}
	return value
}

func buildYtdlpResult(entries []ytdlpEntry, isURL bool, requester domain.Requester) domain.SearchResult {
	if len(entries) == 0 {
		return domain.EmptySearchResult()
	}

	tracks := make([]*domain.Track, len(entries))
	for i, entry := range entries {
		tracks[i] = entry.track(requester)
	}

	if isURL && len(entries) > 1 {
		return domain.SearchResult{
			Kind:         domain.SearchKindPlaylist,
			Tracks:       tracks,
			PlaylistName: entries[0].PlaylistTitle,
		}
	}
	return domain.SearchResult{Kind: domain.SearchKindSingle, Tracks: tracks}
}

func (e ytdlpEntry) track(requester domain.Requester) *domain.Track {
	data := domain.TrackData{
		URI:      e.URL,
		IsStream: e.IsLive,
	}
	if e.Title != "" {
		data.Title = &e.Title
	}
	if e.Uploader != "" {
		data.Author = &e.Uploader
	}
	if e.Duration > 0 {
		ms := e.Duration.Milliseconds()
		data.DurationMS = &ms
	}
	source := sourceFromURL(e.URL)
	data.SourceName = &source

	return domain.NewTrack(data, requester)
}

func sourceFromURL(uri string) string {
	switch {
	case strings.Contains(uri, "soundcloud.com"):
		return string(domain.TrackSourceSoundCloud)
	case strings.Contains(uri, "twitch.tv"):
		return string(domain.TrackSourceTwitch)
	case strings.Contains(uri, "youtube.com"), strings.Contains(uri, "youtu.be"):
		return string(domain.TrackSourceYouTube)
	default:
		return string(domain.TrackSourceOther)
	}
}

// YtdlpStreamOpener fetches the best audio format of a track to stdout.
type YtdlpStreamOpener struct {
	config YtdlpConfig
}

// NewYtdlpStreamOpener creates a new YtdlpStreamOpener.
func NewYtdlpStreamOpener(config YtdlpConfig) *YtdlpStreamOpener {
	return &YtdlpStreamOpener{config: config}
}

// Open starts yt-dlp and returns its output. Closing the reader stops it.
func (o *YtdlpStreamOpener) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	cmd := newYtdlpCommand(o.config).
		Format("bestaudio[ext=webm]/bestaudio").
		Output("-").
		NoPart().
		NoPlaylist().
		NoCheckFormats().
		BuildCommand(ctx, uri)

	var stderr strings.Builder
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create yt-dlp pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	return &processOutput{ReadCloser: stdout, cmd: cmd, stderr: &stderr}, nil
}

// processOutput is the stdout of a running process.
type processOutput struct {
	io.ReadCloser
	cmd    *exec.Cmd
	stderr *strings.Builder
}

func (o *processOutput) Close() error {
	o.ReadCloser.Close()
	if o.cmd.Process != nil {
		_ = o.cmd.Process.Kill()
	}
	if err := o.cmd.Wait(); err != nil && o.stderr.Len() > 0 {
		slog.Debug("yt-dlp exited", "error", err, "stderr", strings.TrimSpace(o.stderr.String()))
	}
	return nil
}

// Ensure the yt-dlp adapters implement port interfaces.
var (
	_ ports.TrackProvider = (*YtdlpProvider)(nil)
	_ ports.StreamOpener  = (*YtdlpStreamOpener)(nil)
)
