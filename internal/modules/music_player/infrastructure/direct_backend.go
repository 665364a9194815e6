package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/ports"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

// DirectBackendName identifies the in-process streaming backend.
const DirectBackendName = "direct"

// opusSendTimeout bounds how long a frame may wait for the voice connection.
const opusSendTimeout = time.Second

var (
	errSinkClosed = errors.New("sink closed")
	errNoAudio    = errors.New("stream produced no audio")
)

// DirectConfig configures the in-process streaming backend.
type DirectConfig struct {
	FFmpegPath string
}

// DirectBackend streams audio itself: media is fetched by a StreamOpener,
// decoded to PCM by ffmpeg and sent to Discord as Opus over discordgo's
// voice connection. It has no seek support.
type DirectBackend struct {
	session    *discordgo.Session
	opener     ports.StreamOpener
	provider   ports.TrackProvider
	ffmpegPath string
}

// NewDirectBackend creates a new DirectBackend.
func NewDirectBackend(
	session *discordgo.Session,
	opener ports.StreamOpener,
	provider ports.TrackProvider,
	config DirectConfig,
) *DirectBackend {
	ffmpegPath := config.FFmpegPath
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &DirectBackend{
		session:    session,
		opener:     opener,
		provider:   provider,
		ffmpegPath: ffmpegPath,
	}
}

// Name returns the backend name.
func (b *DirectBackend) Name() string {
	return DirectBackendName
}

// Available always returns true.
func (b *DirectBackend) Available() bool {
	return true
}

// Provider returns the track provider used for searches.
func (b *DirectBackend) Provider() ports.TrackProvider {
	return b.provider
}

// Open joins the voice channel through discordgo.
func (b *DirectBackend) Open(
	ctx context.Context,
	guildID, channelID snowflake.ID,
) (ports.AudioSink, error) {
	type joinResult struct {
		vc  *discordgo.VoiceConnection
		err error
	}

	result := make(chan joinResult, 1)
	go func() {
		vc, err := b.session.ChannelVoiceJoin(guildID.String(), channelID.String(), false, true)
		result <- joinResult{vc: vc, err: err}
	}()

	select {
	case r := <-result:
		if r.err != nil {
			return nil, fmt.Errorf("failed to join voice channel: %w", r.err)
		}
		return newDirectSink(guildID, r.vc, b.opener, b.ffmpegPath), nil
	case <-ctx.Done():
		go func() {
			if r := <-result; r.vc != nil {
				if err := r.vc.Disconnect(); err != nil {
					slog.Warn("failed to disconnect late voice connection", "guild", guildID, "error", err)
				}
			}
		}()
		return nil, fmt.Errorf("timed out waiting for voice connection: %w", ctx.Err())
	}
}

// directStream is one track being decoded and sent.
type directStream struct {
	track  *domain.Track
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	reason domain.TrackEndReason
	ended  bool
}

// end asks the stream to stop and records why. The first reason wins.
func (s *directStream) end(reason domain.TrackEndReason) {
	s.mu.Lock()
	if !s.ended {
		s.ended = true
		s.reason = reason
	}
	s.mu.Unlock()
	s.cancel()
}

func (s *directStream) endReason() (domain.TrackEndReason, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason, s.ended
}

// directSink is the AudioSink for one guild's discordgo voice connection.
type directSink struct {
	guildID  snowflake.ID
	vc       *discordgo.VoiceConnection
	send     chan<- []byte
	speaking func(bool)
	opener   ports.StreamOpener
	decode   decodeFunc
	events   *sinkEvents

	mu     sync.Mutex
	stream *directStream
	volume int
	// paused is non-nil while paused and closed on resume.
	paused chan struct{}
	closed bool
}

func newDirectSink(
	guildID snowflake.ID,
	vc *discordgo.VoiceConnection,
	opener ports.StreamOpener,
	ffmpegPath string,
) *directSink {
	return &directSink{
		guildID:  guildID,
		vc:       vc,
		send:     vc.OpusSend,
		speaking: func(on bool) { _ = vc.Speaking(on) },
		opener:   opener,
		decode:   ffmpegDecoder(ffmpegPath),
		events:   newSinkEvents(),
		volume:   domain.DefaultVolume,
	}
}

// Play stops whatever is playing and starts track. Failing to open the
// media is returned synchronously.
func (s *directSink) Play(ctx context.Context, track *domain.Track) error {
	if err := s.halt(ctx, domain.TrackEndReplaced); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errSinkClosed
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	pcm, err := s.openPCM(streamCtx, track)
	if err != nil {
		cancel()
		return err
	}

	stream := &directStream{
		track:  track,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.stream = stream
	if s.paused != nil {
		close(s.paused)
		s.paused = nil
	}

	go s.pump(streamCtx, stream, pcm)

	return nil
}

// openPCM starts the media fetch and decodes it into raw PCM.
func (s *directSink) openPCM(ctx context.Context, track *domain.Track) (io.ReadCloser, error) {
	source, err := s.opener.Open(ctx, track.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	pcm, err := s.decode(ctx, source)
	if err != nil {
		source.Close()
		return nil, err
	}
	return pcm, nil
}

// pump reads PCM frames and sends them until the media ends or the stream
// is cancelled, then reports how it ended. Started is reported with the
// first frame, so media that yields no audio only produces an error.
func (s *directSink) pump(ctx context.Context, stream *directStream, pcm io.ReadCloser) {
	defer close(stream.done)
	defer stream.cancel()

	encoder, err := newOpusEncoder()
	if err != nil {
		pcm.Close()
		s.events.emit(ports.SinkEvent{Type: ports.SinkError, Track: stream.track, Err: err})
		return
	}

	s.speaking(true)
	frames, readErr := s.sendFrames(ctx, encoder, pcm, func() {
		s.events.emit(ports.SinkEvent{Type: ports.SinkStarted, Track: stream.track})
	})
	closeErr := pcm.Close()
	s.speaking(false)

	if reason, ended := stream.endReason(); ended {
		s.events.emit(ports.SinkEvent{Type: ports.SinkIdle, Track: stream.track, Reason: reason})
		return
	}

	if readErr == nil && frames == 0 {
		readErr = closeErr
		if readErr == nil {
			readErr = errNoAudio
		}
	}
	if readErr != nil {
		slog.Warn("direct stream failed",
			"guild", s.guildID,
			"track", stream.track.Title,
			"frames", frames,
			"error", readErr,
		)
		s.events.emit(ports.SinkEvent{Type: ports.SinkError, Track: stream.track, Err: readErr})
		return
	}

	s.events.emit(ports.SinkEvent{
		Type:   ports.SinkIdle,
		Track:  stream.track,
		Reason: domain.TrackEndFinished,
	})
}

func (s *directSink) sendFrames(
	ctx context.Context,
	encoder *opusEncoder,
	pcm io.Reader,
	onFirstFrame func(),
) (int, error) {
	buf := make([]int16, opusFrameSize*opusChannels)
	frames := 0

	for {
		if err := s.waitWhilePaused(ctx); err != nil {
			return frames, nil
		}

		if err := readFrame(pcm, buf); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return frames, nil
			}
			return frames, fmt.Errorf("failed to read pcm: %w", err)
		}

		s.mu.Lock()
		volume := s.volume
		s.mu.Unlock()
		applyVolume(buf, volume)

		packet, err := encoder.encode(buf)
		if err != nil {
			return frames, fmt.Errorf("failed to encode opus frame: %w", err)
		}

		select {
		case s.send <- packet:
			if frames == 0 {
				onFirstFrame()
			}
			frames++
		case <-time.After(opusSendTimeout):
			return frames, errors.New("voice connection not accepting audio")
		case <-ctx.Done():
			return frames, nil
		}
	}
}

func (s *directSink) waitWhilePaused(ctx context.Context) error {
	s.mu.Lock()
	paused := s.paused
	s.mu.Unlock()

	if paused == nil {
		return nil
	}

	s.speaking(false)
	defer s.speaking(true)

	select {
	case <-paused:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// halt ends the current stream with reason and waits for it to report.
func (s *directSink) halt(ctx context.Context, reason domain.TrackEndReason) error {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if stream == nil {
		return nil
	}

	stream.end(reason)
	select {
	case <-stream.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *directSink) Pause(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused == nil {
		s.paused = make(chan struct{})
	}
	return nil
}

func (s *directSink) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused != nil {
		close(s.paused)
		s.paused = nil
	}
	return nil
}

func (s *directSink) Stop(ctx context.Context) error {
	return s.halt(ctx, domain.TrackEndStopped)
}

// Seek is not supported by the direct stream.
func (s *directSink) Seek(ctx context.Context, position time.Duration) (bool, error) {
	return false, nil
}

func (s *directSink) SetVolume(ctx context.Context, volume int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = volume
	return nil
}

func (s *directSink) Events() <-chan ports.SinkEvent {
	return s.events.events()
}

func (s *directSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.halt(ctx, domain.TrackEndCleanup)
	s.events.close()

	if s.vc != nil {
		if disconnectErr := s.vc.Disconnect(); disconnectErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to disconnect voice: %w", disconnectErr))
		}
	}
	return err
}

// decodeFunc turns a media stream into 48kHz stereo s16le PCM.
// Closing the returned reader also closes source.
type decodeFunc func(ctx context.Context, source io.ReadCloser) (io.ReadCloser, error)

func ffmpegDecoder(ffmpegPath string) decodeFunc {
	return func(ctx context.Context, source io.ReadCloser) (io.ReadCloser, error) {
		cmd := exec.CommandContext(ctx, ffmpegPath,
			"-i", "pipe:0",
			"-f", "s16le",
			"-ar", "48000",
			"-ac", "2",
			"-loglevel", "warning",
			"pipe:1",
		)
		cmd.Stdin = source
		var stderr strings.Builder
		cmd.Stderr = &stderr

		out, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to create ffmpeg pipe: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
		}

		return &ffmpegOutput{ReadCloser: out, cmd: cmd, source: source, stderr: &stderr}, nil
	}
}

// ffmpegOutput is ffmpeg's PCM output. Closing it stops ffmpeg and the media fetch.
type ffmpegOutput struct {
	io.ReadCloser
	cmd    *exec.Cmd
	source io.Closer
	stderr *strings.Builder
}

func (o *ffmpegOutput) Close() error {
	o.ReadCloser.Close()
	o.source.Close()

	err := o.cmd.Wait()
	if err != nil && o.stderr.Len() > 0 {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(o.stderr.String()))
	}
	return err
}

// Ensure DirectBackend and directSink implement port interfaces.
var (
	_ ports.SinkFactory = (*DirectBackend)(nil)
	_ ports.AudioSink   = (*directSink)(nil)
)
