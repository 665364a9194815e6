package infrastructure

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"layeh.com/gopus"
)

// Discord voice expects 20ms stereo Opus frames at 48kHz.
const (
	opusChannels   = 2
	opusSampleRate = 48000
	opusFrameSize  = 960
	opusMaxBytes   = opusFrameSize * opusChannels * 2
)

// opusEncoder turns 16-bit PCM frames into Opus packets.
type opusEncoder struct {
	encoder *gopus.Encoder
}

func newOpusEncoder() (*opusEncoder, error) {
	encoder, err := gopus.NewEncoder(opusSampleRate, opusChannels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	return &opusEncoder{encoder: encoder}, nil
}

func (e *opusEncoder) encode(pcm []int16) ([]byte, error) {
	return e.encoder.Encode(pcm, opusFrameSize, opusMaxBytes)
}

// readFrame fills pcm with one frame of little-endian samples.
// A truncated final frame is dropped and reported as io.EOF.
func readFrame(r io.Reader, pcm []int16) error {
	err := binary.Read(r, binary.LittleEndian, pcm)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return err
}

// applyVolume scales samples in place. 100 is unity gain.
func applyVolume(pcm []int16, volume int) {
	if volume == 100 {
		return
	}

	gain := float64(volume) / 100
	for i, sample := range pcm {
		scaled := math.Round(float64(sample) * gain)
		switch {
		case scaled > math.MaxInt16:
			pcm[i] = math.MaxInt16
		case scaled < math.MinInt16:
			pcm[i] = math.MinInt16
		default:
			pcm[i] = int16(scaled)
		}
	}
}
