// ABOUTME: Opus audio decoder
// ABOUTME: Decodes Opus packets to int16 samples
package decode

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"

	"github.com/Resonate-Protocol/resonate-radio/pkg/audio"
)

// maxOpusFrame is the largest Opus frame in samples per channel (120ms at 48kHz)
const maxOpusFrame = 5760

// OpusDecoder decodes Opus audio
type OpusDecoder struct {
	decoder  *opus.Decoder
	channels int
}

// NewOpus creates a new Opus decoder
func NewOpus(format audio.Format) (Decoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus decoder: %s", format.Codec)
	}

	dec, err := opus.NewDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder:  dec,
		channels: format.Channels,
	}, nil
}

// Decode converts one Opus packet to interleaved samples
func (d *OpusDecoder) Decode(data []byte) ([]int16, error) {
	pcm := make([]int16, maxOpusFrame*d.channels)

	n, err := d.decoder.Decode(data, pcm)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}

	return pcm[:n*d.channels], nil
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	return nil
}
