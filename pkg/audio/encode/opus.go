// ABOUTME: Opus audio encoder
// ABOUTME: Encodes 16-bit PCM chunks to Opus packets
package encode

import (
	"encoding/binary"
	"fmt"
	"time"

	"gopkg.in/hraban/opus.v2"

	"github.com/Resonate-Protocol/resonate-radio/pkg/audio"
)

// maxOpusPacket is the largest packet the encoder is allowed to produce
const maxOpusPacket = 4000

// OpusEncoder encodes Opus audio
type OpusEncoder struct {
	encoder  *opus.Encoder
	channels int
	pcm      []int16
	packet   []byte
}

// NewOpus creates a new Opus encoder
func NewOpus(format audio.Format) (Encoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus encoder: %s", format.Codec)
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}

	encoder, err := opus.NewEncoder(format.SampleRate, format.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	return &OpusEncoder{
		encoder:  encoder,
		channels: format.Channels,
		packet:   make([]byte, maxOpusPacket),
	}, nil
}

// ValidFrameDuration reports whether Opus can encode a frame of d
func ValidFrameDuration(d time.Duration) bool {
	switch d {
	case 2500 * time.Microsecond, 5 * time.Millisecond, 10 * time.Millisecond,
		20 * time.Millisecond, 40 * time.Millisecond, 60 * time.Millisecond:
		return true
	}
	return false
}

// Encode converts one s16le chunk to an Opus packet.
// The chunk must cover a valid Opus frame duration.
func (e *OpusEncoder) Encode(pcm []byte) ([]byte, error) {
	samples := len(pcm) / 2
	if len(pcm)%2 != 0 || samples%e.channels != 0 {
		return nil, fmt.Errorf("pcm chunk of %d bytes is not whole frames", len(pcm))
	}

	if cap(e.pcm) < samples {
		e.pcm = make([]int16, samples)
	}
	buf := e.pcm[:samples]
	for i := range buf {
		buf[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}

	n, err := e.encoder.Encode(buf, e.packet)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}

	out := make([]byte, n)
	copy(out, e.packet[:n])
	return out, nil
}

// Close releases resources
func (e *OpusEncoder) Close() error {
	return nil
}
