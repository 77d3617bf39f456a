// ABOUTME: PCM audio encoder
// ABOUTME: Passes 16-bit PCM chunks through after a sanity check
package encode

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-radio/pkg/audio"
)

// PCMEncoder passes PCM through unchanged
type PCMEncoder struct {
	frameSize int
}

// NewPCM creates a new PCM encoder
func NewPCM(format audio.Format) (Encoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM encoder: %s", format.Codec)
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}

	return &PCMEncoder{frameSize: format.FrameSize()}, nil
}

// Encode returns pcm as-is; it must hold whole frames
func (e *PCMEncoder) Encode(pcm []byte) ([]byte, error) {
	if len(pcm)%e.frameSize != 0 {
		return nil, fmt.Errorf("pcm chunk of %d bytes is not a whole number of %d-byte frames", len(pcm), e.frameSize)
	}
	return pcm, nil
}

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}
