// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for all audio encoders plus a codec switch
package encode

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-radio/pkg/audio"
)

// Encoder encodes interleaved s16le PCM chunks
type Encoder interface {
	// Encode converts one PCM chunk to encoded audio data
	Encode(pcm []byte) ([]byte, error)

	// Close releases encoder resources
	Close() error
}

// New returns the encoder for format.Codec
func New(format audio.Format) (Encoder, error) {
	switch format.Codec {
	case "pcm":
		return NewPCM(format)
	case "opus":
		return NewOpus(format)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", format.Codec)
	}
}
