// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for all audio decoders plus a codec switch
package decode

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-radio/pkg/audio"
)

// Decoder decodes stream payloads to interleaved int16 samples
type Decoder interface {
	// Decode converts encoded audio data to PCM samples
	Decode(data []byte) ([]int16, error)

	// Close releases decoder resources
	Close() error
}

// New returns the decoder for format.Codec
func New(format audio.Format) (Decoder, error) {
	switch format.Codec {
	case "pcm":
		return NewPCM(format)
	case "opus":
		return NewOpus(format)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", format.Codec)
	}
}
