// ABOUTME: Mono float to stereo 16-bit PCM conversion
// ABOUTME: Saturates out-of-range input and duplicates each sample to both channels
package bridge

import (
	"encoding/binary"

	"github.com/Resonate-Protocol/resonate-radio/pkg/audio"
)

// bytesPerMonoSample is the stereo s16le footprint of one source sample
const bytesPerMonoSample = 4

// Convert returns the interleaved stereo s16le encoding of a mono batch
func Convert(samples []float32) []byte {
	return AppendStereo16(make([]byte, 0, len(samples)*bytesPerMonoSample), samples)
}

// AppendStereo16 appends the stereo s16le encoding of samples to dst.
// Each sample is scaled, saturated, and written to left then right.
func AppendStereo16(dst []byte, samples []float32) []byte {
	for _, s := range samples {
		v := uint16(audio.FloatToInt16(s))
		dst = binary.LittleEndian.AppendUint16(dst, v)
		dst = binary.LittleEndian.AppendUint16(dst, v)
	}
	return dst
}
