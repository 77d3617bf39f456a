// ABOUTME: Audio type definitions
// ABOUTME: Defines the PCM stream format and sample conversions
package audio

import (
	"fmt"
	"math"
	"time"
)

const (
	// Stream format used end to end
	DefaultSampleRate = 48000
	DefaultChannels   = 2
	DefaultBitDepth   = 16

	// 16-bit range constants
	MaxInt16 = math.MaxInt16
	MinInt16 = math.MinInt16

	// fullScale maps a normalized sample of 1.0 onto the int16 range.
	// 1.0 lands one past MaxInt16 and saturates.
	fullScale = 32768.0
)

// Format describes a PCM audio stream
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat returns 48kHz stereo 16-bit PCM
func DefaultFormat() Format {
	return Format{
		Codec:      "pcm",
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
		BitDepth:   DefaultBitDepth,
	}
}

// FrameSize returns the number of bytes in one interleaved frame
func (f Format) FrameSize() int {
	return f.Channels * (f.BitDepth / 8)
}

// BytesPerSecond returns the byte rate of the stream
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.FrameSize()
}

// BytesFor returns the number of bytes covering d, rounded down to a whole frame
func (f Format) BytesFor(d time.Duration) int {
	frames := int64(f.SampleRate) * int64(d) / int64(time.Second)
	return int(frames) * f.FrameSize()
}

// DurationOf returns the playback duration of n bytes
func (f Format) DurationOf(n int) time.Duration {
	bps := f.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(bps))
}

// Validate checks that the format describes 16-bit PCM
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", f.SampleRate)
	}
	if f.Channels < 1 || f.Channels > 2 {
		return fmt.Errorf("unsupported channel count: %d (supported: 1, 2)", f.Channels)
	}
	if f.BitDepth != 16 {
		return fmt.Errorf("unsupported bit depth: %d (supported: 16)", f.BitDepth)
	}
	return nil
}

// FloatToInt16 converts a normalized sample to int16.
// Out-of-range values saturate, NaN becomes silence, and the
// fractional part is truncated toward zero.
func FloatToInt16(sample float32) int16 {
	scaled := float64(sample) * fullScale
	if math.IsNaN(scaled) {
		return 0
	}
	if scaled >= MaxInt16 {
		return MaxInt16
	}
	if scaled <= MinInt16 {
		return MinInt16
	}
	return int16(scaled)
}

// Int16ToFloat converts an int16 sample to the normalized range [-1, 1)
func Int16ToFloat(sample int16) float32 {
	return float32(float64(sample) / fullScale)
}
