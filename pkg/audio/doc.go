// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines the stream Format and float/int16 sample conversion
// Package audio provides the fundamental audio types shared by the bridge,
// the playback transport and the listener.
//
// The radio stream is always interleaved signed 16-bit little-endian PCM.
// This package defines:
//   - Format: describes a PCM stream (codec, sample rate, channels, bit depth)
//   - Byte math: converting durations to frame-aligned byte counts
//   - Conversions: normalized float samples to saturated int16 and back
//
// Example:
//
//	format := audio.DefaultFormat()
//	chunkBytes := format.BytesFor(20 * time.Millisecond) // 3840
//	pcm := audio.FloatToInt16(0.5)                       // 16384
package audio
