// ABOUTME: Audio decoder package for the listener
// ABOUTME: Provides Decoder interface and implementations for PCM, Opus
// Package decode turns stream payloads back into interleaved int16 samples.
//
// Supports: PCM (16-bit), Opus
//
// Example:
//
//	decoder, err := decode.New(format)
//	samples, err := decoder.Decode(payload)
package decode
