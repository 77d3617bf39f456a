// ABOUTME: Audio encoder package for the listener transport
// ABOUTME: Provides Encoder interface and implementations for PCM, Opus
// Package encode turns interleaved 16-bit little-endian PCM chunks into the
// payload format negotiated with a listener.
//
// Supports: PCM passthrough, Opus
//
// Example:
//
//	encoder, err := encode.New(format)
//	payload, err := encoder.Encode(chunk)
package encode
