// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides Output interface and an oto implementation
// Package output plays interleaved int16 PCM on the local sound device.
//
// Example:
//
//	out := output.NewOto()
//	err := out.Open(48000, 2)
//	err = out.Write(samples)
package output
