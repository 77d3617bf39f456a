// ABOUTME: Sample-to-playback bridge package
// ABOUTME: Buffers mono float samples and serves fixed-size stereo PCM chunks
// Package bridge connects an irregular producer of mono float samples to a
// consumer that pulls fixed-size stereo 16-bit PCM chunks on a strict period.
//
// The Buffer implements two narrow capabilities:
//   - SampleSink: Ingest converts a batch to stereo PCM and queues it
//   - ByteSource: Pull returns exactly ChunkSize bytes, every time
//
// Until more than the pre-roll watermark has been buffered, Pull returns
// silence. Once playback has started it stays started; a later underrun
// yields silence for that pull and leaves queued data untouched.
//
// Example:
//
//	buf, err := bridge.NewBuffer(bridge.DefaultOptions())
//	buf.Ingest(samples)     // producer side, any cadence
//	chunk := buf.Pull()     // consumer side, every 20ms
package bridge
