// ABOUTME: Capability interfaces for the bridge
// ABOUTME: SampleSink for producers, ByteSource for playback transports
package bridge

// SampleSink accepts batches of mono samples in the normalized range [-1, 1]
type SampleSink interface {
	// Ingest consumes one batch and returns the number of samples taken.
	// It never blocks and always consumes the whole batch.
	Ingest(samples []float32) int
}

// ByteSource serves fixed-size interleaved 16-bit PCM chunks
type ByteSource interface {
	// Pull returns exactly ChunkSize bytes without blocking
	Pull() []byte

	// ChunkSize returns the length of every block returned by Pull
	ChunkSize() int
}

// PullResult describes what a single Pull produced
type PullResult int

const (
	// PullAudio means buffered audio was returned
	PullAudio PullResult = iota
	// PullPreroll means silence was returned because playback has not started
	PullPreroll
	// PullUnderrun means silence was returned because too little audio was buffered
	PullUnderrun
)

func (r PullResult) String() string {
	switch r {
	case PullAudio:
		return "audio"
	case PullPreroll:
		return "preroll"
	case PullUnderrun:
		return "underrun"
	default:
		return "unknown"
	}
}

// Observer receives buffer events. Calls happen outside the buffer lock,
// from whichever goroutine invoked Ingest or Pull.
type Observer interface {
	// ObserveIngest reports one ingested batch and the resulting buffer depth
	ObserveIngest(samples, bytes, buffered int)

	// ObservePull reports one pull and the resulting buffer depth
	ObservePull(result PullResult, splits, buffered int)

	// ObserveDrop reports queued bytes discarded to respect MaxBufferedBytes
	ObserveDrop(bytes int)
}
