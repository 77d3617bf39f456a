// ABOUTME: Playback buffer with pre-roll hysteresis and exact chunked extraction
// ABOUTME: Single synchronization point between the sample producer and the playback tick
package bridge

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-radio/pkg/audio"
)

const (
	// DefaultPreroll is the audio buffered before playback starts
	DefaultPreroll = 60 * time.Millisecond

	// DefaultChunkDuration is the playback tick period
	DefaultChunkDuration = 20 * time.Millisecond
)

// Options configures a Buffer. Sizes are fixed for the life of the buffer.
type Options struct {
	// PrerollBytes must be exceeded before the first real audio is served
	PrerollBytes int

	// ChunkBytes is the exact length of every Pull result
	ChunkBytes int

	// MaxBufferedBytes caps queued audio; oldest chunks are dropped
	// when an ingest would exceed it. Zero means unbounded.
	MaxBufferedBytes int

	// Observer receives buffer events (optional)
	Observer Observer
}

// DefaultOptions returns 60ms pre-roll and 20ms chunks of 48kHz stereo 16-bit PCM
func DefaultOptions() Options {
	return OptionsFor(audio.DefaultFormat(), DefaultPreroll, DefaultChunkDuration)
}

// OptionsFor derives buffer sizes from a stream format and durations
func OptionsFor(format audio.Format, preroll, chunk time.Duration) Options {
	return Options{
		PrerollBytes: format.BytesFor(preroll),
		ChunkBytes:   format.BytesFor(chunk),
	}
}

// Validate checks the option values
func (o Options) Validate() error {
	if o.ChunkBytes <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", o.ChunkBytes)
	}
	if o.ChunkBytes%bytesPerMonoSample != 0 {
		return fmt.Errorf("chunk size %d is not a whole number of stereo frames", o.ChunkBytes)
	}
	if o.PrerollBytes < 0 {
		return fmt.Errorf("pre-roll must not be negative, got %d", o.PrerollBytes)
	}
	if o.MaxBufferedBytes < 0 {
		return fmt.Errorf("max buffered bytes must not be negative, got %d", o.MaxBufferedBytes)
	}
	if o.MaxBufferedBytes > 0 && o.MaxBufferedBytes < o.PrerollBytes+o.ChunkBytes {
		return fmt.Errorf("max buffered bytes %d leaves no room above pre-roll %d plus one chunk %d",
			o.MaxBufferedBytes, o.PrerollBytes, o.ChunkBytes)
	}
	return nil
}

// Stats holds cumulative buffer counters
type Stats struct {
	Batches         uint64
	SamplesIngested uint64
	BytesIngested   uint64
	BytesPulled     uint64
	BytesDropped    uint64
	Pulls           uint64
	PrerollPulls    uint64
	UnderrunPulls   uint64
	Splits          uint64
}

// Buffer bridges mono sample batches to fixed-size stereo PCM pulls.
// It implements SampleSink and ByteSource and is safe for one producer
// and one consumer running concurrently.
type Buffer struct {
	opts Options

	mu      sync.Mutex
	queue   chunkQueue
	started bool
	stats   Stats
}

// NewBuffer creates an empty buffer in the pre-roll state
func NewBuffer(opts Options) (*Buffer, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid buffer options: %w", err)
	}
	return &Buffer{opts: opts}, nil
}

// Ingest converts a mono batch to stereo PCM and queues it as one chunk
func (b *Buffer) Ingest(samples []float32) int {
	if len(samples) == 0 {
		return 0
	}

	chunk := Convert(samples)

	b.mu.Lock()
	dropped := b.makeRoom(len(chunk))
	b.queue.pushBack(chunk)

	b.stats.Batches++
	b.stats.SamplesIngested += uint64(len(samples))
	b.stats.BytesIngested += uint64(len(chunk))

	justStarted := false
	if !b.started && b.queue.size > b.opts.PrerollBytes {
		b.started = true
		justStarted = true
	}
	buffered := b.queue.size
	b.mu.Unlock()

	if justStarted {
		log.Printf("Pre-roll complete: %d bytes buffered, starting playback", buffered)
	}

	if obs := b.opts.Observer; obs != nil {
		if dropped > 0 {
			obs.ObserveDrop(dropped)
		}
		obs.ObserveIngest(len(samples), len(chunk), buffered)
	}

	return len(samples)
}

// makeRoom drops head chunks until incoming bytes fit under the cap.
// Caller must hold b.mu.
func (b *Buffer) makeRoom(incoming int) int {
	limit := b.opts.MaxBufferedBytes
	if limit == 0 {
		return 0
	}

	dropped := 0
	for b.queue.Len() > 0 && b.queue.size+incoming > limit {
		dropped += len(b.queue.popFront())
	}
	b.stats.BytesDropped += uint64(dropped)
	return dropped
}

// Pull returns exactly ChunkSize bytes of stereo PCM.
// Silence is returned during pre-roll and on underrun; neither touches the queue.
func (b *Buffer) Pull() []byte {
	out := make([]byte, b.opts.ChunkBytes)

	b.mu.Lock()
	result, splits := b.fill(out)
	b.stats.Pulls++
	switch result {
	case PullPreroll:
		b.stats.PrerollPulls++
	case PullUnderrun:
		b.stats.UnderrunPulls++
	case PullAudio:
		b.stats.BytesPulled += uint64(len(out))
		b.stats.Splits += uint64(splits)
	}
	buffered := b.queue.size
	b.mu.Unlock()

	if obs := b.opts.Observer; obs != nil {
		obs.ObservePull(result, splits, buffered)
	}

	return out
}

// fill assembles out from the head of the queue. Caller must hold b.mu.
func (b *Buffer) fill(out []byte) (PullResult, int) {
	want := len(out)

	if !b.started {
		return PullPreroll, 0
	}
	if b.queue.size < want {
		return PullUnderrun, 0
	}

	splits := 0
	filled := 0
	for filled < want {
		chunk := b.queue.popFront()

		if need := want - filled; len(chunk) > need {
			b.queue.pushFront(chunk[need:])
			chunk = chunk[:need]
			splits++
		}

		filled += copy(out[filled:], chunk)
	}

	return PullAudio, splits
}

// ChunkSize returns the length of every Pull result
func (b *Buffer) ChunkSize() int {
	return b.opts.ChunkBytes
}

// PrerollSize returns the pre-roll watermark in bytes
func (b *Buffer) PrerollSize() int {
	return b.opts.PrerollBytes
}

// Buffered returns the number of queued bytes
func (b *Buffer) Buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.size
}

// Chunks returns the number of queued chunks
func (b *Buffer) Chunks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.Len()
}

// Started reports whether the pre-roll watermark has been crossed
func (b *Buffer) Started() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started
}

// Stats returns a snapshot of the cumulative counters
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}
