// ABOUTME: Streaming session lifecycle
// ABOUTME: Owns one playback buffer and its ingest listener between Start and Stop
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-radio/internal/ingest"
	"github.com/Resonate-Protocol/resonate-radio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-radio/pkg/bridge"
)

// ErrClosed is returned by Start after Close
var ErrClosed = errors.New("session closed")

// Player consumes the buffer on the playback tick
type Player interface {
	Play(src bridge.ByteSource) error
	StopPlayback()
}

// Listener receives upstream samples while a session runs
type Listener interface {
	Start(ctx context.Context) error
	Stop()
}

// ListenerFactory builds a listener feeding sink
type ListenerFactory func(sink bridge.SampleSink) Listener

// Config holds session settings
type Config struct {
	Format   audio.Format
	Buffer   bridge.Options
	Ingest   ingest.Config
	Observer Observer

	// NewListener overrides the UDP listener (tests)
	NewListener ListenerFactory
}

// Observer is notified of datagrams and session transitions (optional)
type Observer interface {
	ingest.Observer
	ObserveSession(running bool)
}

// Status is a snapshot of the session
type Status struct {
	Running       bool          `json:"running"`
	Started       bool          `json:"started"`
	BufferedBytes int           `json:"buffered_bytes"`
	BufferedMs    int64         `json:"buffered_ms"`
	Uptime        time.Duration `json:"uptime_ns"`
	Stats         bridge.Stats  `json:"stats"`
}

// Session is an explicit streaming session. A fresh buffer is created on every Start.
type Session struct {
	config Config
	player Player

	mu       sync.Mutex
	buffer   *bridge.Buffer
	listener Listener
	cancel   context.CancelFunc
	since    time.Time
	closed   bool
}

// New creates an idle session
func New(config Config, player Player) (*Session, error) {
	if player == nil {
		return nil, fmt.Errorf("session requires a player")
	}
	if config.Format.SampleRate == 0 {
		config.Format = audio.DefaultFormat()
	}
	if err := config.Buffer.Validate(); err != nil {
		return nil, fmt.Errorf("invalid buffer options: %w", err)
	}
	if config.NewListener == nil {
		ingestConfig := config.Ingest
		observer := config.Observer
		config.NewListener = func(sink bridge.SampleSink) Listener {
			l := ingest.New(ingestConfig, sink)
			if observer != nil {
				l.SetObserver(observer)
			}
			return l
		}
	}

	return &Session{config: config, player: player}, nil
}

// Start begins a session. It is a no-op while a session is already running.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.buffer != nil {
		log.Printf("Session already running")
		return nil
	}

	buf, err := bridge.NewBuffer(s.config.Buffer)
	if err != nil {
		return fmt.Errorf("failed to create buffer: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	listener := s.config.NewListener(buf)
	if err := listener.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("failed to start ingest: %w", err)
	}

	if err := s.player.Play(buf); err != nil {
		listener.Stop()
		cancel()
		return fmt.Errorf("failed to start playback: %w", err)
	}

	s.buffer = buf
	s.listener = listener
	s.cancel = cancel
	s.since = time.Now()

	if s.config.Observer != nil {
		s.config.Observer.ObserveSession(true)
	}

	log.Printf("Session started: pre-roll %d bytes, chunk %d bytes", buf.PrerollSize(), buf.ChunkSize())
	return nil
}

// Stop ends the running session and discards its buffer. It is a no-op when idle.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	if s.buffer == nil {
		return
	}

	s.player.StopPlayback()
	s.listener.Stop()
	s.cancel()

	stats := s.buffer.Stats()
	log.Printf("Session stopped after %v: %d pulls, %d underruns, %d bytes played",
		time.Since(s.since).Round(time.Millisecond), stats.Pulls, stats.UnderrunPulls, stats.BytesPulled)

	s.buffer = nil
	s.listener = nil
	s.cancel = nil

	if s.config.Observer != nil {
		s.config.Observer.ObserveSession(false)
	}
}

// Close stops any running session; later Start calls fail with ErrClosed
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.closed = true
	return nil
}

// Running reports whether a session is active
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer != nil
}

// Status returns a snapshot of the session state
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buffer == nil {
		return Status{}
	}

	buffered := s.buffer.Buffered()
	return Status{
		Running:       true,
		Started:       s.buffer.Started(),
		BufferedBytes: buffered,
		BufferedMs:    s.config.Format.DurationOf(buffered).Milliseconds(),
		Uptime:        time.Since(s.since),
		Stats:         s.buffer.Stats(),
	}
}
