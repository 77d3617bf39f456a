// ABOUTME: UDP receiver for float32 mono sample datagrams
// ABOUTME: Each datagram becomes one batch handed to a bridge.SampleSink
package ingest

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math"
	"net"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-radio/pkg/bridge"
)

const (
	// DefaultPort is the port the demodulator pipeline sends samples to
	DefaultPort = 1234

	// DefaultDatagramSize is the payload size of one sample datagram (368 samples)
	DefaultDatagramSize = 1472

	// maxDatagram bounds the receive buffer
	maxDatagram = 65507

	// pollInterval is the read deadline used to notice cancellation
	pollInterval = time.Second

	bytesPerSample = 4
)

// Config holds listener settings
type Config struct {
	BindAddress string
	Port        int

	// ReadBuffer sets the socket receive buffer size (0 keeps the OS default)
	ReadBuffer int
}

// DefaultConfig listens on all interfaces on the default port
func DefaultConfig() Config {
	return Config{
		BindAddress: "0.0.0.0",
		Port:        DefaultPort,
	}
}

// Stats holds listener counters
type Stats struct {
	Datagrams      uint64
	Samples        uint64
	EmptyDatagrams uint64
	TrailingBytes  uint64
	ReadErrors     uint64
}

// Observer receives per-datagram notifications (optional)
type Observer interface {
	ObserveDatagram(samples, trailing int)
}

// Listener reads sample datagrams and feeds them to a sink
type Listener struct {
	config   Config
	sink     bridge.SampleSink
	observer Observer

	conn   *net.UDPConn
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	stats Stats
}

// New creates a listener. It does not bind until Start.
func New(config Config, sink bridge.SampleSink) *Listener {
	return &Listener{
		config: config,
		sink:   sink,
	}
}

// SetObserver installs an observer. Call before Start.
func (l *Listener) SetObserver(obs Observer) {
	l.observer = obs
}

// Start binds the socket and begins the receive loop
func (l *Listener) Start(ctx context.Context) error {
	if l.conn != nil {
		return fmt.Errorf("ingest listener already started")
	}

	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(l.config.BindAddress, fmt.Sprint(l.config.Port)))
	if err != nil {
		return fmt.Errorf("failed to resolve ingest address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP %s: %w", addr, err)
	}

	if l.config.ReadBuffer > 0 {
		if err := conn.SetReadBuffer(l.config.ReadBuffer); err != nil {
			log.Printf("Failed to set ingest read buffer to %d: %v", l.config.ReadBuffer, err)
		}
	}

	l.conn = conn
	l.ctx, l.cancel = context.WithCancel(ctx)

	log.Printf("Ingest listening on %s", conn.LocalAddr())

	l.wg.Add(1)
	go l.receiveLoop()

	return nil
}

// Addr returns the bound address, or nil before Start
func (l *Listener) Addr() *net.UDPAddr {
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr().(*net.UDPAddr)
}

// Stop closes the socket and waits for the receive loop to exit
func (l *Listener) Stop() {
	if l.conn == nil {
		return
	}

	l.cancel()
	l.conn.Close()
	l.wg.Wait()
	l.conn = nil

	stats := l.Stats()
	log.Printf("Ingest stopped: %d datagrams, %d samples", stats.Datagrams, stats.Samples)
}

// Stats returns a snapshot of the counters
func (l *Listener) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *Listener) receiveLoop() {
	defer l.wg.Done()

	conn := l.conn
	buf := make([]byte, maxDatagram)

	for {
		select {
		case <-l.ctx.Done():
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(pollInterval)); err != nil {
			if l.ctx.Err() != nil {
				return
			}
			log.Printf("Failed to set ingest read deadline: %v", err)
			continue
		}

		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if l.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}

			l.mu.Lock()
			l.stats.ReadErrors++
			l.mu.Unlock()
			log.Printf("Ingest read error: %v", err)
			continue
		}

		l.handleDatagram(buf[:n])
	}
}

func (l *Listener) handleDatagram(data []byte) {
	samples, trailing := DecodeSamples(data)

	l.mu.Lock()
	l.stats.Datagrams++
	l.stats.TrailingBytes += uint64(trailing)
	if len(samples) == 0 {
		l.stats.EmptyDatagrams++
	} else {
		l.stats.Samples += uint64(len(samples))
	}
	l.mu.Unlock()

	if l.observer != nil {
		l.observer.ObserveDatagram(len(samples), trailing)
	}

	if len(samples) > 0 {
		l.sink.Ingest(samples)
	}
}

// DecodeSamples interprets data as little-endian float32 samples.
// It returns the samples and the count of trailing bytes that did not
// form a whole sample.
func DecodeSamples(data []byte) ([]float32, int) {
	count := len(data) / bytesPerSample
	samples := make([]float32, count)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*bytesPerSample:]))
	}
	return samples, len(data) - count*bytesPerSample
}

// EncodeSamples appends the little-endian float32 encoding of samples to dst
func EncodeSamples(dst []byte, samples []float32) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(s))
	}
	return dst
}
