// ABOUTME: Paced UDP sender emitting float32 sample datagrams
// ABOUTME: Stands in for the demodulator pipeline that feeds the bridge
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/resonate-radio/internal/ingest"
)

const (
	// DefaultDatagramSamples fills one 1472-byte payload
	DefaultDatagramSamples = ingest.DefaultDatagramSize / 4

	// paceInterval is how often the sender catches up with the wall clock
	paceInterval = 5 * time.Millisecond
)

// SenderConfig holds sender settings
type SenderConfig struct {
	Address         string
	SampleRate      int
	DatagramSamples int

	// Burst sends as fast as possible instead of in real time
	Burst bool
}

// DefaultSenderConfig targets the bridge's default ingest port
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		Address:         fmt.Sprintf("127.0.0.1:%d", ingest.DefaultPort),
		SampleRate:      48000,
		DatagramSamples: DefaultDatagramSamples,
	}
}

// Sender writes a Source to UDP one datagram at a time
type Sender struct {
	config SenderConfig
	conn   *net.UDPConn

	datagrams atomic.Uint64
	samples   atomic.Uint64
}

// NewSender dials the ingest address
func NewSender(config SenderConfig) (*Sender, error) {
	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}
	if config.DatagramSamples <= 0 || config.DatagramSamples*4 > 65507 {
		return nil, fmt.Errorf("datagram samples out of range: %d", config.DatagramSamples)
	}

	addr, err := net.ResolveUDPAddr("udp", config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", config.Address, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", config.Address, err)
	}

	return &Sender{config: config, conn: conn}, nil
}

// Run sends src until it ends or ctx is cancelled. The source must
// produce samples at the configured rate; nothing is resampled.
func (s *Sender) Run(ctx context.Context, src Source) error {
	if src.SampleRate() != s.config.SampleRate {
		return fmt.Errorf("source %q is %d Hz, bridge expects %d Hz",
			src.Title(), src.SampleRate(), s.config.SampleRate)
	}

	log.Printf("Feeding %q to %s (%d samples per datagram)", src.Title(), s.config.Address, s.config.DatagramSamples)

	samples := make([]float32, s.config.DatagramSamples)
	payload := make([]byte, 0, len(samples)*4)

	start := time.Now()
	ticker := time.NewTicker(paceInterval)
	defer ticker.Stop()

	for {
		if !s.config.Burst {
			due := uint64(time.Since(start).Seconds() * float64(s.config.SampleRate))
			if s.samples.Load()+uint64(len(samples)) > due {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
				continue
			}
		} else if ctx.Err() != nil {
			return nil
		}

		n, err := src.Read(samples)
		if errors.Is(err, io.EOF) {
			log.Printf("Source %q finished after %d datagrams", src.Title(), s.datagrams.Load())
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read source: %w", err)
		}
		if n == 0 {
			continue
		}

		if err := s.send(ingest.EncodeSamples(payload[:0], samples[:n])); err != nil {
			return err
		}
		s.samples.Add(uint64(n))
	}
}

// SendSamples writes one datagram immediately
func (s *Sender) SendSamples(samples []float32) error {
	if err := s.send(ingest.EncodeSamples(nil, samples)); err != nil {
		return err
	}
	s.samples.Add(uint64(len(samples)))
	return nil
}

func (s *Sender) send(payload []byte) error {
	if _, err := s.conn.Write(payload); err != nil {
		return fmt.Errorf("failed to send datagram: %w", err)
	}
	s.datagrams.Add(1)
	return nil
}

// Datagrams returns the number of datagrams sent
func (s *Sender) Datagrams() uint64 { return s.datagrams.Load() }

// Samples returns the number of samples sent
func (s *Sender) Samples() uint64 { return s.samples.Load() }

// Close releases the socket
func (s *Sender) Close() error {
	return s.conn.Close()
}
