// ABOUTME: Listener application that plays a bridge stream locally
// ABOUTME: Coordinates discovery, the WebSocket client, decoding, and audio output
package app

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Resonate-Protocol/resonate-radio/internal/client"
	"github.com/Resonate-Protocol/resonate-radio/internal/discovery"
	"github.com/Resonate-Protocol/resonate-radio/internal/protocol"
	"github.com/Resonate-Protocol/resonate-radio/internal/version"
	"github.com/Resonate-Protocol/resonate-radio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-radio/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-radio/pkg/audio/output"
)

// ListenerConfig holds listener configuration
type ListenerConfig struct {
	URL    string // empty means discover a bridge over mDNS
	Name   string
	Codecs []string
	Debug  bool

	// DiscoveryTimeout bounds the mDNS search (0 waits until Stop)
	DiscoveryTimeout time.Duration
}

// Listener plays one bridge stream
type Listener struct {
	config    ListenerConfig
	client    *client.Client
	output    output.Output
	discovery *discovery.Manager
	decoder   decode.Decoder

	chunks atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewListener creates a listener writing to out
func NewListener(config ListenerConfig, out output.Output) *Listener {
	if len(config.Codecs) == 0 {
		config.Codecs = []string{"opus", "pcm"}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		config: config,
		output: out,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run connects and plays until Stop or the connection ends
func (l *Listener) Run() error {
	defer l.output.Close()

	url := l.config.URL
	if url == "" {
		found, err := l.discover()
		if err != nil {
			return err
		}
		url = found
	}

	if err := l.connect(url); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer l.client.Close()

	l.loop()
	return nil
}

// discover waits for the first bridge announced over mDNS
func (l *Listener) discover() (string, error) {
	l.discovery = discovery.NewManager(discovery.Config{ServiceName: l.config.Name})
	l.discovery.Browse()
	defer l.discovery.Stop()

	var timeout <-chan time.Time
	if l.config.DiscoveryTimeout > 0 {
		timeout = time.After(l.config.DiscoveryTimeout)
	}

	log.Printf("Searching for radio bridges...")
	select {
	case server := <-l.discovery.Servers():
		log.Printf("Found bridge %s at %s", server.Name, server.URL())
		return server.URL(), nil
	case <-timeout:
		return "", fmt.Errorf("no bridge found within %v", l.config.DiscoveryTimeout)
	case <-l.ctx.Done():
		return "", fmt.Errorf("discovery cancelled")
	}
}

// connect establishes the connection to the bridge
func (l *Listener) connect(url string) error {
	l.client = client.NewClient(client.Config{
		URL:             url,
		ClientID:        uuid.New().String(),
		Name:            l.config.Name,
		SupportedCodecs: l.config.Codecs,
		Debug:           l.config.Debug,
		DeviceInfo: protocol.DeviceInfo{
			ProductName:     version.Product,
			Manufacturer:    version.Manufacturer,
			SoftwareVersion: version.Version,
		},
	})

	if err := l.client.Connect(); err != nil {
		return err
	}

	log.Printf("Connected to bridge: %s", l.client.Server().Name)
	return nil
}

// loop routes stream events until the connection or context ends
func (l *Listener) loop() {
	defer l.closeDecoder()

	for {
		select {
		case start := <-l.client.StreamStart:
			l.handleStreamStart(start)

		case chunk := <-l.client.AudioChunks:
			l.handleAudioChunk(chunk)

		case end := <-l.client.StreamEnd:
			log.Printf("Stream ended: %s (%d chunks played)", end.Reason, l.chunks.Load())
			l.closeDecoder()

		case meta := <-l.client.Metadata:
			log.Printf("Now playing: %s", meta.Title)

		case state := <-l.client.State:
			if l.config.Debug {
				log.Printf("[DEBUG] Bridge state: playing=%v started=%v buffered=%dms listeners=%d",
					state.Playing, state.Started, state.BufferedMs, state.Listeners)
			}

		case <-l.client.Done():
			log.Printf("Connection to bridge closed")
			return

		case <-l.ctx.Done():
			l.client.SendGoodbye("shutdown")
			return
		}
	}
}

// handleStreamStart initializes decoder and output
func (l *Listener) handleStreamStart(start protocol.StreamStart) {
	log.Printf("Stream starting: %s %dHz %dch %dbit, %dms chunks",
		start.Codec, start.SampleRate, start.Channels, start.BitDepth, start.ChunkMs)

	format := audio.Format{
		Codec:      start.Codec,
		SampleRate: start.SampleRate,
		Channels:   start.Channels,
		BitDepth:   start.BitDepth,
	}

	decoder, err := decode.New(format)
	if err != nil {
		log.Printf("Failed to create decoder: %v", err)
		return
	}

	if err := l.output.Open(format.SampleRate, format.Channels); err != nil {
		log.Printf("Failed to initialize output: %v", err)
		decoder.Close()
		return
	}

	l.closeDecoder()
	l.decoder = decoder
}

// handleAudioChunk decodes and plays one chunk
func (l *Listener) handleAudioChunk(chunk client.AudioChunk) {
	if l.decoder == nil {
		return
	}

	pcm, err := l.decoder.Decode(chunk.Data)
	if err != nil {
		log.Printf("Decode error: %v", err)
		return
	}

	if err := l.output.Write(pcm); err != nil {
		log.Printf("Playback error: %v", err)
		return
	}
	l.chunks.Add(1)
}

func (l *Listener) closeDecoder() {
	if l.decoder != nil {
		l.decoder.Close()
		l.decoder = nil
	}
}

// Chunks returns the number of chunks played
func (l *Listener) Chunks() uint64 {
	return l.chunks.Load()
}

// Stop makes Run say goodbye and return
func (l *Listener) Stop() {
	l.cancel()
}
