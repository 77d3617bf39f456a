// ABOUTME: Radio bridge orchestration
// ABOUTME: Wires config, session, server, control channel and metrics together
package app

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"

	"github.com/Resonate-Protocol/resonate-radio/internal/config"
	"github.com/Resonate-Protocol/resonate-radio/internal/ingest"
	"github.com/Resonate-Protocol/resonate-radio/internal/metrics"
	"github.com/Resonate-Protocol/resonate-radio/internal/protocol"
	"github.com/Resonate-Protocol/resonate-radio/internal/server"
	"github.com/Resonate-Protocol/resonate-radio/internal/session"
	"github.com/Resonate-Protocol/resonate-radio/pkg/control"
)

// TuneKey is the control key carrying the tuner frequency in Hz
const TuneKey = "freq"

// BridgeOptions holds runtime switches that are not part of the config file
type BridgeOptions struct {
	UseTUI    bool
	AutoStart bool
}

// Bridge owns one session and the server listeners connect to.
// It implements server.Controller.
type Bridge struct {
	config  *config.Config
	options BridgeOptions

	metrics *metrics.Metrics
	server  *server.Server
	session *session.Session
	control *control.Sender

	ctx    context.Context
	cancel context.CancelFunc
}

// NewBridge builds every component from cfg without starting anything
func NewBridge(cfg *config.Config, options BridgeOptions) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	m := metrics.New()

	sender, err := control.NewSender(cfg.ControlAddress())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		config:  cfg,
		options: options,
		metrics: m,
		control: sender,
		ctx:     ctx,
		cancel:  cancel,
	}

	b.server = server.New(server.Config{
		Port:          cfg.Server.Port,
		Name:          cfg.Server.Name,
		EnableMDNS:    cfg.Server.EnableMDNS,
		Debug:         cfg.Server.Debug,
		UseTUI:        options.UseTUI,
		Codec:         cfg.Server.Codec,
		Format:        cfg.Format(),
		ChunkDuration: cfg.ChunkDuration(),
	}, b, m)

	bufferOpts := cfg.BufferOptions()
	bufferOpts.Observer = m

	b.session, err = session.New(session.Config{
		Format:   cfg.Format(),
		Buffer:   bufferOpts,
		Ingest:   ingestConfig(cfg),
		Observer: m,
	}, b.server)
	if err != nil {
		cancel()
		sender.Close()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return b, nil
}

// Run serves listeners until Stop or a TUI quit, then tears everything down
func (b *Bridge) Run() error {
	defer b.Close()

	if b.options.AutoStart {
		if err := b.StartSession(); err != nil {
			return err
		}
	}

	return b.server.Start()
}

// Stop asks Run to return
func (b *Bridge) Stop() {
	b.server.Stop()
}

// Close stops the session and releases the control socket
func (b *Bridge) Close() {
	b.session.Close()
	b.cancel()
	if err := b.control.Close(); err != nil {
		log.Printf("Error closing control sender: %v", err)
	}
}

// StartSession starts ingest and playback; a running session is left alone
func (b *Bridge) StartSession() error {
	return b.session.Start(b.ctx)
}

// StopSession stops ingest and playback
func (b *Bridge) StopSession() error {
	b.session.Stop()
	return nil
}

// SendControl forwards key/value to the radio pipeline
func (b *Bridge) SendControl(key, value string) error {
	return b.sendControl(control.Parse(key, value))
}

// Tune retunes the receiver and announces the new station to listeners
func (b *Bridge) Tune(mhz float64) error {
	if mhz <= 0 || math.IsInf(mhz, 0) || math.IsNaN(mhz) {
		return fmt.Errorf("invalid frequency: %v MHz", mhz)
	}

	msg := control.Message{Key: TuneKey, Numeric: true, Number: math.Round(mhz * 1e6)}
	if err := b.sendControl(msg); err != nil {
		return err
	}

	b.server.SetMetadata(protocol.StreamMetadata{
		Title:   StationTitle(mhz),
		Station: b.config.Server.Name,
	})
	return nil
}

func (b *Bridge) sendControl(msg control.Message) error {
	err := b.control.SendMessage(msg)
	b.metrics.ObserveControl(msg.Key, err)
	return err
}

// Status reports the session state
func (b *Bridge) Status() session.Status {
	return b.session.Status()
}

// Server returns the listener-facing server
func (b *Bridge) Server() *server.Server {
	return b.server
}

func ingestConfig(cfg *config.Config) ingest.Config {
	return ingest.Config{
		BindAddress: cfg.Ingest.BindAddress,
		Port:        cfg.Ingest.Port,
		ReadBuffer:  cfg.Ingest.ReadBuffer,
	}
}

// StationTitle formats a frequency the way it is shown to listeners
func StationTitle(mhz float64) string {
	return strconv.FormatFloat(mhz, 'f', -1, 64) + " MHz FM"
}
