// ABOUTME: Playback tick for the radio bridge server
// ABOUTME: Pulls one chunk per period from a ByteSource and streams it to every listener
package server

import (
	"fmt"
	"log"
	"time"

	"github.com/Resonate-Protocol/resonate-radio/internal/protocol"
	"github.com/Resonate-Protocol/resonate-radio/pkg/bridge"
)

// streamer runs the fixed-period pull loop for one session
type streamer struct {
	server *Server
	src    bridge.ByteSource
	chunks uint64

	stopChan chan struct{}
	done     chan struct{}
}

// Play starts pulling src on the chunk period. It implements session.Player.
func (s *Server) Play(src bridge.ByteSource) error {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()

	if s.stream != nil {
		return fmt.Errorf("already playing")
	}

	expected := s.config.Format.BytesFor(s.config.ChunkDuration)
	if src.ChunkSize() != expected {
		return fmt.Errorf("source chunk size %d does not match %v period (%d bytes)",
			src.ChunkSize(), s.config.ChunkDuration, expected)
	}

	st := &streamer{
		server:   s,
		src:      src,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.stream = st

	for _, client := range s.snapshotClients() {
		s.sendStreamStart(client)
	}

	go st.run()

	log.Printf("Playback started: %d byte chunks every %v", src.ChunkSize(), s.config.ChunkDuration)
	return nil
}

// StopPlayback halts the pull loop and tells listeners the stream ended.
// It implements session.Player and does nothing when idle.
func (s *Server) StopPlayback() {
	s.streamMu.Lock()
	st := s.stream
	s.stream = nil
	s.streamMu.Unlock()

	if st == nil {
		return
	}

	close(st.stopChan)
	<-st.done

	for _, client := range s.snapshotClients() {
		if err := s.sendMessage(client, protocol.TypeStreamEnd, protocol.StreamEnd{Reason: "stopped"}); err != nil {
			log.Printf("Error sending stream/end to %s: %v", client.Name, err)
		}
	}

	log.Printf("Playback stopped after %d chunks", st.chunks)
}

// Playing reports whether the pull loop is running
func (s *Server) Playing() bool {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	return s.stream != nil
}

// sendStreamStart announces the stream format and current metadata to one listener
func (s *Server) sendStreamStart(client *Client) {
	start := protocol.StreamStart{
		Codec:      client.Codec,
		SampleRate: s.config.Format.SampleRate,
		Channels:   s.config.Format.Channels,
		BitDepth:   s.config.Format.BitDepth,
		ChunkMs:    int(s.config.ChunkDuration / time.Millisecond),
	}

	if err := s.sendMessage(client, protocol.TypeStreamStart, start); err != nil {
		log.Printf("Warning: Could not send stream/start to %s: %v", client.Name, err)
		return
	}

	if meta := s.Metadata(); meta != (protocol.StreamMetadata{}) {
		if err := s.sendMessage(client, protocol.TypeStreamMetadata, meta); err != nil {
			log.Printf("Warning: Could not send metadata to %s: %v", client.Name, err)
		}
	}
}

func (st *streamer) run() {
	defer close(st.done)

	ticker := time.NewTicker(st.server.config.ChunkDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			st.tick()
		case <-st.stopChan:
			return
		}
	}
}

// tick pulls exactly one chunk and fans it out
func (st *streamer) tick() {
	s := st.server
	chunk := st.src.Pull()
	timestamp := s.getClockMicros()
	st.chunks++

	if s.config.Debug && st.chunks%250 == 0 {
		log.Printf("[DEBUG] Streamed %d chunks, server_time=%d", st.chunks, timestamp)
	}

	for _, client := range s.snapshotClients() {
		payload, err := client.encoder.Encode(chunk)
		if err != nil {
			s.metrics.EncodeErrors.Inc()
			log.Printf("Error encoding chunk for %s: %v", client.Name, err)
			continue
		}

		if err := s.sendBinary(client, protocol.CreateAudioChunk(timestamp, payload)); err != nil {
			if s.config.Debug {
				log.Printf("[DEBUG] Dropping chunk for %s: %v", client.Name, err)
			}
			continue
		}
		s.metrics.ChunksSent.Inc()
	}
}
