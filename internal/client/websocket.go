// ABOUTME: WebSocket client for the radio stream protocol
// ABOUTME: Handles connection, handshake, and message routing
package client

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Resonate-Protocol/resonate-radio/internal/protocol"
)

const handshakeTimeout = 5 * time.Second

// Config holds client configuration
type Config struct {
	URL             string // ws://host:port/radio
	ClientID        string
	Name            string
	SupportedCodecs []string
	DeviceInfo      protocol.DeviceInfo
	Debug           bool
}

// Client represents a WebSocket listener connection
type Client struct {
	config  Config
	conn    *websocket.Conn
	mu      sync.RWMutex
	writeMu sync.Mutex

	// Message channels
	AudioChunks chan AudioChunk
	StreamStart chan protocol.StreamStart
	StreamEnd   chan protocol.StreamEnd
	Metadata    chan protocol.StreamMetadata
	State       chan protocol.ServerState

	server protocol.ServerHello

	// State
	connected bool
	done      chan struct{}
	closeOnce sync.Once
}

// AudioChunk represents a timestamped audio frame
type AudioChunk struct {
	Timestamp int64  // Microseconds, server clock
	Data      []byte // Encoded audio
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	return &Client{
		config:      config,
		AudioChunks: make(chan AudioChunk, 100),
		StreamStart: make(chan protocol.StreamStart, 1),
		StreamEnd:   make(chan protocol.StreamEnd, 1),
		Metadata:    make(chan protocol.StreamMetadata, 10),
		State:       make(chan protocol.ServerState, 10),
		done:        make(chan struct{}),
	}
}

// Connect establishes WebSocket connection and performs handshake
func (c *Client) Connect() error {
	log.Printf("Connecting to %s", c.config.URL)

	conn, _, err := websocket.DefaultDialer.Dial(c.config.URL, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake sends client/hello and waits for server/hello
func (c *Client) handshake() error {
	hello := protocol.ClientHello{
		ClientID:        c.config.ClientID,
		Name:            c.config.Name,
		Version:         protocol.Version,
		SupportedCodecs: c.config.SupportedCodecs,
		DeviceInfo:      &c.config.DeviceInfo,
	}

	if err := c.send(protocol.TypeClientHello, hello); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}

	switch msg.Type {
	case protocol.TypeServerHello:
	case protocol.TypeServerError:
		var serverErr protocol.ServerError
		msg.DecodePayload(&serverErr)
		return fmt.Errorf("server rejected connection: %s", serverErr.Message)
	default:
		return fmt.Errorf("expected server/hello, got %s", msg.Type)
	}

	var serverHello protocol.ServerHello
	if err := msg.DecodePayload(&serverHello); err != nil {
		return err
	}

	c.mu.Lock()
	c.server = serverHello
	c.mu.Unlock()

	log.Printf("Handshake complete with %s", serverHello.Name)
	return nil
}

// Server returns the server/hello received during the handshake
func (c *Client) Server() protocol.ServerHello {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.server
}

// send writes a JSON message
func (c *Client) send(msgType string, payload interface{}) error {
	c.mu.RLock()
	conn, connected := c.conn, c.connected
	c.mu.RUnlock()

	if !connected {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(protocol.Message{Type: msgType, Payload: payload})
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer c.Close()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.IsConnected() {
				log.Printf("Read error: %v", err)
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			c.handleBinaryMessage(data)
		case websocket.TextMessage:
			c.handleJSONMessage(data)
		}
	}
}

// handleBinaryMessage handles audio chunks
func (c *Client) handleBinaryMessage(data []byte) {
	timestamp, audioData, err := protocol.ParseAudioChunk(data)
	if err != nil {
		log.Printf("Invalid binary message: %v", err)
		return
	}

	if c.config.Debug {
		log.Printf("[DEBUG] Received audio chunk, timestamp=%d, size=%d", timestamp, len(audioData))
	}

	select {
	case c.AudioChunks <- AudioChunk{Timestamp: timestamp, Data: audioData}:
	case <-c.done:
	}
}

// handleJSONMessage routes JSON messages
func (c *Client) handleJSONMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return
	}

	switch msg.Type {
	case protocol.TypeStreamStart:
		var start protocol.StreamStart
		if err := msg.DecodePayload(&start); err != nil {
			log.Printf("Invalid stream/start: %v", err)
			return
		}
		select {
		case c.StreamStart <- start:
		case <-c.done:
		}

	case protocol.TypeStreamEnd:
		var end protocol.StreamEnd
		msg.DecodePayload(&end)
		select {
		case c.StreamEnd <- end:
		case <-c.done:
		}

	case protocol.TypeStreamMetadata:
		var meta protocol.StreamMetadata
		msg.DecodePayload(&meta)
		select {
		case c.Metadata <- meta:
		case <-c.done:
		}

	case protocol.TypeServerState:
		var state protocol.ServerState
		msg.DecodePayload(&state)
		select {
		case c.State <- state:
		default:
			// Stale state is not worth blocking for
		}

	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// SendGoodbye tells the server the listener is leaving
func (c *Client) SendGoodbye(reason string) error {
	return c.send(protocol.TypeClientGoodbye, protocol.ClientGoodbye{Reason: reason})
}

// Done is closed when the connection ends
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	if wasConnected {
		conn.Close()
		log.Printf("Connection closed")
	}
	c.closeOnce.Do(func() { close(c.done) })
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
