// ABOUTME: Listener-facing server for the radio bridge
// ABOUTME: Manages WebSocket connections, the HTTP command surface, and the playback tick
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Resonate-Protocol/resonate-radio/internal/discovery"
	"github.com/Resonate-Protocol/resonate-radio/internal/metrics"
	"github.com/Resonate-Protocol/resonate-radio/internal/protocol"
	"github.com/Resonate-Protocol/resonate-radio/internal/session"
	"github.com/Resonate-Protocol/resonate-radio/pkg/audio"
	"github.com/Resonate-Protocol/resonate-radio/pkg/audio/encode"
)

// Config holds server configuration
type Config struct {
	Port          int
	Name          string
	EnableMDNS    bool
	Debug         bool
	UseTUI        bool
	Codec         string // preferred codec: "pcm" or "opus"
	Format        audio.Format
	ChunkDuration time.Duration
}

// Controller executes session commands on behalf of HTTP requests and the TUI
type Controller interface {
	StartSession() error
	StopSession() error
	SendControl(key, value string) error
	Tune(mhz float64) error
	Status() session.Status
}

// Server represents the radio bridge server
type Server struct {
	config     Config
	serverID   string
	controller Controller
	metrics    *metrics.Metrics

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// HTTP server
	httpServer *http.Server
	mux        *http.ServeMux

	// Client management
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// Server clock (monotonic microseconds)
	clockStart time.Time

	// Playback tick, present while a session plays
	streamMu sync.Mutex
	stream   *streamer
	metaMu   sync.RWMutex
	metadata protocol.StreamMetadata

	// mDNS discovery
	mdnsManager *discovery.Manager

	// TUI
	tui       *ServerTUI
	startTime time.Time

	// Control
	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Client represents a connected listener
type Client struct {
	ID    string
	Name  string
	Conn  *websocket.Conn
	Codec string

	encoder encode.Encoder

	// Output channel for messages
	sendChan chan interface{}
	closed   bool

	mu sync.RWMutex
}

// New creates a new server instance. controller may be nil, in which case
// command endpoints answer 503.
func New(config Config, controller Controller, m *metrics.Metrics) *Server {
	if config.Format.SampleRate == 0 {
		config.Format = audio.DefaultFormat()
	}
	if config.ChunkDuration == 0 {
		config.ChunkDuration = 20 * time.Millisecond
	}
	if config.Codec == "" {
		config.Codec = "pcm"
	}
	if m == nil {
		m = metrics.New()
	}

	s := &Server{
		config:     config,
		serverID:   uuid.New().String(),
		controller: controller,
		metrics:    m,
		mux:        http.NewServeMux(),
		upgrader: websocket.Upgrader{
			// Listeners are expected on the local network only
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:    make(map[string]*Client),
		clockStart: time.Now(),
		startTime:  time.Now(),
		stopChan:   make(chan struct{}),
	}
	s.routes()

	return s
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the server until Stop, a TUI quit, or an HTTP error
func (s *Server) Start() error {
	if s.config.UseTUI {
		s.tui = NewServerTUI(s.controller)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.tui.Start(s.config.Name, s.config.Port); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()

		// Give TUI time to initialize
		time.Sleep(100 * time.Millisecond)
	}

	log.Printf("Server starting: %s (ID: %s)", s.config.Name, s.serverID)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Path:        discovery.DefaultPath,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		s.shutdown()
		return fmt.Errorf("failed to listen on port %d: %w", s.config.Port, err)
	}
	log.Printf("Server listening on %s", listener.Addr())

	s.httpServer = &http.Server{Handler: s.mux}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.statusLoop()
	}()

	var serverErr error
	var tuiQuitChan <-chan struct{}
	if s.tui != nil {
		tuiQuitChan = s.tui.QuitChan()
	}

	select {
	case <-s.stopChan:
		log.Printf("Server shutting down...")
	case <-tuiQuitChan:
		log.Printf("TUI quit requested, shutting down...")
		s.Stop()
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
		s.Stop()
	}

	s.shutdown()

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

func (s *Server) shutdown() {
	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.tui != nil {
		s.tui.Stop()
	}

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}

	s.closeClients()
	s.wg.Wait()
	log.Printf("Server stopped cleanly")
}

// Stop asks Start to return
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// statusLoop refreshes the TUI and listeners once a second
func (s *Server) statusLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.updateTUI()
			s.broadcastState()
		case <-s.stopChan:
			return
		}
	}
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.shutdownMu.RLock()
	shuttingDown := s.isShutdown
	s.shutdownMu.RUnlock()
	if shuttingDown {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)
	s.handleConnection(conn)
}

// handleConnection manages a listener connection
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	hello, err := s.readHello(conn)
	if err != nil {
		log.Printf("Handshake failed: %v", err)
		return
	}

	log.Printf("Client hello: %s (ID: %s, codecs: %v)", hello.Name, hello.ClientID, hello.SupportedCodecs)

	codec := s.negotiateCodec(hello.SupportedCodecs)
	format := s.config.Format
	format.Codec = codec
	encoder, err := encode.New(format)
	if err != nil {
		log.Printf("Failed to create %s encoder for %s: %v", codec, hello.Name, err)
		return
	}
	defer encoder.Close()

	client := &Client{
		ID:       hello.ClientID,
		Name:     hello.Name,
		Conn:     conn,
		Codec:    codec,
		encoder:  encoder,
		sendChan: make(chan interface{}, 100),
	}

	s.clientsMu.Lock()
	if existing, exists := s.clients[hello.ClientID]; exists {
		s.clientsMu.Unlock()
		log.Printf("Client ID %s already connected (name: %s), rejecting duplicate", hello.ClientID, existing.Name)

		writeJSON(conn, protocol.Message{
			Type:    protocol.TypeServerError,
			Payload: protocol.ServerError{Error: "duplicate_client_id", Message: "Client ID already connected"},
		})
		return
	}
	s.clients[client.ID] = client
	count := len(s.clients)
	s.clientsMu.Unlock()

	s.metrics.ConnectedClients.Set(float64(count))
	s.updateTUI()

	defer s.removeClient(client)

	serverHello := protocol.ServerHello{
		ServerID: s.serverID,
		Name:     s.config.Name,
		Version:  protocol.Version,
	}
	if err := s.sendMessage(client, protocol.TypeServerHello, serverHello); err != nil {
		log.Printf("Error sending server hello: %v", err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(client)
	}()

	// Late joiners get the stream header straight away
	if s.Playing() {
		s.sendStreamStart(client)
	}
	s.sendMessage(client, protocol.TypeServerState, s.state())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		if !s.handleClientMessage(client, data) {
			return
		}
	}
}

// readHello waits for and validates client/hello
func (s *Server) readHello(conn *websocket.Conn) (protocol.ClientHello, error) {
	var hello protocol.ClientHello

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return hello, fmt.Errorf("error reading hello: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return hello, fmt.Errorf("error unmarshaling message: %w", err)
	}
	if msg.Type != protocol.TypeClientHello {
		return hello, fmt.Errorf("expected client/hello, got %s", msg.Type)
	}
	if err := msg.DecodePayload(&hello); err != nil {
		return hello, err
	}

	if hello.ClientID == "" {
		return hello, fmt.Errorf("client hello missing client_id")
	}
	if hello.Name == "" {
		return hello, fmt.Errorf("client hello missing name")
	}
	return hello, nil
}

// negotiateCodec picks Opus only when preferred, supported by the listener,
// and the chunk period is a valid Opus frame
func (s *Server) negotiateCodec(supported []string) string {
	if s.config.Codec == "opus" &&
		slices.Contains(supported, "opus") &&
		encode.ValidFrameDuration(s.config.ChunkDuration) {
		return "opus"
	}
	return "pcm"
}

func (s *Server) removeClient(client *Client) {
	s.clientsMu.Lock()
	delete(s.clients, client.ID)
	count := len(s.clients)
	s.clientsMu.Unlock()

	client.mu.Lock()
	if !client.closed {
		client.closed = true
		close(client.sendChan)
	}
	client.mu.Unlock()

	s.metrics.ConnectedClients.Set(float64(count))
	log.Printf("Client disconnected: %s", client.Name)
	s.updateTUI()
}

// closeClients drops every connection during shutdown
func (s *Server) closeClients() {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, client := range s.clients {
		client.Conn.Close()
	}
}

// clientWriter sends queued messages to the listener
func (s *Server) clientWriter(client *Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-client.sendChan:
			if !ok {
				return
			}

			client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			switch v := msg.(type) {
			case []byte:
				if err := client.Conn.WriteMessage(websocket.BinaryMessage, v); err != nil {
					log.Printf("Error writing binary message: %v", err)
					client.Conn.Close()
					return
				}
			default:
				if err := writeJSON(client.Conn, v); err != nil {
					log.Printf("Error writing text message: %v", err)
					client.Conn.Close()
					return
				}
			}

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error marshaling message: %w", err)
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// handleClientMessage processes messages from listeners; false ends the connection
func (s *Server) handleClientMessage(client *Client, data []byte) bool {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return true
	}

	switch msg.Type {
	case protocol.TypeClientGoodbye:
		var goodbye protocol.ClientGoodbye
		msg.DecodePayload(&goodbye)
		log.Printf("Client %s said goodbye: %s", client.Name, goodbye.Reason)
		return false
	default:
		log.Printf("Unknown message type: %s", msg.Type)
		return true
	}
}

// sendMessage queues a JSON message for a listener
func (s *Server) sendMessage(client *Client, msgType string, payload interface{}) error {
	return s.enqueue(client, protocol.Message{Type: msgType, Payload: payload})
}

// sendBinary queues binary data for a listener
func (s *Server) sendBinary(client *Client, data []byte) error {
	return s.enqueue(client, data)
}

func (s *Server) enqueue(client *Client, msg interface{}) error {
	client.mu.RLock()
	defer client.mu.RUnlock()

	if client.closed {
		return fmt.Errorf("client disconnected")
	}

	select {
	case client.sendChan <- msg:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

// snapshotClients returns the current listeners
func (s *Server) snapshotClients() []*Client {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	return clients
}

// ClientCount returns the number of connected listeners
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// SetMetadata stores what is on air and forwards it to every listener
func (s *Server) SetMetadata(meta protocol.StreamMetadata) {
	s.metaMu.Lock()
	s.metadata = meta
	s.metaMu.Unlock()

	for _, client := range s.snapshotClients() {
		if err := s.sendMessage(client, protocol.TypeStreamMetadata, meta); err != nil {
			log.Printf("Error sending metadata to %s: %v", client.Name, err)
		}
	}
}

// Metadata returns what is on air
func (s *Server) Metadata() protocol.StreamMetadata {
	s.metaMu.RLock()
	defer s.metaMu.RUnlock()
	return s.metadata
}

func (s *Server) state() protocol.ServerState {
	state := protocol.ServerState{
		Playing:   s.Playing(),
		Listeners: s.ClientCount(),
	}
	if s.controller != nil {
		status := s.controller.Status()
		state.Started = status.Started
		state.BufferedMs = status.BufferedMs
	}
	return state
}

func (s *Server) broadcastState() {
	state := s.state()
	for _, client := range s.snapshotClients() {
		s.sendMessage(client, protocol.TypeServerState, state)
	}
}

// getClockMicros returns the server clock in microseconds
func (s *Server) getClockMicros() int64 {
	return time.Since(s.clockStart).Microseconds()
}
