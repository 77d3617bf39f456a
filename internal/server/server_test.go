// ABOUTME: Tests for the radio bridge server
// ABOUTME: Covers the HTTP command surface, WebSocket handshake, and playback tick
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/resonate-radio/internal/metrics"
	"github.com/Resonate-Protocol/resonate-radio/internal/protocol"
	"github.com/Resonate-Protocol/resonate-radio/internal/session"
	"github.com/Resonate-Protocol/resonate-radio/pkg/bridge"
)

type fakeController struct {
	mu       sync.Mutex
	starts   int
	stops    int
	controls [][2]string
	tunes    []float64
	err      error
	status   session.Status
}

func (c *fakeController) StartSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
	return c.err
}

func (c *fakeController) StopSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	return c.err
}

func (c *fakeController) SendControl(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controls = append(c.controls, [2]string{key, value})
	return c.err
}

func (c *fakeController) Tune(mhz float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tunes = append(c.tunes, mhz)
	return c.err
}

func (c *fakeController) Status() session.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func newTestServer(t *testing.T, controller Controller) (*Server, *httptest.Server) {
	t.Helper()

	s := New(Config{Name: "Test Bridge"}, controller, metrics.New())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.StopPlayback()
		s.closeClients()
		ts.Close()
	})
	return s, ts
}

func postForm(t *testing.T, ts *httptest.Server, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := http.PostForm(ts.URL+path, form)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestStatusEndpoint(t *testing.T) {
	ctrl := &fakeController{status: session.Status{Running: true, Started: true, BufferedMs: 120}}
	_, ts := newTestServer(t, ctrl)

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var status StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "Test Bridge", status.Name)
	assert.NotEmpty(t, status.ServerID)
	assert.False(t, status.Playing)
	assert.Zero(t, status.Listeners)
	assert.True(t, status.Session.Running)
	assert.Equal(t, int64(120), status.Session.BufferedMs)
}

func TestCommandsWithoutController(t *testing.T) {
	_, ts := newTestServer(t, nil)

	for _, path := range []string{"/session/start", "/session/stop", "/control", "/tune"} {
		resp := postForm(t, ts, path, url.Values{"key": {"gain"}, "mhz": {"101.1"}})
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionCommands(t *testing.T) {
	ctrl := &fakeController{}
	_, ts := newTestServer(t, ctrl)

	assert.Equal(t, http.StatusOK, postForm(t, ts, "/session/start", nil).StatusCode)
	assert.Equal(t, http.StatusOK, postForm(t, ts, "/session/stop", nil).StatusCode)

	ctrl.mu.Lock()
	assert.Equal(t, 1, ctrl.starts)
	assert.Equal(t, 1, ctrl.stops)
	ctrl.err = errors.New("boom")
	ctrl.mu.Unlock()

	assert.Equal(t, http.StatusInternalServerError, postForm(t, ts, "/session/start", nil).StatusCode)
	assert.Equal(t, http.StatusInternalServerError, postForm(t, ts, "/session/stop", nil).StatusCode)
}

func TestSessionCommandsRequirePost(t *testing.T) {
	ctrl := &fakeController{}
	_, ts := newTestServer(t, ctrl)

	resp, err := http.Get(ts.URL + "/session/start")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Zero(t, ctrl.starts)
}

func TestControlEndpoint(t *testing.T) {
	ctrl := &fakeController{}
	_, ts := newTestServer(t, ctrl)

	resp := postForm(t, ts, "/control", url.Values{"value": {"3"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postForm(t, ts, "/control", url.Values{"key": {"gain"}, "value": {"3.5"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, map[string]string{"key": "gain", "value": "3.5"}, body)

	ctrl.mu.Lock()
	assert.Equal(t, [][2]string{{"gain", "3.5"}}, ctrl.controls)
	ctrl.err = errors.New("unreachable")
	ctrl.mu.Unlock()

	resp = postForm(t, ts, "/control", url.Values{"key": {"gain"}, "value": {"1"}})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestTuneEndpoint(t *testing.T) {
	ctrl := &fakeController{}
	_, ts := newTestServer(t, ctrl)

	for _, bad := range []string{"", "abc", "0", "-98.5"} {
		resp := postForm(t, ts, "/tune", url.Values{"mhz": {bad}})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "mhz=%q", bad)
	}

	resp := postForm(t, ts, "/tune", url.Values{"mhz": {" 101.1 "}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	assert.Equal(t, []float64{101.1}, ctrl.tunes)
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, &fakeController{})

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "radio_bridge_connected_clients")
}

func TestNegotiateCodec(t *testing.T) {
	tests := []struct {
		name      string
		preferred string
		chunk     time.Duration
		supported []string
		want      string
	}{
		{"pcm preferred", "pcm", 20 * time.Millisecond, []string{"opus", "pcm"}, "pcm"},
		{"opus agreed", "opus", 20 * time.Millisecond, []string{"pcm", "opus"}, "opus"},
		{"listener lacks opus", "opus", 20 * time.Millisecond, []string{"pcm"}, "pcm"},
		{"no codecs listed", "opus", 20 * time.Millisecond, nil, "pcm"},
		{"period not an opus frame", "opus", 30 * time.Millisecond, []string{"opus"}, "pcm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Config{Codec: tt.preferred, ChunkDuration: tt.chunk}, nil, metrics.New())
			assert.Equal(t, tt.want, s.negotiateCodec(tt.supported))
		})
	}
}

// wsListener is a minimal listener speaking the bridge protocol
type wsListener struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialListener(t *testing.T, ts *httptest.Server, clientID string) *wsListener {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/radio"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	l := &wsListener{t: t, conn: conn}
	l.sendJSON(protocol.TypeClientHello, protocol.ClientHello{
		ClientID:        clientID,
		Name:            "listener-" + clientID,
		Version:         protocol.Version,
		SupportedCodecs: []string{"pcm"},
	})
	return l
}

func (l *wsListener) sendJSON(msgType string, payload interface{}) {
	l.t.Helper()
	data, err := json.Marshal(protocol.Message{Type: msgType, Payload: payload})
	require.NoError(l.t, err)
	require.NoError(l.t, l.conn.WriteMessage(websocket.TextMessage, data))
}

// next returns the next message type, or "binary" with the frame for binary messages
func (l *wsListener) next() (string, protocol.Message, []byte) {
	l.t.Helper()

	l.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := l.conn.ReadMessage()
	require.NoError(l.t, err)

	if kind == websocket.BinaryMessage {
		return "binary", protocol.Message{}, data
	}

	var msg protocol.Message
	require.NoError(l.t, json.Unmarshal(data, &msg))
	return msg.Type, msg, nil
}

// waitFor reads until a message of msgType arrives
func (l *wsListener) waitFor(msgType string) (protocol.Message, []byte) {
	l.t.Helper()
	for i := 0; i < 200; i++ {
		got, msg, data := l.next()
		if got == msgType {
			return msg, data
		}
	}
	l.t.Fatalf("no %s message received", msgType)
	return protocol.Message{}, nil
}

func TestHandshake(t *testing.T) {
	s, ts := newTestServer(t, &fakeController{})

	l := dialListener(t, ts, "abc")

	msg, _ := l.waitFor(protocol.TypeServerHello)
	var hello protocol.ServerHello
	require.NoError(t, msg.DecodePayload(&hello))
	assert.Equal(t, "Test Bridge", hello.Name)
	assert.Equal(t, protocol.Version, hello.Version)

	msg, _ = l.waitFor(protocol.TypeServerState)
	var state protocol.ServerState
	require.NoError(t, msg.DecodePayload(&state))
	assert.False(t, state.Playing)
	assert.Equal(t, 1, state.Listeners)

	assert.Equal(t, 1, s.ClientCount())

	l.sendJSON(protocol.TypeClientGoodbye, protocol.ClientGoodbye{Reason: "done"})
	assert.Eventually(t, func() bool { return s.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandshakeRejectsDuplicateClientID(t *testing.T) {
	s, ts := newTestServer(t, &fakeController{})

	first := dialListener(t, ts, "same")
	first.waitFor(protocol.TypeServerHello)

	second := dialListener(t, ts, "same")
	msg, _ := second.waitFor(protocol.TypeServerError)

	var serverErr protocol.ServerError
	require.NoError(t, msg.DecodePayload(&serverErr))
	assert.Equal(t, "duplicate_client_id", serverErr.Error)
	assert.Equal(t, 1, s.ClientCount())
}

func TestHandshakeRequiresHello(t *testing.T) {
	s, ts := newTestServer(t, &fakeController{})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/radio"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	data, err := json.Marshal(protocol.Message{Type: protocol.TypeClientGoodbye, Payload: protocol.ClientGoodbye{}})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Zero(t, s.ClientCount())
}

func newDefaultBuffer(t *testing.T) *bridge.Buffer {
	t.Helper()
	buf, err := bridge.NewBuffer(bridge.DefaultOptions())
	require.NoError(t, err)
	return buf
}

func TestPlayStreamsChunks(t *testing.T) {
	s, ts := newTestServer(t, &fakeController{})

	l := dialListener(t, ts, "abc")
	l.waitFor(protocol.TypeServerHello)

	buf := newDefaultBuffer(t)
	require.NoError(t, s.Play(buf))
	assert.True(t, s.Playing())

	msg, _ := l.waitFor(protocol.TypeStreamStart)
	var start protocol.StreamStart
	require.NoError(t, msg.DecodePayload(&start))
	assert.Equal(t, "pcm", start.Codec)
	assert.Equal(t, 48000, start.SampleRate)
	assert.Equal(t, 2, start.Channels)
	assert.Equal(t, 16, start.BitDepth)
	assert.Equal(t, 20, start.ChunkMs)

	_, frame := l.waitFor("binary")
	ts1, payload, err := protocol.ParseAudioChunk(frame)
	require.NoError(t, err)
	assert.Len(t, payload, buf.ChunkSize())
	assert.Equal(t, make([]byte, buf.ChunkSize()), payload, "pre-roll chunks are silent")

	_, frame = l.waitFor("binary")
	ts2, _, err := protocol.ParseAudioChunk(frame)
	require.NoError(t, err)
	assert.Greater(t, ts2, ts1)

	s.StopPlayback()
	assert.False(t, s.Playing())

	msg, _ = l.waitFor(protocol.TypeStreamEnd)
	var end protocol.StreamEnd
	require.NoError(t, msg.DecodePayload(&end))
	assert.Equal(t, "stopped", end.Reason)
	assert.Positive(t, buf.Stats().Pulls)
}

func TestPlayRejectsMismatchedSource(t *testing.T) {
	s, _ := newTestServer(t, &fakeController{})

	buf, err := bridge.NewBuffer(bridge.Options{PrerollBytes: 0, ChunkBytes: 1920})
	require.NoError(t, err)
	assert.Error(t, s.Play(buf))
	assert.False(t, s.Playing())
}

func TestPlayTwiceFails(t *testing.T) {
	s, _ := newTestServer(t, &fakeController{})

	require.NoError(t, s.Play(newDefaultBuffer(t)))
	assert.Error(t, s.Play(newDefaultBuffer(t)))

	s.StopPlayback()
	s.StopPlayback()
	assert.False(t, s.Playing())
}

func TestLateJoinerGetsStreamStart(t *testing.T) {
	s, ts := newTestServer(t, &fakeController{})
	s.SetMetadata(protocol.StreamMetadata{Title: "101.1 MHz FM"})

	require.NoError(t, s.Play(newDefaultBuffer(t)))

	l := dialListener(t, ts, "late")
	l.waitFor(protocol.TypeStreamStart)

	msg, _ := l.waitFor(protocol.TypeStreamMetadata)
	var meta protocol.StreamMetadata
	require.NoError(t, msg.DecodePayload(&meta))
	assert.Equal(t, "101.1 MHz FM", meta.Title)
}

func TestSetMetadataBroadcasts(t *testing.T) {
	s, ts := newTestServer(t, &fakeController{})

	l := dialListener(t, ts, "abc")
	l.waitFor(protocol.TypeServerState)

	s.SetMetadata(protocol.StreamMetadata{Title: "98.5 MHz FM", Station: "Test Bridge"})
	assert.Equal(t, "98.5 MHz FM", s.Metadata().Title)

	msg, _ := l.waitFor(protocol.TypeStreamMetadata)
	var meta protocol.StreamMetadata
	require.NoError(t, msg.DecodePayload(&meta))
	assert.Equal(t, "Test Bridge", meta.Station)
}
