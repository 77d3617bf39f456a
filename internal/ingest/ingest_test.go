package ingest

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type collectingSink struct {
	mu      sync.Mutex
	batches [][]float32
}

func (s *collectingSink) Ingest(samples []float32) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, samples)
	return len(samples)
}

func (s *collectingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

type countingObserver struct {
	mu       sync.Mutex
	trailing int
}

func (o *countingObserver) ObserveDatagram(samples, trailing int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.trailing += trailing
}

func startListener(t *testing.T, sink *collectingSink, obs ...Observer) *Listener {
	t.Helper()
	l := New(Config{BindAddress: "127.0.0.1", Port: 0}, sink)
	for _, o := range obs {
		l.SetObserver(o)
	}
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(l.Stop)
	return l
}

func dial(t *testing.T, l *Listener) *net.UDPConn {
	t.Helper()
	conn, err := net.DialUDP("udp", nil, l.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestDecodeSamples(t *testing.T) {
	data := EncodeSamples(nil, []float32{0.5, -1, 0.25})
	data = append(data, 0xff, 0xee)

	samples, trailing := DecodeSamples(data)

	assert.Equal(t, []float32{0.5, -1, 0.25}, samples)
	assert.Equal(t, 2, trailing)
}

func TestDecodeDefaultDatagram(t *testing.T) {
	samples, trailing := DecodeSamples(make([]byte, DefaultDatagramSize))
	assert.Len(t, samples, 368)
	assert.Zero(t, trailing)
}

func TestListenerDeliversDatagrams(t *testing.T) {
	sink := &collectingSink{}
	obs := &countingObserver{}
	l := startListener(t, sink, obs)
	conn := dial(t, l)

	payload := EncodeSamples(nil, []float32{0.1, 0.2, 0.3})
	_, err := conn.Write(append(payload, 0x01))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	sink.mu.Lock()
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, sink.batches[0])
	sink.mu.Unlock()

	stats := l.Stats()
	assert.Equal(t, uint64(1), stats.Datagrams)
	assert.Equal(t, uint64(3), stats.Samples)
	assert.Equal(t, uint64(1), stats.TrailingBytes)

	obs.mu.Lock()
	assert.Equal(t, 1, obs.trailing)
	obs.mu.Unlock()
}

func TestListenerIgnoresShortDatagrams(t *testing.T) {
	sink := &collectingSink{}
	l := startListener(t, sink)
	conn := dial(t, l)

	_, err := conn.Write([]byte{0x00, 0x01})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return l.Stats().EmptyDatagrams == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, sink.count())
}

func TestListenerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := New(Config{BindAddress: "127.0.0.1"}, &collectingSink{})
	require.NoError(t, l.Start(ctx))

	cancel()
	l.Stop()

	assert.Nil(t, l.Addr())
	// Stop is idempotent
	l.Stop()
}

func TestListenerDoubleStart(t *testing.T) {
	l := startListener(t, &collectingSink{})
	assert.Error(t, l.Start(context.Background()))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 1234, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.BindAddress)
}
