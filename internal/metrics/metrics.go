// ABOUTME: Prometheus metrics for the radio bridge
// ABOUTME: Implements the bridge and ingest observers and exposes an HTTP handler
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Resonate-Protocol/resonate-radio/pkg/bridge"
)

const namespace = "radio_bridge"

// Metrics contains all Prometheus metrics for the bridge
type Metrics struct {
	registry *prometheus.Registry

	// Ingest
	DatagramsReceived prometheus.Counter
	SamplesIngested   prometheus.Counter
	TrailingBytes     prometheus.Counter

	// Buffer
	BytesIngested prometheus.Counter
	BytesDropped  prometheus.Counter
	BufferedBytes prometheus.Gauge
	Pulls         *prometheus.CounterVec
	Splits        prometheus.Counter

	// Transport
	ConnectedClients prometheus.Gauge
	ChunksSent       prometheus.Counter
	EncodeErrors     prometheus.Counter

	// Session and control
	SessionActive   prometheus.Gauge
	SessionStarts   prometheus.Counter
	ControlMessages *prometheus.CounterVec
}

// New creates metrics registered on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		DatagramsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_datagrams_total",
			Help:      "Total number of sample datagrams received",
		}),
		SamplesIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_samples_total",
			Help:      "Total number of mono samples ingested",
		}),
		TrailingBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_trailing_bytes_total",
			Help:      "Bytes discarded because they did not form a whole sample",
		}),

		BytesIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffer_ingested_bytes_total",
			Help:      "Stereo PCM bytes appended to the playback buffer",
		}),
		BytesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffer_dropped_bytes_total",
			Help:      "Queued bytes discarded to respect the buffer cap",
		}),
		BufferedBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffer_queued_bytes",
			Help:      "Bytes currently queued for playback",
		}),
		Pulls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffer_pulls_total",
			Help:      "Playback pulls by result",
		}, []string{"result"}),
		Splits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffer_chunk_splits_total",
			Help:      "Queued chunks split across two pulls",
		}),

		ConnectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_clients",
			Help:      "Listeners currently connected",
		}),
		ChunksSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_sent_total",
			Help:      "Audio chunks written to listeners",
		}),
		EncodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encode_errors_total",
			Help:      "Chunks that failed to encode for a listener",
		}),

		SessionActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_active",
			Help:      "1 while a streaming session is running",
		}),
		SessionStarts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_starts_total",
			Help:      "Streaming sessions started",
		}),
		ControlMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_messages_total",
			Help:      "Control messages by key and outcome",
		}, []string{"key", "outcome"}),
	}
}

// Registry returns the registry the metrics live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveIngest implements bridge.Observer
func (m *Metrics) ObserveIngest(samples, bytes, buffered int) {
	m.BytesIngested.Add(float64(bytes))
	m.BufferedBytes.Set(float64(buffered))
}

// ObservePull implements bridge.Observer
func (m *Metrics) ObservePull(result bridge.PullResult, splits, buffered int) {
	m.Pulls.WithLabelValues(result.String()).Inc()
	if splits > 0 {
		m.Splits.Add(float64(splits))
	}
	m.BufferedBytes.Set(float64(buffered))
}

// ObserveDrop implements bridge.Observer
func (m *Metrics) ObserveDrop(bytes int) {
	m.BytesDropped.Add(float64(bytes))
}

// ObserveDatagram implements ingest.Observer
func (m *Metrics) ObserveDatagram(samples, trailing int) {
	m.DatagramsReceived.Inc()
	m.SamplesIngested.Add(float64(samples))
	if trailing > 0 {
		m.TrailingBytes.Add(float64(trailing))
	}
}

// ObserveControl counts one control message
func (m *Metrics) ObserveControl(key string, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "error"
	}
	m.ControlMessages.WithLabelValues(key, outcome).Inc()
}

// ObserveSession records a session transition
func (m *Metrics) ObserveSession(running bool) {
	if running {
		m.SessionActive.Set(1)
		m.SessionStarts.Inc()
		return
	}
	m.SessionActive.Set(0)
	m.BufferedBytes.Set(0)
}
