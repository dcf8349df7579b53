package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "tramdash"

// Metrics holds the feed pipeline and status API collectors. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	bytesRead    prometheus.Counter
	chunks       prometheus.Counter
	segments     prometheus.Counter
	messages     *prometheus.CounterVec
	malformed    prometheus.Counter
	unknownKinds prometheus.Counter
	truncations  prometheus.Counter
	trams        prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics registers every collector with reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		bytesRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "feed",
			Name:      "bytes_total",
			Help:      "Bytes read from the feed transport.",
		}),
		chunks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "feed",
			Name:      "chunks_total",
			Help:      "Transport reads that returned data.",
		}),
		segments: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "feed",
			Name:      "segments_total",
			Help:      "Length-prefixed segments decoded.",
		}),
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "feed",
			Name:      "messages_total",
			Help:      "Records finalized, by kind.",
		}, []string{"kind"}),
		malformed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "feed",
			Name:      "malformed_messages_total",
			Help:      "Records dropped because their fields matched no schema.",
		}),
		unknownKinds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "feed",
			Name:      "unknown_kind_messages_total",
			Help:      "Records with an unrecognized MSGTYPE.",
		}),
		truncations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "feed",
			Name:      "truncated_streams_total",
			Help:      "Streams that ended inside a segment.",
		}),
		trams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "fleet",
			Name:      "trams",
			Help:      "Distinct trams seen.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

func (m *Metrics) RecordChunk(n int) {
	if m == nil {
		return
	}
	m.chunks.Inc()
	m.bytesRead.Add(float64(n))
}

func (m *Metrics) RecordSegment() {
	if m == nil {
		return
	}
	m.segments.Inc()
}

func (m *Metrics) RecordMessage(kind string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordMalformed() {
	if m == nil {
		return
	}
	m.malformed.Inc()
}

func (m *Metrics) RecordUnknownKind() {
	if m == nil {
		return
	}
	m.unknownKinds.Inc()
}

func (m *Metrics) RecordTruncation() {
	if m == nil {
		return
	}
	m.truncations.Inc()
}

func (m *Metrics) SetTrams(n int) {
	if m == nil {
		return
	}
	m.trams.Set(float64(n))
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if status == 0 {
		status = http.StatusOK
	}
	statusLabel := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	m.httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
