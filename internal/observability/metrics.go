package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by fetch and decode recorders.
const (
	OutcomeFound   = "found"
	OutcomeAbsent  = "absent"
	OutcomeForeign = "foreign"
	OutcomeError   = "error"
	OutcomeOK      = "ok"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dslactl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dslactl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	accountFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dslactl",
			Subsystem: "retrieval",
			Name:      "fetches_total",
			Help:      "Account fetches by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	rpcDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dslactl",
			Subsystem: "rpc",
			Name:      "request_duration_seconds",
			Help:      "JSON-RPC request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "success"},
	)
	payloadBuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dslactl",
			Subsystem: "payload",
			Name:      "builds_total",
			Help:      "Instruction payloads built by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
	payloadBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dslactl",
			Subsystem: "payload",
			Name:      "data_bytes",
			Help:      "Encoded instruction data size in bytes.",
			Buckets:   prometheus.ExponentialBuckets(8, 2, 10),
		},
		[]string{"operation"},
	)
	decodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dslactl",
			Subsystem: "entity",
			Name:      "decodes_total",
			Help:      "Account blobs decoded through the gateway or CLI.",
		},
		[]string{"kind", "outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, accountFetches, rpcDuration, payloadBuilds, payloadBytes, decodes)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordFetch(kind, outcome string) {
	RegisterMetrics()
	accountFetches.WithLabelValues(kind, outcome).Inc()
}

func RecordRPC(method string, duration time.Duration, success bool) {
	RegisterMetrics()
	rpcDuration.WithLabelValues(method, strconv.FormatBool(success)).Observe(duration.Seconds())
}

func RecordPayload(operation string, size int, err error) {
	RegisterMetrics()
	if err != nil {
		payloadBuilds.WithLabelValues(operation, OutcomeError).Inc()
		return
	}
	payloadBuilds.WithLabelValues(operation, OutcomeOK).Inc()
	payloadBytes.WithLabelValues(operation).Observe(float64(size))
}

func RecordDecode(kind string, err error) {
	RegisterMetrics()
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	decodes.WithLabelValues(kind, outcome).Inc()
}
