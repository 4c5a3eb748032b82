package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "grimoire",
			Subsystem: "dispatcher",
			Name:      "requests_total",
			Help:      "Action envelopes dispatched, by transport, action and outcome code.",
		},
		[]string{"transport", "action", "outcome"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "grimoire",
			Subsystem: "dispatcher",
			Name:      "request_duration_seconds",
			Help:      "Time from decoded envelope to encoded response.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"transport", "action"},
	)
	storeRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "grimoire",
			Subsystem: "store",
			Name:      "io_retries_total",
			Help:      "Filesystem operations retried after a transient failure.",
		},
		[]string{"op"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "grimoire",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(requests, requestDuration, storeRetries, httpRequests)
	})
}

// RecordRequest counts one dispatched envelope. outcome is "ok" or a wire error code.
func RecordRequest(transport, action, outcome string, duration time.Duration) {
	RegisterMetrics()
	requests.WithLabelValues(transport, action, outcome).Inc()
	requestDuration.WithLabelValues(transport, action).Observe(duration.Seconds())
}

func RecordStoreRetry(op string) {
	RegisterMetrics()
	storeRetries.WithLabelValues(op).Inc()
}

func RecordHTTPRequest(method, path string, status int) {
	RegisterMetrics()
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}
