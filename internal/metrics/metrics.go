package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caterly",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "caterly",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	documentsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caterly",
			Subsystem: "documents",
			Name:      "generated_total",
			Help:      "Documents rendered, by kind and outcome.",
		},
		[]string{"kind", "status"},
	)

	notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caterly",
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Outbound notifications, by channel, provider and outcome.",
		},
		[]string{"channel", "provider", "status"},
	)

	allocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caterly",
			Subsystem: "expenses",
			Name:      "bulk_allocations_total",
			Help:      "Bulk expense allocations committed, by policy.",
		},
		[]string{"policy"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		documentsGenerated,
		notificationsSent,
		allocations,
	)
}

// Handler exposes the registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func ObserveHTTP(method, path string, status int, took time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(took.Seconds())
}

func RecordDocument(kind string, err error) {
	documentsGenerated.WithLabelValues(kind, outcome(err)).Inc()
}

func RecordNotification(channel, provider string, err error) {
	notificationsSent.WithLabelValues(channel, provider, outcome(err)).Inc()
}

func RecordAllocation(policy string) {
	allocations.WithLabelValues(policy).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
