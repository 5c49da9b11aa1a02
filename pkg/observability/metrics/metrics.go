package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "caresync"

var (
	registry = prometheus.NewRegistry()
	initOnce sync.Once

	observationsWritten = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingestion",
		Name:      "observations_written_total",
		Help:      "Canonical observation rows persisted, by kind.",
	}, []string{"kind"})

	observationsDropped = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingestion",
		Name:      "observations_dropped_total",
		Help:      "Candidate observations dropped by the validation policy, by kind.",
	}, []string{"kind"})

	submissionsRejected = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingestion",
		Name:      "submissions_rejected_total",
		Help:      "Whole submissions rejected before persistence, by kind and error kind.",
	}, []string{"kind", "reason"})

	deviceRegistrations = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "devices",
		Name:      "registrations_total",
		Help:      "Device registration calls, by outcome.",
	}, []string{"outcome"})

	requestDuration = promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route template and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Init adds the runtime collectors. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

func ObserveWritten(kind string, n int) {
	if n > 0 {
		observationsWritten.WithLabelValues(kind).Add(float64(n))
	}
}

func ObserveDropped(kind string, n int) {
	if n > 0 {
		observationsDropped.WithLabelValues(kind).Add(float64(n))
	}
}

func ObserveRejected(kind, reason string) {
	submissionsRejected.WithLabelValues(kind, reason).Inc()
}

func ObserveRegistration(outcome string) {
	deviceRegistrations.WithLabelValues(outcome).Inc()
}

func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
