package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "availability"

var (
	once sync.Once

	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Availability requests by transport and outcome.",
		},
		[]string{"transport", "outcome"},
	)

	computeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compute_duration_seconds",
			Help:      "Time spent computing availability for one user and date.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 3},
		},
		[]string{"mode", "outcome"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Read-through cache lookups by cache and result.",
		},
		[]string{"cache", "result"},
	)

	invalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Cache invalidations triggered by change events, by topic.",
		},
		[]string{"topic"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(requests, computeDuration, cacheLookups, invalidations)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func IncRequest(transport, outcome string) {
	requests.WithLabelValues(transport, outcome).Inc()
}

func ObserveCompute(mode, outcome string, d time.Duration) {
	computeDuration.WithLabelValues(mode, outcome).Observe(d.Seconds())
}

func IncCacheLookup(cache, result string) {
	cacheLookups.WithLabelValues(cache, result).Inc()
}

func IncInvalidation(topic string) {
	invalidations.WithLabelValues(topic).Inc()
}
