package grade

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce    sync.Once
	callsTotal      *prometheus.CounterVec
	failuresTotal   *prometheus.CounterVec
	cacheHitsTotal  *prometheus.CounterVec
	durationSeconds *prometheus.HistogramVec
)

// RegisterMetrics registers the grading collectors with the default registry
func RegisterMetrics() {
	registerOnce.Do(func() {
		callsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubriccheck_grade_calls_total",
			Help: "Grading operations started, by operation.",
		}, []string{"op"})

		failuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubriccheck_grade_failures_total",
			Help: "Grading operations that failed, by operation and failure kind.",
		}, []string{"op", "kind"})

		cacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubriccheck_grade_cache_hits_total",
			Help: "Grading operations answered from the fingerprint cache.",
		}, []string{"op"})

		durationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rubriccheck_grade_duration_seconds",
			Help:    "Wall time of grading operations including the latency floor.",
			Buckets: []float64{0.5, 1, 2.5, 5, 7.5, 10, 20, 40, 80},
		}, []string{"op"})

		prometheus.MustRegister(callsTotal, failuresTotal, cacheHitsTotal, durationSeconds)
	})
}

func observeCall(op string) {
	RegisterMetrics()
	callsTotal.WithLabelValues(op).Inc()
}

func observeFailure(op string, err error) {
	RegisterMetrics()
	failuresTotal.WithLabelValues(op, KindOf(err).String()).Inc()
}

func observeCacheHit(op string) {
	RegisterMetrics()
	cacheHitsTotal.WithLabelValues(op).Inc()
}

func observeDuration(op string, seconds float64) {
	RegisterMetrics()
	durationSeconds.WithLabelValues(op).Observe(seconds)
}
