package server

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/rubriccheck/internal/grade"
)

var (
	registerOnce   sync.Once
	requestsTotal  *prometheus.CounterVec
	requestSeconds *prometheus.HistogramVec
)

func registerMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubriccheck_http_requests_total",
			Help: "HTTP requests served, by method, route and status.",
		}, []string{"method", "route", "status"})

		requestSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rubriccheck_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"})

		prometheus.MustRegister(requestsTotal, requestSeconds)
	})
}

// MetricsHandler exposes the Prometheus scrape endpoint
func MetricsHandler() fiber.Handler {
	registerMetrics()
	grade.RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}
