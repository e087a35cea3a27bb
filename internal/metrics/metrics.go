package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes Prometheus metrics for inbound HTTP requests, connector
// queries, and widget refresh cycles.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	queryTotal      *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
	refreshTotal    *prometheus.CounterVec
}

// NewCollector constructs a collector with default histograms/counters.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "opsdeck",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opsdeck",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	queryTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opsdeck",
		Subsystem: "connector",
		Name:      "queries_total",
		Help:      "Connector queries by system family and outcome kind.",
	}, []string{"system", "outcome"})

	queryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "opsdeck",
		Subsystem: "connector",
		Name:      "query_duration_seconds",
		Help:      "Latency distribution for outbound connector queries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"system"})

	refreshTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opsdeck",
		Subsystem: "widget",
		Name:      "refreshes_total",
		Help:      "Widget refresh cycles by system family and status.",
	}, []string{"system", "status"})

	for _, c := range []prometheus.Collector{requestDuration, requestTotal, queryTotal, queryDuration, refreshTotal} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:        registry,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		queryTotal:      queryTotal,
		queryDuration:   queryDuration,
		refreshTotal:    refreshTotal,
	}, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveQuery records one connector query outcome.
func (c *Collector) ObserveQuery(system, outcome string, duration time.Duration) {
	c.queryTotal.WithLabelValues(system, outcome).Inc()
	c.queryDuration.WithLabelValues(system).Observe(duration.Seconds())
}

// ObserveRefresh records one widget refresh cycle outcome.
func (c *Collector) ObserveRefresh(system, status string) {
	c.refreshTotal.WithLabelValues(system, status).Inc()
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
