// Package metrics provides Prometheus instrumentation for the query and loader pipelines.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crime_insights"

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// Recorder holds all collectors, registered on its own registry
type Recorder struct {
	registry *prometheus.Registry

	queryDuration      *prometheus.HistogramVec
	queryRows          *prometheus.CounterVec
	predictionDuration *prometheus.HistogramVec
	predictionBatch    prometheus.Histogram
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	loaderRows         *prometheus.CounterVec
}

// NewRecorder creates a recorder registering its collectors on registry.
// A nil registry gets a fresh one with Go and process collectors.
func NewRecorder(registry *prometheus.Registry) *Recorder {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	auto := promauto.With(registry)

	return &Recorder{
		registry: registry,
		queryDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "warehouse",
			Name:      "query_duration_seconds",
			Help:      "Warehouse query latency by query shape and outcome",
			Buckets:   prometheus.DefBuckets,
		}, []string{"shape", "outcome"}),
		queryRows: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "warehouse",
			Name:      "query_rows_total",
			Help:      "Rows returned by the warehouse by query shape",
		}, []string{"shape"}),
		predictionDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "batch_duration_seconds",
			Help:      "Model service batch latency by outcome",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		predictionBatch: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "batch_size_rows",
			Help:      "Rows submitted per prediction batch",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 11),
		}),
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code",
		}, []string{"route", "method", "status_code"}),
		httpDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		loaderRows: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loader",
			Name:      "rows_total",
			Help:      "Crime rows processed by the bulk loader by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveQuery records a warehouse query
func (r *Recorder) ObserveQuery(shape, outcome string, rows int, elapsed time.Duration) {
	r.queryDuration.WithLabelValues(shape, outcome).Observe(elapsed.Seconds())
	if rows > 0 {
		r.queryRows.WithLabelValues(shape).Add(float64(rows))
	}
}

// ObservePrediction records a prediction batch
func (r *Recorder) ObservePrediction(outcome string, batchSize int, elapsed time.Duration) {
	r.predictionDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	r.predictionBatch.Observe(float64(batchSize))
}

// ObserveHTTP records a served request
func (r *Recorder) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// AddLoaderRows records loader rows for an outcome
func (r *Recorder) AddLoaderRows(outcome string, n int) {
	r.loaderRows.WithLabelValues(outcome).Add(float64(n))
}

// Handler exposes the recorder's registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
