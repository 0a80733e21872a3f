package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	forecastsTotal *prometheus.CounterVec
	cacheOpsTotal  *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	modelScore     *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		forecastsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_forecasts_total",
				Help: "Total number of forecasts produced",
			},
			[]string{"symbol", "source"},
		),
		cacheOpsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_prediction_cache_ops_total",
				Help: "Prediction cache hits, misses, and evictions",
			},
			[]string{"op"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		modelScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockcast_model_confidence",
				Help: "Last holdout confidence score per model backend",
			},
			[]string{"model", "symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordForecast records a produced forecast. Source is "cache" when
// served from the prediction cache and "computed" otherwise.
func (r *Recorder) RecordForecast(symbol, source string) {
	r.forecastsTotal.WithLabelValues(symbol, source).Inc()
}

// RecordCacheOp records a prediction cache operation (hit, miss, evict).
func (r *Recorder) RecordCacheOp(op string) {
	r.cacheOpsTotal.WithLabelValues(op).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordModelConfidence records the holdout confidence a model backend
// reported for a symbol.
func (r *Recorder) RecordModelConfidence(model, symbol string, confidence float64) {
	r.modelScore.WithLabelValues(model, symbol).Set(confidence)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
