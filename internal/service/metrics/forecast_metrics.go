package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ForecastLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stockcast",
			Subsystem: "forecast",
			Name:      "stage_latency_seconds",
			Help:      "Latency of forecast pipeline stages",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	ForecastErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stockcast",
			Subsystem: "forecast",
			Name:      "errors_total",
			Help:      "Errors by forecast pipeline stage",
		},
		[]string{"stage"},
	)

	ModelTrainingFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stockcast",
			Subsystem: "forecast",
			Name:      "model_training_failures_total",
			Help:      "Training failures per model backend",
		},
		[]string{"model"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ForecastLatency, ForecastErrors, ModelTrainingFailures)
	})
}
