package service

import (
	"context"
	"time"

	"StockCast/internal/domain/models"
)

// TrainedModel is opaque fitted regression state. PredictOne takes a
// feature row ordered exactly as the matrix it was fitted on.
type TrainedModel interface {
	PredictOne(row []float64) float64
	Confidence() float64
	Metrics() models.ValidationMetrics
	FeatureImportance() map[string]float64
}

// ModelAdapter wraps one regression backend over the lag/rolling
// feature matrix. Implementations must be deterministic for a fixed
// seed.
type ModelAdapter interface {
	Name() string
	Fit(ctx context.Context, m *models.FeatureMatrix) (TrainedModel, error)
}

// NativeForecaster is a backend that trains on (date, close) pairs
// directly and emits its own multi-step forecast, bypassing the
// recursive loop.
type NativeForecaster interface {
	Name() string
	ForecastSeries(ctx context.Context, dates []time.Time, closes []float64, horizon int) (*models.ModelForecast, error)
}
