package repository

import (
	"context"
	"time"

	"StockCast/internal/domain/models"
)

// PriceStore provides access to daily OHLCV history.
type PriceStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	StoreBatch(ctx context.Context, bars []models.DailyBar) error
	GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error)
	GetLatestNBars(ctx context.Context, symbol string, n int) ([]models.DailyBar, error)
	Health(ctx context.Context) error
	Close() error
}

// Publisher pushes freshly computed forecasts downstream.
type Publisher interface {
	PublishForecast(ctx context.Context, result *models.EnsembleResult) error
	Close() error
}

// Metrics records domain-level observability signals.
type Metrics interface {
	RecordForecast(symbol, source string)
	RecordCacheOp(op string)
	RecordError(kind string)
	RecordModelConfidence(model, symbol string, confidence float64)
	RecordLatency(op string, seconds float64)
}
