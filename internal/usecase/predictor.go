package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	icache "StockCast/internal/service/cache"
	svcmetrics "StockCast/internal/service/metrics"
	"StockCast/internal/services/features"
	"StockCast/internal/services/forecast"
	"StockCast/pkg/config"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/util"
)

// staleWarnDays is the business-day gap after which a forecast is
// tagged as built on stale history.
const staleWarnDays = 3

// historyLookback caps how many daily bars feed one computation.
const historyLookback = 500

// Predictor orchestrates the forecast pipeline: price history →
// feature matrix → per-backend training → recursive forecasting →
// ensemble → dated result, memoized through the prediction cache.
type Predictor struct {
	store     domrepo.PriceStore
	registry  *forecast.Registry
	cache     *icache.PredictionCache
	publisher domrepo.Publisher
	metrics   domrepo.Metrics
	cfg       config.ForecastConfig
	log       *applogger.Logger
}

// NewPredictor wires the forecast pipeline. publisher may be nil when
// Kafka is disabled.
func NewPredictor(
	store domrepo.PriceStore,
	registry *forecast.Registry,
	cache *icache.PredictionCache,
	publisher domrepo.Publisher,
	metrics domrepo.Metrics,
	cfg config.ForecastConfig,
	log *applogger.Logger,
) *Predictor {
	return &Predictor{
		store:     store,
		registry:  registry,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		log:       log,
	}
}

// Forecast returns the ensemble forecast for a request, served from
// cache when a live entry exists. A nil result with nil error means
// "forecast unavailable".
func (p *Predictor) Forecast(ctx context.Context, req models.ForecastRequest) (*models.EnsembleResult, error) {
	if req.Horizon < 1 || req.Horizon > p.cfg.MaxHorizonDays {
		return nil, fmt.Errorf("%w: horizon %d outside [1, %d]", util.ErrInvalidDate, req.Horizon, p.cfg.MaxHorizonDays)
	}

	key := icache.Key(req.Symbol, req.Horizon, req.NLags, req.WindowSize)
	res, cached, err := p.cache.GetOrCompute(ctx, key, func(ctx context.Context) (*models.EnsembleResult, error) {
		return p.compute(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	if res != nil {
		source := "computed"
		if cached {
			source = "cache"
		}
		p.metrics.RecordForecast(req.Symbol, source)
	}
	return res, nil
}

// Candles returns the latest n daily bars for charting.
func (p *Predictor) Candles(ctx context.Context, symbol string, n int) ([]models.DailyBar, error) {
	return p.store.GetLatestNBars(ctx, symbol, n)
}

func (p *Predictor) compute(ctx context.Context, req models.ForecastRequest) (*models.EnsembleResult, error) {
	start := time.Now()
	defer func() {
		p.metrics.RecordLatency("forecast_compute", time.Since(start).Seconds())
	}()

	bars, err := p.store.GetLatestNBars(ctx, req.Symbol, historyLookback)
	if err != nil {
		p.metrics.RecordError("price_store")
		return nil, fmt.Errorf("load history for %s: %w", req.Symbol, err)
	}
	if len(bars) < p.cfg.MinHistory {
		p.log.Warn("not enough history for forecast",
			applogger.String("symbol", req.Symbol),
			applogger.Int("bars", len(bars)),
			applogger.Int("min", p.cfg.MinHistory))
		p.metrics.RecordError("insufficient_history")
		return nil, nil
	}

	builder := features.NewBuilder(req.NLags, req.WindowSize)
	out, err := builder.Build(bars)
	if err != nil {
		if errors.Is(err, features.ErrInsufficientData) {
			p.log.Warn("feature matrix too small",
				applogger.String("symbol", req.Symbol),
				applogger.Error(err))
			p.metrics.RecordError("insufficient_features")
			return nil, nil
		}
		return nil, err
	}

	futureDates, err := util.NextBusinessDays(out.LastDate, req.Horizon)
	if err != nil {
		return nil, err
	}

	results := p.runBackends(ctx, req.Symbol, builder, out, bars, futureDates)

	combined := forecast.Combine(results, req.Horizon)
	if combined == nil {
		p.log.Error("forecast unavailable",
			applogger.String("symbol", req.Symbol),
			applogger.Error(forecast.ErrAllModelsFailed))
		p.metrics.RecordError("all_models_failed")
		return nil, nil
	}

	points := make([]models.ForecastPoint, req.Horizon)
	for i, d := range futureDates {
		points[i] = models.ForecastPoint{Date: d, Price: combined.Prices[i]}
	}

	staleDays := util.BusinessDaysBetween(out.LastDate, util.Normalize(time.Now()))
	if staleDays > staleWarnDays {
		p.log.Warn("forecast built on stale history",
			applogger.String("symbol", req.Symbol),
			applogger.Int("stale_days", staleDays))
	}

	res := &models.EnsembleResult{
		Symbol:          req.Symbol,
		Points:          points,
		Confidence:      combined.Confidence,
		Models:          combined.Models,
		Weights:         combined.Weights,
		PerModel:        combined.PerModel,
		LastActualPrice: out.LastClose,
		LastActualDate:  out.LastDate,
		Horizon:         req.Horizon,
		StaleDays:       staleDays,
		StaleData:       staleDays > staleWarnDays,
		ComputedAt:      time.Now(),
	}
	res.Summary = summarize(res)

	p.log.Info("forecast computed",
		applogger.String("symbol", req.Symbol),
		applogger.Int("horizon", req.Horizon),
		applogger.Strings("models", res.Models),
		applogger.Float64("confidence", res.Confidence),
		applogger.Duration("took", time.Since(start)))

	if p.publisher != nil {
		if err := p.publisher.PublishForecast(ctx, res); err != nil {
			p.log.Warn("forecast publish failed",
				applogger.String("symbol", req.Symbol),
				applogger.Error(err))
			p.metrics.RecordError("forecast_publish")
		}
	}

	return res, nil
}

// runBackends trains every registered backend and collects complete
// forecasts. A failing backend is logged and skipped; its absence must
// not block the others.
func (p *Predictor) runBackends(
	ctx context.Context,
	symbol string,
	builder *features.Builder,
	out *features.Output,
	bars []models.DailyBar,
	futureDates []time.Time,
) []models.ModelForecast {
	results := make([]models.ModelForecast, 0, len(p.registry.Adapters)+len(p.registry.Native))
	rf := forecast.NewRecursiveForecaster(builder)

	for _, adapter := range p.registry.Adapters {
		trainStart := time.Now()
		tm, err := adapter.Fit(ctx, out.Train)
		svcmetrics.ForecastLatency.WithLabelValues("train_" + adapter.Name()).Observe(time.Since(trainStart).Seconds())
		if err != nil {
			p.log.Warn("model training failed",
				applogger.String("model", adapter.Name()),
				applogger.String("symbol", symbol),
				applogger.Error(err))
			svcmetrics.ModelTrainingFailures.WithLabelValues(adapter.Name()).Inc()
			continue
		}
		p.metrics.RecordModelConfidence(adapter.Name(), symbol, tm.Confidence())

		results = append(results, models.ModelForecast{
			Model:      adapter.Name(),
			Prices:     rf.Forecast(tm, out, futureDates),
			Confidence: tm.Confidence(),
			Metrics:    tm.Metrics(),
			Importance: tm.FeatureImportance(),
		})
	}

	dates := models.Dates(bars)
	closes := models.Closes(bars)
	for _, native := range p.registry.Native {
		mf, err := native.ForecastSeries(ctx, dates, closes, len(futureDates))
		if err != nil {
			p.log.Warn("model training failed",
				applogger.String("model", native.Name()),
				applogger.String("symbol", symbol),
				applogger.Error(err))
			svcmetrics.ModelTrainingFailures.WithLabelValues(native.Name()).Inc()
			continue
		}
		p.metrics.RecordModelConfidence(native.Name(), symbol, mf.Confidence)
		results = append(results, *mf)
	}

	return results
}

// summarize renders the one-line text shown next to a forecast chart.
func summarize(res *models.EnsembleResult) string {
	if len(res.Points) == 0 || res.LastActualPrice == 0 {
		return ""
	}
	final := res.Points[len(res.Points)-1].Price
	change := (final - res.LastActualPrice) / res.LastActualPrice * 100

	direction := "stay flat"
	switch {
	case change > 0.1:
		direction = fmt.Sprintf("rise %.1f%%", change)
	case change < -0.1:
		direction = fmt.Sprintf("fall %.1f%%", math.Abs(change))
	}
	return fmt.Sprintf("%s: expected to %s over %d business days (confidence %.0f%%)",
		res.Symbol, direction, res.Horizon, res.Confidence*100)
}
