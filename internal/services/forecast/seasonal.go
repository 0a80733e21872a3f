package forecast

import (
	"context"
	"fmt"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/pkg/util"

	"gonum.org/v1/gonum/stat"
)

const seasonalMinObservations = 30

// SeasonalAdapter decomposes the close series into a linear trend plus
// weekday seasonality and extrapolates both. It trains on (date, close)
// pairs directly and produces a native multi-step forecast, so the
// recursive loop is skipped.
type SeasonalAdapter struct{}

// NewSeasonalAdapter creates the trend+seasonality backend.
func NewSeasonalAdapter() *SeasonalAdapter { return &SeasonalAdapter{} }

func (a *SeasonalAdapter) Name() string { return "seasonal_trend" }

// ForecastSeries fits an OLS trend, measures per-weekday residual
// means, and projects horizon steps ahead. Confidence derives from the
// width of the residual uncertainty band relative to the forecast
// level, clamped to [0.1, 0.9].
func (a *SeasonalAdapter) ForecastSeries(ctx context.Context, dates []time.Time, closes []float64, horizon int) (*models.ModelForecast, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTrainingFailed, err)
	}
	n := len(closes)
	if n < seasonalMinObservations {
		return nil, fmt.Errorf("%w: seasonal_trend needs %d observations, got %d", ErrTrainingFailed, seasonalMinObservations, n)
	}
	if horizon < 1 {
		return nil, fmt.Errorf("%w: non-positive horizon %d", ErrTrainingFailed, horizon)
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(x, closes, nil, false)

	// Weekday means of the detrended residuals. Weekend buckets stay
	// empty: inputs and forecast dates are business days only.
	var seasonal [7]float64
	var counts [7]int
	residuals := make([]float64, n)
	for i := range closes {
		r := closes[i] - (alpha + beta*x[i])
		residuals[i] = r
		wd := dates[i].Weekday()
		seasonal[wd] += r
		counts[wd]++
	}
	for wd := range seasonal {
		if counts[wd] > 0 {
			seasonal[wd] /= float64(counts[wd])
		}
	}

	// Sigma of what trend+seasonality leaves unexplained.
	noise := make([]float64, n)
	for i := range residuals {
		noise[i] = residuals[i] - seasonal[dates[i].Weekday()]
	}
	sigma := stat.StdDev(noise, nil)

	future, err := util.NextBusinessDays(dates[n-1], horizon)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTrainingFailed, err)
	}

	prices := make([]float64, horizon)
	var yhatSum, bandSum float64
	for i, d := range future {
		yhat := alpha + beta*float64(n+i) + seasonal[d.Weekday()]
		prices[i] = yhat
		yhatSum += yhat
		bandSum += 2 * 1.96 * sigma // band width at 95%
	}

	confidence := confidenceFloor
	if meanYhat := yhatSum / float64(horizon); meanYhat > 0 {
		confidence = util.ClampFloat(1-(bandSum/float64(horizon))/meanYhat, confidenceFloor, confidenceCeil)
	}

	return &models.ModelForecast{
		Model:      a.Name(),
		Prices:     prices,
		Confidence: confidence,
		Metrics:    models.ValidationMetrics{RMSE: sigma},
	}, nil
}
