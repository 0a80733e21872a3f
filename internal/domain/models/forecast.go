package models

import "time"

// ForecastPoint is a single predicted price on a business day.
type ForecastPoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// ValidationMetrics holds holdout error measures for a fitted model.
type ValidationMetrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
}

// ModelForecast is one backend's H-step forecast with its
// self-reported confidence.
type ModelForecast struct {
	Model      string             `json:"model"`
	Prices     []float64          `json:"prices"`
	Confidence float64            `json:"confidence"`
	Metrics    ValidationMetrics  `json:"metrics"`
	Importance map[string]float64 `json:"importance,omitempty"`
}

// EnsembleResult is the combined forecast returned to callers. Nil
// means "forecast unavailable", never an error.
type EnsembleResult struct {
	Symbol          string             `json:"symbol"`
	Points          []ForecastPoint    `json:"points"`
	Confidence      float64            `json:"confidence"`
	Models          []string           `json:"models"`
	Weights         map[string]float64 `json:"weights"`
	PerModel        []ModelForecast    `json:"per_model,omitempty"`
	LastActualPrice float64            `json:"last_actual_price"`
	LastActualDate  time.Time          `json:"last_actual_date"`
	Horizon         int                `json:"horizon"`
	StaleDays       int                `json:"stale_days"`
	StaleData       bool               `json:"stale_data"`
	Summary         string             `json:"summary,omitempty"`
	ComputedAt      time.Time          `json:"computed_at"`
}
