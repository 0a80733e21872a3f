package forecast

import (
	"errors"
	"sort"

	"StockCast/internal/domain/models"
)

// ErrAllModelsFailed marks the case where no backend produced a
// complete forecast. It is logged, never returned to API callers; the
// result is simply unavailable.
var ErrAllModelsFailed = errors.New("all model backends failed")

// Combined is the merged multi-model forecast before calendar dates
// and caller metadata are attached.
type Combined struct {
	Prices     []float64
	Confidence float64
	Weights    map[string]float64
	Models     []string
	PerModel   []models.ModelForecast
}

// Combine weights each complete H-length forecast by its model's
// confidence, normalized to sum to 1, and averages prices per day.
// Aggregate confidence uses the same weights, so it stays within the
// range of the individual confidences. Returns nil when no adapter
// produced a complete forecast; callers treat that as "forecast
// unavailable", not as an error. Reordering the input never changes
// the result.
func Combine(results []models.ModelForecast, horizon int) *Combined {
	complete := make([]models.ModelForecast, 0, len(results))
	var totalConf float64
	for _, r := range results {
		if len(r.Prices) != horizon {
			continue
		}
		complete = append(complete, r)
		totalConf += r.Confidence
	}
	if len(complete) == 0 || totalConf == 0 {
		return nil
	}
	sort.Slice(complete, func(a, b int) bool { return complete[a].Model < complete[b].Model })

	out := &Combined{
		Prices:   make([]float64, horizon),
		Weights:  make(map[string]float64, len(complete)),
		Models:   make([]string, 0, len(complete)),
		PerModel: complete,
	}
	for _, r := range complete {
		w := r.Confidence / totalConf
		out.Weights[r.Model] = w
		out.Models = append(out.Models, r.Model)
		out.Confidence += w * r.Confidence
		for i, p := range r.Prices {
			out.Prices[i] += w * p
		}
	}
	return out
}
