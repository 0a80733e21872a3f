package forecast

import (
	"time"

	"StockCast/internal/domain/service"
	"StockCast/internal/services/features"
)

// RecursiveForecaster drives one trained tree model through H
// single-step predictions. Each step's feature row is re-derived from
// real history extended by the predictions made so far; a step never
// sees values from later steps.
type RecursiveForecaster struct {
	builder *features.Builder
}

// NewRecursiveForecaster creates a forecaster bound to the feature
// layout of builder.
func NewRecursiveForecaster(builder *features.Builder) *RecursiveForecaster {
	return &RecursiveForecaster{builder: builder}
}

// Forecast predicts one value per future date. out must come from the
// same builder, so the inference row and the model's training layout
// agree.
func (r *RecursiveForecaster) Forecast(model service.TrainedModel, out *features.Output, dates []time.Time) []float64 {
	trailing := make([]float64, len(out.Closes), len(out.Closes)+len(dates))
	copy(trailing, out.Closes)

	row := make([]float64, len(out.Inference))
	copy(row, out.Inference)

	preds := make([]float64, 0, len(dates))
	for i := 0; i < len(dates); i++ {
		p := model.PredictOne(row)
		preds = append(preds, p)
		trailing = append(trailing, p)
		if i < len(dates)-1 {
			row = r.builder.Advance(row, trailing, dates[i+1])
		}
	}
	return preds
}
