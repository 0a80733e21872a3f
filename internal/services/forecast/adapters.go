package forecast

import (
	"errors"
	"math"

	"StockCast/internal/domain/models"
	"StockCast/pkg/util"

	"gonum.org/v1/gonum/stat"
)

// ErrTrainingFailed wraps any backend training error. Callers exclude
// the failing adapter from the ensemble instead of aborting.
var ErrTrainingFailed = errors.New("model training failed")

const (
	trainFraction = 0.8

	confidenceFloor = 0.1
	confidenceCeil  = 0.9
)

// fitted is the shared TrainedModel implementation for tree backends.
type fitted struct {
	predictFn  func([]float64) float64
	metrics    models.ValidationMetrics
	confidence float64
	importance map[string]float64
}

func (f *fitted) PredictOne(row []float64) float64      { return f.predictFn(row) }
func (f *fitted) Confidence() float64                   { return f.confidence }
func (f *fitted) Metrics() models.ValidationMetrics     { return f.metrics }
func (f *fitted) FeatureImportance() map[string]float64 { return f.importance }

// holdoutMetrics evaluates a predictor on the validation slice.
func holdoutMetrics(predict func([]float64) float64, valid *models.FeatureMatrix) models.ValidationMetrics {
	var absSum, sqSum float64
	for i, row := range valid.Rows {
		diff := predict(row) - valid.Target[i]
		absSum += math.Abs(diff)
		sqSum += diff * diff
	}
	n := float64(valid.NumRows())
	return models.ValidationMetrics{
		MAE:  absSum / n,
		RMSE: math.Sqrt(sqSum / n),
	}
}

// treeConfidence maps holdout MAE to a confidence score, clamped to
// [0.1, 0.9]. The formula can go negative before clamping; it is a
// heuristic, not a calibrated probability.
func treeConfidence(mae float64, targets []float64) float64 {
	mean := stat.Mean(targets, nil)
	if mean == 0 {
		return confidenceFloor
	}
	return util.ClampFloat(1-mae/mean, confidenceFloor, confidenceCeil)
}

// importanceByName normalizes raw per-column gains into a named map.
func importanceByName(names []string, raw []float64) map[string]float64 {
	var total float64
	for _, v := range raw {
		total += v
	}
	if total == 0 {
		return nil
	}
	out := make(map[string]float64, len(names))
	for i, name := range names {
		if raw[i] > 0 {
			out[name] = raw[i] / total
		}
	}
	return out
}
