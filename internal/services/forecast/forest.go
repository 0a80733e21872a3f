package forecast

import (
	"context"
	"fmt"
	"math/rand"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/service"
	"StockCast/internal/services/features"
)

// ForestAdapter fits a bagged ensemble of deeper regression trees.
// Fallback backend when gradient boosting is not configured.
type ForestAdapter struct {
	seed       int64
	estimators int
	maxDepth   int
	minLeaf    int
}

// NewForestAdapter creates the bagged forest backend.
func NewForestAdapter(seed int64) *ForestAdapter {
	return &ForestAdapter{
		seed:       seed,
		estimators: 100,
		maxDepth:   8,
		minLeaf:    2,
	}
}

func (a *ForestAdapter) Name() string { return "random_forest" }

// Fit follows the same chronological split discipline as the gradient
// backend: holdout metrics from the trailing 20%, final model on the
// full matrix.
func (a *ForestAdapter) Fit(ctx context.Context, m *models.FeatureMatrix) (service.TrainedModel, error) {
	if m.NumRows() < features.MinUsableRows {
		return nil, fmt.Errorf("%w: random_forest needs %d rows, got %d", ErrTrainingFailed, features.MinUsableRows, m.NumRows())
	}

	train, valid := features.ChronologicalSplit(m, trainFraction)

	holdout, err := a.bag(ctx, train)
	if err != nil {
		return nil, err
	}
	metrics := holdoutMetrics(holdout.predict, valid)

	full, err := a.bag(ctx, m)
	if err != nil {
		return nil, err
	}

	return &fitted{
		predictFn:  full.predict,
		metrics:    metrics,
		confidence: treeConfidence(metrics.MAE, valid.Target),
		importance: importanceByName(m.Names, full.rawImportance()),
	}, nil
}

type forestModel struct {
	trees []*regressionTree
	nFeat int
}

func (f *forestModel) predict(row []float64) float64 {
	var sum float64
	for _, t := range f.trees {
		sum += t.predict(row)
	}
	return sum / float64(len(f.trees))
}

func (f *forestModel) rawImportance() []float64 {
	raw := make([]float64, f.nFeat)
	for _, t := range f.trees {
		for i, v := range t.importance {
			raw[i] += v
		}
	}
	return raw
}

// bag trains each tree on a bootstrap resample of the rows.
func (a *ForestAdapter) bag(ctx context.Context, m *models.FeatureMatrix) (*forestModel, error) {
	rng := rand.New(rand.NewSource(a.seed))

	n := m.NumRows()
	params := treeParams{maxDepth: a.maxDepth, minLeaf: a.minLeaf}
	model := &forestModel{nFeat: len(m.Names)}

	for step := 0; step < a.estimators; step++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTrainingFailed, err)
		}
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.Intn(n)
		}
		model.trees = append(model.trees, fitTree(m.Rows, m.Target, sample, params, rng))
	}

	return model, nil
}
