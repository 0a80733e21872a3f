package forecast

import (
	"context"
	"fmt"
	"math/rand"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/service"
	"StockCast/internal/services/features"
)

// GradientAdapter fits a gradient-boosted ensemble of shallow
// regression trees. Deterministic for a fixed seed.
type GradientAdapter struct {
	seed         int64
	estimators   int
	learningRate float64
	maxDepth     int
	minLeaf      int
}

// NewGradientAdapter creates the gradient boosting backend.
func NewGradientAdapter(seed int64) *GradientAdapter {
	return &GradientAdapter{
		seed:         seed,
		estimators:   100,
		learningRate: 0.1,
		maxDepth:     3,
		minLeaf:      2,
	}
}

func (a *GradientAdapter) Name() string { return "gradient_boost" }

// Fit trains on the chronological leading split, measures holdout
// error on the trailing split, then refits on the full matrix for
// forecasting.
func (a *GradientAdapter) Fit(ctx context.Context, m *models.FeatureMatrix) (service.TrainedModel, error) {
	if m.NumRows() < features.MinUsableRows {
		return nil, fmt.Errorf("%w: gradient_boost needs %d rows, got %d", ErrTrainingFailed, features.MinUsableRows, m.NumRows())
	}

	train, valid := features.ChronologicalSplit(m, trainFraction)

	holdout, err := a.boost(ctx, train)
	if err != nil {
		return nil, err
	}
	metrics := holdoutMetrics(holdout.predict, valid)

	full, err := a.boost(ctx, m)
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

type gbmModel struct {
	base  float64
	trees []*regressionTree
	rate  float64
	nFeat int
}

func (g *gbmModel) predict(row []float64) float64 {
	out := g.base
	for _, t := range g.trees {
		out += g.rate * t.predict(row)
	}
	return out
}

func (g *gbmModel) rawImportance() []float64 {
	raw := make([]float64, g.nFeat)
	for _, t := range g.trees {
		for i, v := range t.importance {
			raw[i] += v
		}
	}
	return raw
}

// boost runs the residual-fitting loop: each tree is trained on the
// residuals left by the model so far.
func (a *GradientAdapter) boost(ctx context.Context, m *models.FeatureMatrix) (*gbmModel, error) {
	rng := rand.New(rand.NewSource(a.seed))

	n := m.NumRows()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	model := &gbmModel{rate: a.learningRate, nFeat: len(m.Names)}
	var baseSum float64
	for _, t := range m.Target {
		baseSum += t
	}
	model.base = baseSum / float64(n)

	current := make([]float64, n)
	for i := range current {
		current[i] = model.base
	}
	residuals := make([]float64, n)
	params := treeParams{maxDepth: a.maxDepth, minLeaf: a.minLeaf}

	for step := 0; step < a.estimators; step++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTrainingFailed, err)
		}
		for i := 0; i < n; i++ {
			residuals[i] = m.Target[i] - current[i]
		}
		tree := fitTree(m.Rows, residuals, idx, params, rng)
		model.trees = append(model.trees, tree)
		for i := 0; i < n; i++ {
			current[i] += a.learningRate * tree.predict(m.Rows[i])
		}
	}

	return model, nil
}
