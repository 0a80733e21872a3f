package forecast

import (
	"context"
	"math"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/internal/services/features"
	"StockCast/pkg/util"
)

func syntheticBars(t *testing.T, n int) []models.DailyBar {
	t.Helper()
	first := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	dates, err := util.NextBusinessDays(first.AddDate(0, 0, -1), n)
	if err != nil {
		t.Fatalf("generate dates: %v", err)
	}
	bars := make([]models.DailyBar, n)
	for i := 0; i < n; i++ {
		// Trend plus a small deterministic wobble so splits are non-trivial.
		c := 100 + float64(i)*0.8 + 3*math.Sin(float64(i)/4)
		bars[i] = models.DailyBar{
			Date: dates[i], Symbol: "TEST",
			Open: c - 0.3, High: c + 1, Low: c - 1, Close: c,
			Volume: 5000 + 100*float64(i%7),
		}
	}
	return bars
}

func buildOutput(t *testing.T, n int) (*features.Builder, *features.Output) {
	t.Helper()
	b := features.NewBuilder(7, 7)
	out, err := b.Build(syntheticBars(t, n))
	if err != nil {
		t.Fatalf("build features: %v", err)
	}
	return b, out
}

func TestGradientAdapterDeterministic(t *testing.T) {
	_, out := buildOutput(t, 80)
	a := NewGradientAdapter(42)

	m1, err := a.Fit(context.Background(), out.Train)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	m2, err := a.Fit(context.Background(), out.Train)
	if err != nil {
		t.Fatalf("refit: %v", err)
	}

	if p1, p2 := m1.PredictOne(out.Inference), m2.PredictOne(out.Inference); p1 != p2 {
		t.Fatalf("same seed produced different predictions: %v vs %v", p1, p2)
	}
	if m1.Confidence() != m2.Confidence() {
		t.Fatalf("same seed produced different confidences: %v vs %v", m1.Confidence(), m2.Confidence())
	}
}

func TestAdapterConfidenceBounds(t *testing.T) {
	_, out := buildOutput(t, 80)

	grad, err := NewGradientAdapter(42).Fit(context.Background(), out.Train)
	if err != nil {
		t.Fatalf("gradient fit: %v", err)
	}
	forest, err := NewForestAdapter(42).Fit(context.Background(), out.Train)
	if err != nil {
		t.Fatalf("forest fit: %v", err)
	}

	for name, c := range map[string]float64{
		"gradient": grad.Confidence(),
		"forest":   forest.Confidence(),
	} {
		if c < 0.1 || c > 0.9 {
			t.Errorf("%s confidence %v outside [0.1, 0.9]", name, c)
		}
	}
}

func TestRecursiveForecastPrefixStable(t *testing.T) {
	b, out := buildOutput(t, 80)
	model, err := NewGradientAdapter(42).Fit(context.Background(), out.Train)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	short, err := util.NextBusinessDays(out.LastDate, 3)
	if err != nil {
		t.Fatalf("dates: %v", err)
	}
	long, err := util.NextBusinessDays(out.LastDate, 8)
	if err != nil {
		t.Fatalf("dates: %v", err)
	}

	rf := NewRecursiveForecaster(b)
	p3 := rf.Forecast(model, out, short)
	p8 := rf.Forecast(model, out, long)

	// A step never depends on later steps, so a longer horizon must
	// reproduce the shorter one as its prefix.
	for i := range p3 {
		if p3[i] != p8[i] {
			t.Fatalf("step %d differs between horizons: %v vs %v", i, p3[i], p8[i])
		}
	}
}

func TestRecursiveForecastPositiveFinite(t *testing.T) {
	b, out := buildOutput(t, 100)
	model, err := NewForestAdapter(42).Fit(context.Background(), out.Train)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	dates, err := util.NextBusinessDays(out.LastDate, 5)
	if err != nil {
		t.Fatalf("dates: %v", err)
	}

	preds := NewRecursiveForecaster(b).Forecast(model, out, dates)
	if len(preds) != 5 {
		t.Fatalf("got %d predictions, want 5", len(preds))
	}
	for i, p := range preds {
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			t.Fatalf("prediction %d = %v, want positive finite", i, p)
		}
	}
}

func TestSeasonalForecast(t *testing.T) {
	bars := syntheticBars(t, 80)
	dates := models.Dates(bars)
	closes := models.Closes(bars)

	mf, err := NewSeasonalAdapter().ForecastSeries(context.Background(), dates, closes, 7)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if len(mf.Prices) != 7 {
		t.Fatalf("got %d prices, want 7", len(mf.Prices))
	}
	if mf.Confidence < 0.1 || mf.Confidence > 0.9 {
		t.Fatalf("confidence %v outside [0.1, 0.9]", mf.Confidence)
	}
	for i, p := range mf.Prices {
		if math.IsNaN(p) || p <= 0 {
			t.Fatalf("price %d = %v", i, p)
		}
	}
}

func TestSeasonalTooShort(t *testing.T) {
	bars := syntheticBars(t, 10)
	_, err := NewSeasonalAdapter().ForecastSeries(context.Background(), models.Dates(bars), models.Closes(bars), 7)
	if err == nil {
		t.Fatal("expected error for short series")
	}
}

func TestCombineCommutative(t *testing.T) {
	a := models.ModelForecast{Model: "a", Prices: []float64{10, 11, 12}, Confidence: 0.9}
	b := models.ModelForecast{Model: "b", Prices: []float64{20, 21, 22}, Confidence: 0.3}
	c := models.ModelForecast{Model: "c", Prices: []float64{30, 31, 32}, Confidence: 0.6}

	r1 := Combine([]models.ModelForecast{a, b, c}, 3)
	r2 := Combine([]models.ModelForecast{c, a, b}, 3)

	if r1 == nil || r2 == nil {
		t.Fatal("combine returned nil")
	}
	for i := range r1.Prices {
		if math.Abs(r1.Prices[i]-r2.Prices[i]) > 1e-12 {
			t.Fatalf("price %d differs under reordering: %v vs %v", i, r1.Prices[i], r2.Prices[i])
		}
	}
	if math.Abs(r1.Confidence-r2.Confidence) > 1e-12 {
		t.Fatalf("confidence differs under reordering: %v vs %v", r1.Confidence, r2.Confidence)
	}
}

func TestCombineWeightsAndBounds(t *testing.T) {
	a := models.ModelForecast{Model: "a", Prices: []float64{10, 10}, Confidence: 0.8}
	b := models.ModelForecast{Model: "b", Prices: []float64{20, 20}, Confidence: 0.2}

	r := Combine([]models.ModelForecast{a, b}, 2)
	if r == nil {
		t.Fatal("combine returned nil")
	}

	var sum float64
	for _, w := range r.Weights {
		sum += w
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Fatalf("weights sum to %v, want 1", sum)
	}
	if r.Confidence < 0.2 || r.Confidence > 0.8 {
		t.Fatalf("aggregate confidence %v outside the individual range", r.Confidence)
	}
	// Prices weighted toward the higher-confidence model.
	if r.Prices[0] <= 10 || r.Prices[0] >= 20 {
		t.Fatalf("combined price %v outside (10, 20)", r.Prices[0])
	}
	if r.Prices[0] >= 15 {
		t.Fatalf("combined price %v not weighted toward confident model", r.Prices[0])
	}
}

func TestCombineDropsIncomplete(t *testing.T) {
	full := models.ModelForecast{Model: "full", Prices: []float64{1, 2, 3}, Confidence: 0.5}
	short := models.ModelForecast{Model: "short", Prices: []float64{1, 2}, Confidence: 0.9}

	r := Combine([]models.ModelForecast{full, short}, 3)
	if r == nil {
		t.Fatal("combine returned nil")
	}
	if len(r.Models) != 1 || r.Models[0] != "full" {
		t.Fatalf("models = %v, want [full]", r.Models)
	}
}

func TestCombineEmpty(t *testing.T) {
	if r := Combine(nil, 5); r != nil {
		t.Fatalf("combine(nil) = %+v, want nil", r)
	}
	incomplete := []models.ModelForecast{{Model: "x", Prices: []float64{1}, Confidence: 0.5}}
	if r := Combine(incomplete, 5); r != nil {
		t.Fatalf("combine(incomplete) = %+v, want nil", r)
	}
}
