package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	icache "StockCast/internal/service/cache"
	"StockCast/internal/services/forecast"
	"StockCast/pkg/config"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/util"
)

type fakeStore struct {
	bars []models.DailyBar
	err  error
}

func (f *fakeStore) Init(context.Context) error                          { return nil }
func (f *fakeStore) StoreBatch(_ context.Context, b []models.DailyBar) error {
	f.bars = append(f.bars, b...)
	return nil
}
func (f *fakeStore) GetDailyBars(_ context.Context, _ string, from, to time.Time) ([]models.DailyBar, error) {
	return f.bars, f.err
}
func (f *fakeStore) GetLatestNBars(_ context.Context, _ string, n int) ([]models.DailyBar, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.bars) > n {
		return f.bars[len(f.bars)-n:], nil
	}
	return f.bars, nil
}
func (f *fakeStore) Health(context.Context) error { return nil }
func (f *fakeStore) Close() error                 { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordForecast(string, string)                {}
func (nopMetrics) RecordCacheOp(string)                         {}
func (nopMetrics) RecordError(string)                           {}
func (nopMetrics) RecordModelConfidence(string, string, float64) {}
func (nopMetrics) RecordLatency(string, float64)                {}

func testConfig() config.ForecastConfig {
	return config.ForecastConfig{
		NLags:          7,
		WindowSize:     7,
		HorizonDays:    7,
		MaxHorizonDays: 90,
		MinHistory:     30,
		CacheTTL:       5 * time.Minute,
		Models:         []string{"gradient", "seasonal"},
		Seed:           42,
	}
}

func newTestPredictor(t *testing.T, store *fakeStore, modelNames []string) *Predictor {
	t.Helper()
	cfg := testConfig()
	if modelNames != nil {
		cfg.Models = modelNames
	}
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	registry := forecast.NewRegistry(cfg, l)
	cache := icache.NewPredictionCache(cfg.CacheTTL)
	return NewPredictor(store, registry, cache, nil, nopMetrics{}, cfg, l)
}

func increasingBars(t *testing.T, n int) []models.DailyBar {
	t.Helper()
	first := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	dates, err := util.NextBusinessDays(first.AddDate(0, 0, -1), n)
	if err != nil {
		t.Fatalf("dates: %v", err)
	}
	bars := make([]models.DailyBar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = models.DailyBar{
			Date: dates[i], Symbol: "UP",
			Open: c - 0.2, High: c + 0.5, Low: c - 0.5, Close: c,
			Volume: 10000,
		}
	}
	return bars
}

func TestForecastEndToEnd(t *testing.T) {
	store := &fakeStore{bars: increasingBars(t, 100)}
	p := newTestPredictor(t, store, nil)

	res, err := p.Forecast(context.Background(), models.ForecastRequest{
		Symbol: "UP", Horizon: 5, NLags: 7, WindowSize: 7,
	})
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if res == nil {
		t.Fatal("forecast unavailable")
	}
	if len(res.Points) != 5 {
		t.Fatalf("got %d points, want 5", len(res.Points))
	}

	lastDate := store.bars[len(store.bars)-1].Date
	want, err := util.NextBusinessDays(lastDate, 5)
	if err != nil {
		t.Fatal(err)
	}
	for i, pt := range res.Points {
		if !pt.Date.Equal(want[i]) {
			t.Errorf("point %d date = %v, want %v", i, pt.Date, want[i])
		}
		if pt.Price <= 0 {
			t.Errorf("point %d price = %v, want positive", i, pt.Price)
		}
	}
	if res.Confidence < 0 || res.Confidence > 1 {
		t.Errorf("confidence %v outside [0, 1]", res.Confidence)
	}
	if res.LastActualPrice != store.bars[len(store.bars)-1].Close {
		t.Errorf("last actual price = %v", res.LastActualPrice)
	}
	if len(res.Models) == 0 {
		t.Error("no contributing models recorded")
	}
	if res.Summary == "" {
		t.Error("summary not rendered")
	}
}

func TestForecastServedFromCache(t *testing.T) {
	store := &fakeStore{bars: increasingBars(t, 100)}
	p := newTestPredictor(t, store, nil)
	req := models.ForecastRequest{Symbol: "UP", Horizon: 3, NLags: 7, WindowSize: 7}

	r1, err := p.Forecast(context.Background(), req)
	if err != nil || r1 == nil {
		t.Fatalf("first: res=%v err=%v", r1, err)
	}

	// Break the store: a cache hit must not touch it.
	store.err = errors.New("store down")
	r2, err := p.Forecast(context.Background(), req)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if r2 != r1 {
		t.Fatal("second call did not return the cached object")
	}
}

func TestForecastShortHistoryUnavailable(t *testing.T) {
	store := &fakeStore{bars: increasingBars(t, 10)}
	p := newTestPredictor(t, store, nil)

	res, err := p.Forecast(context.Background(), models.ForecastRequest{
		Symbol: "UP", Horizon: 5, NLags: 7, WindowSize: 7,
	})
	if err != nil {
		t.Fatalf("short history must not error: %v", err)
	}
	if res != nil {
		t.Fatalf("expected no forecast, got %+v", res)
	}
}

func TestForecastNoBackendsUnavailable(t *testing.T) {
	store := &fakeStore{bars: increasingBars(t, 100)}
	p := newTestPredictor(t, store, []string{"nonexistent"})

	res, err := p.Forecast(context.Background(), models.ForecastRequest{
		Symbol: "UP", Horizon: 5, NLags: 7, WindowSize: 7,
	})
	if err != nil {
		t.Fatalf("missing backends must not error: %v", err)
	}
	if res != nil {
		t.Fatalf("expected no forecast, got %+v", res)
	}
}

func TestForecastInvalidHorizon(t *testing.T) {
	store := &fakeStore{bars: increasingBars(t, 100)}
	p := newTestPredictor(t, store, nil)

	for _, horizon := range []int{0, -1, 91} {
		_, err := p.Forecast(context.Background(), models.ForecastRequest{
			Symbol: "UP", Horizon: horizon, NLags: 7, WindowSize: 7,
		})
		if !errors.Is(err, util.ErrInvalidDate) {
			t.Errorf("horizon %d: err = %v, want ErrInvalidDate", horizon, err)
		}
	}
}

func TestBarsHandlerStores(t *testing.T) {
	store := &fakeStore{}
	h := NewKafkaBarsHandler("bars.daily", store, nopMetrics{})

	msg := []byte(`{"symbol":"UP","date":"2024-10-10","o":99.5,"h":101,"l":99,"c":100.5,"v":12345}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(store.bars) != 1 {
		t.Fatalf("stored %d bars, want 1", len(store.bars))
	}
	b := store.bars[0]
	if b.Symbol != "UP" || b.Close != 100.5 {
		t.Fatalf("stored bar %+v", b)
	}
	if b.Date.Hour() != 0 || b.Date.Location() != time.UTC {
		t.Fatalf("bar date not normalized: %v", b.Date)
	}
}

func TestBarsHandlerRejectsBadPayload(t *testing.T) {
	store := &fakeStore{}
	h := NewKafkaBarsHandler("bars.daily", store, nopMetrics{})

	for _, msg := range []string{
		`not json`,
		`{"symbol":"UP","date":"???","c":1}`,
		`{"symbol":"","date":"2024-10-10","c":1}`,
		`{"symbol":"UP","date":"2024-10-10","c":0}`,
	} {
		if err := h.Handle(context.Background(), []byte(msg)); err == nil {
			t.Errorf("payload %q accepted", msg)
		}
	}
	if len(store.bars) != 0 {
		t.Fatalf("bad payloads stored %d bars", len(store.bars))
	}
}
