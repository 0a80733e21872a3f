package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"StockCast/internal/domain/models"
)

func result(price float64) *models.EnsembleResult {
	return &models.EnsembleResult{
		Symbol:     "TEST",
		Points:     []models.ForecastPoint{{Price: price}},
		Confidence: 0.5,
		ComputedAt: time.Now(),
	}
}

func TestGetOrComputeCachesWithinTTL(t *testing.T) {
	c := NewPredictionCache(time.Minute)
	key := Key("TEST", 7, 7, 7)

	calls := 0
	compute := func(context.Context) (*models.EnsembleResult, error) {
		calls++
		return result(101), nil
	}

	r1, cached1, err := c.GetOrCompute(context.Background(), key, compute)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if cached1 {
		t.Fatal("first call reported cached")
	}

	r2, cached2, err := c.GetOrCompute(context.Background(), key, compute)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !cached2 {
		t.Fatal("second call not served from cache")
	}
	if calls != 1 {
		t.Fatalf("compute ran %d times, want 1", calls)
	}
	if r1 != r2 {
		t.Fatal("cached result is not the identical object")
	}
}

func TestGetOrComputeRecomputesAfterTTL(t *testing.T) {
	c := NewPredictionCache(10 * time.Millisecond)
	key := Key("TEST", 7, 7, 7)

	calls := 0
	compute := func(context.Context) (*models.EnsembleResult, error) {
		calls++
		return result(float64(calls)), nil
	}

	if _, _, err := c.GetOrCompute(context.Background(), key, compute); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	r, cached, err := c.GetOrCompute(context.Background(), key, compute)
	if err != nil {
		t.Fatal(err)
	}
	if cached {
		t.Fatal("expired entry served from cache")
	}
	if calls != 2 {
		t.Fatalf("compute ran %d times, want 2", calls)
	}
	if r.Points[0].Price != 2 {
		t.Fatalf("got stale result %v", r.Points[0].Price)
	}
}

func TestGetOrComputeNilNotCached(t *testing.T) {
	c := NewPredictionCache(time.Minute)
	key := Key("EMPTY", 7, 7, 7)

	calls := 0
	compute := func(context.Context) (*models.EnsembleResult, error) {
		calls++
		return nil, nil
	}

	for i := 0; i < 2; i++ {
		r, cached, err := c.GetOrCompute(context.Background(), key, compute)
		if err != nil {
			t.Fatal(err)
		}
		if r != nil || cached {
			t.Fatalf("call %d: r=%v cached=%v, want nil/false", i, r, cached)
		}
	}
	if calls != 2 {
		t.Fatalf("compute ran %d times, want 2 (nil results are not cached)", calls)
	}
}

func TestGetOrComputeError(t *testing.T) {
	c := NewPredictionCache(time.Minute)
	boom := errors.New("boom")

	_, _, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (*models.EnsembleResult, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	// Errors are not cached either.
	r, _, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (*models.EnsembleResult, error) {
		return result(5), nil
	})
	if err != nil || r == nil {
		t.Fatalf("recovery call: r=%v err=%v", r, err)
	}
}

func TestGetOrComputeCoalescesConcurrent(t *testing.T) {
	c := NewPredictionCache(time.Minute)
	key := Key("SLOW", 7, 7, 7)

	var mu sync.Mutex
	calls := 0
	started := make(chan struct{})
	release := make(chan struct{})

	compute := func(context.Context) (*models.EnsembleResult, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(started)
			<-release
		}
		return result(9), nil
	}

	var wg sync.WaitGroup
	results := make([]*models.EnsembleResult, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, _, err := c.GetOrCompute(context.Background(), key, compute)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
			}
			results[i] = r
		}(i)
	}

	<-started
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("compute ran %d times under concurrency, want 1", calls)
	}
	for i := 1; i < 4; i++ {
		if results[i] != results[0] {
			t.Fatalf("caller %d got a different object", i)
		}
	}
}
