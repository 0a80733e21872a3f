package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	models "StockCast/internal/domain/models"
	"StockCast/pkg/config"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/queue"
)

// WarmupJobType identifies cache warmup messages on the queue.
const WarmupJobType = "forecast.warmup"

// WarmupPayload asks for one symbol's forecast to be precomputed.
type WarmupPayload struct {
	Symbol  string `json:"symbol"`
	Horizon int    `json:"horizon"`
}

// WarmupJob precomputes a forecast so the first API hit for a
// watchlist symbol is served from cache.
type WarmupJob struct {
	predictor *Predictor
	cfg       config.ForecastConfig
	log       *applogger.Logger
}

func NewWarmupJob(predictor *Predictor, cfg config.ForecastConfig, log *applogger.Logger) *WarmupJob {
	return &WarmupJob{predictor: predictor, cfg: cfg, log: log}
}

func (j *WarmupJob) Name() string { return "forecast_cache_warmup" }
func (j *WarmupJob) Type() string { return WarmupJobType }

func (j *WarmupJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[WarmupPayload](payload)
	if err != nil {
		return fmt.Errorf("warmup payload: %w", err)
	}
	if p.Symbol == "" {
		return fmt.Errorf("warmup payload: empty symbol")
	}

	horizon := p.Horizon
	if horizon <= 0 {
		horizon = j.cfg.HorizonDays
	}

	req := models.ForecastRequest{
		Symbol:     p.Symbol,
		Horizon:    horizon,
		NLags:      j.cfg.NLags,
		WindowSize: j.cfg.WindowSize,
	}

	res, err := j.predictor.Forecast(ctx, req)
	if err != nil {
		return fmt.Errorf("warmup forecast %s: %w", p.Symbol, err)
	}
	if res == nil {
		// Too little history is not a retryable condition.
		j.log.Debug("warmup skipped, forecast unavailable",
			applogger.String("symbol", p.Symbol))
	}
	return nil
}

// CacheWarmer periodically enqueues the configured watchlist so their
// forecasts stay warm across cache expirations.
type CacheWarmer struct {
	q        *queue.RedisQueue
	symbols  []string
	interval time.Duration
	log      *applogger.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewCacheWarmer(q *queue.RedisQueue, job *WarmupJob, symbols []string, interval time.Duration, log *applogger.Logger) *CacheWarmer {
	q.RegisterJob(job)
	return &CacheWarmer{
		q:        q,
		symbols:  symbols,
		interval: interval,
		log:      log,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the queue workers and the enqueue loop.
func (w *CacheWarmer) Start() error {
	if err := w.q.Start(); err != nil {
		return fmt.Errorf("warmup queue: %w", err)
	}

	w.enqueueAll()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.stopCh:
				return
			case <-ticker.C:
				w.enqueueAll()
			}
		}
	}()

	w.log.Info("cache warmer started",
		applogger.Strings("symbols", w.symbols),
		applogger.Duration("interval", w.interval))
	return nil
}

// Stop halts the enqueue loop and drains queue workers.
func (w *CacheWarmer) Stop(ctx context.Context) error {
	close(w.stopCh)
	w.wg.Wait()
	return w.q.Stop(ctx)
}

func (w *CacheWarmer) enqueueAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, sym := range w.symbols {
		if err := w.q.Enqueue(ctx, WarmupJobType, WarmupPayload{Symbol: sym}); err != nil {
			w.log.Warn("warmup enqueue failed",
				applogger.String("symbol", sym),
				applogger.Error(err))
		}
	}
}
