package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	pkgkafka "StockCast/pkg/kafka"
	"StockCast/pkg/util"
)

// KafkaBarsHandler consumes daily bar messages and writes them to the
// price store. The store's (symbol, date) key makes replays idempotent.
type KafkaBarsHandler struct {
	topic   string
	store   domrepo.PriceStore
	metrics domrepo.Metrics
}

func NewKafkaBarsHandler(topic string, store domrepo.PriceStore, metrics domrepo.Metrics) *KafkaBarsHandler {
	return &KafkaBarsHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaBarsHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, date, o, h, l, c, v}
func (h *KafkaBarsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		Date   string  `json:"date"`
		Open   float64 `json:"o"`
		High   float64 `json:"h"`
		Low    float64 `json:"l"`
		Close  float64 `json:"c"`
		Volume float64 `json:"v"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	d, ok := util.ParseTime(m.Date)
	if !ok {
		h.metrics.RecordError("consumer_bad_date")
		return fmt.Errorf("unparseable bar date %q for %s", m.Date, m.Symbol)
	}
	if m.Symbol == "" || m.Close <= 0 {
		h.metrics.RecordError("consumer_bad_bar")
		return fmt.Errorf("invalid bar for %q: close=%v", m.Symbol, m.Close)
	}

	start := time.Now()
	err := h.store.StoreBatch(ctx, []models.DailyBar{{
		Date:   util.Normalize(d),
		Symbol: m.Symbol,
		Open:   m.Open,
		High:   m.High,
		Low:    m.Low,
		Close:  m.Close,
		Volume: m.Volume,
	}})
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaBarsHandler)(nil)
