package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	pkgch "StockCast/pkg/clickhouse"
	applogger "StockCast/pkg/logger"
)

const dailyBarsTable = "daily_bars"

// schemaStatements create the daily bar table. ReplacingMergeTree
// keyed by (symbol, date) makes Kafka replays and backfills idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS daily_bars (
        date   Date,
        symbol LowCardinality(String),
        open   Float64,
        high   Float64,
        low    Float64,
        close  Float64,
        volume Float64
    ) ENGINE = ReplacingMergeTree()
    ORDER BY (symbol, date)`,
}

// CHPriceStore implements PriceStore backed by ClickHouse.
type CHPriceStore struct {
	client *pkgch.Client
	db     *sql.DB
	l      *applogger.Logger
}

func NewCHPriceStore(ch *pkgch.Client) *CHPriceStore {
	return &CHPriceStore{client: ch, db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHPriceStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHPriceStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, schemaStatements)
}

func (s *CHPriceStore) StoreBatch(ctx context.Context, bars []models.DailyBar) error {
	if len(bars) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, b := range bars[start:end] {
			if b.Symbol == "" || b.Date.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, b.Date, b.Symbol, b.Open, b.High, b.Low, b.Close, b.Volume)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (date, symbol, open, high, low, close, volume) VALUES %s",
			dailyBarsTable, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store bars: %w", err)
		}
	}
	return nil
}

func (s *CHPriceStore) GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error) {
	start := time.Now()
	const q = `
        SELECT date, symbol, open, high, low, close, volume
        FROM daily_bars FINAL
        WHERE symbol = ? AND date >= ? AND date <= ?
        ORDER BY date ASC
    `
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to)
	if err != nil {
		s.logError("get_daily_bars", symbol, err)
		return nil, fmt.Errorf("get daily bars: %w", err)
	}
	defer rows.Close()

	out, err := scanBars(rows)
	if err != nil {
		s.logError("get_daily_bars", symbol, err)
		return nil, err
	}
	s.logOK("get_daily_bars", symbol, len(out), time.Since(start))
	return out, nil
}

func (s *CHPriceStore) GetLatestNBars(ctx context.Context, symbol string, n int) ([]models.DailyBar, error) {
	start := time.Now()
	const q = `
        SELECT date, symbol, open, high, low, close, volume
        FROM daily_bars FINAL
        WHERE symbol = ?
        ORDER BY date DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		s.logError("latest_bars", symbol, err)
		return nil, fmt.Errorf("get latest bars: %w", err)
	}
	defer rows.Close()

	out, err := scanBars(rows)
	if err != nil {
		s.logError("latest_bars", symbol, err)
		return nil, err
	}
	// Query returns newest first; feature construction wants ascending.
	sort.Slice(out, func(a, b int) bool { return out[a].Date.Before(out[b].Date) })
	s.logOK("latest_bars", symbol, len(out), time.Since(start))
	return out, nil
}

func (s *CHPriceStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHPriceStore) Close() error {
	return nil // connection pool owned by pkg client
}

func scanBars(rows *sql.Rows) ([]models.DailyBar, error) {
	out := make([]models.DailyBar, 0, 256)
	for rows.Next() {
		var b models.DailyBar
		if err := rows.Scan(&b.Date, &b.Symbol, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Date = time.Date(b.Date.Year(), b.Date.Month(), b.Date.Day(), 0, 0, 0, 0, time.UTC)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHPriceStore) logError(op, symbol string, err error) {
	if s.l != nil {
		s.l.Error("clickhouse "+op+" error",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
	}
}

func (s *CHPriceStore) logOK(op, symbol string, n int, took time.Duration) {
	if s.l != nil {
		s.l.Debug("clickhouse "+op+" ok",
			applogger.String("symbol", symbol),
			applogger.Int("rows", n),
			applogger.Duration("duration_ms", took),
		)
	}
}

var _ domrepo.PriceStore = (*CHPriceStore)(nil)
