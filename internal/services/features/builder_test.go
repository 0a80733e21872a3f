package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/pkg/util"
)

func makeBars(t *testing.T, n int, start, step float64) []models.DailyBar {
	t.Helper()
	first := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC) // Tuesday
	dates, err := util.NextBusinessDays(first.AddDate(0, 0, -1), n)
	if err != nil {
		t.Fatalf("generate dates: %v", err)
	}
	bars := make([]models.DailyBar, n)
	for i := 0; i < n; i++ {
		c := start + step*float64(i)
		bars[i] = models.DailyBar{
			Date:   dates[i],
			Symbol: "TEST",
			Open:   c - 0.5,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000 + 10*float64(i%5),
		}
	}
	return bars
}

func TestBuildRowCountAndTargets(t *testing.T) {
	bars := makeBars(t, 40, 100, 1)
	b := NewBuilder(7, 7)

	out, err := b.Build(bars)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	wantRows := 40 - 7 - 1
	if out.Train.NumRows() != wantRows {
		t.Fatalf("train rows = %d, want %d", out.Train.NumRows(), wantRows)
	}
	if len(out.Train.Target) != wantRows {
		t.Fatalf("targets = %d, want %d", len(out.Train.Target), wantRows)
	}

	// First usable row is index 7; its target is the close at index 8.
	if got, want := out.Train.Target[0], bars[8].Close; got != want {
		t.Errorf("first target = %v, want %v", got, want)
	}
	if !out.Train.Dates[0].Equal(bars[7].Date) {
		t.Errorf("first row date = %v, want %v", out.Train.Dates[0], bars[7].Date)
	}
	if !out.LastDate.Equal(bars[39].Date) {
		t.Errorf("last date = %v, want %v", out.LastDate, bars[39].Date)
	}
	if out.LastClose != bars[39].Close {
		t.Errorf("last close = %v, want %v", out.LastClose, bars[39].Close)
	}
}

func TestBuildLagColumns(t *testing.T) {
	bars := makeBars(t, 40, 100, 1)
	b := NewBuilder(3, 7)

	out, err := b.Build(bars)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	// Row r corresponds to series index r+7 (warmup = max(3, 7)).
	for r := 0; r < out.Train.NumRows(); r++ {
		i := r + 7
		for k := 1; k <= 3; k++ {
			col := out.Train.ColumnIndex(map[int]string{1: "lag_1", 2: "lag_2", 3: "lag_3"}[k])
			if got, want := out.Train.Rows[r][col], bars[i-k].Close; got != want {
				t.Fatalf("row %d lag_%d = %v, want %v", r, k, got, want)
			}
		}
	}
}

func TestBuildShiftThenRoll(t *testing.T) {
	bars := makeBars(t, 40, 100, 1)
	b := NewBuilder(7, 7)

	out, err := b.Build(bars)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	meanCol := out.Train.ColumnIndex("rolling_mean_7")
	if meanCol < 0 {
		t.Fatal("rolling_mean_7 column missing")
	}

	// Rolling mean at row r (series index r+7) covers indices r..r+6,
	// excluding the row's own close.
	for r := 0; r < 5; r++ {
		i := r + 7
		var sum float64
		for j := i - 7; j < i; j++ {
			sum += bars[j].Close
		}
		want := sum / 7
		if got := out.Train.Rows[r][meanCol]; math.Abs(got-want) > 1e-9 {
			t.Fatalf("row %d rolling mean = %v, want %v", r, got, want)
		}
	}
}

func TestBuildNoUndefinedValues(t *testing.T) {
	bars := makeBars(t, 60, 50, 0.5)
	b := NewBuilder(7, 7)

	out, err := b.Build(bars)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	check := func(name string, row []float64) {
		for i, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("%s: column %s is %v", name, out.Train.Names[i], v)
			}
		}
	}
	for r, row := range out.Train.Rows {
		if len(row) != len(out.Train.Names) {
			t.Fatalf("row %d has %d columns, want %d", r, len(row), len(out.Train.Names))
		}
		check("train", row)
	}
	check("inference", out.Inference)
}

func TestBuildCalendarFields(t *testing.T) {
	bars := makeBars(t, 40, 100, 1)
	b := NewBuilder(7, 7)

	out, err := b.Build(bars)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	dowCol := out.Train.ColumnIndex("day_of_week")
	monthCol := out.Train.ColumnIndex("month")
	for r, d := range out.Train.Dates {
		if got := out.Train.Rows[r][dowCol]; got != float64(d.Weekday()) {
			t.Fatalf("row %d day_of_week = %v, want %v", r, got, float64(d.Weekday()))
		}
		if got := out.Train.Rows[r][monthCol]; got != float64(d.Month()) {
			t.Fatalf("row %d month = %v, want %v", r, got, float64(d.Month()))
		}
	}
}

func TestBuildInsufficientData(t *testing.T) {
	bars := makeBars(t, 10, 100, 1)
	b := NewBuilder(7, 7)

	if _, err := b.Build(bars); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestChronologicalSplit(t *testing.T) {
	bars := makeBars(t, 60, 100, 1)
	b := NewBuilder(7, 7)

	out, err := b.Build(bars)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	train, valid := ChronologicalSplit(out.Train, 0.8)
	if train.NumRows()+valid.NumRows() != out.Train.NumRows() {
		t.Fatalf("split sizes %d + %d != %d", train.NumRows(), valid.NumRows(), out.Train.NumRows())
	}
	if valid.NumRows() == 0 {
		t.Fatal("validation part is empty")
	}
	// Every validation date is strictly after every training date.
	lastTrain := train.Dates[train.NumRows()-1]
	if !valid.Dates[0].After(lastTrain) {
		t.Fatalf("validation starts %v, not after train end %v", valid.Dates[0], lastTrain)
	}
}
