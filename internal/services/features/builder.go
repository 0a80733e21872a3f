package features

import (
	"errors"
	"fmt"
	"math"
	"time"

	"StockCast/internal/domain/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrInsufficientData is returned when the series is too short to
// produce the minimum number of usable training rows.
var ErrInsufficientData = errors.New("insufficient data for feature construction")

// MinUsableRows is the smallest training matrix accepted after warmup
// rows are dropped.
const MinUsableRows = 20

// Indicator windows. Both adapt down when less trailing history is
// available, so they never extend the warmup beyond max(n_lags, window).
const (
	rsiWindow       = 14
	bollingerWindow = 20
)

// Builder constructs leakage-safe feature matrices from daily bars.
// Every feature of a row is computed from values strictly before that
// row's close: lags are shifted by k, rolling statistics are shifted
// by one before the window is applied.
type Builder struct {
	NLags      int
	WindowSize int
}

// NewBuilder creates a feature builder.
func NewBuilder(nLags, windowSize int) *Builder {
	return &Builder{NLags: nLags, WindowSize: windowSize}
}

// Output holds the training matrix plus the inference row for the last
// real date.
type Output struct {
	Train     *models.FeatureMatrix
	Inference []float64
	Closes    []float64
	LastDate  time.Time
	LastClose float64
}

// Names returns the feature column layout. Order is fixed; adapters
// and the recursive forecaster rely on it.
func (b *Builder) Names() []string {
	names := make([]string, 0, b.NLags+13)
	for k := 1; k <= b.NLags; k++ {
		names = append(names, fmt.Sprintf("lag_%d", k))
	}
	names = append(names,
		fmt.Sprintf("rolling_mean_%d", b.WindowSize),
		fmt.Sprintf("rolling_std_%d", b.WindowSize),
		"return_1d",
		"log_return_1d",
		"price_position",
		"rsi",
		"bb_position",
		"volume_ratio",
		"day_of_week",
		"month",
		"quarter",
		"day_of_year",
		"iso_week",
	)
	return names
}

// Build produces the training matrix and the inference row. The first
// max(n_lags, window_size) rows are dropped (undefined lag or rolling
// values); the last row has no target and becomes the inference row.
func (b *Builder) Build(bars []models.DailyBar) (*Output, error) {
	if b.NLags < 1 || b.WindowSize < 2 {
		return nil, fmt.Errorf("invalid feature params: n_lags=%d window_size=%d", b.NLags, b.WindowSize)
	}

	warm := b.NLags
	if b.WindowSize > warm {
		warm = b.WindowSize
	}

	n := len(bars)
	usable := n - warm - 1
	if usable < MinUsableRows {
		return nil, fmt.Errorf("%w: %d usable rows after dropping %d warmup rows, need %d",
			ErrInsufficientData, max(usable, 0), warm, MinUsableRows)
	}

	closes := models.Closes(bars)
	dates := models.Dates(bars)
	volumes := make([]float64, n)
	for i, bar := range bars {
		volumes[i] = bar.Volume
	}

	names := b.Names()
	train := &models.FeatureMatrix{
		Names:  names,
		Rows:   make([][]float64, 0, usable),
		Dates:  make([]time.Time, 0, usable),
		Target: make([]float64, 0, usable),
	}

	for i := warm; i < n-1; i++ {
		train.Rows = append(train.Rows, b.row(closes, volumes, dates, i))
		train.Dates = append(train.Dates, dates[i])
		train.Target = append(train.Target, closes[i+1])
	}

	return &Output{
		Train:     train,
		Inference: b.row(closes, volumes, dates, n-1),
		Closes:    closes,
		LastDate:  dates[n-1],
		LastClose: closes[n-1],
	}, nil
}

// row computes the feature vector for index i. All values derive from
// closes[0:i] and volumes[0:i], never from index i itself.
func (b *Builder) row(closes, volumes []float64, dates []time.Time, i int) []float64 {
	row := make([]float64, 0, b.NLags+13)
	for k := 1; k <= b.NLags; k++ {
		row = append(row, closes[i-k])
	}

	trailing := closes[:i]
	row = append(row, Derived(trailing, b.WindowSize)...)
	row = append(row, volumeRatio(volumes[:i], b.WindowSize))
	row = append(row, Calendar(dates[i])...)
	return row
}

// Advance derives the feature row for the next forecast step from the
// prior row. It is a pure function: prior is never mutated. trailing
// is the real close history extended by every prediction made so far,
// with the newest prediction last; lags shift down by one and lag_1
// takes the newest value, close-derived indicators are recomputed from
// trailing, the volume ratio is frozen at its last real value, and
// calendar fields come from the step's target date.
func (b *Builder) Advance(prior []float64, trailing []float64, date time.Time) []float64 {
	next := make([]float64, len(prior))
	copy(next, prior)

	for k := b.NLags - 1; k >= 1; k-- {
		next[k] = prior[k-1]
	}
	next[0] = trailing[len(trailing)-1]

	copy(next[b.NLags:b.NLags+7], Derived(trailing, b.WindowSize))
	copy(next[b.NLags+8:], Calendar(date))
	return next
}

// Derived computes the close-derived indicator block from a trailing
// series of real or synthetic closes: rolling mean/std over the last
// window values, one-day simple and log returns, price position within
// the window band, RSI, and Bollinger position. The recursive
// forecaster calls this with real history extended by its own
// predictions.
func Derived(trailing []float64, window int) []float64 {
	w := trailing[len(trailing)-window:]
	mean := stat.Mean(w, nil)
	std := 0.0
	if len(w) > 1 {
		std = stat.StdDev(w, nil)
	}

	last := trailing[len(trailing)-1]
	prev := trailing[len(trailing)-2]
	ret := 0.0
	logRet := 0.0
	if prev > 0 {
		ret = (last - prev) / prev
		if last > 0 {
			logRet = math.Log(last / prev)
		}
	}

	lo := floats.Min(w)
	hi := floats.Max(w)
	pos := 0.5
	if hi > lo {
		pos = (last - lo) / (hi - lo)
	}

	return []float64{mean, std, ret, logRet, pos, rsi(trailing), bollingerPosition(trailing)}
}

// rsi computes the relative strength index over up to rsiWindow
// trailing steps.
func rsi(trailing []float64) float64 {
	lookback := rsiWindow
	if len(trailing)-1 < lookback {
		lookback = len(trailing) - 1
	}
	if lookback < 1 {
		return 50
	}

	var gains, losses float64
	for i := len(trailing) - lookback; i < len(trailing); i++ {
		d := trailing[i] - trailing[i-1]
		if d > 0 {
			gains += d
		} else {
			losses -= d
		}
	}
	if losses == 0 {
		if gains == 0 {
			return 50
		}
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}

// bollingerPosition measures how far the latest value sits from the
// band midline, in units of two standard deviations.
func bollingerPosition(trailing []float64) float64 {
	lookback := bollingerWindow
	if len(trailing) < lookback {
		lookback = len(trailing)
	}
	w := trailing[len(trailing)-lookback:]
	if len(w) < 2 {
		return 0
	}
	mean := stat.Mean(w, nil)
	std := stat.StdDev(w, nil)
	if std == 0 {
		return 0
	}
	return (trailing[len(trailing)-1] - mean) / (2 * std)
}

// volumeRatio compares the latest volume to the trailing window mean.
// Volume has no synthetic continuation, so the recursive loop freezes
// this column instead of recomputing it.
func volumeRatio(trailing []float64, window int) float64 {
	if len(trailing) == 0 {
		return 1
	}
	if len(trailing) < window {
		window = len(trailing)
	}
	mean := stat.Mean(trailing[len(trailing)-window:], nil)
	if mean == 0 {
		return 1
	}
	return trailing[len(trailing)-1] / mean
}

// Calendar returns the integer calendar fields for a date: day of
// week, month, quarter, day of year, ISO week.
func Calendar(d time.Time) []float64 {
	_, week := d.ISOWeek()
	return []float64{
		float64(d.Weekday()),
		float64(d.Month()),
		float64((int(d.Month())-1)/3 + 1),
		float64(d.YearDay()),
		float64(week),
	}
}

// ChronologicalSplit cuts the matrix into leading train and trailing
// validation parts. Shuffling is forbidden here: rows are time-ordered
// and a shuffled split would leak future prices into validation.
func ChronologicalSplit(m *models.FeatureMatrix, trainFraction float64) (train, valid *models.FeatureMatrix) {
	cut := int(float64(m.NumRows()) * trainFraction)
	if cut < 1 {
		cut = 1
	}
	if cut >= m.NumRows() {
		cut = m.NumRows() - 1
	}
	return m.Slice(0, cut), m.Slice(cut, m.NumRows())
}
