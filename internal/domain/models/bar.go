package models

import "time"

// DailyBar represents one OHLCV record at daily granularity. Date is a
// naive UTC midnight; the series owner guarantees dates are strictly
// increasing and unique.
type DailyBar struct {
	Date   time.Time `json:"date"`
	Symbol string    `json:"symbol"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Closes extracts the close column from a bar series.
func Closes(bars []DailyBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Dates extracts the date column from a bar series.
func Dates(bars []DailyBar) []time.Time {
	out := make([]time.Time, len(bars))
	for i, b := range bars {
		out[i] = b.Date
	}
	return out
}
