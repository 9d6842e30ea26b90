// Package testutil builds synthetic price histories for tests.
package testutil

import (
	"math"
	"time"

	"github.com/wonny/phasescan/internal/contracts"
)

// Start is the date of the first synthetic bar
var Start = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// Dates returns n consecutive daily dates beginning at Start
func Dates(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = Start.AddDate(0, 0, i)
	}
	return out
}

// Geometric returns n closes compounding at dailyPct percent per bar
func Geometric(n int, start, dailyPct float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start * math.Pow(1+dailyPct/100, float64(i))
	}
	return out
}

// Linear returns n closes moving by step per bar
func Linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

// Constant returns n copies of v
func Constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Concat joins close segments
func Concat(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Series builds a price series from closes. Highs and lows sit 1% around the
// close and every bar trades volume shares.
func Series(ticker string, closes []float64, volume float64) contracts.PriceSeries {
	dates := Dates(len(closes))
	bars := make([]contracts.Bar, len(closes))
	for i, c := range closes {
		bars[i] = contracts.Bar{
			Date:   dates[i],
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: volume,
		}
	}
	return contracts.PriceSeries{Ticker: ticker, Bars: bars}
}

// WithVolumes replaces the volumes of the last len(volumes) bars
func WithVolumes(s contracts.PriceSeries, volumes ...float64) contracts.PriceSeries {
	bars := append([]contracts.Bar(nil), s.Bars...)
	offset := len(bars) - len(volumes)
	for i, v := range volumes {
		bars[offset+i].Volume = v
	}
	return contracts.PriceSeries{Ticker: s.Ticker, Bars: bars, NoVolume: s.NoVolume}
}

// WithLows replaces the lows of the last len(lows) bars
func WithLows(s contracts.PriceSeries, lows ...float64) contracts.PriceSeries {
	bars := append([]contracts.Bar(nil), s.Bars...)
	offset := len(bars) - len(lows)
	for i, v := range lows {
		bars[offset+i].Low = v
	}
	return contracts.PriceSeries{Ticker: s.Ticker, Bars: bars, NoVolume: s.NoVolume}
}

// Dated pairs values with consecutive dates beginning at Start
func Dated(values []float64) contracts.DatedSeries {
	return contracts.DatedSeries{Dates: Dates(len(values)), Values: append([]float64(nil), values...)}
}
