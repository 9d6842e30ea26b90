package contracts

import (
	"math"
	"time"
)

// Bar is one daily OHLCV observation
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is a chronologically ordered bar history for one ticker.
// The scoring code reads it and never modifies it.
type PriceSeries struct {
	Ticker   string `json:"ticker"`
	Bars     []Bar  `json:"bars"`
	NoVolume bool   `json:"no_volume,omitempty"` // source carries no volume column
}

// Len returns the number of bars
func (s PriceSeries) Len() int {
	return len(s.Bars)
}

// HasVolume reports whether volume can be used
func (s PriceSeries) HasVolume() bool {
	return !s.NoVolume && len(s.Bars) > 0
}

// Closes returns the close prices oldest first
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Lows returns the low prices oldest first
func (s PriceSeries) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

// Volumes returns the volumes oldest first
func (s PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}

// LastClose returns the most recent close, or 0 for an empty series
func (s PriceSeries) LastClose() float64 {
	if len(s.Bars) == 0 {
		return 0
	}
	return s.Bars[len(s.Bars)-1].Close
}

// LastDate returns the date of the most recent bar
func (s PriceSeries) LastDate() time.Time {
	if len(s.Bars) == 0 {
		return time.Time{}
	}
	return s.Bars[len(s.Bars)-1].Date
}

// CloseSeries returns the closes keyed by date
func (s PriceSeries) CloseSeries() DatedSeries {
	d := DatedSeries{
		Dates:  make([]time.Time, len(s.Bars)),
		Values: make([]float64, len(s.Bars)),
	}
	for i, b := range s.Bars {
		d.Dates[i] = b.Date
		d.Values[i] = b.Close
	}
	return d
}

// Until returns the bars dated on or before asOf. The backing array is shared.
func (s PriceSeries) Until(asOf time.Time) PriceSeries {
	n := len(s.Bars)
	for n > 0 && s.Bars[n-1].Date.After(asOf) {
		n--
	}
	return PriceSeries{Ticker: s.Ticker, Bars: s.Bars[:n], NoVolume: s.NoVolume}
}

// DatedSeries is a date-indexed numeric series. NaN marks a missing value.
type DatedSeries struct {
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// Len returns the number of points
func (d DatedSeries) Len() int {
	return len(d.Values)
}

// Defined returns the number of non-NaN values
func (d DatedSeries) Defined() int {
	n := 0
	for _, v := range d.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Fundamentals holds the growth inputs of the buy scorer. Each field is a
// percentage; nil means the figure is not available.
type Fundamentals struct {
	RevenueYoYChange   *float64 `json:"revenue_yoy_change,omitempty"`
	EPSYoYChange       *float64 `json:"eps_yoy_change,omitempty"`
	InventoryQoQChange *float64 `json:"inventory_qoq_change,omitempty"`
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}
