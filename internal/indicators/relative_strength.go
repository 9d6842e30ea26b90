package indicators

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/wonny/phasescan/internal/contracts"
)

// ErrMisalignedSeries is returned when an input cannot be treated as a
// date-indexed series: mismatched lengths, or dates not strictly increasing.
var ErrMisalignedSeries = errors.New("series cannot be aligned by date")

// RelativeStrength divides the stock by the benchmark on each stock date and
// scales by 100. The benchmark is forward-filled over the union of both date
// sets and stock dates with a missing price are dropped.
//
// Failures are soft: the result is always usable and is entirely NaN when the
// benchmark has no value on any stock date. Malformed input additionally
// returns ErrMisalignedSeries so the caller can log it.
func RelativeStrength(stock, benchmark contracts.DatedSeries) (contracts.DatedSeries, error) {
	if err := checkAligned(stock); err != nil {
		return undefinedLike(stock), fmt.Errorf("stock: %w", err)
	}
	if err := checkAligned(benchmark); err != nil {
		return undefinedLike(stock), fmt.Errorf("benchmark: %w", err)
	}
	if stock.Len() == 0 || benchmark.Len() == 0 {
		return undefinedLike(stock), nil
	}

	out := contracts.DatedSeries{
		Dates:  make([]time.Time, 0, stock.Len()),
		Values: make([]float64, 0, stock.Len()),
	}

	bench := math.NaN()
	anyBench := false
	j := 0
	for i, date := range stock.Dates {
		for j < benchmark.Len() && !benchmark.Dates[j].After(date) {
			if v := benchmark.Values[j]; IsDefined(v) {
				bench = v
			}
			j++
		}

		price := stock.Values[i]
		if !IsDefined(price) {
			continue
		}

		rs := math.NaN()
		if IsDefined(bench) {
			anyBench = true
			if bench != 0 {
				rs = price / bench * 100
			}
		}
		out.Dates = append(out.Dates, date)
		out.Values = append(out.Values, rs)
	}

	if !anyBench {
		return undefinedLike(stock), nil
	}
	return out, nil
}

// RSSlope is the slope of a relative strength series
func RSSlope(rs contracts.DatedSeries, lookback int) float64 {
	return Slope(rs.Values, lookback)
}

func checkAligned(s contracts.DatedSeries) error {
	if len(s.Dates) != len(s.Values) {
		return fmt.Errorf("%w: %d dates for %d values", ErrMisalignedSeries, len(s.Dates), len(s.Values))
	}
	for i := 1; i < len(s.Dates); i++ {
		if !s.Dates[i].After(s.Dates[i-1]) {
			return fmt.Errorf("%w: dates not increasing at index %d", ErrMisalignedSeries, i)
		}
	}
	return nil
}

// undefinedLike returns an all-NaN series shaped like the stock input. Dates
// are kept only when they line up with the values.
func undefinedLike(stock contracts.DatedSeries) contracts.DatedSeries {
	out := contracts.DatedSeries{Values: undefined(len(stock.Values))}
	if len(stock.Dates) == len(stock.Values) {
		out.Dates = append([]time.Time(nil), stock.Dates...)
	}
	return out
}
