package indicators

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// SMA returns the trailing simple moving average. Entries with fewer than
// period points behind them are NaN; a short series is entirely NaN.
// Input must not contain NaN.
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return undefined(len(values))
	}

	out := talib.Sma(values, period)
	for i := 0; i < period-1; i++ {
		out[i] = math.NaN()
	}
	return out
}

// Slope fits a least-squares line through the last lookback points (NaN
// dropped) and returns the slope as a percentage of the window mean per bar.
// It returns 0 when the series is shorter than lookback, fewer than two
// points are defined, or the window mean is zero.
func Slope(values []float64, lookback int) float64 {
	if lookback < 2 || len(values) < lookback {
		return 0
	}

	window := dropUndefined(values[len(values)-lookback:])
	if len(window) < 2 {
		return 0
	}

	avg := mean(window)
	if avg == 0 {
		return 0
	}

	fit := talib.LinearRegSlope(window, len(window))
	slope := fit[len(fit)-1]
	if !IsDefined(slope) {
		return 0
	}
	return slope / avg * 100
}

// DistanceFromSMA returns how far price sits from sma in percent
func DistanceFromSMA(price, sma float64) float64 {
	if sma == 0 || !IsDefined(sma) {
		return 0
	}
	return (price - sma) / sma * 100
}
