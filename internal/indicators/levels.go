package indicators

import "math"

const (
	BaseLookback  = 60
	PivotLookback = 20
	Week52Bars    = 252
)

// BaseHigh is the highest close of the last 60 bars
func BaseHigh(closes []float64) (float64, bool) {
	if len(closes) < BaseLookback {
		return 0, false
	}
	return TrailingMax(closes, BaseLookback)
}

// PivotHigh is the highest close of the last 20 bars
func PivotHigh(closes []float64) (float64, bool) {
	if len(closes) < PivotLookback {
		return 0, false
	}
	return TrailingMax(closes, PivotLookback)
}

// TrailingMax returns the maximum of the last lookback values, or of all of
// them when the series is shorter
func TrailingMax(values []float64, lookback int) (float64, bool) {
	if len(values) == 0 || lookback <= 0 {
		return 0, false
	}
	best := math.Inf(-1)
	for _, v := range tail(values, lookback) {
		if IsDefined(v) && v > best {
			best = v
		}
	}
	return best, !math.IsInf(best, -1)
}

// TrailingMin returns the minimum of the last lookback values, or of all of
// them when the series is shorter
func TrailingMin(values []float64, lookback int) (float64, bool) {
	if len(values) == 0 || lookback <= 0 {
		return 0, false
	}
	best := math.Inf(1)
	for _, v := range tail(values, lookback) {
		if IsDefined(v) && v < best {
			best = v
		}
	}
	return best, !math.IsInf(best, 1)
}

// Week52Range returns the highest and lowest close of the trailing 252 bars
func Week52Range(closes []float64) (high, low float64, ok bool) {
	high, okHigh := TrailingMax(closes, Week52Bars)
	low, okLow := TrailingMin(closes, Week52Bars)
	return high, low, okHigh && okLow
}

// VolumeRatio divides the latest volume by the mean of the period bars before
// it. It is 1.0 when there is not enough history or the mean is zero.
func VolumeRatio(volumes []float64, period int) float64 {
	if period <= 0 || len(volumes) < period+1 {
		return 1.0
	}

	n := len(volumes)
	avg := mean(volumes[n-period-1 : n-1])
	if !IsDefined(avg) || avg == 0 {
		return 1.0
	}
	return volumes[n-1] / avg
}
