package indicators

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"github.com/wonny/phasescan/internal/contracts"
)

const (
	// ContractionWindow is the rolling window used by the phase classifier
	ContractionWindow = 20
	// ContractionThreshold is the volatility ratio below which a series is contracting
	ContractionThreshold = 0.70
)

// RollingStdDev returns the sample standard deviation over a trailing window.
// Entries with fewer than window points behind them are NaN.
func RollingStdDev(values []float64, window int) []float64 {
	if window < 2 || len(values) < window {
		return undefined(len(values))
	}

	// talib reports the population deviation
	out := talib.StdDev(values, window, 1.0)
	scale := math.Sqrt(float64(window) / float64(window-1))
	for i := range out {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] *= scale
	}
	return out
}

// DetectVolatilityContraction compares the latest rolling volatility with the
// average rolling volatility of the preceding window. At least two windows of
// closes are required; otherwise the result is not contracting with zero quality.
func DetectVolatilityContraction(closes []float64, window int) contracts.VolatilityContraction {
	if window < 2 || len(closes) < 2*window {
		return contracts.VolatilityContraction{}
	}

	vol := RollingStdDev(closes, window)
	current := vol[len(vol)-1]
	if !IsDefined(current) {
		return contracts.VolatilityContraction{}
	}

	baseline := mean(dropUndefined(vol[len(vol)-2*window : len(vol)-window]))

	ratio := 1.0
	if IsDefined(baseline) && baseline > 0 {
		ratio = current / baseline
	}

	return contracts.VolatilityContraction{
		IsContracting:      ratio < ContractionThreshold,
		ContractionQuality: Round(Clamp((1-ratio)*100, 0, 100), 2),
		CurrentVolatility:  Round(current, 2),
		ContractionRatio:   Round(ratio, 2),
	}
}
