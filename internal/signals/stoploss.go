package signals

import (
	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/indicators"
)

// Stop placement limits, as fractions of the current price
const (
	MinRiskPct = 0.03
	MaxRiskPct = 0.10

	swingLowBars  = 10
	baseLowBars   = 30
	swingLowStop  = 0.995
	smaStop       = 0.99
	baseLowStop   = 0.99
	tightStopMult = 1 - MinRiskPct
	wideStopMult  = 1 - MaxRiskPct
)

// StopLoss places the protective stop for a long entry.
//
// Uptrends use the tighter of a stop under the 10-bar swing low and one under
// the 50 SMA, then keep the risk between 3% and 10%. Everything else is treated
// as a base: the stop goes under the 30-bar low and risk is capped at 10%.
func StopLoss(series contracts.PriceSeries, price float64, info contracts.PhaseInfo) float64 {
	lows := series.Lows()

	if info.Phase == contracts.PhaseUptrend {
		recentLow, _ := indicators.TrailingMin(lows, swingLowBars)
		swingStop := recentLow * swingLowStop

		stop := swingStop
		if info.SMA50 > 0 {
			stop = max(swingStop, info.SMA50*smaStop)
		}

		risk := (price - stop) / price
		switch {
		case risk < MinRiskPct:
			stop = price * tightStopMult
		case risk > MaxRiskPct:
			stop = price * wideStopMult
		}
		return stop
	}

	baseLow, _ := indicators.TrailingMin(lows, baseLowBars)
	stop := baseLow * baseLowStop
	if (price-stop)/price > MaxRiskPct {
		stop = price * wideStopMult
	}
	return stop
}
