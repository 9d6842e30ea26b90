package phase

import (
	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/indicators"
)

// DetectBreakout reports which resistance level price has cleared. Only base
// building and uptrend phases can break out. Levels are checked in priority
// order: the 60-bar base high, a 20-bar pivot below that base, then a fresh
// cross of the 50 SMA.
func DetectBreakout(series contracts.PriceSeries, price float64, info contracts.PhaseInfo) contracts.BreakoutInfo {
	if info.Phase != contracts.PhaseBaseBuilding && info.Phase != contracts.PhaseUptrend {
		return contracts.BreakoutInfo{}
	}

	closes := series.Closes()
	baseHigh, hasBase := indicators.BaseHigh(closes)
	pivotHigh, hasPivot := indicators.PivotHigh(closes)

	switch {
	case hasBase && price > baseHigh:
		return breakout(contracts.BreakoutBase, baseHigh)
	case hasPivot && hasBase && price > pivotHigh && pivotHigh < baseHigh:
		return breakout(contracts.BreakoutPivot, pivotHigh)
	}

	sma50 := info.SMA50
	if sma50 > 0 && price > sma50 && len(closes) >= 2 && closes[len(closes)-2] < sma50 {
		return breakout(contracts.BreakoutSMA50, sma50)
	}

	return contracts.BreakoutInfo{}
}

func breakout(kind contracts.BreakoutType, level float64) contracts.BreakoutInfo {
	return contracts.BreakoutInfo{
		IsBreakout:    true,
		BreakoutLevel: contracts.Float(indicators.Round(level, 2)),
		BreakoutType:  kind,
	}
}
