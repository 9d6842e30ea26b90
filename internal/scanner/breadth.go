package scanner

import (
	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/indicators"
)

// Breadth counts phases across the evaluated universe and the share of
// tickers trading above their 50 and 200 day averages. Percentages are
// rounded to one decimal.
func Breadth(evals []contracts.Evaluation) contracts.MarketBreadth {
	b := contracts.MarketBreadth{
		Total:        len(evals),
		PhaseCounts:  make(map[contracts.Phase]int),
		PhasePercent: make(map[contracts.Phase]float64),
	}
	if len(evals) == 0 {
		return b
	}

	above50, above200 := 0, 0
	for _, e := range evals {
		b.PhaseCounts[e.Phase.Phase]++
		if e.Phase.SMA50 > 0 && e.Price > e.Phase.SMA50 {
			above50++
		}
		if e.Phase.SMA200 > 0 && e.Price > e.Phase.SMA200 {
			above200++
		}
	}

	total := float64(len(evals))
	for p, n := range b.PhaseCounts {
		b.PhasePercent[p] = indicators.Round(float64(n)/total*100, 1)
	}
	b.PctAboveSMA50 = indicators.Round(float64(above50)/total*100, 1)
	b.PctAboveSMA200 = indicators.Round(float64(above200)/total*100, 1)
	return b
}

// GateBuys reports whether buy signals must be withheld for a benchmark in
// the given state. Sells are never gated.
func GateBuys(benchmark contracts.PhaseInfo) bool {
	return benchmark.Phase == contracts.PhaseDowntrend
}
