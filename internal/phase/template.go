package phase

import (
	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/indicators"
)

const (
	TemplateMinPassed      = 7
	TemplateRisingBars     = 20
	TemplateAboveLowPct    = 30.0
	TemplateWithinHighPct  = 25.0
	templateCriteriaNumber = 8
)

// TrendTemplate runs the eight-point stage 2 checklist. sma200 is the full
// 200-bar average series; undefined leading values are ignored. A ticker
// without a classified phase or without all three averages scores zero.
func TrendTemplate(info contracts.PhaseInfo, sma200 []float64) contracts.TrendTemplateResult {
	if info.Phase == contracts.PhaseInsufficientData || !averagesDefined(info) {
		return contracts.TrendTemplateResult{}
	}
	price := info.CurrentPrice

	c := contracts.TrendTemplateCriteria{
		PriceAboveSMA150And200: price > info.SMA150 && price > info.SMA200,
		SMA150AboveSMA200:      info.SMA150 > info.SMA200,
		SMA200Rising:           sma200Rising(info, sma200),
		SMA50AboveSMA150:       info.SMA50 > info.SMA150,
		PriceAboveSMA50:        price > info.SMA50,
		InUptrendPhase:         info.Phase == contracts.PhaseUptrend,
	}

	if info.Week52Low > 0 {
		pct := (price - info.Week52Low) / info.Week52Low * 100
		c.PctAboveWeek52Low = indicators.Round(pct, 2)
		c.AboveWeek52Low = pct >= TemplateAboveLowPct
	}
	if info.Week52High > 0 {
		pct := (info.Week52High - price) / info.Week52High * 100
		c.PctFromWeek52High = indicators.Round(pct, 2)
		c.NearWeek52High = pct <= TemplateWithinHighPct
	}

	passed := c.Passed()
	return contracts.TrendTemplateResult{
		PassesTemplate:  passed >= TemplateMinPassed,
		CriteriaPassed:  passed,
		TemplateScore:   indicators.Round(float64(passed)/templateCriteriaNumber*100, 2),
		CriteriaDetails: c,
	}
}

func sma200Rising(info contracts.PhaseInfo, sma200 []float64) bool {
	defined := make([]float64, 0, len(sma200))
	for _, v := range sma200 {
		if indicators.IsDefined(v) {
			defined = append(defined, v)
		}
	}
	n := len(defined)
	if n <= TemplateRisingBars {
		return info.Slope200 > 0
	}
	return defined[n-1] > defined[n-1-TemplateRisingBars]
}

func averagesDefined(info contracts.PhaseInfo) bool {
	for _, v := range []float64{info.SMA50, info.SMA150, info.SMA200} {
		if !indicators.IsDefined(v) || v <= 0 {
			return false
		}
	}
	return true
}
