package position

import (
	"time"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/indicators"
)

// Summary aggregates a portfolio analysis
type Summary struct {
	TotalPositions int     `json:"total_positions"`
	NeedAdjustment int     `json:"positions_need_adjustment"`
	ShortTerm      int     `json:"short_term_positions"`
	LongTerm       int     `json:"long_term_positions"`
	AverageGainPct float64 `json:"average_gain_pct"`
}

// UrgentAction flags a position that needs attention now
type UrgentAction struct {
	Ticker  string   `json:"ticker"`
	Reasons []string `json:"reasons"`
	GainPct float64  `json:"current_gain"`
}

// Report is the result of analysing every open position
type Report struct {
	Analyses    []Analysis     `json:"position_analyses"`
	Summary     Summary        `json:"summary"`
	Urgent      []UrgentAction `json:"urgent_actions"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// AnalyzePortfolio analyses each position against its price history. A
// position without history in the map is analysed with an empty series and
// carries the insufficient data warning.
func (a *Advisor) AnalyzePortfolio(positions []Position, history map[string]contracts.PriceSeries, now time.Time) Report {
	report := Report{
		Analyses:    make([]Analysis, 0, len(positions)),
		Urgent:      []UrgentAction{},
		GeneratedAt: now,
	}

	var gainSum float64
	for _, p := range positions {
		analysis := a.Analyze(p, history[p.Ticker], now)
		report.Analyses = append(report.Analyses, analysis)

		gainSum += analysis.GainPct
		if analysis.ShouldAdjustStop {
			report.Summary.NeedAdjustment++
		}
		switch analysis.TaxTreatment {
		case TaxShortTerm:
			report.Summary.ShortTerm++
		case TaxLongTerm:
			report.Summary.LongTerm++
		}

		switch {
		case len(analysis.Warnings) > 0:
			report.Urgent = append(report.Urgent, UrgentAction{
				Ticker:  analysis.Ticker,
				Reasons: analysis.Warnings,
				GainPct: analysis.GainPct,
			})
		case analysis.Action == ActionTakePartialAndTrail || analysis.Action == ActionTakePartialAndTrailTight:
			report.Urgent = append(report.Urgent, UrgentAction{
				Ticker:  analysis.Ticker,
				Reasons: []string{"Big winner - consider taking partial profits"},
				GainPct: analysis.GainPct,
			})
		}
	}

	report.Summary.TotalPositions = len(positions)
	if len(positions) > 0 {
		report.Summary.AverageGainPct = indicators.Round(gainSum/float64(len(positions)), 2)
	}

	a.logger.WithFields(map[string]interface{}{
		"positions": report.Summary.TotalPositions,
		"adjust":    report.Summary.NeedAdjustment,
		"urgent":    len(report.Urgent),
	}).Info("Portfolio analyzed")

	return report
}
