package signals

import (
	"fmt"
	"math"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/indicators"
)

// Sell scoring bounds
const (
	SellThreshold     = 60.0
	MaxSellScore      = 100.0
	MaxBreakdownScore = 60.0

	sellVolumeBars   = 20
	sellRSLookback   = 15
	failedHighBars   = 20
	failedBreakBonus = 10.0
)

// ScoreSell grades an exit on a 0-100 scale. Only distribution and downtrend
// phases are scored. prev is the phase from the previous scan, or
// PhaseUnknown when there is none.
func ScoreSell(
	ticker string,
	series contracts.PriceSeries,
	price float64,
	info contracts.PhaseInfo,
	rs contracts.DatedSeries,
	prev contracts.Phase,
) contracts.SellSignal {
	if info.Phase != contracts.PhaseDistribution && info.Phase != contracts.PhaseDowntrend {
		return contracts.SellSignal{
			Ticker:   ticker,
			Severity: contracts.SeverityNone,
			Phase:    info.Phase,
			Reasons:  []string{fmt.Sprintf("No sell signal (%s)", info.Phase)},
		}
	}

	var reasons []string
	reason := func(format string, args ...interface{}) {
		reasons = append(reasons, fmt.Sprintf(format, args...))
	}
	signal := contracts.SellSignal{Ticker: ticker, Phase: info.Phase}
	sma50 := info.SMA50

	// breakdown structure
	var breakdown float64
	switch {
	case prev == contracts.PhaseUptrend:
		breakdown += 30
		reason("Phase transition: %d -> %d", prev, info.Phase)
	case info.Phase == contracts.PhaseDowntrend:
		breakdown += 25
		reason("In Phase 4 (Downtrend)")
	default:
		breakdown += 15
		reason("In Phase 3 (Distribution)")
	}

	if price < sma50 {
		below := (sma50 - price) / sma50 * 100
		switch {
		case below > 5:
			breakdown += 20
			reason("Broke below 50 SMA by %.1f%%", below)
		case below > 2:
			breakdown += 15
			reason("Below 50 SMA by %.1f%%", below)
		default:
			breakdown += 10
			reason("Just below 50 SMA (%.1f%%)", below)
		}
		signal.BreakdownLevel = contracts.Float(indicators.Round(sma50, 2))
	}

	if info.Slope50 < 0 {
		breakdown += 10
		reason("50 SMA declining (slope: %.4f)", info.Slope50)
	}
	breakdown = math.Min(breakdown, MaxBreakdownScore)

	// volume confirmation
	var volume float64
	if series.HasVolume() && series.Len() >= sellVolumeBars {
		ratio := indicators.VolumeRatio(series.Volumes(), sellVolumeBars)
		switch {
		case ratio >= 1.5:
			volume = 30
			reason("High volume breakdown: %.1fx", ratio)
		case ratio >= 1.3:
			volume = 20
			reason("Elevated volume: %.1fx", ratio)
		case ratio >= 1.1:
			volume = 10
			reason("Moderate volume: %.1fx", ratio)
		default:
			volume = 5
			reason("Low volume breakdown: %.1fx", ratio)
		}
		signal.Details.VolumeRatio = contracts.Float(indicators.Round(ratio, 2))
	}

	// relative strength weakness
	var rsScore float64
	if rs.Len() > 0 && (rs.Len() < sellRSLookback || recentDefined(rs, sellRSLookback) < 2) {
		reason("RS data insufficient")
	} else if rs.Len() >= sellRSLookback {
		slope := indicators.RSSlope(rs, sellRSLookback)
		switch {
		case slope < -2.0:
			rsScore = 10
			reason("Sharp RS decline: %.2f", slope)
		case slope < -1.0:
			rsScore = 7
			reason("RS declining: %.2f", slope)
		case slope < 0:
			rsScore = 5
			reason("Weak RS rollover: %.2f", slope)
		default:
			reason("RS still positive: %.2f", slope)
		}
		signal.Details.RSSlope = contracts.Float(indicators.Round(slope, 3))
	}

	score := breakdown + volume + rsScore

	// the bonus can lift the raw score past 100 before the final clamp
	if closes := series.Closes(); len(closes) >= failedHighBars {
		recentHigh, _ := indicators.TrailingMax(closes, failedHighBars)
		if recentHigh > sma50 && price < sma50 {
			score += failedBreakBonus
			reason("Failed breakout - closed back inside base")
		}
	}

	score = indicators.Clamp(score, 0, MaxSellScore)

	signal.IsSell = score >= SellThreshold
	signal.Score = indicators.Round(score, 1)
	signal.Severity = SeverityFor(score)
	signal.Reasons = reasons
	signal.Details.BreakdownScore = breakdown
	signal.Details.VolumeScore = volume
	signal.Details.RSScore = rsScore
	return signal
}

// SeverityFor bands a scored sell. Scores under the sell threshold are still
// labelled low.
func SeverityFor(score float64) contracts.Severity {
	switch {
	case score >= 80:
		return contracts.SeverityCritical
	case score >= 70:
		return contracts.SeverityHigh
	case score >= SellThreshold:
		return contracts.SeverityMedium
	default:
		return contracts.SeverityLow
	}
}

// recentDefined counts the defined values among the last n points
func recentDefined(rs contracts.DatedSeries, n int) int {
	tail := rs.Values[max(0, rs.Len()-n):]
	return contracts.DatedSeries{Values: tail}.Defined()
}
