// Package phase classifies a price history into a Weinstein market stage and
// derives the trend template and breakout checks from that classification.
package phase

import (
	"fmt"
	"math"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/indicators"
)

const (
	// MinBars is the history needed for a 200-bar average
	MinBars = 200

	SlopeLookback       = 20
	VolumeLookback      = 20
	ExtensionThreshold  = 25.0 // % above the 50 SMA that marks a distribution top
	VolumeExpansion     = 1.2
	FlatSlope50         = 0.1
	FlatSlope200        = 0.05
	FlatteningSlope50   = 0.05
	WeakeningSlopeRatio = 0.5
)

// Features are the inputs shared by every classification rule
type Features struct {
	Price       float64
	SMA50       float64
	SMA150      float64
	SMA200      float64
	Slope50     float64
	Slope200    float64
	Distance50  float64
	Distance200 float64
	VolumeRatio float64
	Week52High  float64
	Week52Low   float64
	Volatility  contracts.VolatilityContraction
}

// Rule maps a feature predicate to a phase. Assess is called only when
// Matches holds and returns the uncapped confidence with its reasons.
type Rule struct {
	Phase   contracts.Phase
	Matches func(f Features) bool
	Assess  func(f Features) (float64, []string)
}

var rules = []Rule{
	{
		Phase: contracts.PhaseDowntrend,
		Matches: func(f Features) bool {
			return f.Price < f.SMA50 && f.Price < f.SMA200 && f.SMA50 < f.SMA200
		},
		Assess: func(f Features) (float64, []string) {
			confidence := 70.0
			reasons := []string{
				fmt.Sprintf("Price (%.2f) below both 50 SMA (%.2f) and 200 SMA (%.2f)", f.Price, f.SMA50, f.SMA200),
				"50 SMA below 200 SMA (Death Cross)",
			}
			if f.Slope50 < 0 && f.Slope200 < 0 {
				reasons = append(reasons, "Both SMAs declining")
				confidence += 20
			}
			// a falling 50 SMA counts again on its own
			if f.Slope50 < 0 {
				confidence += 10
			}
			return confidence, reasons
		},
	},
	{
		Phase: contracts.PhaseUptrend,
		Matches: func(f Features) bool {
			return f.Price > f.SMA50 && f.SMA50 > f.SMA200 && f.Slope50 > 0
		},
		Assess: func(f Features) (float64, []string) {
			confidence := 70.0
			reasons := []string{
				fmt.Sprintf("Price (%.2f) above 50 SMA (%.2f)", f.Price, f.SMA50),
				"50 SMA above 200 SMA (Golden Cross)",
				fmt.Sprintf("50 SMA rising (slope: %.3f%%)", f.Slope50),
			}
			if f.Slope200 > 0 {
				reasons = append(reasons, fmt.Sprintf("200 SMA also rising (slope: %.3f%%)", f.Slope200))
				confidence += 15
			}
			if f.VolumeRatio > VolumeExpansion {
				reasons = append(reasons, fmt.Sprintf("Volume expansion (%.1fx average)", f.VolumeRatio))
				confidence += 15
			}
			return confidence, reasons
		},
	},
	{
		Phase: contracts.PhaseDistribution,
		Matches: func(f Features) bool {
			return f.Price > f.SMA50 && f.Distance50 > ExtensionThreshold
		},
		Assess: func(f Features) (float64, []string) {
			confidence := 60.0
			reasons := []string{fmt.Sprintf("Price extended %.1f%% above 50 SMA", f.Distance50)}
			if f.Slope50 < FlatteningSlope50 {
				reasons = append(reasons, "50 SMA flattening")
				confidence += 20
			}
			if math.Abs(f.Slope50) < math.Abs(f.Slope200)*WeakeningSlopeRatio {
				reasons = append(reasons, "Momentum weakening")
				confidence += 20
			}
			return confidence, reasons
		},
	},
	{
		Phase:   contracts.PhaseBaseBuilding,
		Matches: func(Features) bool { return true },
		Assess: func(f Features) (float64, []string) {
			confidence := 50.0
			reasons := []string{"Price in consolidation pattern"}
			if math.Abs(f.Slope50) < FlatSlope50 {
				reasons = append(reasons, fmt.Sprintf("50 SMA flat (slope: %.3f%%)", f.Slope50))
				confidence += 15
			}
			if math.Abs(f.Slope200) < FlatSlope200 {
				reasons = append(reasons, fmt.Sprintf("200 SMA flat (slope: %.3f%%)", f.Slope200))
				confidence += 10
			}
			if f.Volatility.IsContracting {
				reasons = append(reasons, fmt.Sprintf("Volatility contracting (%.0f%% quality)", f.Volatility.ContractionQuality))
				confidence += 15
			}
			if f.VolumeRatio < 1.0 {
				reasons = append(reasons, fmt.Sprintf("Volume below average (%.1fx)", f.VolumeRatio))
				confidence += 10
			}
			return confidence, reasons
		},
	},
}

// Rules returns the classification rules in evaluation order
func Rules() []Rule {
	return append([]Rule(nil), rules...)
}

// ExtractFeatures computes the classifier inputs. ok is false when the history
// is too short for the 200-bar average.
func ExtractFeatures(series contracts.PriceSeries, price float64) (Features, bool) {
	if series.Len() < MinBars {
		return Features{}, false
	}

	closes := series.Closes()
	sma50 := indicators.SMA(closes, 50)
	sma150 := indicators.SMA(closes, 150)
	sma200 := indicators.SMA(closes, 200)

	f := Features{
		Price:       price,
		SMA50:       indicators.Last(sma50),
		SMA150:      indicators.Last(sma150),
		SMA200:      indicators.Last(sma200),
		Slope50:     indicators.Slope(sma50, SlopeLookback),
		Slope200:    indicators.Slope(sma200, SlopeLookback),
		VolumeRatio: 1.0,
		Volatility:  indicators.DetectVolatilityContraction(closes, indicators.ContractionWindow),
	}
	if !indicators.IsDefined(f.SMA50) || !indicators.IsDefined(f.SMA200) {
		return Features{}, false
	}

	f.Distance50 = indicators.DistanceFromSMA(price, f.SMA50)
	f.Distance200 = indicators.DistanceFromSMA(price, f.SMA200)
	if series.HasVolume() {
		f.VolumeRatio = indicators.VolumeRatio(series.Volumes(), VolumeLookback)
	}
	f.Week52High, f.Week52Low, _ = indicators.Week52Range(closes)

	return f, true
}

// Classify assigns a phase to the series at the given price. The first
// matching rule wins; confidence is capped at 100.
func Classify(series contracts.PriceSeries, price float64) contracts.PhaseInfo {
	if series.Len() < MinBars {
		return insufficient(price, fmt.Sprintf("Need at least %d days of data", MinBars))
	}

	f, ok := ExtractFeatures(series, price)
	if !ok {
		return insufficient(price, "Cannot calculate SMAs")
	}

	for _, rule := range rules {
		if !rule.Matches(f) {
			continue
		}
		confidence, reasons := rule.Assess(f)
		return newPhaseInfo(rule.Phase, indicators.Clamp(confidence, 0, 100), reasons, f)
	}

	// unreachable: the last rule always matches
	return insufficient(price, "No rule matched")
}

func newPhaseInfo(p contracts.Phase, confidence float64, reasons []string, f Features) contracts.PhaseInfo {
	return contracts.PhaseInfo{
		Phase:              p,
		PhaseName:          p.Name(),
		Confidence:         confidence,
		Reasons:            reasons,
		CurrentPrice:       f.Price,
		SMA50:              indicators.Round(f.SMA50, 2),
		SMA150:             indicators.Round(f.SMA150, 2),
		SMA200:             indicators.Round(f.SMA200, 2),
		Slope50:            indicators.Round(f.Slope50, 4),
		Slope200:           indicators.Round(f.Slope200, 4),
		DistanceFrom50SMA:  indicators.Round(f.Distance50, 2),
		DistanceFrom200SMA: indicators.Round(f.Distance200, 2),
		Week52High:         indicators.Round(f.Week52High, 2),
		Week52Low:          indicators.Round(f.Week52Low, 2),
		VolumeRatio:        indicators.Round(f.VolumeRatio, 2),
		Volatility:         f.Volatility,
	}
}

func insufficient(price float64, reason string) contracts.PhaseInfo {
	return contracts.PhaseInfo{
		Phase:        contracts.PhaseInsufficientData,
		PhaseName:    contracts.PhaseInsufficientData.Name(),
		Confidence:   0,
		Reasons:      []string{reason},
		CurrentPrice: price,
	}
}
