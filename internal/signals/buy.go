package signals

import (
	"fmt"
	"math"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/indicators"
)

// Buy scoring bounds
const (
	BuyThreshold  = 60.0
	MaxBuyScore   = 110.0
	MaxTrendScore = 50.0

	breakoutBonus      = 10.0
	neutralFundamental = 15.0
	neutralGrowth      = 3.75
	neutralInventory   = 5.0
	marginPlaceholder  = 5.0
	neutralVolume      = 5.0
	neutralRS          = 5.0

	volumeHistoryBars = 30
	volumeWindowBars  = 5
	buyRSLookback     = 20
)

// ScoreBuy grades a long entry on a 0-110 scale. Only base building and
// uptrend phases are scored; any other phase returns a zero, non-buy result.
//
// The score sums trend quality, fundamentals, up/down volume, relative
// strength, risk/reward and entry quality. A nil fundamentals pointer means
// no data and earns the neutral half credit.
func ScoreBuy(
	ticker string,
	series contracts.PriceSeries,
	price float64,
	info contracts.PhaseInfo,
	breakout contracts.BreakoutInfo,
	rs contracts.DatedSeries,
	fundamentals *contracts.Fundamentals,
) contracts.BuySignal {
	if info.Phase != contracts.PhaseBaseBuilding && info.Phase != contracts.PhaseUptrend {
		return contracts.BuySignal{
			Ticker:  ticker,
			Phase:   info.Phase,
			Reasons: []string{fmt.Sprintf("Wrong phase (%s)", info.Phase)},
		}
	}

	s := &buyScorer{price: price, info: info, breakout: breakout}

	trend := s.trend()
	fundamental := s.fundamentals(fundamentals)
	volume := s.volume(series)
	rsScore := s.relativeStrength(rs)

	stop := StopLoss(series, price, info)
	rr, rrScore := s.riskReward(stop)
	entry := s.entry()

	score := indicators.Clamp(trend+fundamental+volume+rsScore+rrScore+entry, 0, MaxBuyScore)

	s.details.TrendScore = trend
	s.details.FundamentalScore = fundamental
	s.details.VolumeScore = volume
	s.details.RSScore = indicators.Round(rsScore, 2)
	s.details.RRScore = indicators.Round(rrScore, 2)
	s.details.EntryScore = indicators.Round(entry, 2)

	signal := contracts.BuySignal{
		Ticker:          ticker,
		IsBuy:           score >= BuyThreshold,
		Score:           indicators.Round(score, 1),
		Phase:           info.Phase,
		RiskRewardRatio: rr,
		EntryQuality:    entryQuality(entry),
		Reasons:         s.reasons,
		Details:         s.details,
	}
	if breakout.IsBreakout {
		signal.BreakoutPrice = breakout.BreakoutLevel
	}
	if stop != 0 {
		signal.StopLoss = contracts.Float(indicators.Round(stop, 2))
	}
	return signal
}

// buyScorer accumulates reasons and details while the components are scored
type buyScorer struct {
	price    float64
	info     contracts.PhaseInfo
	breakout contracts.BreakoutInfo
	reasons  []string
	details  contracts.BuyDetails
}

func (s *buyScorer) reason(format string, args ...interface{}) {
	s.reasons = append(s.reasons, fmt.Sprintf(format, args...))
}

// trend scores stage quality. It is capped at 50 but has no floor; the
// extension penalty can take it below zero.
func (s *buyScorer) trend() float64 {
	var score float64
	d50 := s.info.DistanceFrom50SMA

	if s.info.Phase == contracts.PhaseUptrend {
		score += s.uptrendQuality()
	} else {
		score += s.baseTransition()
	}

	if s.breakout.IsBreakout {
		score += breakoutBonus
		s.reason("Breakout: %s", s.breakout.BreakoutType)
		s.details.Breakout = s.breakout.BreakoutType
	}

	switch {
	case d50 > 30:
		score -= 10
		s.reason("⚠ Over-extended: %.1f%% above 50 SMA", d50)
	case d50 > 20:
		score -= 5
		s.reason("Moderately extended above 50 SMA")
	}

	return math.Min(score, MaxTrendScore)
}

func (s *buyScorer) uptrendQuality() float64 {
	d50, d200 := s.info.DistanceFrom50SMA, s.info.DistanceFrom200SMA
	slope50, slope200 := s.info.Slope50, s.info.Slope200

	distance := indicators.Clamp(d50/15*10+d200/20*5, 0, 15)
	switch {
	case d50 >= 10:
		s.reason("Strong Stage 2: %.1f%% above 50 SMA", d50)
	case d50 >= 3:
		s.reason("Good Stage 2: %.1f%% above 50 SMA", d50)
	case d50 >= 0:
		s.reason("Weak Stage 2: %.1f%% above 50 SMA", d50)
	default:
		s.reason("Very weak Stage 2: %.1f%% from 50 SMA", d50)
	}

	slope := indicators.Clamp(slope50/0.08*10+slope200/0.05*5, 0, 15)
	switch {
	case slope50 > 0.05:
		s.reason("SMAs rising strongly (50:%.3f, 200:%.3f)", slope50, slope200)
	case slope50 > 0.02:
		s.reason("SMAs rising moderately")
	case slope50 > 0:
		s.reason("SMAs rising weakly")
	default:
		s.reason("⚠ SMAs flat or declining")
	}

	return distance + slope
}

func (s *buyScorer) baseTransition() float64 {
	d50 := s.info.DistanceFrom50SMA
	sma50, sma200 := s.info.SMA50, s.info.SMA200

	proximity := indicators.Clamp((d50+10)/15*12, 0, 12)
	switch {
	case d50 >= -2:
		s.reason("Near 50 SMA breakout (%.1f%%)", d50)
	case d50 >= -5:
		s.reason("Approaching 50 SMA (%.1f%%)", d50)
	default:
		s.reason("Building base (%.1f%% below 50 SMA)", d50)
	}

	var ratio float64
	if sma200 > 0 {
		ratio = (sma50 - sma200) / sma200
	}
	slopeFactor := indicators.Clamp(s.info.Slope50/0.03, 0, 1)
	setup := indicators.Clamp(ratio*200*slopeFactor, 0, 13)
	switch {
	case sma50 > sma200 && s.info.Slope50 > 0.02:
		s.reason("Strong golden cross setup (50 SMA %.1f%% above 200)", ratio*100)
	case sma50 > sma200:
		s.reason("Golden cross present")
	case sma50 > sma200*0.98:
		s.reason("Approaching golden cross")
	default:
		s.reason("50 SMA below 200 SMA")
	}

	return proximity + setup
}

func (s *buyScorer) fundamentals(f *contracts.Fundamentals) float64 {
	if f == nil {
		s.reason("No fundamental data available")
		return neutralFundamental
	}

	revenue, eps := f.RevenueYoYChange, f.EPSYoYChange

	revenueScore, epsScore := neutralGrowth, neutralGrowth
	if revenue != nil {
		revenueScore = indicators.Clamp((*revenue+20)/60*7.5, 0, 7.5)
	}
	if eps != nil {
		epsScore = indicators.Clamp((*eps+20)/80*7.5, 0, 7.5)
	}
	score := revenueScore + epsScore

	switch {
	case revenue != nil && eps != nil:
		r, e := *revenue, *eps
		switch {
		case r > 25 && e > 40:
			s.reason("✓ Accelerating growth (Rev: %.0f%%, EPS: %.0f%%)", r, e)
		case r > 10 && e > 15:
			s.reason("Strong growth (Rev: %.0f%%, EPS: %.0f%%)", r, e)
		case r > 0 && e > 0:
			s.reason("Positive growth (Rev: %.0f%%, EPS: %.0f%%)", r, e)
		case r > -5 && e > -5:
			s.reason("Growth stalling (Rev: %.0f%%, EPS: %.0f%%)", r, e)
		default:
			s.reason("⚠ Declining (Rev: %.0f%%, EPS: %.0f%%)", r, e)
		}
	case revenue != nil:
		s.reason("Revenue trend: %+.0f%% YoY (EPS data missing)", *revenue)
	case eps != nil:
		s.reason("EPS trend: %+.0f%% YoY (Revenue data missing)", *eps)
	default:
		s.reason("Growth data unavailable (neutral score)")
	}

	// many companies carry no inventory, so a missing value adds no reason
	if inv := f.InventoryQoQChange; inv != nil {
		score += InventoryScore(*inv)
		switch {
		case *inv < -5:
			s.reason("✓ Inventory drawing (%.1f%% QoQ - strong demand)", *inv)
		case *inv < 5:
			s.reason("Inventory neutral (%.1f%% QoQ)", *inv)
		case *inv < 15:
			s.reason("⚠ Inventory building (%.1f%% QoQ)", *inv)
		default:
			s.reason("⚠ Inventory building rapidly (%.1f%% QoQ - demand concern)", *inv)
		}
	} else {
		score += neutralInventory
	}

	// TODO: replace the flat margin credit once gross margin history is stored
	return score + marginPlaceholder
}

// InventoryScore maps a quarter-over-quarter inventory change onto [0, 10].
// Draws score high, builds score low.
func InventoryScore(qoqChange float64) float64 {
	return indicators.Clamp(10-qoqChange/20*10, 0, 10)
}

// volume compares the average volume of up days with down days across the
// last five sessions. Flat days count as down days.
func (s *buyScorer) volume(series contracts.PriceSeries) float64 {
	if !series.HasVolume() || series.Len() < volumeHistoryBars {
		return neutralVolume
	}

	closes := series.Closes()
	volumes := series.Volumes()
	n := len(closes)

	var upDays, downDays int
	var upVolume, downVolume float64
	for i := n - volumeWindowBars; i < n; i++ {
		if closes[i]-closes[i-1] > 0 {
			upDays++
			upVolume += volumes[i]
		} else {
			downDays++
			downVolume += volumes[i]
		}
	}

	var avgUp, avgDown float64
	if upDays > 0 {
		avgUp = upVolume / float64(upDays)
	}
	if downDays > 0 {
		avgDown = downVolume / float64(downDays)
	}

	ratio := 1.0
	if avgDown > 0 {
		ratio = avgUp / avgDown
	}
	score := indicators.Clamp(5+(ratio-1)*10, 0, 10)

	switch {
	case ratio >= 1.3:
		s.reason("✓ Volume heavier on up days (%.1fM vs %.1fM, ratio %.2f)", avgUp/1e6, avgDown/1e6, ratio)
	case ratio >= 1.1:
		s.reason("Volume slightly heavier on up days (ratio %.2f)", ratio)
	case ratio >= 0.9:
		s.reason("Volume pattern neutral (ratio %.2f)", ratio)
	default:
		s.reason("⚠ Volume heavier on down days (ratio %.2f - distribution)", ratio)
	}

	s.details.AvgVolumeUp = contracts.Float(math.Round(avgUp))
	s.details.AvgVolumeDown = contracts.Float(math.Round(avgDown))
	s.details.UpDownRatio = contracts.Float(indicators.Round(ratio, 2))
	return score
}

func (s *buyScorer) relativeStrength(rs contracts.DatedSeries) float64 {
	if rs.Len() < buyRSLookback || rs.Defined() == 0 {
		s.reason("RS data insufficient")
		return neutralRS
	}

	slope := indicators.RSSlope(rs, buyRSLookback)
	score := indicators.Clamp((slope+1)/5*10, 0, 10)

	switch {
	case slope >= 3.0:
		s.reason("Excellent RS: %.2f (strong outperformance)", slope)
	case slope >= 1.5:
		s.reason("Strong RS: %.2f", slope)
	case slope >= 0.5:
		s.reason("Good RS: %.2f", slope)
	case slope >= 0:
		s.reason("Moderate RS: %.2f", slope)
	case slope >= -0.5:
		s.reason("Weak RS: %.2f (slight underperformance)", slope)
	default:
		s.reason("⚠ Negative RS: %.2f (underperforming benchmark)", slope)
	}

	s.details.RSSlope = contracts.Float(indicators.Round(slope, 3))
	return score
}

// riskReward returns the reward/risk ratio and its 0-5 score. Uptrends target
// 20% above price; bases target 15% above the breakout level, or above the
// 50 SMA when nothing has broken out.
func (s *buyScorer) riskReward(stop float64) (float64, float64) {
	var risk float64
	if stop != 0 {
		risk = s.price - stop
	}
	if risk <= 0 {
		return 0, 0
	}

	var target float64
	switch {
	case s.info.Phase == contracts.PhaseUptrend:
		target = s.price * 1.20
	case s.breakout.IsBreakout && s.breakout.BreakoutLevel != nil:
		target = *s.breakout.BreakoutLevel * 1.15
	default:
		target = s.info.SMA50 * 1.15
	}
	reward := target - s.price

	ratio := reward / risk
	score := indicators.Clamp((ratio-1)*2.5, 0, 5)

	switch {
	case ratio >= 3.0:
		s.reason("✓ Excellent R/R: %.1f:1 ($%.2f risk, $%.2f reward)", ratio, risk, reward)
	case ratio >= 2.0:
		s.reason("Good R/R: %.1f:1", ratio)
	case ratio >= 1.5:
		s.reason("Acceptable R/R: %.1f:1", ratio)
	default:
		s.reason("⚠ Poor R/R: %.1f:1 (need 2:1 minimum)", ratio)
	}

	return indicators.Round(ratio, 2), score
}

// entry rewards buying close to support rather than chasing
func (s *buyScorer) entry() float64 {
	d50 := s.info.DistanceFrom50SMA

	score := math.Max(0, 3-math.Max(0, d50)/10*3)

	if s.info.Phase == contracts.PhaseUptrend {
		score += math.Max(0, 2-math.Max(0, d50)/15*2)
		switch {
		case d50 <= 3:
			s.reason("✓ Excellent entry zone: %.1f%% above 50 SMA (near support)", d50)
		case d50 <= 7:
			s.reason("Good entry zone: %.1f%% above 50 SMA", d50)
		case d50 <= 12:
			s.reason("Moderate entry: %.1f%% above 50 SMA (getting extended)", d50)
		default:
			s.reason("⚠ Extended entry: %.1f%% above 50 SMA (wait for pullback)", d50)
		}
		return score
	}

	// a base breaks out best about 1% above the 50 SMA
	score += math.Max(0, 2-math.Abs(d50-1)/6*2)
	switch {
	case d50 >= -1 && d50 <= 3:
		s.reason("✓ Excellent breakout zone: %.1f%% from 50 SMA", d50)
	case d50 >= -4 && d50 <= 6:
		s.reason("Good entry zone: %.1f%% from 50 SMA", d50)
	case d50 >= -7 && d50 <= 9:
		s.reason("Approaching entry zone: %.1f%% from 50 SMA", d50)
	default:
		s.reason("Outside ideal entry zone: %.1f%% from 50 SMA", d50)
	}
	return score
}

func entryQuality(score float64) contracts.EntryQuality {
	switch {
	case score >= 4:
		return contracts.EntryGood
	case score >= 2:
		return contracts.EntryExtended
	default:
		return contracts.EntryPoor
	}
}
