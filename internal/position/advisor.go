// Package position recommends stop adjustments for open long positions based
// on unrealised gain and the current phase of the stock.
package position

import (
	"fmt"
	"time"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/indicators"
	"github.com/wonny/phasescan/internal/phase"
	"github.com/wonny/phasescan/pkg/logger"
)

// Action is the recommended stop management step
type Action string

const (
	ActionHold                     Action = "hold"
	ActionTrailToBreakeven         Action = "trail_to_breakeven"
	ActionTrailToProfit            Action = "trail_to_profit"
	ActionTakePartialAndTrail      Action = "take_partial_and_trail"
	ActionTakePartialAndTrailTight Action = "take_partial_and_trail_tight"
)

// TaxTreatment classifies a holding period
type TaxTreatment string

const (
	TaxUnknown   TaxTreatment = "unknown"
	TaxShortTerm TaxTreatment = "short_term"
	TaxLongTerm  TaxTreatment = "long_term"
)

const (
	// LongTermDays is the holding period after which stops are left alone
	LongTermDays = 365
	// MinHistoryBars is the history needed before any recommendation
	MinHistoryBars = 50

	recentLowBars = 10
)

// Position is an open long position
type Position struct {
	Ticker       string     `json:"ticker" validate:"required"`
	Quantity     float64    `json:"quantity"`
	EntryPrice   float64    `json:"entry_price" validate:"gt=0"`
	CurrentPrice float64    `json:"current_price" validate:"gt=0"`
	EntryDate    *time.Time `json:"entry_date,omitempty"`
}

// Analysis is the recommendation for one position
type Analysis struct {
	Ticker           string          `json:"ticker"`
	Quantity         float64         `json:"quantity"`
	EntryPrice       float64         `json:"entry_price"`
	CurrentPrice     float64         `json:"current_price"`
	GainPct          float64         `json:"current_gain_pct"`
	ShouldAdjustStop bool            `json:"should_adjust_stop"`
	RecommendedStop  *float64        `json:"recommended_stop,omitempty"`
	Action           Action          `json:"action"`
	Rationale        string          `json:"rationale"`
	TaxTreatment     TaxTreatment    `json:"tax_treatment"`
	DaysHeld         int             `json:"days_held,omitempty"`
	Phase            contracts.Phase `json:"phase"`
	SMA50            float64         `json:"sma_50,omitempty"`
	RecentLow        float64         `json:"recent_low,omitempty"`
	Warnings         []string        `json:"warnings"`
}

// Advisor produces stop recommendations
type Advisor struct {
	logger *logger.Logger
}

// NewAdvisor creates a new position advisor
func NewAdvisor(log *logger.Logger) *Advisor {
	return &Advisor{logger: log}
}

// Analyze recommends how to manage the stop of one position. Positions held
// for a year or more are reported as long term and never adjusted.
func (a *Advisor) Analyze(p Position, series contracts.PriceSeries, now time.Time) Analysis {
	result := Analysis{
		Ticker:       p.Ticker,
		Quantity:     p.Quantity,
		EntryPrice:   p.EntryPrice,
		CurrentPrice: p.CurrentPrice,
		Action:       ActionHold,
		TaxTreatment: TaxUnknown,
		Phase:        contracts.PhaseUnknown,
		Warnings:     []string{},
	}

	if p.EntryPrice <= 0 {
		result.Warnings = append(result.Warnings, "Entry price must be positive")
		return result
	}

	gain := (p.CurrentPrice - p.EntryPrice) / p.EntryPrice * 100
	result.GainPct = indicators.Round(gain, 2)

	if p.EntryDate != nil {
		days := int(now.Sub(*p.EntryDate).Hours() / 24)
		if days >= LongTermDays {
			result.TaxTreatment = TaxLongTerm
			result.Rationale = fmt.Sprintf("LONG-TERM HOLD (%d days) - Preserve long-term capital gains tax rate. No stop adjustment recommended.", days)
			return result
		}
		result.TaxTreatment = TaxShortTerm
		result.DaysHeld = days
	}

	if series.Len() < MinHistoryBars {
		result.Warnings = append(result.Warnings, "Insufficient price data for analysis")
		return result
	}

	info := phase.Classify(series, p.CurrentPrice)
	sma50 := info.SMA50
	recentLow, _ := indicators.TrailingMin(series.Lows(), recentLowBars)

	result.Phase = info.Phase
	result.SMA50 = indicators.Round(sma50, 2)
	result.RecentLow = indicators.Round(recentLow, 2)

	a.recommend(&result, gain, sma50, info.Phase)

	if info.Phase == contracts.PhaseDistribution || info.Phase == contracts.PhaseDowntrend {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Stock in Phase %d (distribution/decline). Consider tighter stops or exit.", info.Phase))
	}
	if sma50 > 0 && p.CurrentPrice < sma50 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Price broke below 50 SMA ($%.2f). Trend weakening - review position.", sma50))
	}

	a.logger.WithFields(map[string]interface{}{
		"ticker": p.Ticker,
		"gain":   result.GainPct,
		"action": result.Action,
		"phase":  int(info.Phase),
	}).Debug("Position analyzed")

	return result
}

// recommend applies the gain tiers. The stop only ratchets toward the 50 SMA
// when the average sits below the current price.
func (a *Advisor) recommend(r *Analysis, gain, sma50 float64, ph contracts.Phase) {
	entry, price := r.EntryPrice, r.CurrentPrice
	smaBelow := sma50 > 0 && sma50 < price

	setStop := func(v float64) {
		r.ShouldAdjustStop = true
		r.RecommendedStop = contracts.Float(indicators.Round(v, 2))
	}

	switch {
	case gain < 5:
		r.Action = ActionHold
		r.Rationale = fmt.Sprintf("Position up %.1f%% - hold initial stop. Wait for 5-10%% gain before adjusting.", gain)

	case gain < 10:
		r.Action = ActionTrailToBreakeven
		setStop(entry * 0.995)
		r.Rationale = fmt.Sprintf("Position up %.1f%% - TRAIL TO BREAKEVEN. Move stop to $%.2f (just below entry).", gain, *r.RecommendedStop)

	case gain < 20:
		r.Action = ActionTrailToProfit
		profitStop := entry * 1.05
		if smaBelow && sma50*0.99 > profitStop {
			setStop(sma50 * 0.99)
			r.Rationale = fmt.Sprintf("Position up %.1f%% - TRAIL STOP TO 50 SMA. Move stop to $%.2f (1%% below 50 SMA at $%.2f), locking in ~%.1f%% profit.",
				gain, *r.RecommendedStop, sma50, (*r.RecommendedStop/entry-1)*100)
		} else {
			setStop(profitStop)
			r.Rationale = fmt.Sprintf("Position up %.1f%% - TRAIL STOP TO PROFIT. Move stop to $%.2f (locks in +5%% gain).", gain, *r.RecommendedStop)
		}

	case gain < 30:
		r.Action = ActionTakePartialAndTrail
		stop := entry * 1.10
		if smaBelow {
			stop = max(stop, sma50*0.99)
		}
		setStop(stop)
		r.Rationale = fmt.Sprintf("Position up %.1f%% - STRONG WINNER. Consider selling 25-30%% at $%.2f and trailing the rest with a stop at $%.2f. Phase: %d | 50 SMA: $%.2f",
			gain, price, *r.RecommendedStop, ph, sma50)

	default:
		r.Action = ActionTakePartialAndTrailTight
		stop := entry * 1.15
		if smaBelow {
			stop = max(stop, sma50*0.995)
		}
		setStop(stop)
		r.Rationale = fmt.Sprintf("Position up %.1f%% - MAJOR WINNER. Strongly consider selling 50%% at $%.2f and trailing the rest tight with a stop at $%.2f. Phase: %d | 50 SMA: $%.2f",
			gain, price, *r.RecommendedStop, ph, sma50)
		if ph == contracts.PhaseDistribution {
			r.Rationale += " WARNING: Stock entering Phase 3 (distribution). Consider heavier exit."
		}
	}
}
