// Package signals turns a classified price history into scored buy and sell
// signals, including the stop placement behind each long entry.
package signals

import (
	"context"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/indicators"
	"github.com/wonny/phasescan/internal/phase"
	"github.com/wonny/phasescan/pkg/logger"
)

// Input is everything the engine needs to evaluate one ticker
type Input struct {
	Series contracts.PriceSeries
	// Price defaults to the last close when zero
	Price         float64
	Benchmark     contracts.DatedSeries
	Fundamentals  *contracts.Fundamentals
	PreviousPhase contracts.Phase
}

// Engine runs the full evaluation pipeline for a ticker: relative strength,
// phase, trend template, breakout, then buy or sell scoring.
type Engine struct {
	logger *logger.Logger
}

// NewEngine creates a new signal engine
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{logger: log}
}

// Evaluate never fails. Short or malformed histories produce neutral results
// and the reason is carried in the output.
func (e *Engine) Evaluate(ctx context.Context, in Input) contracts.Evaluation {
	series := in.Series
	price := in.Price
	if price == 0 {
		price = series.LastClose()
	}

	log := e.logger.WithContext(ctx).WithField("ticker", series.Ticker)

	rs, err := indicators.RelativeStrength(series.CloseSeries(), in.Benchmark)
	if err != nil {
		log.WithError(err).Warn("Relative strength unavailable, using neutral series")
	}

	info := phase.Classify(series, price)
	sma200 := indicators.SMA(series.Closes(), 200)
	breakout := phase.DetectBreakout(series, price, info)

	eval := contracts.Evaluation{
		Ticker:        series.Ticker,
		AsOf:          series.LastDate(),
		Price:         price,
		Phase:         info,
		TrendTemplate: phase.TrendTemplate(info, sma200),
		Breakout:      breakout,
		RSSlope:       indicators.Round(indicators.RSSlope(rs, buyRSLookback), 3),
	}

	switch info.Phase {
	case contracts.PhaseBaseBuilding, contracts.PhaseUptrend:
		buy := ScoreBuy(series.Ticker, series, price, info, breakout, rs, in.Fundamentals)
		eval.Buy = &buy
	case contracts.PhaseDistribution, contracts.PhaseDowntrend:
		sell := ScoreSell(series.Ticker, series, price, info, rs, in.PreviousPhase)
		eval.Sell = &sell
	}

	fields := map[string]interface{}{
		"phase":      int(info.Phase),
		"confidence": info.Confidence,
	}
	if eval.Buy != nil {
		fields["buy_score"] = eval.Buy.Score
	}
	if eval.Sell != nil {
		fields["sell_score"] = eval.Sell.Score
	}
	log.WithFields(fields).Debug("Ticker evaluated")

	return eval
}
