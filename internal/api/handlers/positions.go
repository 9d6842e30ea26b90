package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/position"
	"github.com/wonny/phasescan/pkg/logger"
)

// positionHistoryDays is the calendar window loaded per ticker, enough for a 200 SMA
const positionHistoryDays = 400

// SeriesSource loads price history
type SeriesSource interface {
	GetSeries(ctx context.Context, ticker string, from, to time.Time) (contracts.PriceSeries, error)
}

// PositionInput is one open position. A zero current price is filled with
// the last stored close.
type PositionInput struct {
	Ticker       string  `json:"ticker" validate:"required,max=15"`
	Quantity     float64 `json:"quantity" validate:"gte=0"`
	EntryPrice   float64 `json:"entry_price" validate:"gt=0"`
	CurrentPrice float64 `json:"current_price" validate:"gte=0"`
	EntryDate    string  `json:"entry_date" validate:"omitempty,datetime=2006-01-02"`
}

// AnalyzePositionsRequest is the body of POST /api/positions/analyze
type AnalyzePositionsRequest struct {
	Positions []PositionInput `json:"positions" validate:"required,min=1,max=200,dive"`
}

// PositionHandler serves stop management recommendations
type PositionHandler struct {
	prices  SeriesSource
	advisor *position.Advisor
	logger  *logger.Logger
	now     func() time.Time
}

// NewPositionHandler creates a new position handler
func NewPositionHandler(prices SeriesSource, advisor *position.Advisor, log *logger.Logger) *PositionHandler {
	return &PositionHandler{
		prices:  prices,
		advisor: advisor,
		logger:  log,
		now:     time.Now,
	}
}

// Analyze recommends stop adjustments for a list of positions
// POST /api/positions/analyze
func (h *PositionHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzePositionsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	now := h.now().UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, 0, -positionHistoryDays)

	history := make(map[string]contracts.PriceSeries, len(req.Positions))
	positions := make([]position.Position, 0, len(req.Positions))
	for _, in := range req.Positions {
		ticker := strings.ToUpper(strings.TrimSpace(in.Ticker))

		series, ok := history[ticker]
		if !ok {
			s, err := h.prices.GetSeries(ctx, ticker, from, to)
			if err != nil {
				h.logger.WithError(err).WithField("ticker", ticker).Warn("Failed to load position history")
			}
			series = s
			history[ticker] = s
		}

		p := position.Position{
			Ticker:       ticker,
			Quantity:     in.Quantity,
			EntryPrice:   in.EntryPrice,
			CurrentPrice: in.CurrentPrice,
		}
		if p.CurrentPrice == 0 {
			p.CurrentPrice = series.LastClose()
		}
		if p.CurrentPrice <= 0 {
			respondError(w, http.StatusUnprocessableEntity, "no current price for "+ticker)
			return
		}
		if in.EntryDate != "" {
			d, _ := time.Parse(dateLayout, in.EntryDate)
			p.EntryDate = &d
		}
		positions = append(positions, p)
	}

	respondJSON(w, http.StatusOK, h.advisor.AnalyzePortfolio(positions, history, now))
}
