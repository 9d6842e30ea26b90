package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/scanner"
	"github.com/wonny/phasescan/pkg/logger"
	"github.com/wonny/phasescan/pkg/redis"
)

// Evaluator runs the engine for one ticker
type Evaluator interface {
	Evaluate(ctx context.Context, ticker, benchmark string, asOf time.Time) (*contracts.Evaluation, error)
}

// PhaseHandler serves on-demand ticker evaluations
type PhaseHandler struct {
	evaluator Evaluator
	cache     *redis.Cache
	benchmark string
	logger    *logger.Logger
	now       func() time.Time
}

// NewPhaseHandler creates a new phase handler. cache may be nil.
func NewPhaseHandler(evaluator Evaluator, cache *redis.Cache, benchmark string, log *logger.Logger) *PhaseHandler {
	return &PhaseHandler{
		evaluator: evaluator,
		cache:     cache,
		benchmark: benchmark,
		logger:    log,
		now:       time.Now,
	}
}

// GetPhase evaluates a ticker
// GET /api/phase/{ticker}?date=2025-06-02&benchmark=SPY
func (h *PhaseHandler) GetPhase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ticker := strings.ToUpper(strings.TrimSpace(mux.Vars(r)["ticker"]))
	if ticker == "" {
		respondError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	asOf, err := parseDate(r.URL.Query().Get("date"), h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	benchmark := h.benchmark
	if b := r.URL.Query().Get("benchmark"); b != "" {
		benchmark = strings.ToUpper(b)
	}

	key := redis.EvaluationKey(ticker+":"+benchmark, asOf)
	var cached contracts.Evaluation
	if hit, err := h.cache.Get(ctx, key, &cached); err != nil {
		h.logger.WithError(err).Warn("Evaluation cache read failed")
	} else if hit {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	eval, err := h.evaluator.Evaluate(ctx, ticker, benchmark, asOf)
	if errors.Is(err, scanner.ErrNoData) {
		respondError(w, http.StatusNotFound, "no price data for "+ticker)
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to evaluate ticker")
		respondError(w, http.StatusInternalServerError, "Failed to evaluate ticker")
		return
	}

	if err := h.cache.Set(ctx, key, eval, redis.TTLMedium); err != nil {
		h.logger.WithError(err).Warn("Evaluation cache write failed")
	}
	respondJSON(w, http.StatusOK, eval)
}
