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

// SignalStore reads stored scan output
type SignalStore interface {
	ListBuys(ctx context.Context, asOf time.Time) ([]contracts.BuySignal, error)
	ListSells(ctx context.Context, asOf time.Time) ([]contracts.SellSignal, error)
	GetRun(ctx context.Context, id string) (*scanner.RunSummary, error)
}

// ScanRunner runs a universe scan
type ScanRunner interface {
	Run(ctx context.Context, req scanner.Request) (*contracts.ScanResult, error)
}

// UniverseLister lists the stored active universe
type UniverseLister interface {
	ListActive(ctx context.Context) ([]string, error)
}

// ScanRequest is the body of POST /api/scan. An empty ticker list scans the
// stored universe.
type ScanRequest struct {
	Tickers      []string `json:"tickers" validate:"omitempty,max=2000,dive,required,max=15"`
	Date         string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Benchmark    string   `json:"benchmark" default:"SPY" validate:"required,max=15"`
	MinPrice     float64  `json:"min_price" default:"5" validate:"gte=0"`
	MinAvgVolume float64  `json:"min_avg_volume" default:"100000" validate:"gte=0"`
	Workers      int      `json:"workers" default:"8" validate:"gte=1,lte=64"`
}

// SignalHandler serves stored signals and on-demand scans
type SignalHandler struct {
	store    SignalStore
	scanner  ScanRunner
	universe UniverseLister
	cache    *redis.Cache
	logger   *logger.Logger
	now      func() time.Time
}

// NewSignalHandler creates a new signal handler. cache may be nil.
func NewSignalHandler(store SignalStore, runner ScanRunner, universe UniverseLister, cache *redis.Cache, log *logger.Logger) *SignalHandler {
	return &SignalHandler{
		store:    store,
		scanner:  runner,
		universe: universe,
		cache:    cache,
		logger:   log,
		now:      time.Now,
	}
}

// ListBuys returns the actionable buys of the latest run on a date
// GET /api/signals/buy?date=2025-06-02
func (h *SignalHandler) ListBuys(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseDate(r.URL.Query().Get("date"), h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	buys, err := h.store.ListBuys(r.Context(), asOf)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list buy signals")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve buy signals")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":    asOf.Format(dateLayout),
		"count":   len(buys),
		"signals": buys,
	})
}

// ListSells returns the actionable sells of the latest run on a date
// GET /api/signals/sell?date=2025-06-02
func (h *SignalHandler) ListSells(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseDate(r.URL.Query().Get("date"), h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	sells, err := h.store.ListSells(r.Context(), asOf)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list sell signals")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve sell signals")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":    asOf.Format(dateLayout),
		"count":   len(sells),
		"signals": sells,
	})
}

// GetRun returns a stored run header
// GET /api/scan/{id}
func (h *SignalHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.GetRun(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, scanner.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, "scan run not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get scan run")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve scan run")
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// RunScan runs a scan synchronously and returns its result
// POST /api/scan
func (h *SignalHandler) RunScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	asOf, _ := parseDate(req.Date, h.now())

	tickers := make([]string, 0, len(req.Tickers))
	for _, t := range req.Tickers {
		tickers = append(tickers, strings.ToUpper(strings.TrimSpace(t)))
	}
	if len(tickers) == 0 {
		active, err := h.universe.ListActive(ctx)
		if err != nil {
			h.logger.WithError(err).Error("Failed to list universe")
			respondError(w, http.StatusInternalServerError, "Failed to load universe")
			return
		}
		tickers = active
	}

	result, err := h.scanner.Run(ctx, scanner.Request{
		Tickers:      tickers,
		AsOf:         asOf,
		Benchmark:    req.Benchmark,
		MinPrice:     req.MinPrice,
		MinAvgVolume: req.MinAvgVolume,
		Workers:      req.Workers,
	})
	switch {
	case errors.Is(err, scanner.ErrEmptyUniverse):
		respondError(w, http.StatusUnprocessableEntity, "no tickers to scan, sync the universe first")
		return
	case err != nil && result == nil:
		h.logger.WithError(err).Error("Scan failed")
		respondError(w, http.StatusInternalServerError, "Scan failed: "+err.Error())
		return
	case err != nil:
		// scored but not stored
		h.logger.WithError(err).Warn("Scan result not persisted")
	}

	if err := h.cache.Set(ctx, redis.ScanKey(result.AsOf), result, redis.TTLLong); err != nil {
		h.logger.WithError(err).Warn("Scan cache write failed")
	}
	respondJSON(w, http.StatusOK, result)
}

// LatestScan returns the last scan run through this API for a date
// GET /api/scan?date=2025-06-02
func (h *SignalHandler) LatestScan(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseDate(r.URL.Query().Get("date"), h.now())
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	var result contracts.ScanResult
	hit, err := h.cache.Get(r.Context(), redis.ScanKey(asOf), &result)
	if err != nil {
		h.logger.WithError(err).Warn("Scan cache read failed")
	}
	if !hit {
		respondError(w, http.StatusNotFound, "no cached scan for "+asOf.Format(dateLayout))
		return
	}
	respondJSON(w, http.StatusOK, result)
}
