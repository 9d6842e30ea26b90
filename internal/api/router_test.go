package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/phasescan/internal/api/handlers"
	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/position"
	"github.com/wonny/phasescan/internal/scanner"
	"github.com/wonny/phasescan/pkg/database"
	"github.com/wonny/phasescan/pkg/logger"
	"github.com/wonny/phasescan/pkg/metrics"
)

type stubEvaluator struct{}

func (stubEvaluator) Evaluate(ctx context.Context, ticker, benchmark string, asOf time.Time) (*contracts.Evaluation, error) {
	if ticker == "PANIC" {
		panic("evaluator exploded")
	}
	return &contracts.Evaluation{Ticker: ticker}, nil
}

type stubStore struct{}

func (stubStore) ListBuys(ctx context.Context, asOf time.Time) ([]contracts.BuySignal, error) {
	return []contracts.BuySignal{}, nil
}

func (stubStore) ListSells(ctx context.Context, asOf time.Time) ([]contracts.SellSignal, error) {
	return []contracts.SellSignal{}, nil
}

func (stubStore) GetRun(ctx context.Context, id string) (*scanner.RunSummary, error) {
	return nil, scanner.ErrRunNotFound
}

type stubRunner struct{}

func (stubRunner) Run(ctx context.Context, req scanner.Request) (*contracts.ScanResult, error) {
	return &contracts.ScanResult{RunID: "r", Benchmark: req.Benchmark}, nil
}

type stubUniverse struct{}

func (stubUniverse) ListActive(ctx context.Context) ([]string, error) {
	return []string{"AAPL"}, nil
}

type stubPrices struct{}

func (stubPrices) GetSeries(ctx context.Context, ticker string, from, to time.Time) (contracts.PriceSeries, error) {
	return contracts.PriceSeries{Ticker: ticker}, nil
}

type stubHealth struct{ err error }

func (h stubHealth) HealthCheck(ctx context.Context) (*database.HealthStatus, error) {
	if h.err != nil {
		return &database.HealthStatus{Error: h.err.Error()}, h.err
	}
	return &database.HealthStatus{Healthy: true, MaxConns: 10}, nil
}

func newTestRouter(health HealthChecker) (http.Handler, *prometheus.Registry) {
	log := logger.NewNop()
	reg := prometheus.NewRegistry()
	routes := Routes{
		Phase:     handlers.NewPhaseHandler(stubEvaluator{}, nil, "SPY", log),
		Signals:   handlers.NewSignalHandler(stubStore{}, stubRunner{}, stubUniverse{}, nil, log),
		Positions: handlers.NewPositionHandler(stubPrices{}, position.NewAdvisor(log), log),
		Stream:    http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }),
		Gatherer:  reg,
		Recorder:  metrics.New(reg),
		Health:    health,
	}
	return NewRouter(routes, log), reg
}

func TestRouter_Routes(t *testing.T) {
	router, _ := newTestRouter(nil)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/api/phase/AAPL", "", http.StatusOK},
		{http.MethodGet, "/api/signals/buy", "", http.StatusOK},
		{http.MethodGet, "/api/signals/sell?date=2025-06-02", "", http.StatusOK},
		{http.MethodPost, "/api/scan", `{}`, http.StatusOK},
		{http.MethodGet, "/api/scan", "", http.StatusNotFound},
		{http.MethodGet, "/api/scan/abc", "", http.StatusNotFound},
		{http.MethodPost, "/api/positions/analyze", `{"positions":[{"ticker":"A","entry_price":10,"current_price":11}]}`, http.StatusOK},
		{http.MethodGet, "/ws/signals", "", http.StatusTeapot},
		{http.MethodDelete, "/api/signals/buy", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(stubHealth{err: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status   string                `json:"status"`
		Database database.HealthStatus `json:"database"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "connection refused", body.Database.Error)

	router, _ = newTestRouter(stubHealth{})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"max_conns":10`)
}

func TestRouter_RecoversPanics(t *testing.T) {
	router, _ := newTestRouter(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/phase/PANIC", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestRouter_Metrics(t *testing.T) {
	router, _ := newTestRouter(nil)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/phase/AAPL", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http GET /api/phase/{ticker}`)
}
