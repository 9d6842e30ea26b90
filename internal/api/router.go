package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/phasescan/internal/api/handlers"
	"github.com/wonny/phasescan/pkg/database"
	"github.com/wonny/phasescan/pkg/logger"
	"github.com/wonny/phasescan/pkg/metrics"
)

// HealthChecker reports database reachability and pool occupancy
type HealthChecker interface {
	HealthCheck(ctx context.Context) (*database.HealthStatus, error)
}

// Routes holds everything the router serves. Nil optional fields switch
// their endpoint off.
type Routes struct {
	Phase     *handlers.PhaseHandler
	Signals   *handlers.SignalHandler
	Positions *handlers.PositionHandler

	Stream   http.Handler
	Gatherer prometheus.Gatherer
	Recorder *metrics.Recorder
	Health   HealthChecker
}

// NewRouter creates and configures the HTTP router
func NewRouter(routes Routes, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthCheckHandler(routes.Health)).Methods("GET")
	if routes.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(routes.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
	if routes.Stream != nil {
		r.Handle("/ws/signals", routes.Stream)
	}

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/phase/{ticker}", routes.Phase.GetPhase).Methods("GET")

	api.HandleFunc("/signals/buy", routes.Signals.ListBuys).Methods("GET")
	api.HandleFunc("/signals/sell", routes.Signals.ListSells).Methods("GET")
	api.HandleFunc("/scan", routes.Signals.RunScan).Methods("POST")
	api.HandleFunc("/scan", routes.Signals.LatestScan).Methods("GET")
	api.HandleFunc("/scan/{id}", routes.Signals.GetRun).Methods("GET")

	api.HandleFunc("/positions/analyze", routes.Positions.Analyze).Methods("POST")

	r.Use(loggingMiddleware(log, routes.Recorder))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(db HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":  "ok",
			"service": "phasescan-api",
		}
		code := http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			status, err := db.HealthCheck(ctx)
			if err != nil {
				body["status"], code = "degraded", http.StatusServiceUnavailable
			}
			body["database"] = status
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(body)
	}
}

// loggingMiddleware logs HTTP requests and records their latency per route
func loggingMiddleware(log *logger.Logger, rec *metrics.Recorder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			elapsed := time.Since(start)
			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			rec.RecordLatency("http "+r.Method+" "+route, elapsed)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": elapsed,
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
