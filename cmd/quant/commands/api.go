package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/phasescan/internal/api"
	"github.com/wonny/phasescan/internal/api/handlers"
	"github.com/wonny/phasescan/internal/api/stream"
	"github.com/wonny/phasescan/internal/position"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Start the REST API server.

Endpoints:
  GET  /health                 - Health check
  GET  /metrics                - Prometheus metrics
  GET  /api/phase/{ticker}     - On-demand phase and signal evaluation
  GET  /api/signals/buy        - Stored buy signals (?date=YYYY-MM-DD)
  GET  /api/signals/sell       - Stored sell signals (?date=YYYY-MM-DD)
  POST /api/scan               - Run a scan
  GET  /api/scan               - Last scan run through the API (?date=YYYY-MM-DD)
  GET  /api/scan/{id}          - Stored scan run header
  POST /api/positions/analyze  - Stop recommendations for open positions
  GET  /ws/signals             - Live scan results (websocket)

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default is $PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}
	log := a.log

	hub := stream.NewHub(log)
	defer hub.Close()
	a.scanner.WithPublisher(hub)

	routes := api.Routes{
		Phase:     handlers.NewPhaseHandler(a.scanner, a.cache, a.profile.Universe.Benchmark, log),
		Signals:   handlers.NewSignalHandler(a.signals, a.scanner, a.universe, a.cache, log),
		Positions: handlers.NewPositionHandler(a.series, position.NewAdvisor(log), log),
		Stream:    hub,
		Gatherer:  a.gatherer,
		Recorder:  a.metrics,
		Health:    a.db,
	}
	server := api.NewServer(":"+a.cfg.Port, api.NewRouter(routes, log), log)

	fmt.Printf("Server running on http://localhost:%s (Ctrl+C to stop)\n", a.cfg.Port)
	if err := server.Run(cmd.Context()); err != nil {
		return err
	}

	log.Info("Server stopped")
	return nil
}
