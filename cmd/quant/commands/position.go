package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wonny/phasescan/internal/contracts"
	"github.com/wonny/phasescan/internal/position"
)

// positionCmd represents the position command
var positionCmd = &cobra.Command{
	Use:   "position",
	Short: "Open position tools",
}

var positionAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Recommend stop adjustments for open positions",
	Long: `Read open positions from a YAML or JSON file and recommend how to
trail each stop. A missing current_price uses the last stored close.

File format:
  positions:
    - ticker: NVDA
      quantity: 20
      entry_price: 120.5
      entry_date: 2025-03-14

Example:
  go run ./cmd/quant position analyze --file positions.yaml`,
	RunE: runPositionAnalyze,
}

var positionFile string

// positionFileEntry is one row of the positions file
type positionFileEntry struct {
	Ticker       string  `yaml:"ticker"`
	Quantity     float64 `yaml:"quantity"`
	EntryPrice   float64 `yaml:"entry_price"`
	CurrentPrice float64 `yaml:"current_price"`
	EntryDate    string  `yaml:"entry_date"`
}

func init() {
	rootCmd.AddCommand(positionCmd)
	positionCmd.AddCommand(positionAnalyzeCmd)

	positionAnalyzeCmd.Flags().StringVarP(&positionFile, "file", "f", "positions.yaml", "positions file")
}

func runPositionAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	data, err := os.ReadFile(positionFile)
	if err != nil {
		return fmt.Errorf("read positions: %w", err)
	}
	var file struct {
		Positions []positionFileEntry `yaml:"positions"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse positions: %w", err)
	}
	if len(file.Positions) == 0 {
		return fmt.Errorf("%s lists no positions", positionFile)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	now := time.Now().UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, 0, -400)

	history := make(map[string]contracts.PriceSeries, len(file.Positions))
	positions := make([]position.Position, 0, len(file.Positions))
	for _, e := range file.Positions {
		ticker := strings.ToUpper(strings.TrimSpace(e.Ticker))
		if _, ok := history[ticker]; !ok {
			series, err := a.series.GetSeries(ctx, ticker, from, to)
			if err != nil {
				a.log.WithError(err).WithField("ticker", ticker).Warn("Failed to load position history")
			}
			history[ticker] = series
		}

		p := position.Position{
			Ticker:       ticker,
			Quantity:     e.Quantity,
			EntryPrice:   e.EntryPrice,
			CurrentPrice: e.CurrentPrice,
		}
		if p.CurrentPrice == 0 {
			p.CurrentPrice = history[ticker].LastClose()
		}
		if e.EntryDate != "" {
			d, err := time.Parse("2006-01-02", e.EntryDate)
			if err != nil {
				return fmt.Errorf("%s: invalid entry_date: %w", ticker, err)
			}
			p.EntryDate = &d
		}
		positions = append(positions, p)
	}

	report := position.NewAdvisor(a.log).AnalyzePortfolio(positions, history, now)
	return printJSON(report)
}
