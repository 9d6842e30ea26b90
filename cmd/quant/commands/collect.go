package commands

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/phasescan/internal/collector"
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Download daily bars from Yahoo",
	Long: `Download daily bars for the universe and the benchmark and store them.

By default each ticker resumes after its latest stored bar; --full
refetches the whole window. --fundamentals also refreshes the quarterly
revenue, EPS and inventory growth of every ticker but the benchmark.

Example:
  go run ./cmd/quant collect
  go run ./cmd/quant collect --days 450 --full
  go run ./cmd/quant collect --tickers SPY,NVDA --fundamentals`,
	RunE: runCollect,
}

var (
	collectDays    int
	collectFull    bool
	collectTickers []string
	collectFunds   bool
)

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().IntVar(&collectDays, "days", 0, "calendar days of history (default from the profile)")
	collectCmd.Flags().BoolVar(&collectFull, "full", false, "refetch the whole window")
	collectCmd.Flags().StringSliceVar(&collectTickers, "tickers", nil, "comma separated tickers (default the universe)")
	collectCmd.Flags().BoolVar(&collectFunds, "fundamentals", false, "also refresh quarterly fundamentals")
}

func runCollect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tickers := normalizeTickers(collectTickers)
	if len(tickers) == 0 {
		tickers = a.profile.Universe.Tickers
		if len(tickers) == 0 {
			tickers, err = a.universe.ListActive(ctx)
			if err != nil {
				return fmt.Errorf("list universe: %w", err)
			}
		}
		if len(tickers) == 0 {
			return fmt.Errorf("no tickers to collect, run universe sync first")
		}
		if !slices.Contains(tickers, a.profile.Universe.Benchmark) {
			tickers = append(slices.Clip(tickers), a.profile.Universe.Benchmark)
		}
	}

	days := collectDays
	if days <= 0 {
		days = a.profile.Execution.HistoryDays
	}
	now := time.Now().In(a.profile.Location())
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, 0, -days)

	start := time.Now()
	results, err := a.collector().CollectBars(ctx, tickers, from, to, collector.Config{
		Workers:     a.profile.Execution.Workers,
		RPS:         a.profile.Execution.RequestsPerSecond,
		Incremental: !collectFull,
	})
	if err != nil {
		return fmt.Errorf("collect bars: %w", err)
	}

	bars := 0
	for _, r := range results {
		bars += r.BarCount
	}
	failed := collector.Failed(results)

	fmt.Printf("Collected %d bars for %d tickers in %s\n", bars, len(results)-len(failed), time.Since(start).Round(time.Second))
	for _, f := range failed {
		fmt.Printf("  failed %s: %v\n", f.Ticker, f.Error)
	}
	if len(failed) == len(results) && len(results) > 0 {
		return fmt.Errorf("every ticker failed")
	}

	if collectFunds {
		return collectFundamentals(cmd, a, tickers)
	}
	return nil
}

func collectFundamentals(cmd *cobra.Command, a *app, tickers []string) error {
	tickers = slices.DeleteFunc(slices.Clone(tickers), func(t string) bool {
		return t == a.profile.Universe.Benchmark
	})
	if len(tickers) == 0 {
		return nil
	}

	start := time.Now()
	results := a.fundamentalsCollector().Collect(cmd.Context(), tickers, a.profile.Execution.Workers)

	stored := 0
	for _, r := range results {
		if r.Stored() {
			stored++
		}
	}
	failed := collector.FailedFundamentals(results)

	fmt.Printf("Stored fundamentals for %d of %d tickers in %s\n", stored, len(results), time.Since(start).Round(time.Second))
	for _, f := range failed {
		fmt.Printf("  failed %s: %v\n", f.Ticker, f.Error)
	}
	if len(failed) == len(results) {
		return fmt.Errorf("every fundamentals fetch failed")
	}
	return nil
}
