package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/phasescan/internal/contracts"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the universe for phase signals",
	Long: `Classify every ticker, score buy and sell signals and store the run.

Tickers come from --tickers, then the profile, then the stored universe.
Buy signals are suppressed while the benchmark is in Phase 4.

Example:
  go run ./cmd/quant scan
  go run ./cmd/quant scan --tickers NVDA,AMD,AAPL --date 2025-06-02
  go run ./cmd/quant scan --profile config/scan/default.yaml --json`,
	RunE: runScan,
}

var (
	scanTickers []string
	scanDate    string
	scanJSON    bool
	scanTop     int
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringSliceVar(&scanTickers, "tickers", nil, "comma separated tickers to scan")
	scanCmd.Flags().StringVar(&scanDate, "date", "", "scan date YYYY-MM-DD (default today in the profile timezone)")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print the full result as JSON")
	scanCmd.Flags().IntVar(&scanTop, "top", 20, "signals to print per side")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	asOf := time.Now().In(a.profile.Location())
	if scanDate != "" {
		asOf, err = time.Parse("2006-01-02", scanDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	tickers := normalizeTickers(scanTickers)
	if len(tickers) == 0 {
		tickers = a.profile.Universe.Tickers
	}
	if len(tickers) == 0 {
		tickers, err = a.universe.ListActive(ctx)
		if err != nil {
			return fmt.Errorf("list universe: %w", err)
		}
	}

	result, err := a.scanner.Run(ctx, a.profile.Request(tickers, asOf, a.profileHash))
	if result == nil {
		return fmt.Errorf("scan: %w", err)
	}
	if err != nil {
		a.log.WithError(err).Warn("Scan result not persisted")
	}

	if scanJSON {
		return printJSON(result)
	}
	printScan(result, scanTop)
	return nil
}

func normalizeTickers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func printScan(r *contracts.ScanResult, top int) {
	fmt.Printf("=== Scan %s (%s) ===\n", r.AsOf.Format("2006-01-02"), r.RunID)
	fmt.Printf("Benchmark %s: %s (confidence %.0f)\n", r.Benchmark, r.BenchmarkPhase.Phase.Name(), r.BenchmarkPhase.Confidence)
	if r.BuysGated {
		fmt.Println("Buy signals suppressed: benchmark in downtrend")
	}
	fmt.Printf("Tickers: %d evaluated, %d filtered, %d failed\n", len(r.Evaluations), len(r.Filtered), len(r.Failures))

	fmt.Println("\nPhase distribution:")
	for p := contracts.PhaseInsufficientData; p <= contracts.PhaseDowntrend; p++ {
		fmt.Printf("  %-18s %4d (%.1f%%)\n", p.Name(), r.Breadth.PhaseCounts[p], r.Breadth.PhasePercent[p])
	}
	fmt.Printf("  above 50 SMA: %.1f%%  above 200 SMA: %.1f%%\n", r.Breadth.PctAboveSMA50, r.Breadth.PctAboveSMA200)

	buys := r.ActionableBuys()
	fmt.Printf("\nBuy signals (%d):\n", len(buys))
	for i, b := range buys {
		if i == top {
			break
		}
		line := fmt.Sprintf("  %-6s score %5.1f  R/R %4.1f", b.Ticker, b.Score, b.RiskRewardRatio)
		if b.StopLoss != nil {
			line += fmt.Sprintf("  stop %.2f", *b.StopLoss)
		}
		fmt.Println(line)
	}

	sells := r.ActionableSells()
	fmt.Printf("\nSell signals (%d):\n", len(sells))
	for i, s := range sells {
		if i == top {
			break
		}
		fmt.Printf("  %-6s score %5.1f  %s\n", s.Ticker, s.Score, s.Severity)
	}

	for _, f := range r.Failures {
		fmt.Printf("  failed %s: %s\n", f.Ticker, f.Error)
	}
}
