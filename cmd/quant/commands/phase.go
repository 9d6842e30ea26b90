package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// phaseCmd represents the phase command
var phaseCmd = &cobra.Command{
	Use:   "phase <ticker>",
	Short: "Evaluate one ticker",
	Long: `Print the phase, trend template, breakout and signal evaluation of one
ticker from stored bars. Nothing is persisted and no liquidity filter applies.

Example:
  go run ./cmd/quant phase NVDA
  go run ./cmd/quant phase NVDA --date 2025-06-02 --benchmark QQQ`,
	Args: cobra.ExactArgs(1),
	RunE: runPhase,
}

var (
	phaseDate      string
	phaseBenchmark string
)

func init() {
	rootCmd.AddCommand(phaseCmd)

	phaseCmd.Flags().StringVar(&phaseDate, "date", "", "evaluation date YYYY-MM-DD (default today)")
	phaseCmd.Flags().StringVar(&phaseBenchmark, "benchmark", "", "benchmark ticker (default from the profile)")
}

func runPhase(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var asOf time.Time
	if phaseDate != "" {
		asOf, err = time.Parse("2006-01-02", phaseDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	benchmark := phaseBenchmark
	if benchmark == "" {
		benchmark = a.profile.Universe.Benchmark
	}

	eval, err := a.scanner.Evaluate(ctx, strings.ToUpper(args[0]), benchmark, asOf)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", args[0], err)
	}
	return printJSON(eval)
}
