package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/phasescan/internal/scheduler/jobs"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Ticker universe management",
}

var universeSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh the stored universe from the constituents page",
	Long: `Scrape the constituents table at the profile's source_url (or
$UNIVERSE_URL) and upsert the tickers as the active universe.

Example:
  go run ./cmd/quant universe sync`,
	RunE: runUniverseSync,
}

var universeListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the stored active universe",
	RunE:  runUniverseList,
}

func init() {
	rootCmd.AddCommand(universeCmd)
	universeCmd.AddCommand(universeSyncCmd)
	universeCmd.AddCommand(universeListCmd)
}

func runUniverseSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.profile.Universe.SourceURL == "" {
		return fmt.Errorf("no universe source_url configured")
	}
	return jobs.NewUniverseSyncJob(a.universeFetcher(), a.universe, a.log).Run(ctx)
}

func runUniverseList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tickers, err := a.universe.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list universe: %w", err)
	}
	for _, t := range tickers {
		fmt.Println(t)
	}
	fmt.Printf("%d active tickers\n", len(tickers))
	return nil
}
