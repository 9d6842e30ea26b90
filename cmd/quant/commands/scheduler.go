package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/phasescan/internal/scheduler"
	"github.com/wonny/phasescan/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Scheduler management",
	Long: `Start the job scheduler or run its jobs by hand.

Subcommands:
  start   - run the scheduler until interrupted
  list    - registered jobs and their schedules
  run     - run one job now and wait for it

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler list
  go run ./cmd/quant scheduler run daily_scan`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		Long: `Start the scheduler with every job registered.

Registered jobs (times in the profile timezone):
- universe_sync:        Monday 06:00 (constituents page)
- collect_prices:       profile collect_schedule (weekdays 17:30 by default)
- daily_scan:           profile scan_schedule (weekdays 18:00 by default)
- collect_fundamentals: Saturday 07:00 (quarterly statements)

Stop with Ctrl+C.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job now",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched.Start()

	fmt.Println("Scheduler started. Registered jobs:")
	for name, stat := range sched.GetJobStats() {
		next := "-"
		if stat.NextRun != nil {
			next = stat.NextRun.Format("2006-01-02 15:04 MST")
		}
		fmt.Printf("  - %-20s %-15s next %s\n", name, stat.Schedule, next)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	<-cmd.Context().Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	stats := sched.GetJobStats()
	fmt.Println("Registered jobs:")
	for _, name := range sched.GetAllJobs() {
		fmt.Printf("  - %-20s %s\n", name, stats[name].Schedule)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Running job: %s\n", args[0])
	result, err := sched.RunJobSync(args[0])
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	fmt.Printf("Finished in %s after %d attempt(s)\n", result.Duration.Round(time.Millisecond), result.Attempts)
	if !result.Success {
		return fmt.Errorf("job %s failed: %s", result.JobName, result.Error)
	}
	return nil
}

func initScheduler(ctx context.Context) (*app, *scheduler.Scheduler, error) {
	a, err := newApp(ctx)
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(a.log, scheduler.WithLocation(a.profile.Location()))

	register := []scheduler.Job{
		jobs.NewCollectPricesJob(a.collector(), a.universe, a.profile, a.log),
		jobs.NewDailyScanJob(a.scanner, a.universe, a.profile, a.profileHash, a.log),
		jobs.NewCollectFundamentalsJob(a.fundamentalsCollector(), a.universe, a.profile, a.log),
	}
	if a.profile.Universe.SourceURL != "" {
		register = append(register, jobs.NewUniverseSyncJob(a.universeFetcher(), a.universe, a.log))
	}
	for _, job := range register {
		if err := sched.AddJob(job); err != nil {
			a.Close()
			return nil, nil, fmt.Errorf("register %s: %w", job.Name(), err)
		}
	}

	return a, sched, nil
}
