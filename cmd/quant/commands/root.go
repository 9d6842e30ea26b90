package commands

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wonny/phasescan/pkg/config"
)

var (
	// Global flags
	configFile  string
	profilePath string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "phasescan - Weinstein phase screening for US equities",
	Long: `phasescan Unified CLI

Classifies stocks into Stage Analysis phases, scores buy and sell
signals and recommends stop adjustments for open positions.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant universe sync
  go run ./cmd/quant collect --days 450
  go run ./cmd/quant scan --profile config/scan/default.yaml
  go run ./cmd/quant phase NVDA
  go run ./cmd/quant api`,
	SilenceUsage: true,
}

// Execute runs the command line with ctx as every command's context
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file loaded before the environment (default is .env)")
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "scan profile YAML (default is $SCAN_PROFILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig applies the global flags on top of config.Load
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", configFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if profilePath != "" {
		cfg.Scanner.ProfilePath = profilePath
	}
	return cfg, nil
}
