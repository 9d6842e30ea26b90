// Package scanconfig loads the YAML scan profile that drives scheduled and
// on-demand scans.
package scanconfig

import (
	"time"
	_ "time/tzdata"

	"github.com/wonny/phasescan/internal/scanner"
	"github.com/wonny/phasescan/pkg/config"
)

// Config is a complete scan profile
type Config struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Universe  Universe  `yaml:"universe" json:"universe"`
	Filters   Filters   `yaml:"filters" json:"filters"`
	Execution Execution `yaml:"execution" json:"execution"`
}

// Meta identifies the profile
type Meta struct {
	ProfileID string `yaml:"profile_id" json:"profile_id"`
	Version   string `yaml:"version" json:"version"`
	Timezone  string `yaml:"timezone" json:"timezone"`
}

// Universe selects what is scanned. An empty ticker list means the stored
// active universe.
type Universe struct {
	Tickers   []string `yaml:"tickers" json:"tickers"`
	SourceURL string   `yaml:"source_url" json:"source_url"`
	Benchmark string   `yaml:"benchmark" json:"benchmark"`
}

// Filters are the liquidity floors
type Filters struct {
	MinPrice     float64 `yaml:"min_price" json:"min_price"`
	MinAvgVolume float64 `yaml:"min_avg_volume" json:"min_avg_volume"`
}

// Execution controls concurrency, fetching and schedules
type Execution struct {
	Workers           int     `yaml:"workers" json:"workers"`
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	HistoryDays       int     `yaml:"history_days" json:"history_days"`
	CollectSchedule   string  `yaml:"collect_schedule" json:"collect_schedule"` // cron, 5 fields
	ScanSchedule      string  `yaml:"scan_schedule" json:"scan_schedule"`
}

// FromEnv builds a profile from the environment defaults, used when no
// profile file is configured
func FromEnv(cfg *config.Config) *Config {
	return &Config{
		Meta: Meta{
			ProfileID: "env",
			Version:   "1",
			Timezone:  "America/New_York",
		},
		Universe: Universe{
			SourceURL: cfg.Universe.SourceURL,
			Benchmark: cfg.Scanner.Benchmark,
		},
		Filters: Filters{
			MinPrice:     cfg.Scanner.MinPrice,
			MinAvgVolume: cfg.Scanner.MinAvgVolume,
		},
		Execution: Execution{
			Workers:           cfg.Scanner.Workers,
			RequestsPerSecond: cfg.Yahoo.RequestsPerSecond,
			HistoryDays:       cfg.Yahoo.HistoryDays,
			CollectSchedule:   DefaultCollectSchedule,
			ScanSchedule:      DefaultScanSchedule,
		},
	}
}

const (
	DefaultCollectSchedule = "30 17 * * 1-5"
	DefaultScanSchedule    = "0 18 * * 1-5"
)

// Location returns the profile timezone, UTC when unset
func (c *Config) Location() *time.Location {
	if c.Meta.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Meta.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Request builds a scan request over tickers for the given date
func (c *Config) Request(tickers []string, asOf time.Time, hash string) scanner.Request {
	return scanner.Request{
		Tickers:      tickers,
		AsOf:         asOf,
		Benchmark:    c.Universe.Benchmark,
		MinPrice:     c.Filters.MinPrice,
		MinAvgVolume: c.Filters.MinAvgVolume,
		Workers:      c.Execution.Workers,
		HistoryDays:  c.Execution.HistoryDays,
		ProfileHash:  hash,
	}
}
