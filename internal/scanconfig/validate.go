package scanconfig

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// MinHistoryDays covers a 52-week range plus the 200-day average slope
const MinHistoryDays = 300

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9\-\^=]{0,14}$`)

// ValidationError is a profile constraint violation
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning is a recommended-but-not-required constraint
type Warning struct {
	Code    string
	Message string
}

func (c *Config) normalize() {
	c.Universe.Benchmark = strings.ToUpper(strings.TrimSpace(c.Universe.Benchmark))
	for i, t := range c.Universe.Tickers {
		c.Universe.Tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}
}

// Validate checks every required constraint
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.ProfileID == "" {
		return ValidationError{"meta.profile_id", "required"}
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return ValidationError{"meta.timezone", err.Error()}
		}
	}

	// === Universe ===
	if !symbolPattern.MatchString(cfg.Universe.Benchmark) {
		return ValidationError{"universe.benchmark", "must be a ticker symbol"}
	}
	seen := make(map[string]bool, len(cfg.Universe.Tickers))
	for i, t := range cfg.Universe.Tickers {
		if !symbolPattern.MatchString(t) {
			return ValidationError{fmt.Sprintf("universe.tickers[%d]", i), fmt.Sprintf("invalid symbol %q", t)}
		}
		if seen[t] {
			return ValidationError{fmt.Sprintf("universe.tickers[%d]", i), fmt.Sprintf("duplicate symbol %s", t)}
		}
		seen[t] = true
	}
	if len(cfg.Universe.Tickers) == 0 && cfg.Universe.SourceURL == "" {
		return ValidationError{"universe", "tickers or source_url required"}
	}

	// === Filters ===
	if cfg.Filters.MinPrice < 0 {
		return ValidationError{"filters.min_price", "must be >= 0"}
	}
	if cfg.Filters.MinAvgVolume < 0 {
		return ValidationError{"filters.min_avg_volume", "must be >= 0"}
	}

	// === Execution ===
	e := cfg.Execution
	if e.Workers < 1 || e.Workers > 64 {
		return ValidationError{"execution.workers", "must be in [1, 64]"}
	}
	if e.RequestsPerSecond <= 0 {
		return ValidationError{"execution.requests_per_second", "must be > 0"}
	}
	if e.HistoryDays < MinHistoryDays {
		return ValidationError{"execution.history_days", fmt.Sprintf("must be >= %d", MinHistoryDays)}
	}
	if _, err := cron.ParseStandard(e.CollectSchedule); err != nil {
		return ValidationError{"execution.collect_schedule", err.Error()}
	}
	if _, err := cron.ParseStandard(e.ScanSchedule); err != nil {
		return ValidationError{"execution.scan_schedule", err.Error()}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Filters.MinPrice < 1 {
		warnings = append(warnings, Warning{
			Code:    "PENNY_STOCKS",
			Message: "min_price < 1: penny stocks will be scored",
		})
	}
	if cfg.Filters.MinAvgVolume < 50_000 {
		warnings = append(warnings, Warning{
			Code:    "LOW_LIQUIDITY",
			Message: "min_avg_volume < 50k: stops may not fill near their level",
		})
	}
	if cfg.Execution.RequestsPerSecond > 5 {
		warnings = append(warnings, Warning{
			Code:    "AGGRESSIVE_FETCH",
			Message: "requests_per_second > 5: the bar provider may throttle",
		})
	}

	return warnings
}
