package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data sources
	Yahoo    YahooConfig
	Universe UniverseConfig

	// Screening
	Scanner ScannerConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// YahooConfig holds the daily bar provider settings
type YahooConfig struct {
	RequestsPerSecond float64
	HistoryDays       int
	Timeout           time.Duration
}

// UniverseConfig holds the ticker universe source
type UniverseConfig struct {
	SourceURL string
}

// ScannerConfig holds screening defaults. A scan profile overrides them.
type ScannerConfig struct {
	Workers      int
	Benchmark    string
	MinPrice     float64
	MinAvgVolume float64
	ProfilePath  string
}

// Load reads configuration from environment variables. A malformed value
// is an error rather than a silent fallback to the default.
func Load() (*Config, error) {
	loadEnvFile()

	env := &envReader{}
	cfg := &Config{
		Port: env.Str("PORT", "8089"),
		Env:  env.Str("ENV", "development"),

		Database: DatabaseConfig{
			URL:             env.Str("DATABASE_URL", ""),
			MaxConns:        env.Int("DB_MAX_CONNS", 25),
			MinConns:        env.Int("DB_MIN_CONNS", 5),
			MaxConnLifetime: env.Duration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: env.Duration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},

		Redis: RedisConfig{
			Host:     env.Str("REDIS_HOST", "localhost"),
			Port:     env.Str("REDIS_PORT", "6379"),
			Password: env.Str("REDIS_PASSWORD", ""),
			DB:       env.Int("REDIS_DB", 0),
			Enabled:  env.Bool("REDIS_ENABLED", true),
		},

		Yahoo: YahooConfig{
			RequestsPerSecond: env.Float("YAHOO_RPS", 2),
			HistoryDays:       env.Int("YAHOO_HISTORY_DAYS", 400),
			Timeout:           env.Duration("YAHOO_TIMEOUT", 30*time.Second),
		},

		Universe: UniverseConfig{
			SourceURL: env.Str("UNIVERSE_URL", "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"),
		},

		Scanner: ScannerConfig{
			Workers:      env.Int("SCAN_WORKERS", 8),
			Benchmark:    strings.ToUpper(strings.TrimSpace(env.Str("SCAN_BENCHMARK", "SPY"))),
			MinPrice:     env.Float("SCAN_MIN_PRICE", 5.0),
			MinAvgVolume: env.Float("SCAN_MIN_AVG_VOLUME", 100000),
			ProfilePath:  env.Str("SCAN_PROFILE", ""),
		},

		LogLevel:       env.Str("LOG_LEVEL", "info"),
		LogFormat:      env.Str("LOG_FORMAT", "json"),
		MetricsEnabled: env.Bool("METRICS_ENABLED", true),
	}

	if err := errors.Join(append(env.errs, cfg.validate()...)...); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// validate reports every invalid setting at once
func (c *Config) validate() []error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	switch c.Env {
	case "development", "staging", "production":
	default:
		errs = append(errs, fmt.Errorf("ENV must be one of: development, staging, production (got %q)", c.Env))
	}
	if c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, errors.New("DB_MIN_CONNS must not exceed DB_MAX_CONNS"))
	}
	if c.Scanner.Workers <= 0 {
		errs = append(errs, errors.New("SCAN_WORKERS must be positive"))
	}
	if c.Yahoo.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("YAHOO_RPS must be positive"))
	}
	if c.Scanner.Benchmark == "" {
		errs = append(errs, errors.New("SCAN_BENCHMARK must not be blank"))
	}
	return errs
}

// loadEnvFile loads the first .env found next to the working directory or
// the executable. Variables already set in the environment win.
func loadEnvFile() {
	paths := []string{".env"}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		paths = append(paths, filepath.Join(dir, ".env"), filepath.Join(dir, "..", ".env"))
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

// envReader looks up variables and collects parse failures
type envReader struct {
	errs []error
}

func (r *envReader) Str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (r *envReader) fail(key, raw string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%s=%q: %w", key, raw, err))
}

func (r *envReader) Int(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.fail(key, raw, err)
		return def
	}
	return v
}

func (r *envReader) Float(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.fail(key, raw, err)
		return def
	}
	return v
}

func (r *envReader) Bool(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		r.fail(key, raw, err)
		return def
	}
	return v
}

func (r *envReader) Duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		r.fail(key, raw, err)
		return def
	}
	return v
}
