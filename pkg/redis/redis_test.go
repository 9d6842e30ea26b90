package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/phasescan/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	client, err := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(Disabled(), "test")

	d, err := limiter.Allow(context.Background(), YahooRateLimit)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, YahooRateLimit.Limit, d.Remaining)
	assert.Zero(t, d.RetryAfter)

	var nilLimiter *RateLimiter
	assert.NoError(t, nilLimiter.Wait(context.Background(), YahooRateLimit))
	assert.NoError(t, limiter.Wait(context.Background(), UniverseRateLimit))
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", "value", TTLShort))

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Delete(ctx, "key"))

	n, err := cache.DeletePrefix(ctx, SeriesPrefix("AAPL"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCache_NilSafe(t *testing.T) {
	var cache *Cache
	var result string
	found, err := cache.Get(context.Background(), "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheKeys(t *testing.T) {
	asOf := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"SeriesKey", SeriesKey("AAPL", asOf, 400), "series:AAPL:2025-03-14:400"},
		{"EvaluationKey", EvaluationKey("MSFT", asOf), "evaluation:MSFT:2025-03-14"},
		{"ScanKey", ScanKey(asOf), "scan:2025-03-14"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}

	cache := NewCache(Disabled(), "phasescan")
	assert.Equal(t, "phasescan:cache:scan:2025-03-14", cache.key(ScanKey(asOf)))
}

func TestRateLimiter_Redis(t *testing.T) {
	host := os.Getenv("REDIS_HOST")
	if testing.Short() || host == "" {
		t.Skip("REDIS_HOST not set, skipping integration test")
	}

	client, err := New(&config.Config{Redis: config.RedisConfig{Host: host, Port: "6379", Enabled: true}})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	cfg := RateLimitConfig{Key: "test-" + t.Name(), Limit: 2, Window: 500 * time.Millisecond}
	limiter := NewRateLimiter(client, "phasescan-test")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(ctx, cfg)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	d, err := limiter.Allow(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, cfg.Window)

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx, cfg))
	assert.Less(t, time.Since(start), 2*cfg.Window)
}

func TestCache_Redis(t *testing.T) {
	host := os.Getenv("REDIS_HOST")
	if testing.Short() || host == "" {
		t.Skip("REDIS_HOST not set, skipping integration test")
	}

	client, err := New(&config.Config{Redis: config.RedisConfig{Host: host, Port: "6379", Enabled: true}})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	cache := NewCache(client, "phasescan-test-"+t.Name())
	ctx := context.Background()
	asOf := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	require.NoError(t, cache.Set(ctx, SeriesKey("AAPL", asOf, 400), []float64{1, 2}, TTLShort))
	require.NoError(t, cache.Set(ctx, SeriesKey("AAPL", asOf, 30), []float64{3}, TTLShort))
	require.NoError(t, cache.Set(ctx, SeriesKey("AAPLX", asOf, 30), []float64{4}, TTLShort))

	var got []float64
	found, err := cache.Get(ctx, SeriesKey("AAPL", asOf, 400), &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []float64{1, 2}, got)

	n, err := cache.DeletePrefix(ctx, SeriesPrefix("AAPL"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	found, err = cache.Get(ctx, SeriesKey("AAPLX", asOf, 30), &got)
	require.NoError(t, err)
	assert.True(t, found)
	require.NoError(t, cache.Delete(ctx, SeriesKey("AAPLX", asOf, 30)))
}
