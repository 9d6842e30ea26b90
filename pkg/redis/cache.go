package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache TTLs
const (
	TTLShort  = 1 * time.Minute
	TTLMedium = 10 * time.Minute
	TTLLong   = 1 * time.Hour
	TTLDaily  = 24 * time.Hour
)

const scanBatch = 200

// Cache stores JSON values under "<prefix>:cache:<key>". A nil Cache and a
// Cache on a disabled client behave as an always-empty cache.
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a cache namespaced by prefix
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) active() bool {
	return c != nil && c.client.Enabled()
}

func (c *Cache) key(key string) string {
	return c.prefix + ":cache:" + key
}

// Get decodes the value stored under key into dest. A miss returns (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.active() {
		return false, nil
	}

	data, err := c.client.rdb.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key for ttl
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.active() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.rdb.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes a single key
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.active() {
		return nil
	}
	return c.client.rdb.Del(ctx, c.key(key)).Err()
}

// DeletePrefix removes every key starting with prefix and returns how many
// were deleted. It walks the keyspace with SCAN rather than KEYS.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if !c.active() {
		return 0, nil
	}

	iter := c.client.rdb.Scan(ctx, 0, c.key(prefix)+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	deleted := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.client.rdb.Unlink(ctx, batch...).Result()
		deleted += int(n)
		batch = batch[:0]
		return err
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return deleted, fmt.Errorf("cache unlink %s*: %w", prefix, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("cache scan %s*: %w", prefix, err)
	}
	if err := flush(); err != nil {
		return deleted, fmt.Errorf("cache unlink %s*: %w", prefix, err)
	}
	return deleted, nil
}

// SeriesPrefix matches every cached window of a ticker
func SeriesPrefix(ticker string) string {
	return "series:" + ticker + ":"
}

// SeriesKey identifies a ticker's bar history ending at asOf
func SeriesKey(ticker string, asOf time.Time, days int) string {
	return fmt.Sprintf("%s%s:%d", SeriesPrefix(ticker), asOf.Format("2006-01-02"), days)
}

// EvaluationKey identifies a single-ticker evaluation for a date
func EvaluationKey(ticker string, asOf time.Time) string {
	return fmt.Sprintf("evaluation:%s:%s", ticker, asOf.Format("2006-01-02"))
}

// ScanKey identifies the latest scan result for a date
func ScanKey(asOf time.Time) string {
	return "scan:" + asOf.Format("2006-01-02")
}
