// Package redis holds the optional Redis layer: a JSON cache for series and
// scan results, and a sliding window limiter shared by every fetcher.
package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/phasescan/pkg/config"
)

const (
	dialTimeout    = 5 * time.Second
	commandTimeout = 2 * time.Second
	poolSize       = 20
)

// Client is a go-redis client that may be switched off. Every Cache and
// RateLimiter built on a disabled client becomes a no-op.
type Client struct {
	rdb *redis.Client
}

// New connects to the configured server and pings it once. It returns a
// disabled client when REDIS_ENABLED is false.
func New(cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return Disabled(), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     poolSize,
		DialTimeout:  dialTimeout,
		ReadTimeout:  commandTimeout,
		WriteTimeout: commandTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", rdb.Options().Addr, err)
	}

	return &Client{rdb: rdb}, nil
}

// Disabled returns a client that never talks to Redis
func Disabled() *Client {
	return &Client{}
}

// Enabled reports whether commands reach a server
func (c *Client) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Close releases the connection pool
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}
