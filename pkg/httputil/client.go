// Package httputil is the outbound HTTP client used by the scrapers. It adds
// rate limiting, backoff retries on 429 and 5xx, and request logging.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/wonny/phasescan/pkg/logger"
	"github.com/wonny/phasescan/pkg/redis"
)

const (
	defaultUserAgent = "phasescan/1.0 (+https://github.com/wonny/phasescan)"
	defaultTimeout   = 30 * time.Second
	maxBodyBytes     = 16 << 20
)

// StatusError is returned by GetBody for a non-2xx response
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Backoff controls retries. MaxRetries of zero disables them.
type Backoff struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func (b Backoff) next(delay time.Duration) time.Duration {
	delay *= 2
	if delay > b.MaxDelay {
		return b.MaxDelay
	}
	return delay
}

// Client performs GET requests for HTML and JSON sources
type Client struct {
	http      *http.Client
	logger    *logger.Logger
	backoff   Backoff
	limiter   *redis.RateLimiter
	limit     redis.RateLimitConfig
	userAgent string
}

// Option configures a Client
type Option func(*Client)

// WithTimeout bounds every single attempt
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithBackoff replaces the retry schedule
func WithBackoff(b Backoff) Option {
	return func(c *Client) { c.backoff = b }
}

// WithoutRetry sends each request once
func WithoutRetry() Option {
	return func(c *Client) { c.backoff.MaxRetries = 0 }
}

// WithRateLimit makes every attempt wait for a slot in the shared window
func WithRateLimit(limiter *redis.RateLimiter, cfg redis.RateLimitConfig) Option {
	return func(c *Client) {
		c.limiter = limiter
		c.limit = cfg
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a client with three retries starting at one second
func New(log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{Timeout: defaultTimeout},
		logger: log,
		backoff: Backoff{
			MaxRetries:   3,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
		},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get sends a GET request, retrying transport errors and retryable statuses.
// The caller closes the body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	log := c.logger.WithContext(ctx).WithField("url", url)
	start := time.Now()
	delay := c.backoff.InitialDelay

	for attempt := 0; ; attempt++ {
		resp, err := c.attempt(ctx, url)
		if err == nil && !IsRetryableError(resp.StatusCode) {
			log.WithFields(map[string]interface{}{
				"status_code": resp.StatusCode,
				"attempts":    attempt + 1,
				"duration":    time.Since(start),
			}).Debug("HTTP request completed")
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt >= c.backoff.MaxRetries {
			if err != nil {
				log.WithError(err).Error("HTTP request failed")
				return nil, err
			}
			return resp, nil
		}

		wait := delay
		if err == nil {
			wait = retryAfter(resp, delay, c.backoff.MaxDelay)
			drain(resp)
		}
		log.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"delay":   wait,
		}).Warn("Retrying HTTP request")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay = c.backoff.next(delay)
	}
}

func (c *Client) attempt(ctx context.Context, url string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx, c.limit); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	return c.http.Do(req)
}

// GetBody returns the body of a 2xx response. Other statuses yield a
// *StatusError.
func (c *Client) GetBody(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// IsRetryableError reports whether a status is worth another attempt
func IsRetryableError(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}

// IsStatus reports whether err is a StatusError with the given code
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// retryAfter honours a Retry-After header in seconds, capped at max
func retryAfter(resp *http.Response, fallback, max time.Duration) time.Duration {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return fallback
	}
	if d := time.Duration(secs) * time.Second; d < max {
		return d
	}
	return max
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
