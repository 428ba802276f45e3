// Package remote is a rate-limited HTTP client with retries, shared by
// the GitHub definitions loader and the Scryfall color lookup.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultRateLimitDelay = 100 * time.Millisecond
	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 16 * time.Second
)

// Options configures a Client. Zero values take the defaults above.
type Options struct {
	UserAgent      string
	RateLimitDelay time.Duration
	RequestTimeout time.Duration

	// MaxRetries is the number of retries after the first attempt. A negative
	// value disables retries.
	MaxRetries int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Header is added to every request.
	Header http.Header

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client performs requests one at a time per rate-limiter token.
type Client struct {
	httpClient     *http.Client
	rateLimiter    *rate.Limiter
	userAgent      string
	header         http.Header
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *zap.Logger
}

// NewClient creates a client from opts.
func NewClient(opts Options) *Client {
	if opts.RateLimitDelay <= 0 {
		opts.RateLimitDelay = DefaultRateLimitDelay
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	switch {
	case opts.MaxRetries == 0:
		opts.MaxRetries = DefaultMaxRetries
	case opts.MaxRetries < 0:
		opts.MaxRetries = 0
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = DefaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = DefaultMaxBackoff
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.RequestTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Client{
		httpClient:     opts.HTTPClient,
		rateLimiter:    rate.NewLimiter(rate.Every(opts.RateLimitDelay), 1),
		userAgent:      opts.UserAgent,
		header:         opts.Header.Clone(),
		maxRetries:     opts.MaxRetries,
		initialBackoff: opts.InitialBackoff,
		maxBackoff:     opts.MaxBackoff,
		logger:         opts.Logger,
	}
}

// NotFoundError is returned for HTTP 404.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.URL)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s failed with status %d: %s", e.URL, e.StatusCode, truncate(e.Body, 200))
}

// Get fetches url and returns the response body. Network errors, 429, 5xx
// and rate-limited 403 responses are retried with exponential backoff.
func (c *Client) Get(ctx context.Context, url string, accept string) ([]byte, error) {
	return c.fetch(ctx, http.MethodGet, url, nil, accept)
}

// PostJSON sends body as JSON to url with the same retry policy as Get.
func (c *Client) PostJSON(ctx context.Context, url string, body []byte) ([]byte, error) {
	return c.fetch(ctx, http.MethodPost, url, body, "application/json")
}

func (c *Client) fetch(ctx context.Context, method, url string, payload []byte, accept string) ([]byte, error) {
	var lastErr error
	backoff := c.initialBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("Retrying request",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		body, wait, err := c.do(ctx, method, url, payload, accept)
		if err == nil {
			return body, nil
		}
		if wait < 0 {
			return nil, err
		}
		lastErr = err

		if attempt == c.maxRetries {
			break
		}
		if wait == 0 {
			wait = backoff
		}
		wait = min(wait, c.maxBackoff)
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
		backoff = min(backoff*2, c.maxBackoff)
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// do performs one attempt. A negative wait means the error is final; zero
// means retry after the normal backoff.
func (c *Client) do(ctx context.Context, method, url string, payload []byte, accept string) ([]byte, time.Duration, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, -1, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, -1, ctx.Err()
		}
		return nil, 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, 0, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, -1, &NotFoundError{URL: url}
	case resp.StatusCode == http.StatusTooManyRequests:
		wait := retryAfter(resp.Header.Get("Retry-After"))
		if wait == 0 {
			wait = rateLimitReset(resp.Header)
		}
		return nil, wait, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: body}
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		// GitHub reports an exhausted quota as 403.
		return nil, rateLimitReset(resp.Header), &StatusError{URL: url, StatusCode: resp.StatusCode, Body: body}
	case resp.StatusCode >= 500:
		return nil, 0, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: body}
	default:
		return nil, -1, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: body}
	}
}

func retryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// rateLimitReset reads the X-RateLimit-Reset epoch seconds as a wait.
func rateLimitReset(h http.Header) time.Duration {
	epoch, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return 0
	}
	if d := time.Until(time.Unix(epoch, 0)); d > 0 {
		return d
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
