// Package httpx provides the resilient HTTP client used by every source
// connector: fixed timeout, exponential-backoff retry for transport
// failures, a per-client circuit breaker, and rate-limit header tracking.
package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"trafikalert/internal/metrics"
)

const maxBodyBytes = 5 << 20

// Config holds the retry and breaker knobs for one client instance.
type Config struct {
	Timeout         time.Duration
	MaxAttempts     int
	BackoffInitial  time.Duration
	BackoffMax      time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
	Headers         map[string]string
}

// DefaultConfig mirrors the upstream behavior the connectors were written
// against: 3 attempts with 1s/2s/4s backoff, breaker trips after 5
// consecutive failures and cools down for 60 seconds.
func DefaultConfig() Config {
	return Config{
		Timeout:         15 * time.Second,
		MaxAttempts:     3,
		BackoffInitial:  time.Second,
		BackoffMax:      4 * time.Second,
		BreakerFailures: 5,
		BreakerCooldown: 60 * time.Second,
	}
}

// Client performs resilient GET requests on behalf of a single connector.
// Breaker state is owned by the client instance and never shared, so one
// broken upstream cannot poison another connector targeting the same host.
type Client struct {
	source  string
	baseURL string
	cfg     Config
	hc      *http.Client
	logger  *zap.Logger
	now     func() time.Time

	mu                 sync.Mutex
	failures           uint32
	openUntil          time.Time
	rateLimitRemaining int
	rateLimitSeen      bool
}

// New builds a client for one connector. baseURL may be empty, in which
// case every request must use an absolute URL.
func New(source, baseURL string, cfg Config, logger *zap.Logger) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 4 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		source:  source,
		baseURL: baseURL,
		cfg:     cfg,
		hc:      &http.Client{Timeout: cfg.Timeout},
		logger:  logger.With(zap.String("source", source)),
		now:     time.Now,
	}
}

// RequestOption mutates an outgoing request before it is sent.
type RequestOption func(*http.Request)

// WithQuery appends query parameters to the request URL.
func WithQuery(values url.Values) RequestOption {
	return func(req *http.Request) {
		q := req.URL.Query()
		for key, vals := range values {
			for _, v := range vals {
				q.Add(key, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

// Get performs a resilient GET. Transport failures are retried up to the
// attempt budget with exponential backoff; non-2xx responses surface
// immediately as *StatusError. When the breaker is open the call fails
// fast with *CircuitOpenError and no network I/O happens.
func (c *Client) Get(ctx context.Context, target string, opts ...RequestOption) ([]byte, error) {
	if retryAfter, open := c.circuitCheck(); open {
		metrics.ObserveHTTPRequest(c.source, "circuit_open", 0)
		coe := &CircuitOpenError{Source: c.source, RetryAfter: retryAfter}
		c.logger.Warn("request rejected, circuit open",
			zap.String("url", target),
			zap.Duration("retry_after", coe.RetryAfter))
		return nil, coe
	}

	start := time.Now()
	body, err := c.getWithRetry(ctx, target, opts...)
	if err != nil {
		c.recordFailure()
		metrics.ObserveHTTPRequest(c.source, "error", time.Since(start))
		return nil, err
	}
	c.recordSuccess()
	metrics.ObserveHTTPRequest(c.source, "success", time.Since(start))
	return body, nil
}

// circuitCheck rejects the request while the cooldown runs. Once the
// cooldown has elapsed the breaker resets unconditionally: the failure
// counter drops to zero and requests flow again as if the circuit never
// opened, so a failing first request after the reset counts as one fresh
// failure rather than reopening immediately.
func (c *Client) circuitCheck() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openUntil.IsZero() {
		return 0, false
	}
	now := c.now()
	if now.Before(c.openUntil) {
		return c.openUntil.Sub(now), true
	}
	c.openUntil = time.Time{}
	c.failures = 0
	metrics.SetBreakerState(c.source, 0)
	c.logger.Info("circuit closed")
	return 0, false
}

func (c *Client) recordSuccess() {
	c.mu.Lock()
	c.failures = 0
	c.mu.Unlock()
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.failures++
	tripped := c.failures >= c.cfg.BreakerFailures
	if tripped {
		c.openUntil = c.now().Add(c.cfg.BreakerCooldown)
	}
	c.mu.Unlock()
	if tripped {
		metrics.SetBreakerState(c.source, 1)
		c.logger.Error("circuit opened",
			zap.Duration("cooldown", c.cfg.BreakerCooldown))
	}
}

func (c *Client) getWithRetry(ctx context.Context, target string, opts ...RequestOption) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.BackoffInitial
	bo.MaxInterval = c.cfg.BackoffMax
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0

	var body []byte
	attempt := 0
	operation := func() error {
		attempt++
		b, err := c.doOnce(ctx, target, opts...)
		if err != nil {
			var se *StatusError
			if errors.As(err, &se) {
				// Application-level failure, retrying will not help.
				return backoff.Permanent(err)
			}
			c.logger.Warn("request attempt failed",
				zap.String("url", target),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		body = b
		return nil
	}

	err := backoff.Retry(operation,
		backoff.WithMaxRetries(backoff.WithContext(bo, ctx), uint64(c.cfg.MaxAttempts-1)))
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) doOnce(ctx context.Context, target string, opts ...RequestOption) ([]byte, error) {
	full := target
	if c.baseURL != "" && !isAbsolute(target) {
		full = c.baseURL + target
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	for key, value := range c.cfg.Headers {
		req.Header.Set(key, value)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	c.trackRateLimit(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: full, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// RateLimitRemaining reports the last X-RateLimit-Remaining value observed
// on a response from this upstream, if any.
func (c *Client) RateLimitRemaining() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rateLimitRemaining, c.rateLimitSeen
}

func (c *Client) trackRateLimit(resp *http.Response) {
	header := resp.Header.Get("X-RateLimit-Remaining")
	if header == "" {
		return
	}
	remaining, err := strconv.Atoi(header)
	if err != nil {
		// Best effort only.
		return
	}
	c.mu.Lock()
	c.rateLimitRemaining = remaining
	c.rateLimitSeen = true
	c.mu.Unlock()
	c.logger.Debug("rate limit remaining", zap.Int("remaining", remaining))
}

func isAbsolute(target string) bool {
	u, err := url.Parse(target)
	return err == nil && u.IsAbs()
}
