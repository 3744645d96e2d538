// Package httpx wraps outbound calls to the scheduling and payment
// services with bounded retry, linear backoff, a circuit breaker, and
// lenient response parsing.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// Retry policy constants.
const (
	// DefaultMaxAttempts bounds retries on rate limits and transport failures.
	DefaultMaxAttempts = 3
	// DefaultBaseDelay is multiplied by the attempt number for linear backoff.
	DefaultBaseDelay = 500 * time.Millisecond
	// DefaultRequestTimeout caps a single provider call.
	DefaultRequestTimeout = 30 * time.Second
)

// Result is the tagged outcome of a provider call. A non-JSON body yields
// ParseOK=false rather than an error, so callers uniformly inspect
// status and body without exception-style handling. Callers must check
// ParseOK before trusting Body.
type Result struct {
	Status  int
	Body    json.RawMessage
	ParseOK bool
	Raw     []byte
}

// Client performs resilient HTTP calls.
type Client struct {
	http        *http.Client
	breaker     *gobreaker.CircuitBreaker
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMaxAttempts overrides the retry bound.
func WithMaxAttempts(n int) Option {
	return func(c *Client) { c.maxAttempts = n }
}

// WithBaseDelay overrides the linear backoff base delay.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) { c.baseDelay = d }
}

// WithSleep overrides the backoff sleep function, for tests.
func WithSleep(fn func(time.Duration)) Option {
	return func(c *Client) { c.sleep = fn }
}

// New creates a resilient client. The breaker trips after a run of
// consecutive upstream failures and recovers on its own; an open breaker
// surfaces to the retry loop as a transport failure.
func New(name string, opts ...Option) *Client {
	c := &Client{
		http:        &http.Client{Timeout: DefaultRequestTimeout},
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: name,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return c
}

// Do performs the call with bounded retry. Rate-limit responses (429) and
// transport failures are retried up to the attempt bound with linearly
// increasing delay; any other response is returned as-is.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (Result, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		res, err := c.once(ctx, method, url, headers, body)
		if err == nil && res.Status != http.StatusTooManyRequests {
			return res, nil
		}
		if err != nil {
			lastErr = err
			slog.Warn("httpx.Do: transport failure", "method", method, "url", url, "attempt", attempt, "error", err)
		} else {
			lastErr = fmt.Errorf("rate limited by %s", url)
			slog.Warn("httpx.Do: rate limited", "method", method, "url", url, "attempt", attempt)
		}
		if attempt < c.maxAttempts {
			delay := time.Duration(attempt) * c.baseDelay
			slog.Debug("httpx.Do: backing off", "attempt", attempt, "delay", delay)
			c.sleep(delay)
		}
	}
	return Result{}, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) once(ctx context.Context, method, url string, headers map[string]string, body []byte) (Result, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return parse(resp.StatusCode, raw), nil
	})
	if err != nil {
		return Result{}, err
	}
	return out.(Result), nil
}

// parse builds the tagged result. Malformed provider bodies are a known
// failure mode (taxonomy: treated as empty/failed, not a crash).
func parse(status int, raw []byte) Result {
	res := Result{Status: status, Raw: raw}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		res.Body = json.RawMessage(trimmed)
		res.ParseOK = true
	}
	return res
}

// Decode unmarshals the result body into v. It fails when the body was not
// parseable JSON, carrying the sentinel the callers branch on.
func (r Result) Decode(v interface{}) error {
	if !r.ParseOK {
		return fmt.Errorf("cannot decode: response body is not valid JSON (status %d)", r.Status)
	}
	return json.Unmarshal(r.Body, v)
}
