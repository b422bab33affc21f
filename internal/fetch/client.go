// Package fetch performs polite HTTP retrieval for the discovery engine:
// rotating request identities, bounded retry with doubled backoff, and a
// fixed inter-request delay after every successful fetch.
package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"
)

// Failure kinds reported by Error.Kind.
const (
	// KindTransport covers connection errors, timeouts, and non-2xx
	// responses on an individual attempt.
	KindTransport = "transport"

	// KindExhausted is reported when every attempt failed.
	KindExhausted = "fetch_exhausted"
)

// Error is a fetch failure with a machine-readable kind.
type Error struct {
	// Kind classifies the failure (KindTransport, KindExhausted).
	Kind string

	// Location is the URL that failed.
	Location string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Location, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Location)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Result is a successful fetch.
type Result struct {
	// Body is the response body, truncated at the configured size limit.
	Body []byte

	// StatusCode is the HTTP status of the successful response.
	StatusCode int

	// ContentType is the response Content-Type header.
	ContentType string
}

// Client fetches URLs with retry, backoff, and rate limiting.
//
// Design decision: the http.Client is injected rather than constructed here
// so that the same fetch logic serves both clearnet and Tor transports (the
// Tor package supplies a SOCKS5-proxied client), and tests can point it at
// an httptest server.
type Client struct {
	// httpClient performs the actual requests. Its Timeout bounds each
	// individual attempt.
	httpClient *http.Client

	// userAgents is the read-only identity pool. One entry is chosen at
	// random per attempt. Shared without locking: it is never mutated.
	userAgents []string

	// maxAttempts is the number of tries per location.
	maxAttempts int

	// delay is the politeness pause after every successful fetch and the
	// base for the retry backoff.
	delay time.Duration

	// maxBodySize limits how many bytes of a response body are read.
	maxBodySize int64
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgents sets the identity pool. The slice is used as-is and must
// not be mutated afterwards.
func WithUserAgents(pool []string) Option {
	return func(c *Client) {
		if len(pool) > 0 {
			c.userAgents = pool
		}
	}
}

// WithMaxAttempts sets the number of tries per location.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithDelay sets the politeness delay and backoff base.
func WithDelay(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.delay = d
		}
	}
}

// WithMaxBodySize sets the response body read limit.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// NewClient creates a fetch client around the given HTTP client.
func NewClient(httpClient *http.Client, opts ...Option) *Client {
	c := &Client{
		httpClient:  httpClient,
		userAgents:  []string{"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"},
		maxAttempts: 3,
		delay:       2 * time.Second,
		maxBodySize: 5 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves location, retrying transient failures up to the
// configured attempt count. On success it sleeps the politeness delay
// before returning, so total run time scales with the number of fetches.
// On exhaustion it returns an *Error with Kind set to KindExhausted.
func (c *Client) Fetch(ctx context.Context, location string) (*Result, error) {
	backoff := c.delay

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		result, err := c.attempt(ctx, location)
		if err == nil {
			// Politeness delay applies to every successful fetch,
			// regardless of caller.
			if err := c.sleep(ctx, c.delay); err != nil {
				return result, err
			}
			return result, nil
		}

		// Context cancellation is not retryable.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		if attempt < c.maxAttempts {
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, err
			}
			backoff *= 2
		}
	}

	return nil, &Error{Kind: KindExhausted, Location: location, Err: lastErr}
}

// attempt performs a single GET.
func (c *Client) attempt(ctx context.Context, location string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Location: location, Err: err}
	}
	req.Header.Set("User-Agent", c.randomUserAgent())
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Location: location, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &Error{
			Kind:     KindTransport,
			Location: location,
			Err:      fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Location: location, Err: err}
	}

	return &Result{
		Body:        body,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// randomUserAgent picks one identity from the pool.
func (c *Client) randomUserAgent() string {
	return c.userAgents[rand.IntN(len(c.userAgents))]
}

// sleep waits for d or until the context is cancelled.
func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
