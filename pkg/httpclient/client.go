// Package httpclient provides the retrying HTTP transport used by every
// source adapter: a fixed retry budget of three attempts with exponential
// backoff between 1s and 10s, a custom User-Agent and Accept-Language, and
// a 30-second per-request timeout.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// Client wraps http.Client with the adapter layer's retry policy.
type Client struct {
	http       *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }
func WithMaxRetries(n int) Option          { return func(c *Client) { c.maxRetries = n } }
func WithUserAgent(ua string) Option       { return func(c *Client) { c.userAgent = ua } }

// New builds a Client with the adapter layer's default policy: 3 attempts
// total (2 retries), 1s base / 10s max backoff, 30s request timeout.
func New(opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: 30 * time.Second},
		maxRetries: 2,
		baseDelay:  time.Second,
		maxDelay:   10 * time.Second,
		userAgent:  "newsspark-research-bot/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusRequestTimeout,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Get issues a GET request through the retry policy, setting the adapter
// layer's default headers. acceptLanguage may be empty.
func (c *Client) Get(ctx context.Context, url, acceptLanguage string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if acceptLanguage != "" {
		req.Header.Set("Accept-Language", acceptLanguage)
	}
	return c.Do(req)
}

// Do executes req, retrying on transport errors and retryable status codes
// up to maxRetries additional times with exponential backoff plus jitter.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("httpclient: read request body: %w", err)
		}
		req.Body.Close()
	}

	var lastErr error
	var lastResp *http.Response

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		resp, err := c.http.Do(req)
		if err == nil && !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = &RetryableError{StatusCode: resp.StatusCode, Message: "retryable status code"}
			resp.Body.Close()
		}
		lastResp = resp

		if attempt >= c.maxRetries {
			break
		}

		delay := c.backoff(attempt)
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(delay):
		}
	}

	return lastResp, fmt.Errorf("httpclient: request to %s failed after %d attempts: %w", req.URL, c.maxRetries+1, lastErr)
}

func (c *Client) backoff(attempt int) time.Duration {
	d := time.Duration(float64(c.baseDelay) * math.Pow(2, float64(attempt)))
	if d > c.maxDelay {
		d = c.maxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 4 + 1))
	return d + jitter
}

// RetryableError indicates a response whose status code signals a
// transient upstream condition.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}
