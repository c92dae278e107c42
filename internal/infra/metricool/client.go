// Package metricool is the HTTP adapter for the Metricool REST API.
// Client performs exactly one authenticated call per request: no retries,
// no pooling across credentials, a fixed per-call timeout and an optional
// client-side rate limit shared by all tools.
//
// Every failure (transport, timeout, non-2xx, undecodable body) is reported
// as a *RequestError; callers that only care about success treat any non-nil
// error as an absent result.
package metricool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// AuthHeader carries the user token on every request.
	AuthHeader = "X-Mc-Auth"

	// DefaultTimeout bounds each call end to end, body read included.
	DefaultTimeout = 30 * time.Second

	mimeJSON          = "application/json"
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
)

// Credentials is the process-wide identity sent with every call.
// Token goes into AuthHeader, UserID into the userId query parameter.
type Credentials struct {
	Token  string
	UserID string
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client executes authenticated GET/POST calls against fully formed URLs.
type Client struct {
	creds      Credentials
	httpClient HTTPDoer
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.httpClient = doer
		}
	}
}

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit caps outbound calls at perMinute with the given burst.
// Zero or negative perMinute leaves the client unlimited.
func WithRateLimit(perMinute, burst int) Option {
	return func(c *Client) {
		if perMinute <= 0 {
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)
	}
}

// WithLogger sets the logger used for per-request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Client bound to creds with a 30s default timeout.
func NewClient(creds Credentials, opts ...Option) *Client {
	c := &Client{
		creds:      creds,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Credentials returns the identity this client authenticates with.
func (c *Client) Credentials() Credentials {
	return c.creds
}

// Get issues an authenticated GET and returns the raw JSON body.
func (c *Client) Get(ctx context.Context, url string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, url, nil)
}

// Post issues an authenticated POST with body serialized as JSON.
func (c *Client) Post(ctx context.Context, url string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &RequestError{Kind: FailureEncode, Method: http.MethodPost, URL: url, Err: err}
	}
	return c.do(ctx, http.MethodPost, url, payload)
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var body json.RawMessage
	err := c.wait(ctx, method, url)
	if err == nil {
		body, err = c.roundTrip(ctx, method, url, payload)
	}
	elapsed := time.Since(start)

	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			c.logger.Warn("metricool request failed",
				"method", method,
				"url", url,
				"kind", reqErr.Kind.String(),
				"status", reqErr.StatusCode,
				"elapsed", elapsed,
				"error", reqErr.Err,
			)
		}
		return nil, err
	}

	c.logger.Debug("metricool request ok", "method", method, "url", url, "bytes", len(body), "elapsed", elapsed)
	return body, nil
}

// wait blocks on the rate limiter inside the call's deadline. A wait the
// limiter knows would overrun the deadline counts as a timeout.
func (c *Client) wait(ctx context.Context, method, url string) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		kind := FailureTimeout
		if errors.Is(ctx.Err(), context.Canceled) {
			kind = FailureTransport
		}
		return &RequestError{Kind: kind, Method: method, URL: url, Err: fmt.Errorf("rate limit wait: %w", err)}
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, url string, payload []byte) (json.RawMessage, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &RequestError{Kind: FailureTransport, Method: method, URL: url, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set(AuthHeader, c.creds.Token)
	req.Header.Set(headerAccept, mimeJSON)
	if payload != nil {
		req.Header.Set(headerContentType, mimeJSON)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Kind: classify(err), Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Kind: classify(err), Method: method, URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{Kind: FailureStatus, Method: method, URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	trimmed := bytes.TrimSpace(raw)
	if !json.Valid(trimmed) {
		return nil, &RequestError{Kind: FailureDecode, Method: method, URL: url, StatusCode: resp.StatusCode, Err: errors.New("response body is not valid json")}
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, &RequestError{Kind: FailureDecode, Method: method, URL: url, StatusCode: resp.StatusCode, Err: errors.New("response body is null")}
	}
	return json.RawMessage(trimmed), nil
}

// classify separates deadline expiry from every other transport failure.
func classify(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureTransport
}
