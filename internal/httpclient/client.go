// Package httpclient provides the HTTP client used by URL-backed sources
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize is the maximum allowed response size (100MB)
	MaxResponseSize = 100 * 1024 * 1024

	// DefaultMaxTries is the number of attempts for transient failures
	DefaultMaxTries = 3

	// UserAgent is the user agent string for HTTP requests
	UserAgent = "omnifield-ingest/1.0"
)

// Validators identify a representation seen earlier. Empty fields are not
// sent.
type Validators struct {
	ETag         string
	LastModified string
}

// IsZero reports whether no validator is set
func (v Validators) IsZero() bool {
	return v.ETag == "" && v.LastModified == ""
}

// Response is the outcome of a conditional download. When NotModified is
// set, Body is empty and the caller's copy is still current.
type Response struct {
	Body        []byte
	Validators  Validators
	NotModified bool
}

// Client downloads table resources
type Client interface {
	// Get performs an HTTP GET request and returns the response body
	Get(ctx context.Context, url string) ([]byte, error)

	// GetIfChanged sends prev as If-None-Match / If-Modified-Since and
	// reports a 304 as NotModified
	GetIfChanged(ctx context.Context, url string, prev Validators) (*Response, error)
}

// DefaultClient is the default HTTP client implementation
type DefaultClient struct {
	client   *http.Client
	timeout  time.Duration
	maxTries uint
	backOff  func() backoff.BackOff
}

// ClientOption configures a DefaultClient
type ClientOption func(*DefaultClient)

// WithMaxTries sets the number of attempts for retryable responses
func WithMaxTries(n uint) ClientOption {
	return func(c *DefaultClient) {
		if n > 0 {
			c.maxTries = n
		}
	}
}

// WithBackOff sets the retry delay policy. Each Get call gets a fresh instance.
func WithBackOff(newBackOff func() backoff.BackOff) ClientOption {
	return func(c *DefaultClient) {
		c.backOff = newBackOff
	}
}

// NewDefaultClient creates a new default HTTP client with the specified timeout
// If timeout is 0, uses DefaultTimeout
func NewDefaultClient(timeout time.Duration, opts ...ClientOption) Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	c := &DefaultClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout:  timeout,
		maxTries: DefaultMaxTries,
		backOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs an HTTP GET request, retrying 429 and 5xx responses
func (c *DefaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.GetIfChanged(ctx, url, Validators{})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// GetIfChanged performs a conditional GET with the same retry policy as Get
func (c *DefaultClient) GetIfChanged(ctx context.Context, url string, prev Validators) (*Response, error) {
	return backoff.Retry(ctx, func() (*Response, error) {
		resp, err := c.do(ctx, url, prev)
		if err == nil {
			return resp, nil
		}
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.Retryable() {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	},
		backoff.WithBackOff(c.backOff()),
		backoff.WithMaxTries(c.maxTries),
	)
}

func (c *DefaultClient) do(ctx context.Context, url string, prev Validators) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/csv, application/vnd.apache.parquet, application/octet-stream, */*")
	if prev.ETag != "" {
		req.Header.Set("If-None-Match", prev.ETag)
	}
	if prev.LastModified != "" {
		req.Header.Set("If-Modified-Since", prev.LastModified)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	current := Validators{
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}

	switch {
	case resp.StatusCode == http.StatusNotModified && !prev.IsZero():
		if current.IsZero() {
			current = prev
		}
		return &Response{Validators: current, NotModified: true}, nil
	case resp.StatusCode != http.StatusOK:
		return nil, NewHTTPError(resp.StatusCode, url, resp.Status)
	}

	body, err := readLimited(resp)
	if err != nil {
		return nil, err
	}
	return &Response{Body: body, Validators: current}, nil
}

func readLimited(resp *http.Response) ([]byte, error) {
	const mb = 1024 * 1024
	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes (%.2f MB)",
			resp.ContentLength, MaxResponseSize, float64(MaxResponseSize)/mb)
	}

	// one extra byte tells an exact fit from an overflow
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response size exceeds maximum allowed size of %d bytes (%.2f MB)",
			MaxResponseSize, float64(MaxResponseSize)/mb)
	}
	return body, nil
}
