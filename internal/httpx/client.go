// Package httpx wraps outbound HTTP requests with base-URL resolution,
// default headers, endpoint tagging, and response timing capture.
//
// The layer deliberately has no retry logic: failed or error-status
// responses are returned as-is for the caller (checks, metrics, rate-limit
// handler) to inspect.
package httpx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"
)

// Doer is the single capability the rest of the toolkit depends on:
// perform one HTTP call and return the buffered, timed response. Checks,
// metrics, and rate-limit handling are tested against fake Doers.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Client issues requests against one base URL with shared default headers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	headers    map[string]string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client for the given base URL.
func NewClient(baseURL string, options ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		headers:    make(map[string]string),
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithAPIKey sets the X-API-Key default header.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithDefaultHeader adds a default header sent on every request.
func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithHTTPClient replaces the underlying http.Client, mostly for tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// BaseURL returns the client's base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// JoinURL joins a base URL and an endpoint path: the trailing slash on the
// base is stripped and a leading slash on the path is enforced, so
// "status" and "/status" build the same URL and a double slash never
// appears.
func JoinURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// Do executes the request and returns the buffered response with timing.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := req.build(ctx, c.baseURL, c.defaultHeaders())
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var firstByte time.Duration

	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() {
			firstByte = time.Since(start)
		},
	}
	httpReq = httpReq.WithContext(httptrace.WithClientTrace(httpReq.Context(), trace))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	duration := time.Since(start)

	return &Response{
		StatusCode:      httpResp.StatusCode,
		Status:          httpResp.Status,
		Headers:         httpResp.Header,
		Body:            body,
		Duration:        duration,
		TimeToFirstByte: firstByte,
		Tags:            req.Tags,
	}, nil
}

// defaultHeaders returns the headers applied before caller headers: JSON
// content negotiation plus the API key when configured.
func (c *Client) defaultHeaders() map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
	if c.apiKey != "" {
		headers["X-API-Key"] = c.apiKey
	}
	for key, value := range c.headers {
		headers[key] = value
	}
	return headers
}

// Get issues a GET request to path.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, NewRequest(http.MethodGet, path, opts...))
}

// Post issues a POST request with a JSON-encoded body.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, NewRequest(http.MethodPost, path, opts...).WithBody(body))
}

// Put issues a PUT request with a JSON-encoded body.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, NewRequest(http.MethodPut, path, opts...).WithBody(body))
}

// Patch issues a PATCH request with a JSON-encoded body.
func (c *Client) Patch(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, NewRequest(http.MethodPatch, path, opts...).WithBody(body))
}

// Delete issues a DELETE request to path.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, NewRequest(http.MethodDelete, path, opts...))
}

var _ Doer = (*Client)(nil)
