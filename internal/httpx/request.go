package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request describes one outbound call before it is bound to a base URL.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	Tags    map[string]string
	Body    any
}

// RequestOption configures a Request at construction time.
type RequestOption func(*Request)

// NewRequest creates a request for method and path. The tag map always
// carries an "endpoint" key; when the caller does not supply one it
// defaults to the lowercased verb name.
func NewRequest(method, path string, opts ...RequestOption) *Request {
	req := &Request{
		Method:  method,
		Path:    path,
		Query:   make(url.Values),
		Headers: make(map[string]string),
		Tags:    map[string]string{"endpoint": strings.ToLower(method)},
	}
	for _, opt := range opts {
		opt(req)
	}
	return req
}

// WithEndpoint sets the endpoint tag used for per-endpoint metrics and
// threshold filtering.
func WithEndpoint(name string) RequestOption {
	return func(r *Request) {
		r.Tags["endpoint"] = name
	}
}

// WithHeader adds a caller header; caller headers win over the client's
// defaults on key collision.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		r.Headers[key] = value
	}
}

// WithHeaders adds multiple caller headers.
func WithHeaders(headers map[string]string) RequestOption {
	return func(r *Request) {
		for key, value := range headers {
			r.Headers[key] = value
		}
	}
}

// WithQuery adds a query parameter.
func WithQuery(key, value string) RequestOption {
	return func(r *Request) {
		r.Query.Add(key, value)
	}
}

// WithTag adds a metric tag.
func WithTag(key, value string) RequestOption {
	return func(r *Request) {
		r.Tags[key] = value
	}
}

// WithBody sets the request body. Strings and byte slices pass through
// unmodified; anything else is JSON-encoded.
func (r *Request) WithBody(body any) *Request {
	r.Body = body
	return r
}

// Endpoint returns the request's endpoint tag.
func (r *Request) Endpoint() string {
	return r.Tags["endpoint"]
}

// build binds the request to a base URL and default headers, producing the
// net/http request. Default headers apply first; caller headers override.
func (r *Request) build(ctx context.Context, baseURL string, defaults map[string]string) (*http.Request, error) {
	fullURL := JoinURL(baseURL, r.Path)
	if len(r.Query) > 0 {
		fullURL += "?" + r.Query.Encode()
	}

	var bodyReader io.Reader
	if r.Body != nil {
		switch body := r.Body.(type) {
		case string:
			bodyReader = strings.NewReader(body)
		case []byte:
			bodyReader = bytes.NewReader(body)
		case io.Reader:
			bodyReader = body
		default:
			encoded, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			bodyReader = bytes.NewReader(encoded)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.Method, fullURL, bodyReader)
	if err != nil {
		return nil, err
	}

	for key, value := range defaults {
		httpReq.Header.Set(key, value)
	}
	for key, value := range r.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}
