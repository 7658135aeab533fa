package httpx

import (
	"encoding/json"
	"net/http"
	"time"
)

// Response is a fully buffered HTTP response with timing information.
type Response struct {
	StatusCode      int
	Status          string
	Headers         http.Header
	Body            []byte
	Duration        time.Duration
	TimeToFirstByte time.Duration
	Tags            map[string]string
}

// GetHeader returns the value of the named header.
func (r *Response) GetHeader(key string) string {
	return r.Headers.Get(key)
}

// BodyString returns the body as a string.
func (r *Response) BodyString() string {
	return string(r.Body)
}

// JSON unmarshals the body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Endpoint returns the response's endpoint tag.
func (r *Response) Endpoint() string {
	if r.Tags == nil {
		return ""
	}
	return r.Tags["endpoint"]
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsClientError reports a 4xx status.
func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// IsServerError reports a 5xx status.
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}
