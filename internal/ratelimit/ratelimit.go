// Package ratelimit parses rate-limit response headers and applies a
// blocking backoff when the target says to slow down.
//
// Handle is synchronous: it pauses the calling virtual user's iteration
// and returns. The original request is never retried; the caller
// proceeds to its next iteration, accepting one wasted iteration per
// rate-limit hit.
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/volleyhq/volley/internal/httpx"
)

// defaultWait is used when the response carries neither a Retry-After
// header nor a usable reset timestamp.
const defaultWait = 60 * time.Second

// Info holds the rate-limit state parsed from one response. Reset is epoch
// seconds; RetryAfter is zero when the header was absent.
type Info struct {
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	Reset      int64         `json:"reset"`
	RetryAfter time.Duration `json:"retryAfter"`
}

// Extract parses rate-limit headers, accepting both the "X-RateLimit-*"
// and "X-Rate-Limit-*" naming variants. It returns ok=false when no limit
// header is present at all.
func Extract(resp *httpx.Response) (Info, bool) {
	limit, ok := intHeader(resp, "X-RateLimit-Limit", "X-Rate-Limit-Limit")
	if !ok {
		return Info{}, false
	}

	info := Info{Limit: limit}
	if remaining, ok := intHeader(resp, "X-RateLimit-Remaining", "X-Rate-Limit-Remaining"); ok {
		info.Remaining = remaining
	}
	if reset, ok := intHeader(resp, "X-RateLimit-Reset", "X-Rate-Limit-Reset"); ok {
		info.Reset = int64(reset)
	}
	if retryAfter, ok := intHeader(resp, "Retry-After"); ok && retryAfter > 0 {
		info.RetryAfter = time.Duration(retryAfter) * time.Second
	}

	return info, true
}

// IsLimited reports whether the response indicates a rate limit: a 429
// status, or parsed headers with zero remaining calls.
func IsLimited(resp *httpx.Response) bool {
	if resp.StatusCode == 429 {
		return true
	}
	info, ok := Extract(resp)
	return ok && info.Remaining <= 0
}

// Handler computes and applies backoff waits. The clock and sleep are
// injectable so tests never actually block.
type Handler struct {
	now   func() time.Time
	sleep func(context.Context, time.Duration)
}

// Option configures a Handler.
type Option func(*Handler)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

// WithSleep replaces the blocking sleep.
func WithSleep(sleep func(context.Context, time.Duration)) Option {
	return func(h *Handler) {
		h.sleep = sleep
	}
}

// NewHandler creates a Handler with a real clock and context-aware sleep.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		now: time.Now,
		sleep: func(ctx context.Context, d time.Duration) {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// WaitDuration computes how long to pause for a rate-limited response:
// the Retry-After value when present, otherwise the time until the reset
// timestamp plus a one second buffer, otherwise a fixed 60 seconds.
func (h *Handler) WaitDuration(info Info) time.Duration {
	if info.RetryAfter > 0 {
		return info.RetryAfter
	}
	if info.Reset > 0 {
		secs := info.Reset - h.now().Unix() + 1
		if secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultWait
}

// Handle blocks for the computed wait when the response is rate-limited
// and reports whether it waited. Non-limited responses return immediately.
func (h *Handler) Handle(ctx context.Context, resp *httpx.Response) bool {
	if !IsLimited(resp) {
		return false
	}
	info, ok := Extract(resp)
	if !ok {
		// A 429 without quota headers may still carry Retry-After.
		if retryAfter, found := intHeader(resp, "Retry-After"); found && retryAfter > 0 {
			info.RetryAfter = time.Duration(retryAfter) * time.Second
		}
	}
	h.sleep(ctx, h.WaitDuration(info))
	return true
}

// intHeader returns the first of the named headers that parses as an
// integer. Header lookup is case-insensitive per net/http.
func intHeader(resp *httpx.Response, names ...string) (int, bool) {
	for _, name := range names {
		if v := resp.GetHeader(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}
