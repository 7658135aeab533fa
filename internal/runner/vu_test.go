package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/volleyhq/volley/internal/httpx"
	"github.com/volleyhq/volley/internal/metrics"
	"github.com/volleyhq/volley/internal/ratelimit"
)

type fakeDoer struct {
	resp  *httpx.Response
	err   error
	calls atomic.Int64
}

func (f *fakeDoer) Do(ctx context.Context, req *httpx.Request) (*httpx.Response, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	resp := *f.resp
	resp.Tags = map[string]string{"endpoint": req.Endpoint()}
	return &resp, nil
}

func TestVULifecycle(t *testing.T) {
	vu := NewVU(1, &fakeDoer{resp: &httpx.Response{StatusCode: 200}}, metrics.NewRegistry(), nil, 0)

	if got := vu.GetState(); got != StateIdle {
		t.Errorf("initial state = %s, want idle", got)
	}

	err := vu.RunIteration(context.Background(), func(ctx context.Context, vu *VU) error {
		return nil
	})
	if err != nil {
		t.Fatalf("RunIteration: %v", err)
	}
	if vu.Iterations() != 1 {
		t.Errorf("iterations = %d, want 1", vu.Iterations())
	}

	vu.RequestStop()
	if got := vu.GetState(); got != StateStopping {
		t.Errorf("state after stop request = %s, want stopping", got)
	}

	if err := vu.RunIteration(context.Background(), nil); err == nil {
		t.Error("expected error running iteration on stopping VU")
	}

	vu.MarkStopped()
	if !vu.WaitForStop(time.Second) {
		t.Error("WaitForStop timed out on stopped VU")
	}
}

func TestVUIterationErrorCounted(t *testing.T) {
	vu := NewVU(1, &fakeDoer{resp: &httpx.Response{StatusCode: 200}}, metrics.NewRegistry(), nil, 0)

	err := vu.RunIteration(context.Background(), func(ctx context.Context, vu *VU) error {
		return errors.New("boom")
	})
	if err != nil {
		t.Fatalf("iteration error should not propagate: %v", err)
	}
	if vu.Errors() != 1 {
		t.Errorf("errors = %d, want 1", vu.Errors())
	}
}

func TestVUDoRecordsSuccessExactlyOnce(t *testing.T) {
	reg := metrics.NewRegistry()
	doer := &fakeDoer{resp: &httpx.Response{
		StatusCode: 200,
		Body:       []byte(`{"ok":true}`),
		Duration:   20 * time.Millisecond,
	}}
	vu := NewVU(1, doer, reg, nil, 0)

	if _, err := vu.Do(context.Background(), httpx.NewRequest("GET", "/items", httpx.WithEndpoint("list"))); err != nil {
		t.Fatalf("Do: %v", err)
	}

	snap := reg.Snapshot()
	if snap.Counters[metrics.CounterCallsSuccess] != 1 {
		t.Errorf("success counter = %d, want exactly 1", snap.Counters[metrics.CounterCallsSuccess])
	}
	if snap.Counters[metrics.CounterCallsFailed] != 0 {
		t.Errorf("failed counter = %d, want 0", snap.Counters[metrics.CounterCallsFailed])
	}
	if snap.Endpoints["list"].Count != 1 {
		t.Errorf("endpoint sample count = %d, want 1", snap.Endpoints["list"].Count)
	}
}

func TestVUDoRecordsFailureAndClassifiesError(t *testing.T) {
	reg := metrics.NewRegistry()
	doer := &fakeDoer{resp: &httpx.Response{StatusCode: 503, Duration: time.Millisecond}}
	vu := NewVU(1, doer, reg, nil, 0)

	if _, err := vu.Do(context.Background(), httpx.NewRequest("GET", "/items")); err != nil {
		t.Fatalf("Do: %v", err)
	}

	snap := reg.Snapshot()
	if snap.Counters[metrics.CounterCallsFailed] != 1 {
		t.Errorf("failed counter = %d, want 1", snap.Counters[metrics.CounterCallsFailed])
	}
	if snap.Counters[metrics.CounterServerErrors] != 1 {
		t.Errorf("server error counter = %d, want 1", snap.Counters[metrics.CounterServerErrors])
	}
}

func TestVUDoTransportErrorCountsAsTimeout(t *testing.T) {
	reg := metrics.NewRegistry()
	doer := &fakeDoer{err: errors.New("connection refused")}
	vu := NewVU(1, doer, reg, nil, 0)

	if _, err := vu.Do(context.Background(), httpx.NewRequest("GET", "/items")); err == nil {
		t.Fatal("expected transport error")
	}

	snap := reg.Snapshot()
	if snap.Counters[metrics.CounterTimeoutErrors] != 1 {
		t.Errorf("timeout error counter = %d, want 1", snap.Counters[metrics.CounterTimeoutErrors])
	}
}

func TestVUDoWaitsOutRateLimit(t *testing.T) {
	var slept time.Duration
	limiter := ratelimit.NewHandler(
		ratelimit.WithSleep(func(ctx context.Context, d time.Duration) { slept = d }),
	)

	resp := &httpx.Response{
		StatusCode: 429,
		Headers:    map[string][]string{"Retry-After": {"5"}},
		Duration:   time.Millisecond,
	}
	doer := &fakeDoer{resp: resp}
	vu := NewVU(1, doer, metrics.NewRegistry(), limiter, 0)

	if _, err := vu.Do(context.Background(), httpx.NewRequest("GET", "/items")); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if slept != 5*time.Second {
		t.Errorf("slept %s, want 5s", slept)
	}
	if doer.calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry after rate limit)", doer.calls.Load())
	}
}
