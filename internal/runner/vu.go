// Package runner drives load scenarios: it ramps virtual users across
// staged targets, runs each user's iteration loop, and coordinates
// setup, teardown, and graceful shutdown.
package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/volleyhq/volley/internal/httpx"
	"github.com/volleyhq/volley/internal/metrics"
	"github.com/volleyhq/volley/internal/ratelimit"
)

// State is the lifecycle state of a virtual user.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// IterationFunc is one pass of a scenario, executed repeatedly by each
// virtual user. Returning an error records it but does not stop the VU;
// only context cancellation or a stop request ends the loop.
type IterationFunc func(ctx context.Context, vu *VU) error

// VU is a single simulated user. Each VU tracks its own start time,
// iteration count, and error count, and carries a per-user variable
// scope for values extracted during iterations.
type VU struct {
	ID      int
	Client  httpx.Doer
	Metrics *metrics.Registry
	Limiter *ratelimit.Handler

	state      atomic.Int32
	stopCh     chan struct{}
	doneCh     chan struct{}
	iterations atomic.Int64
	errors     atomic.Int64
	startTime  time.Time

	data   map[string]any
	dataMu sync.RWMutex

	thinkTime time.Duration
}

// NewVU creates a virtual user bound to the shared client, metrics
// registry, and rate-limit handler.
func NewVU(id int, client httpx.Doer, reg *metrics.Registry, limiter *ratelimit.Handler, thinkTime time.Duration) *VU {
	return &VU{
		ID:        id,
		Client:    client,
		Metrics:   reg,
		Limiter:   limiter,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		startTime: time.Now(),
		data:      make(map[string]any),
		thinkTime: thinkTime,
	}
}

// GetState returns the current lifecycle state.
func (vu *VU) GetState() State {
	return State(vu.state.Load())
}

// Iterations returns the number of completed iterations.
func (vu *VU) Iterations() int64 {
	return vu.iterations.Load()
}

// Errors returns the number of iterations that returned an error.
func (vu *VU) Errors() int64 {
	return vu.errors.Load()
}

// StartTime returns when the VU was created.
func (vu *VU) StartTime() time.Time {
	return vu.startTime
}

// RunIteration executes one pass of fn and applies think time afterwards.
func (vu *VU) RunIteration(ctx context.Context, fn IterationFunc) error {
	current := vu.GetState()
	if current == StateStopping || current == StateStopped {
		return fmt.Errorf("vu %d is %s", vu.ID, current)
	}

	vu.state.Store(int32(StateRunning))
	vu.iterations.Add(1)

	if err := fn(ctx, vu); err != nil {
		vu.errors.Add(1)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if vu.thinkTime > 0 {
		vu.pause(ctx, vu.thinkTime)
	}

	vu.state.Store(int32(StateIdle))
	return nil
}

// Do executes the request through the shared client and folds the result
// into the metrics registry: overall and per-endpoint latency, success
// and failure counters, and error classification. When the response is
// rate limited the handler waits out the advertised window before
// returning; the request is not retried.
func (vu *VU) Do(ctx context.Context, req *httpx.Request) (*httpx.Response, error) {
	resp, err := vu.Client.Do(ctx, req)
	if err != nil {
		vu.Metrics.RecordCall(req.Endpoint(), 0, false, 0)
		vu.Metrics.RecordError(0)
		return nil, err
	}

	success := resp.IsSuccess()
	vu.Metrics.RecordCall(req.Endpoint(), resp.Duration, success, int64(len(resp.Body)))
	if !success {
		vu.Metrics.RecordError(resp.StatusCode)
	}

	if vu.Limiter != nil {
		vu.Limiter.Handle(ctx, resp)
	}

	return resp, nil
}

// SetData stores a value in the VU's variable scope.
func (vu *VU) SetData(key string, value any) {
	vu.dataMu.Lock()
	defer vu.dataMu.Unlock()
	vu.data[key] = value
}

// GetData retrieves a value from the VU's variable scope.
func (vu *VU) GetData(key string) (any, bool) {
	vu.dataMu.RLock()
	defer vu.dataMu.RUnlock()
	val, ok := vu.data[key]
	return val, ok
}

// RequestStop signals the VU to stop after its current iteration.
func (vu *VU) RequestStop() {
	current := State(vu.state.Load())
	if current == StateStopped {
		return
	}
	if vu.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) ||
		vu.state.CompareAndSwap(int32(StateIdle), int32(StateStopping)) {
		close(vu.stopCh)
	}
}

// WaitForStop blocks until the VU fully stops or the timeout expires.
func (vu *VU) WaitForStop(timeout time.Duration) bool {
	select {
	case <-vu.doneCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

// MarkStopped records that the VU's goroutine has exited.
func (vu *VU) MarkStopped() {
	vu.state.Store(int32(StateStopped))
	select {
	case <-vu.doneCh:
	default:
		close(vu.doneCh)
	}
}

func (vu *VU) pause(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-vu.stopCh:
	case <-time.After(d):
	}
}
