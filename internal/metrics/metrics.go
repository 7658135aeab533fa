// Package metrics provides the fixed set of named counters, trends, rates,
// and gauges recorded during a test run.
//
// Instruments are append-only sinks: helpers record observations after
// each call and aggregation happens only when a Snapshot is taken. There
// is no query interface beyond the snapshot.
//
// # Thread Safety
//
// Registry is safe for concurrent use. Counters and gauges use atomic
// operations; HDR histograms are mutex protected because RecordValue is
// not itself thread-safe.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Counter names.
const (
	CounterCallsTotal   = "api_calls_total"
	CounterCallsSuccess = "api_calls_success"
	CounterCallsFailed  = "api_calls_failed"

	CounterCreates   = "items_created"
	CounterUpdates   = "items_updated"
	CounterDeletes   = "items_deleted"
	CounterRetrieves = "items_retrieved"

	CounterLoginAttempts  = "login_attempts"
	CounterLoginSuccesses = "login_successes"
	CounterLoginFailures  = "login_failures"

	CounterValidationErrors = "validation_errors"
	CounterServerErrors     = "server_errors"
	CounterTimeoutErrors    = "timeout_errors"
)

// Trend names (timing distributions).
const (
	TrendLogin    = "login_duration"
	TrendCreate   = "create_duration"
	TrendUpdate   = "update_duration"
	TrendDelete   = "delete_duration"
	TrendList     = "list_duration"
	TrendSearch   = "search_duration"
	TrendCheckout = "checkout_duration"
	TrendTTFB     = "time_to_first_byte"
)

// Gauge names.
const (
	GaugeActiveUsers     = "active_users"
	GaugeCartItems       = "items_in_cart"
	GaugeAvgResponseSize = "avg_response_size"
)

// Histogram range: 1 microsecond to 1 hour, 3 significant figures.
const (
	histMin     = 1
	histMax     = 3600000000
	histSigFigs = 3
)

// Registry collects all instruments for one test run. Create one with
// NewRegistry and share it across virtual users.
type Registry struct {
	counters sync.Map // string -> *atomic.Int64
	gauges   sync.Map // string -> *atomic.Int64

	histMu    sync.Mutex
	overall   *hdrhistogram.Histogram            // all request durations
	trends    map[string]*hdrhistogram.Histogram // named operation timings
	endpoints map[string]*hdrhistogram.Histogram // per-endpoint durations

	checkMu sync.Mutex
	checks  map[string]*checkCounts

	totalBytes atomic.Int64
	startTime  time.Time
}

type checkCounts struct {
	passes int64
	fails  int64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		overall:   hdrhistogram.New(histMin, histMax, histSigFigs),
		trends:    make(map[string]*hdrhistogram.Histogram),
		endpoints: make(map[string]*hdrhistogram.Histogram),
		checks:    make(map[string]*checkCounts),
		startTime: time.Now(),
	}
}

// Add increments a named counter by delta.
func (r *Registry) Add(counter string, delta int64) {
	v, _ := r.counters.LoadOrStore(counter, new(atomic.Int64))
	v.(*atomic.Int64).Add(delta)
}

// Incr increments a named counter by one.
func (r *Registry) Incr(counter string) {
	r.Add(counter, 1)
}

// SetGauge sets a named gauge to value.
func (r *Registry) SetGauge(gauge string, value int64) {
	v, _ := r.gauges.LoadOrStore(gauge, new(atomic.Int64))
	v.(*atomic.Int64).Store(value)
}

// RecordTrend records a duration observation under a named trend.
func (r *Registry) RecordTrend(trend string, d time.Duration) {
	r.histMu.Lock()
	defer r.histMu.Unlock()

	hist, ok := r.trends[trend]
	if !ok {
		hist = hdrhistogram.New(histMin, histMax, histSigFigs)
		r.trends[trend] = hist
	}
	hist.RecordValue(clampMicros(d))
}

// RecordCall records one HTTP call outcome: the shared duration histogram,
// the per-endpoint histogram, the total/success/failed counters, and the
// byte count feeding the average-response-size gauge.
func (r *Registry) RecordCall(endpoint string, d time.Duration, success bool, bytes int64) {
	micros := clampMicros(d)

	r.histMu.Lock()
	r.overall.RecordValue(micros)
	if endpoint != "" {
		hist, ok := r.endpoints[endpoint]
		if !ok {
			hist = hdrhistogram.New(histMin, histMax, histSigFigs)
			r.endpoints[endpoint] = hist
		}
		hist.RecordValue(micros)
	}
	r.histMu.Unlock()

	r.Incr(CounterCallsTotal)
	if success {
		r.Incr(CounterCallsSuccess)
	} else {
		r.Incr(CounterCallsFailed)
	}

	r.totalBytes.Add(bytes)
	if total := r.counter(CounterCallsTotal); total > 0 {
		r.SetGauge(GaugeAvgResponseSize, r.totalBytes.Load()/total)
	}
}

// RecordCheck records one pass/fail outcome under a check label.
func (r *Registry) RecordCheck(label string, passed bool) {
	r.checkMu.Lock()
	defer r.checkMu.Unlock()

	counts, ok := r.checks[label]
	if !ok {
		counts = &checkCounts{}
		r.checks[label] = counts
	}
	if passed {
		counts.passes++
	} else {
		counts.fails++
	}
}

// RecordLogin records a login attempt outcome and its duration.
func (r *Registry) RecordLogin(success bool, d time.Duration) {
	r.Incr(CounterLoginAttempts)
	if success {
		r.Incr(CounterLoginSuccesses)
	} else {
		r.Incr(CounterLoginFailures)
	}
	r.RecordTrend(TrendLogin, d)
}

// RecordError classifies a failed call into the error counters by status:
// 4xx excluding 429 → validation, 5xx → server, timeouts are recorded by
// the caller with status 0.
func (r *Registry) RecordError(status int) {
	switch {
	case status == 0:
		r.Incr(CounterTimeoutErrors)
	case status >= 500:
		r.Incr(CounterServerErrors)
	case status >= 400 && status != 429:
		r.Incr(CounterValidationErrors)
	}
}

func (r *Registry) counter(name string) int64 {
	if v, ok := r.counters.Load(name); ok {
		return v.(*atomic.Int64).Load()
	}
	return 0
}

func clampMicros(d time.Duration) int64 {
	micros := d.Microseconds()
	if micros < histMin {
		return histMin
	}
	if micros > histMax {
		return histMax
	}
	return micros
}
