package metrics

import (
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// LatencyStats summarizes one duration distribution.
type LatencyStats struct {
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
	StdDev time.Duration `json:"stdDev"`
	P50    time.Duration `json:"p50"`
	P90    time.Duration `json:"p90"`
	P95    time.Duration `json:"p95"`
	P99    time.Duration `json:"p99"`
	Count  int64         `json:"count"`
}

// Percentile returns the latency at quantile q (e.g. 95 for p95).
func (s LatencyStats) Percentile(q float64) time.Duration {
	switch q {
	case 50:
		return s.P50
	case 90:
		return s.P90
	case 95:
		return s.P95
	case 99:
		return s.P99
	default:
		return 0
	}
}

// CheckStats summarizes one check label's outcomes.
type CheckStats struct {
	Passes int64 `json:"passes"`
	Fails  int64 `json:"fails"`
}

// PassRate returns the fraction of passing evaluations, 1.0 when the
// check never ran.
func (c CheckStats) PassRate() float64 {
	total := c.Passes + c.Fails
	if total == 0 {
		return 1.0
	}
	return float64(c.Passes) / float64(total)
}

// Snapshot is a point-in-time aggregate of every instrument. Percentile
// computation happens here, not on the hot path.
type Snapshot struct {
	TotalRequests   int64 `json:"totalRequests"`
	SuccessRequests int64 `json:"successRequests"`
	FailedRequests  int64 `json:"failedRequests"`
	TotalBytes      int64 `json:"totalBytes"`

	SuccessRate float64 `json:"successRate"`
	ErrorRate   float64 `json:"errorRate"`
	RPS         float64 `json:"rps"`

	Latency   LatencyStats            `json:"latency"`
	Endpoints map[string]LatencyStats `json:"endpoints,omitempty"`
	Trends    map[string]LatencyStats `json:"trends,omitempty"`

	Counters map[string]int64      `json:"counters,omitempty"`
	Gauges   map[string]int64      `json:"gauges,omitempty"`
	Checks   map[string]CheckStats `json:"checks,omitempty"`

	Elapsed   time.Duration `json:"elapsed"`
	StartTime time.Time     `json:"startTime"`
	Timestamp time.Time     `json:"timestamp"`
}

// Snapshot aggregates the registry's current state.
func (r *Registry) Snapshot() *Snapshot {
	elapsed := time.Since(r.startTime)

	snap := &Snapshot{
		TotalRequests:   r.counter(CounterCallsTotal),
		SuccessRequests: r.counter(CounterCallsSuccess),
		FailedRequests:  r.counter(CounterCallsFailed),
		TotalBytes:      r.totalBytes.Load(),
		Endpoints:       make(map[string]LatencyStats),
		Trends:          make(map[string]LatencyStats),
		Counters:        make(map[string]int64),
		Gauges:          make(map[string]int64),
		Checks:          make(map[string]CheckStats),
		Elapsed:         elapsed,
		StartTime:       r.startTime,
		Timestamp:       time.Now(),
	}

	if snap.TotalRequests > 0 {
		snap.ErrorRate = float64(snap.FailedRequests) / float64(snap.TotalRequests)
		snap.SuccessRate = float64(snap.SuccessRequests) / float64(snap.TotalRequests)
	}
	if elapsed.Seconds() > 0 {
		snap.RPS = float64(snap.TotalRequests) / elapsed.Seconds()
	}

	r.histMu.Lock()
	snap.Latency = statsFromHist(r.overall)
	for endpoint, hist := range r.endpoints {
		snap.Endpoints[endpoint] = statsFromHist(hist)
	}
	for trend, hist := range r.trends {
		snap.Trends[trend] = statsFromHist(hist)
	}
	r.histMu.Unlock()

	r.counters.Range(func(key, value any) bool {
		snap.Counters[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})
	r.gauges.Range(func(key, value any) bool {
		snap.Gauges[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})

	r.checkMu.Lock()
	for label, counts := range r.checks {
		snap.Checks[label] = CheckStats{Passes: counts.passes, Fails: counts.fails}
	}
	r.checkMu.Unlock()

	return snap
}

func statsFromHist(hist *hdrhistogram.Histogram) LatencyStats {
	return LatencyStats{
		Min:    time.Duration(hist.Min()) * time.Microsecond,
		Max:    time.Duration(hist.Max()) * time.Microsecond,
		Mean:   time.Duration(hist.Mean()) * time.Microsecond,
		StdDev: time.Duration(hist.StdDev()) * time.Microsecond,
		P50:    time.Duration(hist.ValueAtQuantile(50)) * time.Microsecond,
		P90:    time.Duration(hist.ValueAtQuantile(90)) * time.Microsecond,
		P95:    time.Duration(hist.ValueAtQuantile(95)) * time.Microsecond,
		P99:    time.Duration(hist.ValueAtQuantile(99)) * time.Microsecond,
		Count:  hist.TotalCount(),
	}
}
