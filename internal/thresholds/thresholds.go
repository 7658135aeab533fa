// Package thresholds resolves and evaluates pass/fail criteria for a test
// run. A Set maps metric keys (optionally carrying an endpoint tag, e.g.
// "http_req_duration{endpoint:login}") to condition expressions in the
// "p(95)<500" style.
//
// Resolution is pure: the same environment name always yields a
// structurally identical Set.
package thresholds

import (
	"os"
	"strconv"
)

// Well-known metric keys.
const (
	MetricReqDuration = "http_req_duration"
	MetricReqFailed   = "http_req_failed"
	MetricReqs        = "http_reqs"
)

// Set maps a metric key to its ordered condition expressions.
type Set map[string][]string

// Merge returns a new Set with override entries replacing base entries on
// key collision. Neither input is mutated.
func (s Set) Merge(override Set) Set {
	merged := make(Set, len(s)+len(override))
	for key, conditions := range s {
		merged[key] = append([]string(nil), conditions...)
	}
	for key, conditions := range override {
		merged[key] = append([]string(nil), conditions...)
	}
	return merged
}

// Clone returns a deep copy of the Set.
func (s Set) Clone() Set {
	return Set{}.Merge(s)
}

// Tiers holds the three SLA tiers plus the per-endpoint override table.
type Tiers struct {
	Default  Set
	Strict   Set
	Relaxed  Set
	Endpoint Set
}

// DefaultTiers returns the built-in tier tables, with percentile and rate
// ceilings optionally tuned through process environment variables:
//
//	HTTP_REQ_DURATION_P95, HTTP_REQ_DURATION_P99  (milliseconds)
//	HTTP_REQ_FAILED_RATE                          (fraction, e.g. 0.01)
//	HTTP_REQS_RATE                                (requests/second floor)
//
// The variables retune the default tier only; strict and relaxed keep
// their fixed multipliers of it.
func DefaultTiers(getenv func(string) string) Tiers {
	if getenv == nil {
		getenv = os.Getenv
	}

	p95 := floatVar(getenv, "HTTP_REQ_DURATION_P95", 500)
	p99 := floatVar(getenv, "HTTP_REQ_DURATION_P99", 1000)
	failedRate := floatVar(getenv, "HTTP_REQ_FAILED_RATE", 0.05)
	reqsRate := floatVar(getenv, "HTTP_REQS_RATE", 10)

	return Tiers{
		Default: Set{
			MetricReqDuration: {expr("p(95)<", p95), expr("p(99)<", p99)},
			MetricReqFailed:   {expr("rate<", failedRate)},
			MetricReqs:        {expr("rate>", reqsRate)},
		},
		Strict: Set{
			MetricReqDuration: {expr("p(95)<", p95*0.6), expr("p(99)<", p99*0.6)},
			MetricReqFailed:   {expr("rate<", failedRate/5)},
			MetricReqs:        {expr("rate>", reqsRate*5)},
		},
		Relaxed: Set{
			MetricReqDuration: {expr("p(95)<", p95*4), expr("p(99)<", p99*5)},
			MetricReqFailed:   {expr("rate<", failedRate*2)},
		},
		Endpoint: Set{
			MetricReqDuration + "{endpoint:login}":    {"p(95)<800"},
			MetricReqDuration + "{endpoint:search}":   {"p(95)<1200"},
			MetricReqDuration + "{endpoint:checkout}": {"p(95)<1000", "p(99)<2000"},
		},
	}
}

// ForEnvironment resolves the threshold Set for an environment name:
//
//	prod               strict tier merged with endpoint overrides
//	dev                relaxed tier only
//	anything else      default tier merged with endpoint overrides
//
// Unknown names deliberately take the default branch instead of erroring,
// matching the registry's permissive fallback. Callers that want strict
// validation must check the name against the registry first.
func (t Tiers) ForEnvironment(envName string) Set {
	switch envName {
	case "prod":
		return t.Strict.Merge(t.Endpoint)
	case "dev":
		return t.Relaxed.Clone()
	default:
		return t.Default.Merge(t.Endpoint)
	}
}

// ForEnvironment resolves thresholds using the built-in tiers without
// process-environment tuning.
func ForEnvironment(envName string) Set {
	return DefaultTiers(func(string) string { return "" }).ForEnvironment(envName)
}

func floatVar(getenv func(string) string, key string, fallback float64) float64 {
	v := getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}

// expr renders a condition like "p(95)<500" without a trailing ".0" for
// whole numbers.
func expr(prefix string, value float64) string {
	return prefix + strconv.FormatFloat(value, 'f', -1, 64)
}
