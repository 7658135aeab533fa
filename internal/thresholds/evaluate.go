package thresholds

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/volleyhq/volley/internal/metrics"
)

// Result is the outcome of evaluating one condition expression.
type Result struct {
	Key        string `json:"key"`
	Expression string `json:"expression"`
	Passed     bool   `json:"passed"`
	Value      string `json:"value"`
	Message    string `json:"message,omitempty"`
}

// exprRe parses conditions like "p(95)<500", "rate<0.01", "count>1000".
var exprRe = regexp.MustCompile(`^(\w+)(?:\((\d+)\))?\s*(<=|>=|==|!=|<|>)\s*(.+)$`)

// keyRe parses metric keys like "http_req_duration{endpoint:login}".
var keyRe = regexp.MustCompile(`^([\w]+)(?:\{endpoint:([^}]+)\})?$`)

// Evaluate checks every condition in the Set against the snapshot and
// returns the per-expression results plus the aggregate verdict.
//
// Malformed expressions and unknown metric keys produce a failed Result
// carrying a message; they never panic or abort evaluation. A duration
// condition over an endpoint with no recorded samples passes vacuously.
// Results are ordered by key, then expression, so repeated evaluation of
// the same inputs is deterministic.
func Evaluate(set Set, snap *metrics.Snapshot) ([]Result, bool) {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var results []Result
	passed := true

	for _, key := range keys {
		for _, expression := range set[key] {
			result := evaluateOne(key, expression, snap)
			if !result.Passed {
				passed = false
			}
			results = append(results, result)
		}
	}

	return results, passed
}

func evaluateOne(key, expression string, snap *metrics.Snapshot) Result {
	result := Result{Key: key, Expression: expression}

	keyParts := keyRe.FindStringSubmatch(strings.TrimSpace(key))
	if keyParts == nil {
		result.Message = fmt.Sprintf("unrecognized metric key: %s", key)
		return result
	}
	metric, endpoint := keyParts[1], keyParts[2]

	parts := exprRe.FindStringSubmatch(strings.TrimSpace(expression))
	if parts == nil {
		result.Message = fmt.Sprintf("invalid expression: %s", expression)
		return result
	}
	agg, quantile, op, rawValue := parts[1], parts[2], parts[3], strings.TrimSpace(parts[4])

	switch metric {
	case MetricReqDuration:
		return evaluateDuration(result, snap, endpoint, agg, quantile, op, rawValue)
	case MetricReqFailed:
		if agg != "rate" {
			result.Message = fmt.Sprintf("%s only supports rate, got %s", MetricReqFailed, agg)
			return result
		}
		return evaluateFloat(result, snap.ErrorRate, op, rawValue)
	case MetricReqs:
		switch agg {
		case "rate":
			return evaluateFloat(result, snap.RPS, op, rawValue)
		case "count":
			return evaluateFloat(result, float64(snap.TotalRequests), op, rawValue)
		default:
			result.Message = fmt.Sprintf("%s only supports rate or count, got %s", MetricReqs, agg)
			return result
		}
	default:
		result.Message = fmt.Sprintf("unknown metric: %s", metric)
		return result
	}
}

func evaluateDuration(result Result, snap *metrics.Snapshot, endpoint, agg, quantile, op, rawValue string) Result {
	stats := snap.Latency
	if endpoint != "" {
		endpointStats, ok := snap.Endpoints[endpoint]
		if !ok || endpointStats.Count == 0 {
			result.Passed = true
			result.Value = "0"
			result.Message = fmt.Sprintf("no samples for endpoint %s", endpoint)
			return result
		}
		stats = endpointStats
	}

	var actual time.Duration
	switch agg {
	case "p":
		switch quantile {
		case "50", "90", "95", "99":
			q, _ := strconv.ParseFloat(quantile, 64)
			actual = stats.Percentile(q)
		default:
			result.Message = fmt.Sprintf("unsupported percentile: p(%s)", quantile)
			return result
		}
	case "avg":
		actual = stats.Mean
	case "med":
		actual = stats.P50
	case "min":
		actual = stats.Min
	case "max":
		actual = stats.Max
	default:
		result.Message = fmt.Sprintf("unknown duration aggregate: %s", agg)
		return result
	}

	want, err := parseDurationValue(rawValue)
	if err != nil {
		result.Message = err.Error()
		return result
	}

	result.Value = actual.String()
	result.Passed = compare(float64(actual), op, float64(want))
	if !result.Passed {
		result.Message = fmt.Sprintf("%s is %s, want %s %s", agg, actual, op, want)
	}
	return result
}

func evaluateFloat(result Result, actual float64, op, rawValue string) Result {
	want, err := strconv.ParseFloat(rawValue, 64)
	if err != nil {
		result.Message = fmt.Sprintf("invalid threshold value: %s", rawValue)
		return result
	}

	result.Value = strconv.FormatFloat(actual, 'f', 4, 64)
	result.Passed = compare(actual, op, want)
	if !result.Passed {
		result.Message = fmt.Sprintf("value is %.4f, want %s %v", actual, op, want)
	}
	return result
}

// parseDurationValue accepts bare numbers (milliseconds) and Go duration
// strings ("500ms", "1.5s").
func parseDurationValue(s string) (time.Duration, error) {
	if ms, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(ms * float64(time.Millisecond)), nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	return 0, fmt.Errorf("invalid duration value: %s", s)
}

func compare(actual float64, op string, want float64) bool {
	switch op {
	case "<":
		return actual < want
	case "<=":
		return actual <= want
	case ">":
		return actual > want
	case ">=":
		return actual >= want
	case "==":
		return actual == want
	case "!=":
		return actual != want
	default:
		return false
	}
}
