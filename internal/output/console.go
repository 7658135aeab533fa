package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/volleyhq/volley/internal/metrics"
	"github.com/volleyhq/volley/internal/runner"
	"github.com/volleyhq/volley/internal/thresholds"
)

// Console writes human-readable run summaries.
type Console struct {
	w       io.Writer
	scheme  *ColorScheme
	noColor bool
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithColors forces colors on or off regardless of terminal detection.
func WithColors(enabled bool) ConsoleOption {
	return func(c *Console) {
		c.noColor = !enabled
		if enabled {
			c.scheme = DefaultColorScheme()
		} else {
			c.scheme = NoColorScheme()
		}
	}
}

// NewConsole creates a summary writer. Colors are enabled only when w is
// an interactive terminal; NO_COLOR-style overrides go through WithColors.
func NewConsole(w io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{w: w}
	if isTerminal(w) {
		c.scheme = DefaultColorScheme()
	} else {
		c.noColor = true
		c.scheme = NoColorScheme()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WriteReport prints the full end-of-run summary: run identity, request
// totals, the latency distribution, per-endpoint breakdown, check pass
// rates, threshold verdicts, and the aggregate result.
func (c *Console) WriteReport(report *runner.Report) {
	c.writeHeader(report)
	c.writeTotals(report.Snapshot)
	c.writeLatency("Latency Distribution", report.Snapshot.Latency)
	c.writeEndpoints(report.Snapshot)
	c.writeChecks(report.Snapshot)
	c.writeThresholds(report.Thresholds)
	c.writeVerdict(report.Passed)
}

func (c *Console) writeHeader(report *runner.Report) {
	title := report.Scenario
	if title == "" {
		title = "load test"
	}
	fmt.Fprintln(c.w, c.scheme.Title.Sprint(title))
	fmt.Fprintf(c.w, "%s %s   %s %s\n\n",
		c.scheme.Label.Sprint("environment:"), report.Environment,
		c.scheme.Label.Sprint("type:"), report.TestType)
}

func (c *Console) writeTotals(snap *metrics.Snapshot) {
	fmt.Fprintf(c.w, "%s  %s\n", c.scheme.Label.Sprint("Duration:    "), formatDuration(snap.Elapsed))
	fmt.Fprintf(c.w, "%s  %d\n", c.scheme.Label.Sprint("Requests:    "), snap.TotalRequests)
	fmt.Fprintf(c.w, "%s  %.1f req/s\n", c.scheme.Label.Sprint("Throughput:  "), snap.RPS)

	rateColor := c.scheme.Pass
	switch {
	case snap.SuccessRate < 0.95:
		rateColor = c.scheme.Fail
	case snap.SuccessRate < 0.99:
		rateColor = c.scheme.Warn
	}
	fmt.Fprintf(c.w, "%s  %s\n\n", c.scheme.Label.Sprint("Success Rate:"),
		rateColor.Sprintf("%.1f%%", snap.SuccessRate*100))
}

func (c *Console) writeLatency(title string, stats metrics.LatencyStats) {
	if stats.Count == 0 {
		return
	}
	fmt.Fprintln(c.w, c.scheme.Title.Sprint(title+":"))
	fmt.Fprintf(c.w, "  min %s  p50 %s  p90 %s  p95 %s  p99 %s  max %s\n\n",
		formatDurationShort(stats.Min),
		formatDurationShort(stats.P50),
		formatDurationShort(stats.P90),
		formatDurationShort(stats.P95),
		formatDurationShort(stats.P99),
		formatDurationShort(stats.Max))
}

func (c *Console) writeEndpoints(snap *metrics.Snapshot) {
	if len(snap.Endpoints) == 0 {
		return
	}
	names := make([]string, 0, len(snap.Endpoints))
	for name := range snap.Endpoints {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(c.w, c.scheme.Title.Sprint("Endpoints:"))
	for _, name := range names {
		stats := snap.Endpoints[name]
		fmt.Fprintf(c.w, "  %-20s %6d reqs  p95 %s\n",
			name, stats.Count, formatDurationShort(stats.P95))
	}
	fmt.Fprintln(c.w)
}

func (c *Console) writeChecks(snap *metrics.Snapshot) {
	if len(snap.Checks) == 0 {
		return
	}
	labels := make([]string, 0, len(snap.Checks))
	for label := range snap.Checks {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	fmt.Fprintln(c.w, c.scheme.Title.Sprint("Checks:"))
	for _, label := range labels {
		stats := snap.Checks[label]
		icon := SuccessIcon(c.noColor)
		if stats.Fails > 0 {
			icon = ErrorIcon(c.noColor)
		}
		fmt.Fprintf(c.w, "  %s %s %s\n", icon, label,
			c.scheme.Subtle.Sprintf("%.1f%% (%d/%d)",
				stats.PassRate()*100, stats.Passes, stats.Passes+stats.Fails))
	}
	fmt.Fprintln(c.w)
}

func (c *Console) writeThresholds(results []thresholds.Result) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintln(c.w, c.scheme.Title.Sprint("Thresholds:"))
	for _, r := range results {
		icon := SuccessIcon(c.noColor)
		if !r.Passed {
			icon = ErrorIcon(c.noColor)
		}
		line := fmt.Sprintf("  %s %s: %s", icon, r.Key, r.Expression)
		if r.Value != "" {
			line += c.scheme.Subtle.Sprintf(" (actual %s)", r.Value)
		}
		if r.Message != "" && !r.Passed {
			line += " " + c.scheme.Fail.Sprint(r.Message)
		}
		fmt.Fprintln(c.w, line)
	}
	fmt.Fprintln(c.w)
}

func (c *Console) writeVerdict(passed bool) {
	if passed {
		fmt.Fprintln(c.w, c.scheme.Pass.Sprint("PASSED"))
	} else {
		fmt.Fprintln(c.w, c.scheme.Fail.Sprint("FAILED"))
	}
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, report *runner.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// formatDuration renders a duration for the summary header.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm %02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh %02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// formatDurationShort renders a duration compactly for tables.
func formatDurationShort(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return "0ms"
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
}
