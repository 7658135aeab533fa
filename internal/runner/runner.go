package runner

import (
	"context"
	"fmt"

	"github.com/volleyhq/volley/internal/env"
	"github.com/volleyhq/volley/internal/httpx"
	"github.com/volleyhq/volley/internal/metrics"
	"github.com/volleyhq/volley/internal/options"
	"github.com/volleyhq/volley/internal/ratelimit"
	"github.com/volleyhq/volley/internal/thresholds"
)

// Scenario is the user-supplied behavior of a load test: an optional
// one-time Setup, the per-VU iteration body, and an optional Teardown
// that runs after all VUs have drained.
type Scenario struct {
	Name     string
	Setup    func(ctx context.Context, client httpx.Doer) error
	Iterate  IterationFunc
	Teardown func(ctx context.Context, report *Report) error
}

// Report is the final outcome of a run: the metric snapshot, the
// per-threshold results, and the aggregate verdict.
type Report struct {
	Environment string              `json:"environment"`
	TestType    string              `json:"testType"`
	Scenario    string              `json:"scenario"`
	Snapshot    *metrics.Snapshot   `json:"snapshot"`
	Thresholds  []thresholds.Result `json:"thresholds"`
	Passed      bool                `json:"passed"`
}

// Runner wires a scenario to an environment, a staged load profile, and
// a threshold set, and drives the full lifecycle.
type Runner struct {
	registry   *env.Registry
	opts       options.TestOptions
	scenario   Scenario
	thresholds thresholds.Set
	client     httpx.Doer
	metrics    *metrics.Registry
	limiter    *ratelimit.Handler
	healthPath string
}

// Option configures a Runner.
type Option func(*Runner)

// WithClient replaces the HTTP client built from the environment's base
// URL. Tests use this to inject fakes.
func WithClient(client httpx.Doer) Option {
	return func(r *Runner) { r.client = client }
}

// WithThresholds sets the threshold conditions evaluated at teardown.
func WithThresholds(set thresholds.Set) Option {
	return func(r *Runner) { r.thresholds = set }
}

// WithMetrics replaces the metrics registry.
func WithMetrics(reg *metrics.Registry) Option {
	return func(r *Runner) { r.metrics = reg }
}

// WithLimiter replaces the rate-limit handler shared by all VUs.
func WithLimiter(limiter *ratelimit.Handler) Option {
	return func(r *Runner) { r.limiter = limiter }
}

// WithHealthPath overrides the path probed during setup.
func WithHealthPath(path string) Option {
	return func(r *Runner) { r.healthPath = path }
}

// New creates a Runner for the scenario against the registry's selected
// environment.
func New(registry *env.Registry, opts options.TestOptions, scenario Scenario, runnerOpts ...Option) *Runner {
	r := &Runner{
		registry:   registry,
		opts:       opts,
		scenario:   scenario,
		thresholds: opts.Thresholds,
		metrics:    metrics.NewRegistry(),
		limiter:    ratelimit.NewHandler(),
		healthPath: "/status",
	}
	for _, opt := range runnerOpts {
		opt(r)
	}
	if r.client == nil {
		cfg := registry.Current()
		r.client = httpx.NewClient(cfg.BaseURL, httpx.WithAPIKey(cfg.APIKey))
	}
	return r
}

// Metrics returns the registry the run records into.
func (r *Runner) Metrics() *metrics.Registry {
	return r.metrics
}

// Run executes the full lifecycle: setup (environment validation plus a
// health probe, both fatal on failure), the staged VU ramp, and teardown
// with threshold evaluation. The returned report is non-nil whenever the
// run itself completed, even if thresholds failed.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if err := r.setup(ctx); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}

	scheduler := NewScheduler(r.opts, r.client, r.metrics, r.limiter)
	if err := scheduler.Run(ctx, r.scenario.Iterate); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}

	report := r.buildReport()

	if r.scenario.Teardown != nil {
		if err := r.scenario.Teardown(ctx, report); err != nil {
			return report, fmt.Errorf("teardown: %w", err)
		}
	}

	return report, nil
}

// setup validates the selected environment and probes the health
// endpoint. Either failing aborts the run before any VU starts.
func (r *Runner) setup(ctx context.Context) error {
	if err := r.registry.Validate(); err != nil {
		return err
	}

	if r.scenario.Setup != nil {
		if err := r.scenario.Setup(ctx, r.client); err != nil {
			return err
		}
	}

	resp, err := r.client.Do(ctx, httpx.NewRequest("GET", r.healthPath, httpx.WithEndpoint("health")))
	if err != nil {
		return fmt.Errorf("health probe %s: %w", r.healthPath, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("health probe %s: status %d", r.healthPath, resp.StatusCode)
	}
	return nil
}

func (r *Runner) buildReport() *Report {
	snap := r.metrics.Snapshot()
	results, passed := thresholds.Evaluate(r.thresholds, snap)

	return &Report{
		Environment: r.registry.Selected(),
		TestType:    r.opts.TestType,
		Scenario:    r.scenario.Name,
		Snapshot:    snap,
		Thresholds:  results,
		Passed:      passed,
	}
}
