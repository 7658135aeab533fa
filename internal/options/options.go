// Package options composes the execution options for a test run: the
// per-test-type stage profile, base tags and batch settings, and the
// thresholds resolved for the target environment.
package options

import (
	"os"
	"strconv"
	"time"

	"github.com/volleyhq/volley/internal/thresholds"
)

// Test types with predefined load profiles.
const (
	TypeSmoke     = "smoke"
	TypeLoad      = "load"
	TypeStress    = "stress"
	TypeSpike     = "spike"
	TypeEndurance = "endurance"
)

// Stage is one time-boxed segment of a load profile. The VU count ramps
// linearly from the previous stage's target to this one's.
type Stage struct {
	Duration time.Duration `json:"duration" yaml:"duration"`
	Target   int           `json:"target" yaml:"target"`
}

// BatchSettings mirrors the runtime's parallel-batch knobs.
type BatchSettings struct {
	Batch        int `json:"batch" yaml:"batch"`
	BatchPerHost int `json:"batchPerHost" yaml:"batchPerHost"`
}

// TestOptions is the final configuration consumed at test start. It is
// built once per run and treated as immutable afterwards.
type TestOptions struct {
	TestType     string            `json:"testType"`
	Stages       []Stage           `json:"stages"`
	Thresholds   thresholds.Set    `json:"thresholds"`
	Tags         map[string]string `json:"tags"`
	Batch        BatchSettings     `json:"batch"`
	ThinkTime    time.Duration     `json:"thinkTime"`
	GracefulStop time.Duration     `json:"gracefulStop"`
}

// TotalDuration sums the stage durations.
func (o TestOptions) TotalDuration() time.Duration {
	var total time.Duration
	for _, stage := range o.Stages {
		total += stage.Duration
	}
	return total
}

// MaxTarget returns the highest stage target.
func (o TestOptions) MaxTarget() int {
	max := 0
	for _, stage := range o.Stages {
		if stage.Target > max {
			max = stage.Target
		}
	}
	return max
}

// Builder composes TestOptions from base settings, the threshold set for
// the selected environment, and process-environment overrides.
type Builder struct {
	envName    string
	baseVUs    int
	thresholds thresholds.Set
	getenv     func(string) string
}

// NewBuilder creates a Builder.
//
// baseVUs is the profile's unit of scale, normally the environment's
// MaxVUs; the stress and spike profiles exceed it deliberately.
func NewBuilder(envName string, baseVUs int, set thresholds.Set, getenv func(string) string) *Builder {
	if getenv == nil {
		getenv = os.Getenv
	}
	if baseVUs <= 0 {
		baseVUs = 10
	}
	return &Builder{
		envName:    envName,
		baseVUs:    baseVUs,
		thresholds: set,
		getenv:     getenv,
	}
}

// ForType builds the options for a test type. An unrecognized type
// silently falls back to the load profile; callers wanting strict
// validation should check KnownType first.
func (b *Builder) ForType(testType string) TestOptions {
	if !KnownType(testType) {
		testType = TypeLoad
	}

	vus := b.baseVUs
	if v := b.getenv("VUS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			vus = n
		}
	}

	opts := TestOptions{
		TestType:   testType,
		Stages:     b.stagesFor(testType, vus),
		Thresholds: b.thresholds.Clone(),
		Tags: map[string]string{
			"test_type":   testType,
			"environment": b.envName,
		},
		Batch:        BatchSettings{Batch: 20, BatchPerHost: 6},
		ThinkTime:    time.Second,
		GracefulStop: 30 * time.Second,
	}

	b.applyDurationOverrides(&opts)
	return opts
}

// KnownType reports whether testType has a predefined profile.
func KnownType(testType string) bool {
	switch testType {
	case TypeSmoke, TypeLoad, TypeStress, TypeSpike, TypeEndurance:
		return true
	}
	return false
}

// Types returns all predefined test types.
func Types() []string {
	return []string{TypeSmoke, TypeLoad, TypeStress, TypeSpike, TypeEndurance}
}

func (b *Builder) stagesFor(testType string, vus int) []Stage {
	switch testType {
	case TypeSmoke:
		return []Stage{
			{Duration: time.Minute, Target: 1},
		}
	case TypeStress:
		// Progressive increase well past the expected capacity.
		return []Stage{
			{Duration: 2 * time.Minute, Target: vus},
			{Duration: 5 * time.Minute, Target: vus},
			{Duration: 2 * time.Minute, Target: 2 * vus},
			{Duration: 5 * time.Minute, Target: 2 * vus},
			{Duration: 2 * time.Minute, Target: 3 * vus},
			{Duration: 5 * time.Minute, Target: 3 * vus},
			{Duration: 2 * time.Minute, Target: 4 * vus},
			{Duration: 10 * time.Minute, Target: 0},
		}
	case TypeSpike:
		// Baseline, sudden spike, recovery.
		return []Stage{
			{Duration: time.Minute, Target: vus},
			{Duration: 30 * time.Second, Target: 5 * vus},
			{Duration: 3 * time.Minute, Target: 5 * vus},
			{Duration: 30 * time.Second, Target: vus},
			{Duration: 3 * time.Minute, Target: vus},
			{Duration: time.Minute, Target: 0},
		}
	case TypeEndurance:
		return []Stage{
			{Duration: 5 * time.Minute, Target: vus},
			{Duration: 4 * time.Hour, Target: vus},
			{Duration: 5 * time.Minute, Target: 0},
		}
	default: // load
		return []Stage{
			{Duration: 5 * time.Minute, Target: vus},
			{Duration: 10 * time.Minute, Target: vus},
			{Duration: 5 * time.Minute, Target: 0},
		}
	}
}

// applyDurationOverrides rescales the chosen profile from DURATION,
// RAMP_UP_DURATION, and RAMP_DOWN_DURATION. DURATION replaces the steady
// stages (every stage except an initial ramp-up and a final ramp-down to
// zero); the ramp overrides replace those edges.
func (b *Builder) applyDurationOverrides(opts *TestOptions) {
	rampUp := b.durationVar("RAMP_UP_DURATION")
	rampDown := b.durationVar("RAMP_DOWN_DURATION")
	steady := b.durationVar("DURATION")

	for i := range opts.Stages {
		first := i == 0
		last := i == len(opts.Stages)-1 && opts.Stages[i].Target == 0 && len(opts.Stages) > 1

		switch {
		case first && rampUp > 0:
			opts.Stages[i].Duration = rampUp
		case last && rampDown > 0:
			opts.Stages[i].Duration = rampDown
		case !first && !last && steady > 0:
			opts.Stages[i].Duration = steady
		}
	}
}

func (b *Builder) durationVar(key string) time.Duration {
	v := b.getenv(key)
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	// Bare integers are seconds.
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
