package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/volleyhq/volley/internal/httpx"
	"github.com/volleyhq/volley/internal/metrics"
	"github.com/volleyhq/volley/internal/options"
	"github.com/volleyhq/volley/internal/ratelimit"
)

// adjustInterval is how often the scheduler recomputes the VU target.
// Frequent small adjustments give a smooth ramp instead of step changes.
const adjustInterval = 100 * time.Millisecond

// Scheduler ramps the virtual-user count across staged targets,
// interpolating linearly within each stage.
type Scheduler struct {
	opts    options.TestOptions
	client  httpx.Doer
	metrics *metrics.Registry
	limiter *ratelimit.Handler

	interval time.Duration

	startTime time.Time
	nextID    atomic.Int32
	active    atomic.Int32
	total     atomic.Int64

	vus   []*VU
	vusMu sync.Mutex
	wg    sync.WaitGroup
}

// NewScheduler creates a scheduler that will run VUs against the shared
// client using the staged profile in opts.
func NewScheduler(opts options.TestOptions, client httpx.Doer, reg *metrics.Registry, limiter *ratelimit.Handler) *Scheduler {
	return &Scheduler{
		opts:     opts,
		client:   client,
		metrics:  reg,
		limiter:  limiter,
		interval: adjustInterval,
	}
}

// Run ramps VUs according to the staged targets and blocks until every
// stage has elapsed and the VUs have drained, or ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, fn IterationFunc) error {
	s.startTime = time.Now()

	runCtx, cancel := context.WithTimeout(ctx, s.opts.TotalDuration())
	defer cancel()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-runCtx.Done():
			s.shutdown()
			return ctx.Err()
		case <-ticker.C:
			target := targetAt(s.opts.Stages, time.Since(s.startTime))
			s.scale(runCtx, target, fn)
		}
	}
}

// ActiveVUs returns the number of VUs currently running.
func (s *Scheduler) ActiveVUs() int {
	return int(s.active.Load())
}

// Iterations returns the total iterations completed across all VUs.
func (s *Scheduler) Iterations() int64 {
	return s.total.Load()
}

// targetAt computes the VU target for the elapsed time by interpolating
// linearly between the previous stage's target and the current one.
// Past the final stage it holds the last target.
func targetAt(stages []options.Stage, elapsed time.Duration) int {
	var stageStart time.Duration
	prev := 0

	for _, stage := range stages {
		stageEnd := stageStart + stage.Duration
		if elapsed < stageEnd {
			progress := float64(elapsed-stageStart) / float64(stage.Duration)
			if progress < 0 {
				progress = 0
			}
			if progress > 1 {
				progress = 1
			}
			return int(float64(prev) + float64(stage.Target-prev)*progress + 0.5)
		}
		prev = stage.Target
		stageStart = stageEnd
	}

	if len(stages) > 0 {
		return stages[len(stages)-1].Target
	}
	return 0
}

// scale spawns or stops VUs to reach the target count.
func (s *Scheduler) scale(ctx context.Context, target int, fn IterationFunc) {
	s.vusMu.Lock()
	defer s.vusMu.Unlock()

	current := len(s.vus)

	if target > current {
		for i := current; i < target; i++ {
			vu := NewVU(int(s.nextID.Add(1)), s.client, s.metrics, s.limiter, s.opts.ThinkTime)
			s.vus = append(s.vus, vu)
			s.wg.Add(1)
			go s.runVU(ctx, vu, fn)
		}
	} else if target < current {
		for i := current - 1; i >= target; i-- {
			s.vus[i].RequestStop()
		}
		s.vus = s.vus[:target]
	}

	s.metrics.SetGauge(metrics.GaugeActiveUsers, int64(target))
}

func (s *Scheduler) runVU(ctx context.Context, vu *VU, fn IterationFunc) {
	defer s.wg.Done()
	defer vu.MarkStopped()

	s.active.Add(1)
	defer s.active.Add(-1)

	for {
		select {
		case <-ctx.Done():
			return
		case <-vu.stopCh:
			return
		default:
		}

		if state := vu.GetState(); state == StateStopping || state == StateStopped {
			return
		}

		if err := vu.RunIteration(ctx, fn); err != nil {
			if ctx.Err() != nil || vu.GetState() == StateStopping {
				return
			}
		}
		s.total.Add(1)
	}
}

// shutdown requests every VU to stop and waits up to the graceful-stop
// window for in-flight iterations to finish.
func (s *Scheduler) shutdown() {
	s.vusMu.Lock()
	for _, vu := range s.vus {
		vu.RequestStop()
	}
	s.vusMu.Unlock()

	graceful := s.opts.GracefulStop
	if graceful == 0 {
		graceful = 30 * time.Second
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(graceful):
	}

	s.metrics.SetGauge(metrics.GaugeActiveUsers, 0)
}
