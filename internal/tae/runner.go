// Package tae executes target-algorithm evaluations: it wraps the
// user-supplied objective function, enforces the per-evaluation cutoff and
// turns panics and timeouts into statused results instead of errors.
package tae

import (
	"context"
	"fmt"
	"time"

	"github.com/tunebench/hypertune/internal/space"
	"github.com/tunebench/hypertune/pkg/config"
	"github.com/tunebench/hypertune/pkg/logger"
)

// Status classifies the outcome of a single target evaluation
type Status string

const (
	StatusSuccess Status = "success"
	StatusTimeout Status = "timeout"
	StatusCrashed Status = "crashed"
	StatusAborted Status = "aborted"
)

// DefaultPenaltyCost is assigned to evaluations that time out or crash so
// the search learns to avoid them without aborting the experiment.
const DefaultPenaltyCost = 1e9

// RunSpec carries everything a target evaluation receives
type RunSpec struct {
	Config   space.Configuration
	Instance string
	Seed     int64
	Budget   float64
}

// Result is the outcome of a single target evaluation
type Result struct {
	Status  Status
	Cost    float64
	Runtime time.Duration
	Error   string
}

// TargetFunc is the objective being optimized. It returns a cost (lower is
// better) for the given configuration at the given budget. Implementations
// should honor ctx cancellation for long-running work.
type TargetFunc func(ctx context.Context, spec RunSpec) (float64, error)

// Runner wraps a TargetFunc with cutoff enforcement and penalty handling
type Runner struct {
	target       TargetFunc
	cutoff       time.Duration
	penalty      float64
	runObjective string
}

// NewRunner creates a runner for the given target function.
// A zero cutoff disables the per-evaluation limit.
func NewRunner(target TargetFunc, cutoff time.Duration) *Runner {
	return &Runner{
		target:       target,
		cutoff:       cutoff,
		penalty:      DefaultPenaltyCost,
		runObjective: config.RunObjectiveQuality,
	}
}

// WithPenalty sets the cost assigned to timed-out and crashed evaluations
func (r *Runner) WithPenalty(penalty float64) *Runner {
	r.penalty = penalty
	return r
}

// WithRunObjective selects what the reported cost is: the target's returned
// cost (quality) or the evaluation's wall-clock seconds (runtime).
func (r *Runner) WithRunObjective(objective string) *Runner {
	r.runObjective = objective
	return r
}

// Cutoff returns the per-evaluation limit
func (r *Runner) Cutoff() time.Duration {
	return r.cutoff
}

// Run executes one evaluation of the target function.
// Timeouts and panics are reported through Result.Status with the penalty
// cost; the returned error is reserved for misuse of the runner itself.
func (r *Runner) Run(ctx context.Context, spec RunSpec) (Result, error) {
	if r.target == nil {
		return Result{}, fmt.Errorf("runner has no target function")
	}
	if spec.Budget <= 0 {
		return Result{}, fmt.Errorf("budget must be positive, got %f", spec.Budget)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if r.cutoff > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.cutoff)
		defer cancel()
	}

	type outcome struct {
		cost    float64
		err     error
		crashed bool
	}
	done := make(chan outcome, 1)

	start := time.Now()
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("target panicked: %v", rec), crashed: true}
			}
		}()
		cost, err := r.target(runCtx, spec)
		done <- outcome{cost: cost, err: err}
	}()

	select {
	case out := <-done:
		runtime := time.Since(start)
		switch {
		case out.crashed:
			logger.Warn("target evaluation crashed", "error", out.err, "budget", spec.Budget)
			return Result{Status: StatusCrashed, Cost: r.penalty, Runtime: runtime, Error: out.err.Error()}, nil
		case out.err != nil:
			return Result{Status: StatusCrashed, Cost: r.penalty, Runtime: runtime, Error: out.err.Error()}, nil
		default:
			return Result{Status: StatusSuccess, Cost: r.reportedCost(out.cost, runtime), Runtime: runtime}, nil
		}

	case <-runCtx.Done():
		runtime := time.Since(start)
		if ctx.Err() != nil {
			// The experiment itself was cancelled, not this evaluation.
			return Result{Status: StatusAborted, Cost: r.penalty, Runtime: runtime, Error: ctx.Err().Error()}, nil
		}
		return Result{Status: StatusTimeout, Cost: r.penalty, Runtime: runtime, Error: runCtx.Err().Error()}, nil
	}
}

func (r *Runner) reportedCost(cost float64, runtime time.Duration) float64 {
	if r.runObjective == config.RunObjectiveRuntime {
		return runtime.Seconds()
	}
	return cost
}
