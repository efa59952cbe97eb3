package hpo

import (
	"context"
	"fmt"

	"github.com/tunebench/hypertune/internal/space"
	"github.com/tunebench/hypertune/internal/tae"
	"github.com/tunebench/hypertune/pkg/logger"
	"github.com/tunebench/hypertune/pkg/utils"
)

// EvaluateDefault evaluates the space's default configuration at the
// maximum budget and installs it as the first incumbent. Optimize calls
// this automatically; callers may also invoke it directly to get a
// baseline cost before searching.
func (f *Facade) EvaluateDefault(ctx context.Context) (tae.Result, error) {
	def := f.space.DefaultConfiguration()
	res, err := f.evaluate(ctx, def, f.scenario.Intensifier.MaxBudget, true)
	if err != nil {
		return res, err
	}
	if res.Status != tae.StatusSuccess {
		return res, fmt.Errorf("default configuration failed with status %s: %s", res.Status, res.Error)
	}

	f.mu.Lock()
	if !f.hasIncumbent || res.Cost < f.incumbentCost {
		f.incumbent = def
		f.incumbentCost = res.Cost
		f.hasIncumbent = true
	}
	f.mu.Unlock()

	logger.Info("default configuration evaluated",
		"experiment_id", f.experimentID,
		"cost", res.Cost,
		"budget", f.scenario.Intensifier.MaxBudget)
	return res, nil
}

// Evaluate runs a single configuration at the given budget and records the
// trial in the run history.
func (f *Facade) Evaluate(ctx context.Context, cfg space.Configuration, budget float64) (tae.Result, error) {
	if err := f.space.Validate(cfg); err != nil {
		return tae.Result{}, err
	}
	return f.evaluate(ctx, cfg, budget, false)
}

func (f *Facade) evaluate(ctx context.Context, cfg space.Configuration, budget float64, incumbent bool) (tae.Result, error) {
	id, seq := f.nextTrialID()
	spec := tae.RunSpec{Config: cfg, Instance: f.instance, Seed: f.trialSeed(seq), Budget: budget}
	res, err := f.runner.Run(ctx, spec)
	if err != nil {
		return res, err
	}
	if err := f.recordTrial(spec, res, id, incumbent && res.Status == tae.StatusSuccess); err != nil {
		logger.Warn("failed to record trial", "trial_id", id, "error", err)
	}
	return res, nil
}

// Optimize runs the search loop: rounds of randomly sampled challengers,
// each intensified along the budget ladder against the incumbent. It
// returns the incumbent configuration when the round limit, the wall-clock
// limit or the convergence criteria are reached. The incumbent found so
// far is preserved when ctx is cancelled mid-search.
func (f *Facade) Optimize(ctx context.Context) (space.Configuration, error) {
	defer close(f.progress)

	limit, err := f.scenario.GetWallClockLimit()
	if err != nil {
		return nil, fmt.Errorf("invalid wallclock limit: %w", err)
	}
	if limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	if _, _, ok := f.Incumbent(); !ok {
		if _, err := f.EvaluateDefault(ctx); err != nil {
			return nil, err
		}
	}

	history := make([]RoundResult, 0, f.maxRounds)
	for round := 1; round <= f.maxRounds; round++ {
		if ctx.Err() != nil {
			logger.Info("search stopped by wall-clock limit", "experiment_id", f.experimentID, "round", round)
			break
		}

		challengers := f.sampleChallengers()
		trials, err := f.runRound(ctx, challengers)
		if err != nil && ctx.Err() == nil {
			return nil, err
		}

		_, cost, _ := f.Incumbent()
		history = append(history, RoundResult{Round: round, IncumbentCost: cost, TrialsRun: trials})
		converged, reason := f.convergence.Check(history)

		f.notifyProgress(ProgressUpdate{
			ExperimentID:  f.experimentID,
			Round:         round,
			TrialsRun:     f.store.Len(),
			IncumbentKey:  f.incumbentKey(),
			IncumbentCost: cost,
			Converged:     converged,
			Reason:        reason,
		})
		logger.Info("round complete",
			"experiment_id", f.experimentID,
			"round", round,
			"trials", trials,
			"incumbent_cost", cost)

		if converged {
			logger.Info("search converged", "experiment_id", f.experimentID, "reason", reason)
			break
		}
	}

	inc, _, ok := f.Incumbent()
	if !ok {
		return nil, fmt.Errorf("search finished without an incumbent")
	}
	return inc, nil
}

// sampleChallengers draws the next round of configurations to try
func (f *Facade) sampleChallengers() []space.Configuration {
	out := make([]space.Configuration, 0, f.challengers)
	for i := 0; i < f.challengers; i++ {
		out = append(out, f.space.Sample(f.rng))
	}
	return out
}

// challenge intensifies one configuration along the budget ladder. The
// challenger starts cheap and is promoted to eta times its budget while it
// keeps beating the incumbent's cost; it replaces the incumbent only after
// a win at the maximum budget.
func (f *Facade) challenge(ctx context.Context, cfg space.Configuration) (int, error) {
	it := f.scenario.Intensifier
	budget := it.InitialBudget
	trials := 0

	for {
		id, seq := f.nextTrialID()
		spec := tae.RunSpec{Config: cfg, Instance: f.instance, Seed: f.trialSeed(seq), Budget: budget}
		res, err := f.runner.Run(ctx, spec)
		if err != nil {
			return trials, err
		}
		trials++

		_, incCost, _ := f.Incumbent()
		win := res.Status == tae.StatusSuccess && res.Cost < incCost
		atMax := budget >= it.MaxBudget

		promoted := false
		if win && atMax {
			promoted = f.tryPromote(cfg, res.Cost)
		}
		if err := f.recordTrial(spec, res, id, promoted); err != nil {
			logger.Warn("failed to record trial", "trial_id", id, "error", err)
		}
		if promoted {
			logger.Info("incumbent replaced",
				"experiment_id", f.experimentID,
				"trial_id", id,
				"cost", res.Cost,
				"config", cfg.Key())
		}

		if res.Status == tae.StatusAborted {
			return trials, ctx.Err()
		}
		if !win || atMax {
			return trials, nil
		}
		budget = utils.Min(budget*it.Eta, it.MaxBudget)
	}
}

// tryPromote installs cfg as the incumbent if its cost still beats the
// current one. Challengers race for this under the facade lock.
func (f *Facade) tryPromote(cfg space.Configuration, cost float64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hasIncumbent && cost >= f.incumbentCost {
		return false
	}
	f.incumbent = cfg.Clone()
	f.incumbentCost = cost
	f.hasIncumbent = true
	return true
}

func (f *Facade) incumbentKey() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.hasIncumbent {
		return ""
	}
	return f.incumbent.Key()
}
