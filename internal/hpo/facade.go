// Package hpo drives the optimization itself: it samples challenger
// configurations, intensifies promising ones along a budget ladder and
// tracks the incumbent, the best configuration found so far.
package hpo

import (
	"fmt"
	"sync"

	"github.com/tunebench/hypertune/internal/runhistory"
	"github.com/tunebench/hypertune/internal/space"
	"github.com/tunebench/hypertune/internal/tae"
	"github.com/tunebench/hypertune/pkg/config"
	"github.com/tunebench/hypertune/pkg/utils"
)

// Search defaults when the scenario leaves them unset
const (
	defaultMaxRounds   = 30
	defaultChallengers = 8
	defaultParallelism = 4
	progressBuffer     = 64
)

// Facade wires the scenario, the parameter space and the target function
// into a runnable optimization. It is the single entry point for callers.
type Facade struct {
	scenario     *config.Scenario
	space        *space.Space
	runner       *tae.Runner
	store        *runhistory.Store
	rng          *utils.RandSource
	seed         int64
	instance     string
	experimentID string
	convergence  ConvergenceStrategy
	progress     chan ProgressUpdate

	maxRounds   int
	challengers int
	parallelism int

	mu            sync.RWMutex
	incumbent     space.Configuration
	incumbentCost float64
	hasIncumbent  bool
	trialSeq      int
}

// New builds a facade from a scenario, a parameter space and a target
// function. The seed makes sampling and trial seeding reproducible.
func New(scenario *config.Scenario, sp *space.Space, target tae.TargetFunc, seed int64) (*Facade, error) {
	if scenario == nil {
		return nil, fmt.Errorf("scenario is required")
	}
	if sp == nil || sp.Len() == 0 {
		return nil, fmt.Errorf("parameter space must not be empty")
	}
	if target == nil {
		return nil, fmt.Errorf("target function is required")
	}
	if scenario.Intensifier == nil {
		return nil, fmt.Errorf("scenario has no intensifier settings")
	}

	cutoff, err := scenario.GetCutoff()
	if err != nil {
		return nil, fmt.Errorf("invalid cutoff: %w", err)
	}

	runner := tae.NewRunner(target, cutoff).WithRunObjective(scenario.RunObjective)

	instance := scenario.Instance
	if instance == "" {
		instance = "1"
	}

	f := &Facade{
		scenario:     scenario,
		space:        sp,
		runner:       runner,
		store:        runhistory.NewStore(),
		rng:          utils.NewRandSource(seed),
		seed:         seed,
		instance:     instance,
		experimentID: utils.GenerateExperimentID(),
		progress:     make(chan ProgressUpdate, progressBuffer),
		maxRounds:    defaultMaxRounds,
		challengers:  defaultChallengers,
		parallelism:  defaultParallelism,
	}

	var conv *config.Convergence
	if search := scenario.Search; search != nil {
		if search.MaxRounds > 0 {
			f.maxRounds = search.MaxRounds
		}
		if search.ChallengersPerRound > 0 {
			f.challengers = search.ChallengersPerRound
		}
		if search.Parallelism > 0 {
			f.parallelism = search.Parallelism
		}
		conv = search.Convergence
	}
	f.convergence = NewCombinedStrategy(conv)

	return f, nil
}

// ExperimentID returns the generated identifier for this optimization
func (f *Facade) ExperimentID() string {
	return f.experimentID
}

// Runner exposes the underlying evaluation runner
func (f *Facade) Runner() *tae.Runner {
	return f.runner
}

// History returns the run history collected so far. Safe to call while the
// optimization is running.
func (f *Facade) History() *runhistory.Store {
	return f.store
}

// Incumbent returns the best configuration found so far and its cost.
// The third return is false until the default configuration has been
// evaluated.
func (f *Facade) Incumbent() (space.Configuration, float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.hasIncumbent {
		return nil, 0, false
	}
	return f.incumbent.Clone(), f.incumbentCost, true
}

// trialSeed derives the seed for a single evaluation. Deterministic
// scenarios evaluate every trial with the same seed.
func (f *Facade) trialSeed(seq int) int64 {
	if f.scenario.Deterministic {
		return f.seed
	}
	return f.seed + int64(seq)
}

func (f *Facade) nextTrialID() (string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trialSeq++
	return utils.GenerateTrialID(f.experimentID, f.trialSeq), f.trialSeq
}

func (f *Facade) recordTrial(spec tae.RunSpec, res tae.Result, id string, incumbent bool) error {
	return f.store.Add(&runhistory.Trial{
		ID:           id,
		ExperimentID: f.experimentID,
		Config:       spec.Config.Clone(),
		ConfigKey:    spec.Config.Key(),
		Instance:     spec.Instance,
		Seed:         spec.Seed,
		Budget:       spec.Budget,
		Status:       res.Status,
		Cost:         res.Cost,
		RuntimeMs:    res.Runtime.Milliseconds(),
		Error:        res.Error,
		Incumbent:    incumbent,
	})
}
