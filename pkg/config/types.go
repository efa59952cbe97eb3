package config

import "time"

// Run objective kinds. "quality" optimizes the cost returned by the target
// function; "runtime" optimizes the wall-clock time of each evaluation.
const (
	RunObjectiveQuality = "quality"
	RunObjectiveRuntime = "runtime"
)

// Scenario represents a complete optimization scenario
type Scenario struct {
	RunObjective   string       `yaml:"run_objective"`            // quality or runtime
	WallClockLimit string       `yaml:"wallclock_limit"`          // total optimization budget, e.g. "100s"
	Cutoff         string       `yaml:"cutoff,omitempty"`         // per-evaluation limit, e.g. "30s"
	MemoryLimitMB  int          `yaml:"memory_limit_mb,omitempty"`
	Instance       string       `yaml:"instance,omitempty"` // problem instance handed to each evaluation
	Deterministic  bool         `yaml:"deterministic"`
	OutputDir      string       `yaml:"output_dir,omitempty"` // where run history is persisted
	Intensifier    *Intensifier `yaml:"intensifier,omitempty"`
	Search         *Search      `yaml:"search,omitempty"`
}

// Intensifier configures the budget ladder used when challenging the incumbent
type Intensifier struct {
	InitialBudget float64 `yaml:"initial_budget"`
	MaxBudget     float64 `yaml:"max_budget"`
	Eta           float64 `yaml:"eta"`
}

// Search configures the sampling loop
type Search struct {
	MaxRounds           int          `yaml:"max_rounds,omitempty"`
	ChallengersPerRound int          `yaml:"challengers_per_round,omitempty"`
	Parallelism         int          `yaml:"parallelism,omitempty"`
	Convergence         *Convergence `yaml:"convergence,omitempty"`
}

// Convergence configures early stopping of the sampling loop
type Convergence struct {
	NoImprovementRounds int     `yaml:"no_improvement_rounds,omitempty"`
	PlateauRounds       int     `yaml:"plateau_rounds,omitempty"`
	ScoreTolerance      float64 `yaml:"score_tolerance,omitempty"`
	MinRounds           int     `yaml:"min_rounds,omitempty"`
}

// GetWallClockLimit parses the wall-clock limit to time.Duration
func (s *Scenario) GetWallClockLimit() (time.Duration, error) {
	return time.ParseDuration(s.WallClockLimit)
}

// GetCutoff parses the per-evaluation cutoff to time.Duration.
// An empty cutoff means no per-evaluation limit.
func (s *Scenario) GetCutoff() (time.Duration, error) {
	if s.Cutoff == "" {
		return 0, nil
	}
	return time.ParseDuration(s.Cutoff)
}
