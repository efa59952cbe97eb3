package config

import (
	"fmt"
	"os"
)

// LoadScenario loads and parses a scenario file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file %s: %w", path, err)
	}
	scenario, err := ParseScenarioYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scenario file %s: %w", path, err)
	}
	return scenario, nil
}

// DefaultScenario returns a scenario with conservative defaults, used when a
// caller provides no scenario at all.
func DefaultScenario() *Scenario {
	return &Scenario{
		RunObjective:   RunObjectiveQuality,
		WallClockLimit: "100s",
		Cutoff:         "30s",
		Deterministic:  true,
		Intensifier: &Intensifier{
			InitialBudget: 5,
			MaxBudget:     50,
			Eta:           3,
		},
	}
}

// validateScenario performs validation on the scenario configuration
func validateScenario(s *Scenario) error {
	if s.RunObjective == "" {
		s.RunObjective = RunObjectiveQuality
	}
	if s.RunObjective != RunObjectiveQuality && s.RunObjective != RunObjectiveRuntime {
		return fmt.Errorf("invalid run_objective: %s (must be %s or %s)",
			s.RunObjective, RunObjectiveQuality, RunObjectiveRuntime)
	}

	if s.WallClockLimit == "" {
		return fmt.Errorf("wallclock_limit is required")
	}
	if d, err := s.GetWallClockLimit(); err != nil {
		return fmt.Errorf("invalid wallclock_limit %s: %w", s.WallClockLimit, err)
	} else if d <= 0 {
		return fmt.Errorf("wallclock_limit must be positive, got %s", s.WallClockLimit)
	}

	if d, err := s.GetCutoff(); err != nil {
		return fmt.Errorf("invalid cutoff %s: %w", s.Cutoff, err)
	} else if d < 0 {
		return fmt.Errorf("cutoff cannot be negative, got %s", s.Cutoff)
	}

	if s.MemoryLimitMB < 0 {
		return fmt.Errorf("memory_limit_mb cannot be negative, got %d", s.MemoryLimitMB)
	}

	if s.Intensifier != nil {
		if err := validateIntensifier(s.Intensifier); err != nil {
			return fmt.Errorf("intensifier validation failed: %w", err)
		}
	}

	if s.Search != nil {
		if err := validateSearch(s.Search); err != nil {
			return fmt.Errorf("search validation failed: %w", err)
		}
	}

	return nil
}

// validateIntensifier validates the budget ladder configuration
func validateIntensifier(i *Intensifier) error {
	if i.InitialBudget <= 0 {
		return fmt.Errorf("initial_budget must be positive, got %f", i.InitialBudget)
	}
	if i.MaxBudget < i.InitialBudget {
		return fmt.Errorf("max_budget (%f) must be >= initial_budget (%f)", i.MaxBudget, i.InitialBudget)
	}
	if i.Eta <= 1 {
		return fmt.Errorf("eta must be greater than 1, got %f", i.Eta)
	}
	return nil
}

// validateSearch validates the sampling loop configuration
func validateSearch(s *Search) error {
	if s.MaxRounds < 0 {
		return fmt.Errorf("max_rounds cannot be negative, got %d", s.MaxRounds)
	}
	if s.ChallengersPerRound < 0 {
		return fmt.Errorf("challengers_per_round cannot be negative, got %d", s.ChallengersPerRound)
	}
	if s.Parallelism < 0 {
		return fmt.Errorf("parallelism cannot be negative, got %d", s.Parallelism)
	}
	if c := s.Convergence; c != nil {
		if c.NoImprovementRounds < 0 {
			return fmt.Errorf("no_improvement_rounds cannot be negative, got %d", c.NoImprovementRounds)
		}
		if c.PlateauRounds < 0 {
			return fmt.Errorf("plateau_rounds cannot be negative, got %d", c.PlateauRounds)
		}
		if c.ScoreTolerance < 0 {
			return fmt.Errorf("score_tolerance cannot be negative, got %f", c.ScoreTolerance)
		}
	}
	return nil
}
