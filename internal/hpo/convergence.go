package hpo

import (
	"fmt"
	"math"

	"github.com/tunebench/hypertune/pkg/config"
)

// RoundResult records the state of the search after one round of challengers
type RoundResult struct {
	Round         int
	IncumbentCost float64
	TrialsRun     int
}

// ConvergenceStrategy defines how to detect that the search has converged
type ConvergenceStrategy interface {
	// Check inspects the per-round history and reports convergence
	Check(history []RoundResult) (bool, string)
	// Name returns the name of the convergence strategy
	Name() string
}

// DefaultConvergence returns the default early-stopping configuration
func DefaultConvergence() *config.Convergence {
	return &config.Convergence{
		NoImprovementRounds: 5,
		PlateauRounds:       5,
		ScoreTolerance:      1e-4,
		MinRounds:           3,
	}
}

// NoImprovementStrategy stops when the incumbent has not improved for N rounds
type NoImprovementStrategy struct {
	cfg *config.Convergence
}

// NewNoImprovementStrategy creates a new no-improvement convergence strategy
func NewNoImprovementStrategy(cfg *config.Convergence) *NoImprovementStrategy {
	if cfg == nil {
		cfg = DefaultConvergence()
	}
	return &NoImprovementStrategy{cfg: cfg}
}

func (s *NoImprovementStrategy) Name() string {
	return "no_improvement"
}

func (s *NoImprovementStrategy) Check(history []RoundResult) (bool, string) {
	if len(history) < s.cfg.MinRounds {
		return false, ""
	}

	bestCost := math.MaxFloat64
	bestRound := -1
	for i, r := range history {
		if r.IncumbentCost < bestCost {
			bestCost = r.IncumbentCost
			bestRound = i
		}
	}
	if bestRound < 0 {
		return false, ""
	}

	roundsSinceBest := len(history) - 1 - bestRound
	if roundsSinceBest >= s.cfg.NoImprovementRounds {
		return true, fmt.Sprintf("no improvement for %d rounds (best at round %d)", roundsSinceBest, history[bestRound].Round)
	}
	return false, ""
}

// PlateauStrategy stops when recent incumbent costs stay within tolerance
type PlateauStrategy struct {
	cfg *config.Convergence
}

// NewPlateauStrategy creates a new plateau convergence strategy
func NewPlateauStrategy(cfg *config.Convergence) *PlateauStrategy {
	if cfg == nil {
		cfg = DefaultConvergence()
	}
	return &PlateauStrategy{cfg: cfg}
}

func (s *PlateauStrategy) Name() string {
	return "plateau"
}

func (s *PlateauStrategy) Check(history []RoundResult) (bool, string) {
	if len(history) < s.cfg.MinRounds || len(history) < s.cfg.PlateauRounds {
		return false, ""
	}

	recent := history[len(history)-s.cfg.PlateauRounds:]
	minCost := recent[0].IncumbentCost
	maxCost := recent[0].IncumbentCost
	for _, r := range recent {
		if r.IncumbentCost < minCost {
			minCost = r.IncumbentCost
		}
		if r.IncumbentCost > maxCost {
			maxCost = r.IncumbentCost
		}
	}

	costRange := maxCost - minCost
	if costRange <= s.cfg.ScoreTolerance {
		return true, fmt.Sprintf("cost plateaued for %d rounds (range: %.6f)", s.cfg.PlateauRounds, costRange)
	}
	return false, ""
}

// CombinedStrategy converges as soon as any member strategy does
type CombinedStrategy struct {
	strategies []ConvergenceStrategy
}

// NewCombinedStrategy creates the default strategy set
func NewCombinedStrategy(cfg *config.Convergence) *CombinedStrategy {
	if cfg == nil {
		cfg = DefaultConvergence()
	}
	return &CombinedStrategy{
		strategies: []ConvergenceStrategy{
			NewNoImprovementStrategy(cfg),
			NewPlateauStrategy(cfg),
		},
	}
}

func (s *CombinedStrategy) Name() string {
	return "combined"
}

func (s *CombinedStrategy) Check(history []RoundResult) (bool, string) {
	for _, strategy := range s.strategies {
		if converged, reason := strategy.Check(history); converged {
			return true, fmt.Sprintf("%s: %s", strategy.Name(), reason)
		}
	}
	return false, ""
}
