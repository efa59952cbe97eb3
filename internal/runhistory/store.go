// Package runhistory records every target evaluation performed during an
// experiment: configuration, budget, seed, outcome and the incumbent
// trajectory. The in-memory store backs the search loop; the SQLite store
// persists trials for inspection after the process exits.
package runhistory

import (
	"fmt"
	"sync"
	"time"

	"github.com/tunebench/hypertune/internal/space"
	"github.com/tunebench/hypertune/internal/tae"
)

// Trial is one recorded target evaluation
type Trial struct {
	ID           string              `json:"id"`
	ExperimentID string              `json:"experiment_id"`
	Config       space.Configuration `json:"config"`
	ConfigKey    string              `json:"config_key"`
	Instance     string              `json:"instance,omitempty"`
	Seed         int64               `json:"seed"`
	Budget       float64             `json:"budget"`
	Status       tae.Status          `json:"status"`
	Cost         float64             `json:"cost"`
	RuntimeMs    int64               `json:"runtime_ms"`
	Error        string              `json:"error,omitempty"`
	Incumbent    bool                `json:"incumbent"`
	CreatedAt    time.Time           `json:"created_at"`
}

// Store is an in-memory, append-only trial log
type Store struct {
	mu     sync.RWMutex
	trials []*Trial
	byID   map[string]*Trial
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		byID: make(map[string]*Trial),
	}
}

// Add appends a trial to the log
func (s *Store) Add(t *Trial) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("trial id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[t.ID]; exists {
		return fmt.Errorf("trial already exists: %s", t.ID)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.trials = append(s.trials, t)
	s.byID[t.ID] = t
	return nil
}

// Get returns the trial with the given ID
func (s *Store) Get(id string) (*Trial, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byID[id]
	return t, ok
}

// List returns trials in insertion order, paginated
func (s *Store) List(limit, offset int) []*Trial {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 || offset >= len(s.trials) {
		return nil
	}
	end := offset + limit
	if end > len(s.trials) {
		end = len(s.trials)
	}
	out := make([]*Trial, end-offset)
	copy(out, s.trials[offset:end])
	return out
}

// Len returns the number of recorded trials
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trials)
}

// Best returns the successful trial with the lowest cost at or above the
// given budget, or nil if no such trial exists.
func (s *Store) Best(minBudget float64) *Trial {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *Trial
	for _, t := range s.trials {
		if t.Status != tae.StatusSuccess || t.Budget < minBudget {
			continue
		}
		if best == nil || t.Cost < best.Cost {
			best = t
		}
	}
	return best
}

// IncumbentTrajectory returns the trials that were incumbent when recorded,
// in order.
func (s *Store) IncumbentTrajectory() []*Trial {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Trial, 0)
	for _, t := range s.trials {
		if t.Incumbent {
			out = append(out, t)
		}
	}
	return out
}

// CountByStatus returns trial counts keyed by status
func (s *Store) CountByStatus() map[tae.Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[tae.Status]int)
	for _, t := range s.trials {
		out[t.Status]++
	}
	return out
}
