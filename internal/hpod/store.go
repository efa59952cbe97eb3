// Package hpod hosts optimization experiments behind a small HTTP API:
// experiments are created, started and stopped by ID, and their trial
// history and progress can be inspected while they run.
package hpod

import (
	"fmt"
	"sync"
	"time"

	"github.com/tunebench/hypertune/pkg/utils"
)

// ExperimentStatus is the lifecycle state of an experiment
type ExperimentStatus string

const (
	StatusPending   ExperimentStatus = "pending"
	StatusRunning   ExperimentStatus = "running"
	StatusCompleted ExperimentStatus = "completed"
	StatusFailed    ExperimentStatus = "failed"
	StatusCancelled ExperimentStatus = "cancelled"
)

// IsTerminal reports whether the status is final
func (s ExperimentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ExperimentInput is what a caller submits to create an experiment
type ExperimentInput struct {
	Objective      string `json:"objective"`
	ScenarioYAML   string `json:"scenario_yaml"`
	Seed           int64  `json:"seed"`
	CallbackURL    string `json:"callback_url,omitempty"`
	CallbackSecret string `json:"callback_secret,omitempty"`
}

// Experiment is the observable state of one optimization
type Experiment struct {
	ID              string           `json:"id"`
	Objective       string           `json:"objective"`
	Status          ExperimentStatus `json:"status"`
	CreatedAtUnixMs int64            `json:"created_at_unix_ms"`
	StartedAtUnixMs int64            `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64            `json:"ended_at_unix_ms,omitempty"`
	Error           string           `json:"error,omitempty"`
	IncumbentKey    string           `json:"incumbent_key,omitempty"`
	IncumbentCost   float64          `json:"incumbent_cost,omitempty"`
	TrialsRun       int              `json:"trials_run,omitempty"`
}

// ExperimentRecord pairs an experiment with its submitted input
type ExperimentRecord struct {
	Experiment *Experiment
	Input      *ExperimentInput
}

// ExperimentStore holds experiment records in memory
type ExperimentStore struct {
	mu          sync.RWMutex
	experiments map[string]*ExperimentRecord
	order       []string
}

func NewExperimentStore() *ExperimentStore {
	return &ExperimentStore{
		experiments: make(map[string]*ExperimentRecord),
	}
}

func nowUnixMs() int64 {
	return time.Now().UTC().UnixMilli()
}

// Create registers a new pending experiment. An empty ID gets generated.
func (s *ExperimentStore) Create(id string, input *ExperimentInput) (*ExperimentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = utils.GenerateExperimentID()
	}
	if _, exists := s.experiments[id]; exists {
		return nil, fmt.Errorf("experiment already exists: %s", id)
	}

	rec := &ExperimentRecord{
		Experiment: &Experiment{
			ID:              id,
			Objective:       input.Objective,
			Status:          StatusPending,
			CreatedAtUnixMs: nowUnixMs(),
		},
		Input: input,
	}
	s.experiments[id] = rec
	s.order = append(s.order, id)
	return rec, nil
}

func (s *ExperimentStore) Get(id string) (*ExperimentRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.experiments[id]
	return rec, ok
}

// List returns experiments in creation order, newest last
func (s *ExperimentStore) List(limit int) []*ExperimentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	out := make([]*ExperimentRecord, 0, utils.Min(limit, len(s.order)))
	for _, id := range s.order {
		out = append(out, s.experiments[id])
		if len(out) >= limit {
			break
		}
	}
	return out
}

// SetStatus transitions an experiment and stamps the lifecycle timestamps
func (s *ExperimentStore) SetStatus(id string, status ExperimentStatus, errMsg string) (*ExperimentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.experiments[id]
	if !ok {
		return nil, fmt.Errorf("experiment not found: %s", id)
	}

	rec.Experiment.Status = status
	if errMsg != "" {
		rec.Experiment.Error = errMsg
	}

	switch status {
	case StatusRunning:
		if rec.Experiment.StartedAtUnixMs == 0 {
			rec.Experiment.StartedAtUnixMs = nowUnixMs()
		}
	case StatusCompleted, StatusFailed, StatusCancelled:
		if rec.Experiment.EndedAtUnixMs == 0 {
			rec.Experiment.EndedAtUnixMs = nowUnixMs()
		}
	}
	return rec, nil
}

// SetResult records the search outcome on the experiment
func (s *ExperimentStore) SetResult(id, incumbentKey string, incumbentCost float64, trials int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.experiments[id]
	if !ok {
		return fmt.Errorf("experiment not found: %s", id)
	}
	rec.Experiment.IncumbentKey = incumbentKey
	rec.Experiment.IncumbentCost = incumbentCost
	rec.Experiment.TrialsRun = trials
	return nil
}

// Snapshot returns a copy of the experiment state for safe serving
func (s *ExperimentStore) Snapshot(id string) (Experiment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.experiments[id]
	if !ok {
		return Experiment{}, false
	}
	return *rec.Experiment, true
}
