package hpod

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tunebench/hypertune/internal/hpo"
	"github.com/tunebench/hypertune/internal/runhistory"
	"github.com/tunebench/hypertune/pkg/config"
	"github.com/tunebench/hypertune/pkg/logger"
)

var (
	ErrExperimentNotFound  = errors.New("experiment not found")
	ErrExperimentTerminal  = errors.New("experiment is terminal")
	ErrExperimentIDMissing = errors.New("experiment_id is required")
)

// Executor manages asynchronous experiment execution and per-experiment
// cancellation.
type Executor struct {
	store    *ExperimentStore
	registry *Registry
	notifier *Notifier

	mu       sync.Mutex
	cancels  map[string]context.CancelFunc
	facades  map[string]*hpo.Facade
	progress map[string]hpo.ProgressUpdate
}

func NewExecutor(store *ExperimentStore, registry *Registry, notifier *Notifier) *Executor {
	return &Executor{
		store:    store,
		registry: registry,
		notifier: notifier,
		cancels:  make(map[string]context.CancelFunc),
		facades:  make(map[string]*hpo.Facade),
		progress: make(map[string]hpo.ProgressUpdate),
	}
}

// Start begins executing an experiment asynchronously.
// Returns the updated experiment state (running) or an error.
func (e *Executor) Start(id string) (*ExperimentRecord, error) {
	if id == "" {
		return nil, ErrExperimentIDMissing
	}

	rec, ok := e.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExperimentNotFound, id)
	}

	switch rec.Experiment.Status {
	case StatusRunning:
		return rec, nil
	case StatusCompleted, StatusFailed, StatusCancelled:
		return nil, fmt.Errorf("%w: %s", ErrExperimentTerminal, id)
	}

	facade, err := e.buildFacade(rec.Input)
	if err != nil {
		if _, setErr := e.store.SetStatus(id, StatusFailed, err.Error()); setErr != nil {
			logger.Error("failed to set failed status", "experiment_id", id, "error", setErr)
		}
		return nil, err
	}

	updated, err := e.store.SetStatus(id, StatusRunning, "")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	if old, exists := e.cancels[id]; exists {
		old()
	}
	e.cancels[id] = cancel
	e.facades[id] = facade
	e.mu.Unlock()

	go e.runExperiment(ctx, id, facade, rec.Input)
	return updated, nil
}

// Stop requests cancellation for a running experiment and marks it cancelled
func (e *Executor) Stop(id string) (*ExperimentRecord, error) {
	if id == "" {
		return nil, ErrExperimentIDMissing
	}

	rec, ok := e.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExperimentNotFound, id)
	}
	if rec.Experiment.Status.IsTerminal() {
		return rec, nil
	}

	e.mu.Lock()
	cancel, ok := e.cancels[id]
	e.mu.Unlock()
	if ok {
		cancel()
	}

	return e.store.SetStatus(id, StatusCancelled, "")
}

// History returns the trial log of an experiment, if it has started
func (e *Executor) History(id string) (*runhistory.Store, bool) {
	e.mu.Lock()
	facade, ok := e.facades[id]
	e.mu.Unlock()
	if !ok {
		return nil, false
	}
	return facade.History(), true
}

// Progress returns the latest round update of a running experiment
func (e *Executor) Progress(id string) (hpo.ProgressUpdate, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, ok := e.progress[id]
	return u, ok
}

func (e *Executor) buildFacade(input *ExperimentInput) (*hpo.Facade, error) {
	provider, ok := e.registry.Get(input.Objective)
	if !ok {
		return nil, fmt.Errorf("unknown objective: %s", input.Objective)
	}

	scenario, err := config.ParseScenarioYAMLString(input.ScenarioYAML)
	if err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if scenario.Intensifier == nil {
		scenario.Intensifier = config.DefaultScenario().Intensifier
	}

	sp, err := provider.Space()
	if err != nil {
		return nil, fmt.Errorf("objective space: %w", err)
	}

	return hpo.New(scenario, sp, provider.Target(), input.Seed)
}

func (e *Executor) cleanup(id string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[id]; ok {
		cancel()
		delete(e.cancels, id)
	}
	e.mu.Unlock()
}

func (e *Executor) runExperiment(ctx context.Context, id string, facade *hpo.Facade, input *ExperimentInput) {
	defer e.cleanup(id)

	// Mirror round updates into the progress snapshot for SSE consumers
	var progressWG sync.WaitGroup
	progressWG.Add(1)
	go func() {
		defer progressWG.Done()
		for u := range facade.Progress() {
			e.mu.Lock()
			e.progress[id] = u
			e.mu.Unlock()
		}
	}()

	incumbent, err := facade.Optimize(ctx)
	progressWG.Wait()

	trials := facade.History().Len()
	switch {
	case err != nil && ctx.Err() != nil:
		// Stop already set the cancelled status
		logger.Info("experiment cancelled", "experiment_id", id, "trials", trials)
	case err != nil:
		logger.Error("experiment failed", "experiment_id", id, "error", err)
		if _, setErr := e.store.SetStatus(id, StatusFailed, err.Error()); setErr != nil {
			logger.Error("failed to set failed status", "experiment_id", id, "error", setErr)
		}
	default:
		_, cost, _ := facade.Incumbent()
		if err := e.store.SetResult(id, incumbent.Key(), cost, trials); err != nil {
			logger.Error("failed to record result", "experiment_id", id, "error", err)
		}
		// Stop may have marked the experiment cancelled while the final
		// round finished; leave that status in place.
		if exp, ok := e.store.Snapshot(id); ok && !exp.Status.IsTerminal() {
			if _, setErr := e.store.SetStatus(id, StatusCompleted, ""); setErr != nil {
				logger.Error("failed to set completed status", "experiment_id", id, "error", setErr)
			}
		}
		logger.Info("experiment completed",
			"experiment_id", id,
			"incumbent", incumbent.Key(),
			"cost", cost,
			"trials", trials)
	}

	if e.notifier != nil {
		if exp, ok := e.store.Snapshot(id); ok {
			e.notifier.Notify(input.CallbackURL, input.CallbackSecret, &exp)
		}
	}
}
