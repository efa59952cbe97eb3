package mlp

import (
	"context"
	"fmt"
	"math"

	"github.com/tunebench/hypertune/internal/space"
	"github.com/tunebench/hypertune/internal/tae"
)

// Tunable parameter names
const (
	ParamLayers     = "n_layer"
	ParamNeurons    = "n_neurons"
	ParamActivation = "activation"
	ParamSolver     = "solver"
	ParamBatchSize  = "batch_size"
	ParamLearnRate  = "learning_rate_init"
)

const defaultFolds = 5

// Space returns the tunable parameter space of the classifier: depth and
// width of the network, activation, solver, batch size and initial
// learning rate.
// Width and learning rate are sampled log-uniformly since their useful
// values span orders of magnitude.
func Space() (*space.Space, error) {
	s := space.New()
	err := s.Add(
		space.NewIntParam(ParamLayers, 1, 5).WithDefault(1),
		space.NewIntParam(ParamNeurons, 8, 1024).WithLog().WithDefault(10),
		space.NewCategoricalParam(ParamActivation, ActivationLogistic, ActivationTanh, ActivationReLU).WithDefault(ActivationTanh),
		space.NewCategoricalParam(ParamSolver, SolverLBFGS, SolverSGD, SolverAdam).WithDefault(SolverAdam),
		space.NewIntParam(ParamBatchSize, 30, 300).WithDefault(200),
		space.NewFloatParam(ParamLearnRate, 1e-4, 1.0).WithLog().WithDefault(1e-3),
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// configFromValues maps a sampled configuration onto a classifier setup
func configFromValues(cfg space.Configuration, seed int64) (ClassifierConfig, error) {
	layers, err := cfg.Int(ParamLayers)
	if err != nil {
		return ClassifierConfig{}, err
	}
	neurons, err := cfg.Int(ParamNeurons)
	if err != nil {
		return ClassifierConfig{}, err
	}
	activation, err := cfg.Str(ParamActivation)
	if err != nil {
		return ClassifierConfig{}, err
	}
	solver, err := cfg.Str(ParamSolver)
	if err != nil {
		return ClassifierConfig{}, err
	}
	batch, err := cfg.Int(ParamBatchSize)
	if err != nil {
		return ClassifierConfig{}, err
	}
	lr, err := cfg.Float(ParamLearnRate)
	if err != nil {
		return ClassifierConfig{}, err
	}
	return ClassifierConfig{
		HiddenLayers: layers,
		HiddenUnits:  neurons,
		Activation:   activation,
		Solver:       solver,
		BatchSize:    batch,
		LearningRate: lr,
		Seed:         seed,
	}, nil
}

// Objective builds a target function that trains the classifier under
// cross-validation and reports 1 - mean accuracy as the cost to minimize.
// The run budget is interpreted as the number of training epochs.
func Objective(ds *Dataset, folds int) tae.TargetFunc {
	if folds < 2 {
		folds = defaultFolds
	}
	return func(ctx context.Context, spec tae.RunSpec) (float64, error) {
		cfg, err := configFromValues(spec.Config, spec.Seed)
		if err != nil {
			return 0, err
		}
		epochs := int(math.Ceil(spec.Budget))
		if epochs < 1 {
			return 0, fmt.Errorf("budget must be at least 1 epoch, got %v", spec.Budget)
		}

		acc, err := CrossValAccuracy(ctx, cfg, ds, folds, epochs, spec.Seed)
		if err != nil {
			return 0, err
		}
		return 1 - acc, nil
	}
}
