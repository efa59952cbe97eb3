package mlp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunebench/hypertune/internal/tae"
	"github.com/tunebench/hypertune/pkg/utils"
)

func TestSyntheticClustersDeterministic(t *testing.T) {
	a, err := SyntheticClusters(42, 90, 4, 3)
	require.NoError(t, err)
	b, err := SyntheticClusters(42, 90, 4, 3)
	require.NoError(t, err)

	assert.Equal(t, 90, a.Len())
	assert.Equal(t, 4, a.Features())
	assert.Equal(t, a.Y, b.Y)
	assert.Equal(t, a.X, b.X)

	c, err := SyntheticClusters(7, 90, 4, 3)
	require.NoError(t, err)
	assert.NotEqual(t, a.X, c.X)
}

func TestSyntheticClustersBalanced(t *testing.T) {
	ds, err := SyntheticClusters(1, 300, 2, 3)
	require.NoError(t, err)

	counts := make(map[int]int)
	for _, y := range ds.Y {
		counts[y]++
	}
	for class := 0; class < 3; class++ {
		assert.Equal(t, 100, counts[class], "class %d", class)
	}
}

func TestSyntheticClustersValidation(t *testing.T) {
	_, err := SyntheticClusters(1, 2, 4, 3)
	assert.Error(t, err)
	_, err = SyntheticClusters(1, 100, 1, 3)
	assert.Error(t, err)
	_, err = SyntheticClusters(1, 100, 4, 1)
	assert.Error(t, err)
}

func TestStratifiedKFold(t *testing.T) {
	y := make([]int, 100)
	for i := range y {
		y[i] = i % 4
	}

	folds, err := StratifiedKFold(y, 5, 42)
	require.NoError(t, err)
	require.Len(t, folds, 5)

	seen := make(map[int]bool)
	for _, fold := range folds {
		assert.Len(t, fold, 20)
		counts := make(map[int]int)
		for _, idx := range fold {
			assert.False(t, seen[idx], "index %d appears in two folds", idx)
			seen[idx] = true
			counts[y[idx]]++
		}
		for class := 0; class < 4; class++ {
			assert.Equal(t, 5, counts[class], "class balance in fold")
		}
	}
	assert.Len(t, seen, 100)

	again, err := StratifiedKFold(y, 5, 42)
	require.NoError(t, err)
	assert.Equal(t, folds, again)
}

func TestStratifiedKFoldValidation(t *testing.T) {
	_, err := StratifiedKFold([]int{0, 1}, 1, 0)
	assert.Error(t, err)
	_, err = StratifiedKFold([]int{0, 1}, 3, 0)
	assert.Error(t, err)
}

func TestClassifierConfigValidation(t *testing.T) {
	valid := ClassifierConfig{
		HiddenLayers: 1,
		HiddenUnits:  8,
		Activation:   ActivationReLU,
		Solver:       SolverAdam,
		LearningRate: 0.01,
	}

	_, err := NewClassifier(valid)
	assert.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(*ClassifierConfig)
	}{
		{"no layers", func(c *ClassifierConfig) { c.HiddenLayers = 0 }},
		{"no units", func(c *ClassifierConfig) { c.HiddenUnits = 0 }},
		{"bad activation", func(c *ClassifierConfig) { c.Activation = "swish" }},
		{"bad solver", func(c *ClassifierConfig) { c.Solver = "newton" }},
		{"bad learning rate", func(c *ClassifierConfig) { c.LearningRate = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			_, err := NewClassifier(cfg)
			assert.Error(t, err)
		})
	}
}

func TestClassifierLearnsSeparableClusters(t *testing.T) {
	ds, err := SyntheticClusters(3, 120, 2, 2)
	require.NoError(t, err)

	clf, err := NewClassifier(ClassifierConfig{
		HiddenLayers: 1,
		HiddenUnits:  16,
		Activation:   ActivationReLU,
		Solver:       SolverAdam,
		LearningRate: 0.01,
		Seed:         1,
	})
	require.NoError(t, err)

	require.NoError(t, clf.Train(context.Background(), ds, 100))
	assert.Greater(t, clf.Accuracy(ds), 0.8, "well separated clusters should be learnable")
}

func TestClassifierTrainCancellation(t *testing.T) {
	ds, err := SyntheticClusters(3, 60, 2, 2)
	require.NoError(t, err)

	clf, err := NewClassifier(ClassifierConfig{
		HiddenLayers: 1,
		HiddenUnits:  8,
		Activation:   ActivationTanh,
		Solver:       SolverSGD,
		LearningRate: 0.01,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, clf.Train(ctx, ds, 10), context.Canceled)
}

func TestSpaceDefaults(t *testing.T) {
	s, err := Space()
	require.NoError(t, err)
	assert.Equal(t, 6, s.Len())

	def := s.DefaultConfiguration()
	n, err := def.Int(ParamLayers)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = def.Int(ParamNeurons)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	act, err := def.Str(ParamActivation)
	require.NoError(t, err)
	assert.Equal(t, ActivationTanh, act)

	solver, err := def.Str(ParamSolver)
	require.NoError(t, err)
	assert.Equal(t, SolverAdam, solver)

	batch, err := def.Int(ParamBatchSize)
	require.NoError(t, err)
	assert.Equal(t, 200, batch)

	lr, err := def.Float(ParamLearnRate)
	require.NoError(t, err)
	assert.InDelta(t, 1e-3, lr, 1e-12)

	require.NoError(t, s.Validate(def))
}

func TestSpaceTunesBatchSize(t *testing.T) {
	s, err := Space()
	require.NoError(t, err)

	cfg := s.Sample(utils.NewRandSource(7))
	cc, err := configFromValues(cfg, 7)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cc.BatchSize, 30)
	assert.LessOrEqual(t, cc.BatchSize, 300)
	assert.GreaterOrEqual(t, cc.LearningRate, 1e-4)
}

func TestObjectiveCost(t *testing.T) {
	ds, err := SyntheticClusters(5, 60, 2, 2)
	require.NoError(t, err)

	s, err := Space()
	require.NoError(t, err)

	target := Objective(ds, 3)
	cost, err := target(context.Background(), tae.RunSpec{
		Config: s.DefaultConfiguration(),
		Seed:   42,
		Budget: 5,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cost, 0.0)
	assert.LessOrEqual(t, cost, 1.0)
}

func TestObjectiveRejectsBadConfig(t *testing.T) {
	ds, err := SyntheticClusters(5, 60, 2, 2)
	require.NoError(t, err)

	target := Objective(ds, 3)
	_, err = target(context.Background(), tae.RunSpec{
		Config: map[string]any{ParamLayers: 2},
		Seed:   1,
		Budget: 5,
	})
	assert.Error(t, err)
}
