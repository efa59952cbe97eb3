package mlp

import (
	"context"
	"fmt"
	"sort"

	"github.com/tunebench/hypertune/pkg/utils"
)

// StratifiedKFold splits sample indices into k folds that preserve the
// per-class proportions of y. The split is deterministic for a given seed.
func StratifiedKFold(y []int, k int, seed int64) ([][]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("need at least 2 folds, got %d", k)
	}
	if len(y) < k {
		return nil, fmt.Errorf("cannot split %d samples into %d folds", len(y), k)
	}

	byClass := make(map[int][]int)
	for i, class := range y {
		byClass[class] = append(byClass[class], i)
	}

	rng := utils.NewRandSource(seed)
	folds := make([][]int, k)

	// Deal each class's samples round-robin across the folds so every
	// fold sees roughly the same class mix.
	classes := make([]int, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	// map iteration order is random; sort for determinism
	sort.Ints(classes)

	next := 0
	for _, class := range classes {
		indices := byClass[class]
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		for _, idx := range indices {
			folds[next%k] = append(folds[next%k], idx)
			next++
		}
	}
	return folds, nil
}

// CrossValAccuracy trains one classifier per fold, holding that fold out
// for evaluation, and returns the mean held-out accuracy.
func CrossValAccuracy(ctx context.Context, cfg ClassifierConfig, ds *Dataset, folds int, epochs int, seed int64) (float64, error) {
	split, err := StratifiedKFold(ds.Y, folds, seed)
	if err != nil {
		return 0, err
	}

	scores := make([]float64, 0, folds)
	for fi, holdout := range split {
		train := make([]int, 0, ds.Len()-len(holdout))
		for fj, fold := range split {
			if fj != fi {
				train = append(train, fold...)
			}
		}

		foldCfg := cfg
		foldCfg.Seed = seed + int64(fi)
		clf, err := NewClassifier(foldCfg)
		if err != nil {
			return 0, err
		}
		if err := clf.Train(ctx, ds.Subset(train), epochs); err != nil {
			return 0, err
		}
		scores = append(scores, clf.Accuracy(ds.Subset(holdout)))
	}
	return utils.Mean(scores), nil
}
