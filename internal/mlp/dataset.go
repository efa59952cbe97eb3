package mlp

import (
	"fmt"
	"math"

	"github.com/tunebench/hypertune/pkg/utils"
)

// Dataset holds a classification dataset as dense feature rows with
// integer class labels in [0, Classes).
type Dataset struct {
	X       [][]float64
	Y       []int
	Classes int
}

// Len returns the number of samples
func (d *Dataset) Len() int {
	return len(d.X)
}

// Features returns the feature dimension, or 0 for an empty dataset
func (d *Dataset) Features() int {
	if len(d.X) == 0 {
		return 0
	}
	return len(d.X[0])
}

// Subset returns a view of the dataset restricted to the given row indices
func (d *Dataset) Subset(indices []int) *Dataset {
	x := make([][]float64, len(indices))
	y := make([]int, len(indices))
	for i, idx := range indices {
		x[i] = d.X[idx]
		y[i] = d.Y[idx]
	}
	return &Dataset{X: x, Y: y, Classes: d.Classes}
}

// SyntheticClusters generates a deterministic classification dataset of
// Gaussian clusters, one cluster per class, arranged on a circle in the
// first two feature dimensions. The same seed always produces the same
// dataset.
func SyntheticClusters(seed int64, samples, features, classes int) (*Dataset, error) {
	if samples < classes {
		return nil, fmt.Errorf("need at least one sample per class, got %d samples for %d classes", samples, classes)
	}
	if features < 2 {
		return nil, fmt.Errorf("need at least 2 features, got %d", features)
	}
	if classes < 2 {
		return nil, fmt.Errorf("need at least 2 classes, got %d", classes)
	}

	rng := utils.NewRandSource(seed)
	centers := clusterCenters(classes, features)

	x := make([][]float64, samples)
	y := make([]int, samples)
	for i := 0; i < samples; i++ {
		class := i % classes
		row := make([]float64, features)
		for j := 0; j < features; j++ {
			row[j] = rng.NormFloat64(centers[class][j], 0.5)
		}
		x[i] = row
		y[i] = class
	}

	// Shuffle rows so folds are not trivially ordered by class
	rng.Shuffle(samples, func(i, j int) {
		x[i], x[j] = x[j], x[i]
		y[i], y[j] = y[j], y[i]
	})

	return &Dataset{X: x, Y: y, Classes: classes}, nil
}

func clusterCenters(classes, features int) [][]float64 {
	const radius = 4.0
	centers := make([][]float64, classes)
	for c := 0; c < classes; c++ {
		center := make([]float64, features)
		angle := 2 * math.Pi * float64(c) / float64(classes)
		center[0] = radius * math.Cos(angle)
		center[1] = radius * math.Sin(angle)
		centers[c] = center
	}
	return centers
}
