package mlp

import (
	"context"
	"fmt"
	"math"

	"github.com/tunebench/hypertune/pkg/utils"
)

// Supported activation functions
const (
	ActivationLogistic = "logistic"
	ActivationTanh     = "tanh"
	ActivationReLU     = "relu"
)

// Supported weight-update rules. SolverLBFGS trains with full-batch
// gradient descent; the other two use mini-batches.
const (
	SolverLBFGS = "lbfgs"
	SolverSGD   = "sgd"
	SolverAdam  = "adam"
)

const defaultBatchSize = 32

// ClassifierConfig describes the architecture and training setup of a
// feed-forward classifier.
type ClassifierConfig struct {
	HiddenLayers int
	HiddenUnits  int
	Activation   string
	Solver       string
	LearningRate float64
	BatchSize    int
	Seed         int64
}

func (c ClassifierConfig) validate() error {
	if c.HiddenLayers < 1 {
		return fmt.Errorf("hidden layers must be at least 1, got %d", c.HiddenLayers)
	}
	if c.HiddenUnits < 1 {
		return fmt.Errorf("hidden units must be at least 1, got %d", c.HiddenUnits)
	}
	switch c.Activation {
	case ActivationLogistic, ActivationTanh, ActivationReLU:
	default:
		return fmt.Errorf("unknown activation %q", c.Activation)
	}
	switch c.Solver {
	case SolverLBFGS, SolverSGD, SolverAdam:
	default:
		return fmt.Errorf("unknown solver %q", c.Solver)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %v", c.LearningRate)
	}
	return nil
}

type layer struct {
	w [][]float64 // [out][in]
	b []float64

	// adam moment estimates
	mw, vw [][]float64
	mb, vb []float64
}

// Classifier is a softmax-output multilayer perceptron trained with
// cross-entropy loss. The training epoch count is supplied at Train time
// so callers can trade accuracy for runtime.
type Classifier struct {
	cfg    ClassifierConfig
	layers []*layer
	rng    *utils.RandSource
	steps  int
}

// NewClassifier validates the configuration and returns an untrained
// classifier. Weights are initialized lazily on the first Train call,
// once the input dimension is known.
func NewClassifier(cfg ClassifierConfig) (*Classifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Classifier{
		cfg: cfg,
		rng: utils.NewRandSource(cfg.Seed),
	}, nil
}

func (c *Classifier) init(inputs, classes int) {
	sizes := make([]int, 0, c.cfg.HiddenLayers+2)
	sizes = append(sizes, inputs)
	for i := 0; i < c.cfg.HiddenLayers; i++ {
		sizes = append(sizes, c.cfg.HiddenUnits)
	}
	sizes = append(sizes, classes)

	c.layers = make([]*layer, len(sizes)-1)
	for i := range c.layers {
		in, out := sizes[i], sizes[i+1]
		l := &layer{
			w:  make([][]float64, out),
			b:  make([]float64, out),
			mw: make([][]float64, out),
			vw: make([][]float64, out),
			mb: make([]float64, out),
			vb: make([]float64, out),
		}
		// Xavier-style scale keeps early activations in range
		scale := math.Sqrt(2.0 / float64(in+out))
		for j := 0; j < out; j++ {
			l.w[j] = make([]float64, in)
			l.mw[j] = make([]float64, in)
			l.vw[j] = make([]float64, in)
			for k := 0; k < in; k++ {
				l.w[j][k] = c.rng.NormFloat64(0, scale)
			}
		}
		c.layers[i] = l
	}
}

// Train runs the given number of epochs over the dataset. It checks ctx
// between epochs and returns the context error if training is cancelled.
func (c *Classifier) Train(ctx context.Context, ds *Dataset, epochs int) error {
	if ds.Len() == 0 {
		return fmt.Errorf("cannot train on an empty dataset")
	}
	if epochs < 1 {
		return fmt.Errorf("epochs must be at least 1, got %d", epochs)
	}
	if c.layers == nil {
		c.init(ds.Features(), ds.Classes)
	}

	batch := c.cfg.BatchSize
	if c.cfg.Solver == SolverLBFGS {
		batch = ds.Len()
	}

	order := make([]int, ds.Len())
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		for start := 0; start < len(order); start += batch {
			end := utils.Min(start+batch, len(order))
			c.trainBatch(ds, order[start:end])
		}
	}
	return nil
}

func (c *Classifier) trainBatch(ds *Dataset, indices []int) {
	gw := make([][][]float64, len(c.layers))
	gb := make([][]float64, len(c.layers))
	for i, l := range c.layers {
		gw[i] = make([][]float64, len(l.w))
		for j := range l.w {
			gw[i][j] = make([]float64, len(l.w[j]))
		}
		gb[i] = make([]float64, len(l.b))
	}

	for _, idx := range indices {
		activations := c.forward(ds.X[idx])
		probs := activations[len(activations)-1]

		// softmax cross-entropy gradient at the output
		delta := make([]float64, len(probs))
		copy(delta, probs)
		delta[ds.Y[idx]] -= 1

		for li := len(c.layers) - 1; li >= 0; li-- {
			l := c.layers[li]
			input := activations[li]
			for j := range l.w {
				for k := range l.w[j] {
					gw[li][j][k] += delta[j] * input[k]
				}
				gb[li][j] += delta[j]
			}
			if li == 0 {
				break
			}
			next := make([]float64, len(input))
			for k := range input {
				var sum float64
				for j := range l.w {
					sum += l.w[j][k] * delta[j]
				}
				next[k] = sum * c.activationDeriv(input[k])
			}
			delta = next
		}
	}

	n := float64(len(indices))
	c.steps++
	for li, l := range c.layers {
		for j := range l.w {
			for k := range l.w[j] {
				c.applyGradient(&l.w[j][k], &l.mw[j][k], &l.vw[j][k], gw[li][j][k]/n)
			}
			c.applyGradient(&l.b[j], &l.mb[j], &l.vb[j], gb[li][j]/n)
		}
	}
}

func (c *Classifier) applyGradient(w, m, v *float64, g float64) {
	lr := c.cfg.LearningRate
	if c.cfg.Solver != SolverAdam {
		*w -= lr * g
		return
	}

	const (
		beta1 = 0.9
		beta2 = 0.999
		eps   = 1e-8
	)
	*m = beta1**m + (1-beta1)*g
	*v = beta2**v + (1-beta2)*g*g
	t := float64(c.steps)
	mHat := *m / (1 - math.Pow(beta1, t))
	vHat := *v / (1 - math.Pow(beta2, t))
	*w -= lr * mHat / (math.Sqrt(vHat) + eps)
}

// forward returns the activation vectors of every layer, input first and
// softmax output last.
func (c *Classifier) forward(x []float64) [][]float64 {
	activations := make([][]float64, 0, len(c.layers)+1)
	activations = append(activations, x)

	cur := x
	for li, l := range c.layers {
		out := make([]float64, len(l.w))
		for j := range l.w {
			sum := l.b[j]
			for k, wk := range l.w[j] {
				sum += wk * cur[k]
			}
			out[j] = sum
		}
		if li < len(c.layers)-1 {
			for j := range out {
				out[j] = c.activate(out[j])
			}
		} else {
			softmax(out)
		}
		activations = append(activations, out)
		cur = out
	}
	return activations
}

func (c *Classifier) activate(z float64) float64 {
	switch c.cfg.Activation {
	case ActivationLogistic:
		return 1 / (1 + math.Exp(-z))
	case ActivationTanh:
		return math.Tanh(z)
	default:
		return math.Max(0, z)
	}
}

// activationDeriv computes the derivative from the activated value
func (c *Classifier) activationDeriv(a float64) float64 {
	switch c.cfg.Activation {
	case ActivationLogistic:
		return a * (1 - a)
	case ActivationTanh:
		return 1 - a*a
	default:
		if a > 0 {
			return 1
		}
		return 0
	}
}

func softmax(z []float64) {
	max := z[0]
	for _, v := range z[1:] {
		if v > max {
			max = v
		}
	}
	var sum float64
	for i, v := range z {
		z[i] = math.Exp(v - max)
		sum += z[i]
	}
	for i := range z {
		z[i] /= sum
	}
}

// Predict returns the class with the highest predicted probability
func (c *Classifier) Predict(x []float64) int {
	if c.layers == nil {
		return 0
	}
	activations := c.forward(x)
	probs := activations[len(activations)-1]
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best
}

// Accuracy returns the fraction of correctly classified samples
func (c *Classifier) Accuracy(ds *Dataset) float64 {
	if ds.Len() == 0 {
		return 0
	}
	correct := 0
	for i := range ds.X {
		if c.Predict(ds.X[i]) == ds.Y[i] {
			correct++
		}
	}
	return float64(correct) / float64(ds.Len())
}
