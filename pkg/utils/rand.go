package utils

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// RandSource is a thread-safe random number generator
type RandSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandSource creates a new random source with the given seed
func NewRandSource(seed int64) *RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSource{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

// Intn returns a random int in [0, n)
func (r *RandSource) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// NormFloat64 returns a normally distributed random number with mean and stddev
func (r *RandSource) NormFloat64(mean, stddev float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.NormFloat64()*stddev + mean
}

// UniformFloat64 returns a uniformly distributed random number in [min, max)
func (r *RandSource) UniformFloat64(min, max float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return min + r.rng.Float64()*(max-min)
}

// UniformInt returns a uniformly distributed random int in [min, max]
func (r *RandSource) UniformInt(min, max int) int {
	if max <= min {
		return min
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return min + r.rng.Intn(max-min+1)
}

// LogUniformFloat64 returns a random number in [min, max) whose logarithm is
// uniformly distributed. min must be positive.
func (r *RandSource) LogUniformFloat64(min, max float64) float64 {
	if min <= 0 || max <= min {
		return min
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	lo := math.Log(min)
	hi := math.Log(max)
	return math.Exp(lo + r.rng.Float64()*(hi-lo))
}

// LogUniformInt returns a random int in [min, max] sampled log-uniformly.
// min must be positive.
func (r *RandSource) LogUniformInt(min, max int) int {
	if min <= 0 || max <= min {
		return min
	}
	v := r.LogUniformFloat64(float64(min), float64(max)+1)
	n := int(math.Floor(v))
	if n < min {
		n = min
	}
	if n > max {
		n = max
	}
	return n
}

// Shuffle shuffles n elements using the provided swap function
func (r *RandSource) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rng.Shuffle(n, swap)
}
