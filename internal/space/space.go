// Package space models the hyperparameter search space: named, typed
// parameters with bounded domains, defaults and random sampling.
package space

import (
	"fmt"

	"github.com/tunebench/hypertune/pkg/utils"
)

// Space is an ordered collection of hyperparameters with unique names.
// A Space is constructed once and not mutated afterward.
type Space struct {
	params []Hyperparameter
	byName map[string]Hyperparameter
}

// New creates an empty search space
func New() *Space {
	return &Space{
		byName: make(map[string]Hyperparameter),
	}
}

// Add registers hyperparameters with the space, validating each domain
func (s *Space) Add(params ...Hyperparameter) error {
	for _, p := range params {
		if err := p.validate(); err != nil {
			return err
		}
		if _, exists := s.byName[p.Name()]; exists {
			return fmt.Errorf("duplicate parameter name: %s", p.Name())
		}
		s.params = append(s.params, p)
		s.byName[p.Name()] = p
	}
	return nil
}

// Params returns the hyperparameters in declaration order
func (s *Space) Params() []Hyperparameter {
	out := make([]Hyperparameter, len(s.params))
	copy(out, s.params)
	return out
}

// Get returns the hyperparameter with the given name
func (s *Space) Get(name string) (Hyperparameter, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// Len returns the number of hyperparameters
func (s *Space) Len() int {
	return len(s.params)
}

// DefaultConfiguration returns the configuration made of every parameter's default
func (s *Space) DefaultConfiguration() Configuration {
	cfg := make(Configuration, len(s.params))
	for _, p := range s.params {
		cfg[p.Name()] = p.Default()
	}
	return cfg
}

// Sample draws a random configuration from the space
func (s *Space) Sample(r *utils.RandSource) Configuration {
	cfg := make(Configuration, len(s.params))
	for _, p := range s.params {
		cfg[p.Name()] = p.Sample(r)
	}
	return cfg
}

// Validate checks that a configuration assigns an in-domain value to every
// parameter of the space and nothing else.
func (s *Space) Validate(cfg Configuration) error {
	for _, p := range s.params {
		v, ok := cfg[p.Name()]
		if !ok {
			return fmt.Errorf("configuration missing parameter %s", p.Name())
		}
		if !p.Contains(v) {
			return fmt.Errorf("parameter %s: value %v outside domain", p.Name(), v)
		}
	}
	for name := range cfg {
		if _, ok := s.byName[name]; !ok {
			return fmt.Errorf("configuration has unknown parameter %s", name)
		}
	}
	return nil
}
