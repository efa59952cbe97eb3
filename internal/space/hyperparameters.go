package space

import (
	"fmt"

	"github.com/tunebench/hypertune/pkg/utils"
)

// Hyperparameter describes a single named dimension of the search space.
// Sampled values are int (integer ranges), float64 (float ranges) or
// string (categorical choices).
type Hyperparameter interface {
	// Name returns the parameter name, unique within a space
	Name() string
	// Default returns the parameter's default value
	Default() any
	// Sample draws a random value from the parameter's domain
	Sample(r *utils.RandSource) any
	// Contains reports whether v is a member of the parameter's domain
	Contains(v any) bool
	// validate checks the declared domain itself
	validate() error
}

// IntParam is an integer-range hyperparameter with inclusive bounds.
// With log scale enabled, samples are drawn log-uniformly.
type IntParam struct {
	name     string
	Lower    int
	Upper    int
	Log      bool
	defValue int
	hasDef   bool
}

// NewIntParam creates an integer-range hyperparameter
func NewIntParam(name string, lower, upper int) *IntParam {
	return &IntParam{name: name, Lower: lower, Upper: upper}
}

// WithDefault sets the default value
func (p *IntParam) WithDefault(v int) *IntParam {
	p.defValue = v
	p.hasDef = true
	return p
}

// WithLog enables log-uniform sampling
func (p *IntParam) WithLog() *IntParam {
	p.Log = true
	return p
}

func (p *IntParam) Name() string { return p.name }

func (p *IntParam) Default() any {
	if p.hasDef {
		return p.defValue
	}
	return p.Lower
}

func (p *IntParam) Sample(r *utils.RandSource) any {
	if p.Log {
		return r.LogUniformInt(p.Lower, p.Upper)
	}
	return r.UniformInt(p.Lower, p.Upper)
}

func (p *IntParam) Contains(v any) bool {
	n, ok := toInt(v)
	return ok && n >= p.Lower && n <= p.Upper
}

func (p *IntParam) validate() error {
	if p.name == "" {
		return fmt.Errorf("parameter name cannot be empty")
	}
	if p.Upper < p.Lower {
		return fmt.Errorf("parameter %s: upper bound %d below lower bound %d", p.name, p.Upper, p.Lower)
	}
	if p.Log && p.Lower <= 0 {
		return fmt.Errorf("parameter %s: log scale requires a positive lower bound, got %d", p.name, p.Lower)
	}
	if p.hasDef && !p.Contains(p.defValue) {
		return fmt.Errorf("parameter %s: default %d outside [%d, %d]", p.name, p.defValue, p.Lower, p.Upper)
	}
	return nil
}

// FloatParam is a bounded real-valued hyperparameter.
// With log scale enabled, samples are drawn log-uniformly.
type FloatParam struct {
	name     string
	Lower    float64
	Upper    float64
	Log      bool
	defValue float64
	hasDef   bool
}

// NewFloatParam creates a float-range hyperparameter
func NewFloatParam(name string, lower, upper float64) *FloatParam {
	return &FloatParam{name: name, Lower: lower, Upper: upper}
}

// WithDefault sets the default value
func (p *FloatParam) WithDefault(v float64) *FloatParam {
	p.defValue = v
	p.hasDef = true
	return p
}

// WithLog enables log-uniform sampling
func (p *FloatParam) WithLog() *FloatParam {
	p.Log = true
	return p
}

func (p *FloatParam) Name() string { return p.name }

func (p *FloatParam) Default() any {
	if p.hasDef {
		return p.defValue
	}
	return p.Lower
}

func (p *FloatParam) Sample(r *utils.RandSource) any {
	if p.Log {
		return r.LogUniformFloat64(p.Lower, p.Upper)
	}
	return r.UniformFloat64(p.Lower, p.Upper)
}

func (p *FloatParam) Contains(v any) bool {
	f, ok := toFloat(v)
	return ok && f >= p.Lower && f <= p.Upper
}

func (p *FloatParam) validate() error {
	if p.name == "" {
		return fmt.Errorf("parameter name cannot be empty")
	}
	if p.Upper < p.Lower {
		return fmt.Errorf("parameter %s: upper bound %f below lower bound %f", p.name, p.Upper, p.Lower)
	}
	if p.Log && p.Lower <= 0 {
		return fmt.Errorf("parameter %s: log scale requires a positive lower bound, got %f", p.name, p.Lower)
	}
	if p.hasDef && !p.Contains(p.defValue) {
		return fmt.Errorf("parameter %s: default %f outside [%f, %f]", p.name, p.defValue, p.Lower, p.Upper)
	}
	return nil
}

// CategoricalParam is a hyperparameter drawn from a fixed choice set.
type CategoricalParam struct {
	name     string
	Choices  []string
	defValue string
	hasDef   bool
}

// NewCategoricalParam creates a categorical hyperparameter
func NewCategoricalParam(name string, choices ...string) *CategoricalParam {
	return &CategoricalParam{name: name, Choices: choices}
}

// WithDefault sets the default choice
func (p *CategoricalParam) WithDefault(v string) *CategoricalParam {
	p.defValue = v
	p.hasDef = true
	return p
}

func (p *CategoricalParam) Name() string { return p.name }

func (p *CategoricalParam) Default() any {
	if p.hasDef {
		return p.defValue
	}
	if len(p.Choices) > 0 {
		return p.Choices[0]
	}
	return ""
}

func (p *CategoricalParam) Sample(r *utils.RandSource) any {
	return p.Choices[r.Intn(len(p.Choices))]
}

func (p *CategoricalParam) Contains(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	for _, c := range p.Choices {
		if c == s {
			return true
		}
	}
	return false
}

func (p *CategoricalParam) validate() error {
	if p.name == "" {
		return fmt.Errorf("parameter name cannot be empty")
	}
	if len(p.Choices) == 0 {
		return fmt.Errorf("parameter %s: at least one choice is required", p.name)
	}
	seen := make(map[string]bool, len(p.Choices))
	for _, c := range p.Choices {
		if seen[c] {
			return fmt.Errorf("parameter %s: duplicate choice %q", p.name, c)
		}
		seen[c] = true
	}
	if p.hasDef && !p.Contains(p.defValue) {
		return fmt.Errorf("parameter %s: default %q is not a choice", p.name, p.defValue)
	}
	return nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
