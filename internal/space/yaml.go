package space

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// paramSpec is the YAML form of a single hyperparameter declaration
type paramSpec struct {
	Name    string     `yaml:"name"`
	Type    string     `yaml:"type"` // int, float or categorical
	Lower   *float64   `yaml:"lower,omitempty"`
	Upper   *float64   `yaml:"upper,omitempty"`
	Log     bool       `yaml:"log,omitempty"`
	Choices []string   `yaml:"choices,omitempty"`
	Default yaml.Node `yaml:"default,omitempty"`
}

// spaceSpec is the YAML form of a search space
type spaceSpec struct {
	Parameters []paramSpec `yaml:"parameters"`
}

// ParseYAML parses a search space definition from YAML bytes.
//
// Example:
//
//	parameters:
//	  - name: n_layer
//	    type: int
//	    lower: 1
//	    upper: 5
//	    default: 1
//	  - name: learning_rate_init
//	    type: float
//	    lower: 0.0001
//	    upper: 1.0
//	    log: true
//	    default: 0.001
//	  - name: activation
//	    type: categorical
//	    choices: [logistic, tanh, relu]
//	    default: tanh
func ParseYAML(data []byte) (*Space, error) {
	var spec spaceSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse space yaml: %w", err)
	}
	if len(spec.Parameters) == 0 {
		return nil, fmt.Errorf("invalid space: at least one parameter is required")
	}

	s := New()
	for i, ps := range spec.Parameters {
		p, err := buildParam(ps)
		if err != nil {
			return nil, fmt.Errorf("invalid space: parameter %d: %w", i, err)
		}
		if err := s.Add(p); err != nil {
			return nil, fmt.Errorf("invalid space: %w", err)
		}
	}
	return s, nil
}

// Load reads and parses a search space definition file
func Load(path string) (*Space, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read space file %s: %w", path, err)
	}
	s, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse space file %s: %w", path, err)
	}
	return s, nil
}

func buildParam(ps paramSpec) (Hyperparameter, error) {
	switch ps.Type {
	case "int":
		if ps.Lower == nil || ps.Upper == nil {
			return nil, fmt.Errorf("int parameter %s requires lower and upper bounds", ps.Name)
		}
		p := NewIntParam(ps.Name, int(*ps.Lower), int(*ps.Upper))
		if ps.Log {
			p = p.WithLog()
		}
		if !ps.Default.IsZero() {
			var def int
			if err := ps.Default.Decode(&def); err != nil {
				return nil, fmt.Errorf("parameter %s: invalid int default: %w", ps.Name, err)
			}
			p = p.WithDefault(def)
		}
		return p, nil

	case "float":
		if ps.Lower == nil || ps.Upper == nil {
			return nil, fmt.Errorf("float parameter %s requires lower and upper bounds", ps.Name)
		}
		p := NewFloatParam(ps.Name, *ps.Lower, *ps.Upper)
		if ps.Log {
			p = p.WithLog()
		}
		if !ps.Default.IsZero() {
			var def float64
			if err := ps.Default.Decode(&def); err != nil {
				return nil, fmt.Errorf("parameter %s: invalid float default: %w", ps.Name, err)
			}
			p = p.WithDefault(def)
		}
		return p, nil

	case "categorical":
		p := NewCategoricalParam(ps.Name, ps.Choices...)
		if !ps.Default.IsZero() {
			var def string
			if err := ps.Default.Decode(&def); err != nil {
				return nil, fmt.Errorf("parameter %s: invalid categorical default: %w", ps.Name, err)
			}
			p = p.WithDefault(def)
		}
		return p, nil

	default:
		return nil, fmt.Errorf("parameter %s: unknown type %q (must be int, float or categorical)", ps.Name, ps.Type)
	}
}
