package space

import (
	"fmt"
	"sort"
	"strings"
)

// Configuration is a concrete assignment of values to the parameters of a
// space. Values are int, float64 or string depending on the parameter kind.
type Configuration map[string]any

// Int returns the named value as an int
func (c Configuration) Int(name string) (int, error) {
	v, ok := c[name]
	if !ok {
		return 0, fmt.Errorf("parameter %s not set", name)
	}
	n, ok := toInt(v)
	if !ok {
		return 0, fmt.Errorf("parameter %s: %v is not an integer", name, v)
	}
	return n, nil
}

// Float returns the named value as a float64
func (c Configuration) Float(name string) (float64, error) {
	v, ok := c[name]
	if !ok {
		return 0, fmt.Errorf("parameter %s not set", name)
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("parameter %s: %v is not a number", name, v)
	}
	return f, nil
}

// Str returns the named value as a string
func (c Configuration) Str(name string) (string, error) {
	v, ok := c[name]
	if !ok {
		return "", fmt.Errorf("parameter %s not set", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %s: %v is not a string", name, v)
	}
	return s, nil
}

// Clone returns a shallow copy of the configuration
func (c Configuration) Clone() Configuration {
	out := make(Configuration, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Key returns a canonical string form of the configuration, stable across
// map iteration order. Used to match trials to configurations.
func (c Configuration) Key() string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%v", name, c[name])
	}
	return b.String()
}

// String implements fmt.Stringer
func (c Configuration) String() string {
	return "{" + c.Key() + "}"
}
