package hpod

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tunebench/hypertune/internal/space"
	"github.com/tunebench/hypertune/internal/tae"
)

// ObjectiveProvider supplies the parameter space and target function for a
// named objective. Providers are injected at startup to avoid circular
// imports between the service and the objective packages.
type ObjectiveProvider interface {
	Name() string
	Space() (*space.Space, error)
	Target() tae.TargetFunc
}

// Registry maps objective names to their providers
type Registry struct {
	mu        sync.RWMutex
	providers map[string]ObjectiveProvider
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]ObjectiveProvider),
	}
}

// Register adds a provider. Registering the same name twice is an error.
func (r *Registry) Register(p ObjectiveProvider) error {
	if p == nil || p.Name() == "" {
		return fmt.Errorf("provider must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[p.Name()]; exists {
		return fmt.Errorf("objective already registered: %s", p.Name())
	}
	r.providers[p.Name()] = p
	return nil
}

func (r *Registry) Get(name string) (ObjectiveProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered objective names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FuncProvider adapts plain functions into an ObjectiveProvider
type FuncProvider struct {
	name    string
	spaceFn func() (*space.Space, error)
	target  tae.TargetFunc
}

func NewFuncProvider(name string, spaceFn func() (*space.Space, error), target tae.TargetFunc) *FuncProvider {
	return &FuncProvider{name: name, spaceFn: spaceFn, target: target}
}

func (p *FuncProvider) Name() string { return p.name }

func (p *FuncProvider) Space() (*space.Space, error) { return p.spaceFn() }

func (p *FuncProvider) Target() tae.TargetFunc { return p.target }
