package phase

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed phases.yaml
var builtinYAML []byte

// document is the on-disk shape of a phase file: either a list under
// "phases" or a single phase at the top level.
type document struct {
	Phases []*Phase `yaml:"phases"`
}

func decode(data []byte) ([]*Phase, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode phases: %w", err)
	}
	if len(doc.Phases) > 0 {
		return doc.Phases, nil
	}
	var single Phase
	if err := yaml.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("decode phase: %w", err)
	}
	if single.Key == "" {
		return nil, nil
	}
	return []*Phase{&single}, nil
}

// Builtin returns fresh copies of the embedded phase definitions.
func Builtin() ([]*Phase, error) {
	phases, err := decode(builtinYAML)
	if err != nil {
		return nil, fmt.Errorf("builtin phases: %w", err)
	}
	for _, p := range phases {
		if err := p.check(); err != nil {
			return nil, fmt.Errorf("builtin phases: %w", err)
		}
	}
	return phases, nil
}

// Registry is a set of phases. Reads are safe while a Reload runs.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	phases map[string]*Phase
}

// NewRegistry builds a registry from the built-in phases with overrides laid
// over them. An override replaces the built-in phase with the same key in
// place; new keys are appended in ascending key order.
func NewRegistry(overrides []*Phase) (*Registry, error) {
	builtin, err := Builtin()
	if err != nil {
		return nil, err
	}

	r := &Registry{phases: make(map[string]*Phase, len(builtin)+len(overrides))}
	for _, p := range builtin {
		r.order = append(r.order, p.Key)
		r.phases[p.Key] = p
	}

	var added []string
	for _, p := range overrides {
		if err := p.check(); err != nil {
			return nil, err
		}
		if _, ok := r.phases[p.Key]; !ok {
			added = append(added, p.Key)
		}
		r.phases[p.Key] = p
	}
	sort.Strings(added)
	r.order = append(r.order, added...)
	return r, nil
}

// Default returns the registry of built-in phases only.
func Default() *Registry {
	r, err := NewRegistry(nil)
	if err != nil {
		panic(err)
	}
	return r
}

// Reload rebuilds the registry from the built-ins and a new set of
// overrides. On error the registry is left unchanged.
func (r *Registry) Reload(overrides []*Phase) error {
	next, err := NewRegistry(overrides)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order, r.phases = next.order, next.phases
	return nil
}

// Get returns the phase with key.
func (r *Registry) Get(key string) (*Phase, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.phases[key]
	return p, ok
}

// List returns every phase in registry order.
func (r *Registry) List() []*Phase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Phase, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.phases[k])
	}
	return out
}

// Keys returns the phase keys in registry order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Has reports whether key names a known phase.
func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.phases[key]
	return ok
}
