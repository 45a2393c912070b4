package profile

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jackzampolin/tablescan/internal/statement"
)

// Registry maps document types to profiles.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

// NewRegistry returns a registry holding the built-in profiles.
func NewRegistry() *Registry {
	r := &Registry{specs: make(map[string]Spec)}
	bs := BankStatement()
	r.specs[bs.Name] = bs
	return r
}

// Register validates s and adds it, replacing any profile of the same name.
func (r *Registry) Register(s Spec) error {
	if err := Validate(s); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[s.Name] = s
	return nil
}

// Spec returns the registered spec for name.
func (r *Registry) Spec(name string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[name]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	return s, nil
}

// Get returns the extraction profile for name.
func (r *Registry) Get(name string) (statement.Profile, error) {
	s, err := r.Spec(name)
	if err != nil {
		return statement.Profile{}, err
	}
	return s.Profile(), nil
}

// Names returns registered profile names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
