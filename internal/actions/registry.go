package actions

import (
	"sort"
	"sync"
)

// Actioner contributes context actions. Probe offers action names for a
// selection; Do performs one of the offered actions.
type Actioner interface {
	// Name identifies the actioner in logs and plugin errors.
	Name() string

	// Probe returns the action names this actioner offers for the
	// selection, or nil when it has nothing to offer.
	Probe(sel Selection, actx Context) []string

	// Do performs a previously offered action.
	Do(action string, sel Selection, actx Context) error
}

// Action pairs an offered action name with the actioner that offered it.
type Action struct {
	Name     string
	Actioner Actioner
}

// Registry holds the registered actioners in registration order.
type Registry struct {
	mu        sync.RWMutex
	actioners []Actioner
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// DefaultRegistry returns a registry pre-loaded with the builtin actioners.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(DeleteActioner{}, CopyActioner{}, SaveFileActioner{})
	return r
}

// Register appends actioners. Registration order is preserved; it breaks
// ties between equally named actions.
func (r *Registry) Register(actioners ...Actioner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actioners = append(r.actioners, actioners...)
}

// Count returns the number of registered actioners.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actioners)
}

// ProbeAll collects every offered action for the selection, sorted by
// action name.
func (r *Registry) ProbeAll(sel Selection, actx Context) []Action {
	r.mu.RLock()
	actioners := make([]Actioner, len(r.actioners))
	copy(actioners, r.actioners)
	r.mu.RUnlock()

	var out []Action
	for _, a := range actioners {
		for _, name := range a.Probe(sel, actx) {
			out = append(out, Action{Name: name, Actioner: a})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Find returns the first registered actioner with the given name, nil when
// absent.
func (r *Registry) Find(name string) Actioner {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.actioners {
		if a.Name() == name {
			return a
		}
	}
	return nil
}
