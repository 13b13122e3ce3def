package twin

import (
	"fmt"
	"sync"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/errors"
	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/resource"
)

// Registry is the keyed store of live twins. Twins are created on the
// first stimulus referencing an unknown twin identifier and retired only
// through explicit lifecycle transitions.
type Registry struct {
	mu    sync.RWMutex
	twins map[string]*Twin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		twins: make(map[string]*Twin),
	}
}

// Get returns the twin for an identifier, if present.
func (r *Registry) Get(id string) (*Twin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.twins[id]
	return t, ok
}

// GetOrCreate returns the twin for an identifier, creating it if unknown.
// The second return value reports whether a twin was created. A retired
// twin is not resurrected; the caller gets it back with created=false and
// must check its state.
func (r *Registry) GetOrCreate(id string, twinType Type, ref resource.Reference) (*Twin, bool, error) {
	if !twinType.IsValid() {
		return nil, false, errors.WrapFatal(errors.ErrRoutingConfiguration, "Registry", "GetOrCreate",
			fmt.Sprintf("unknown twin type %q", twinType))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.twins[id]; ok {
		return t, false, nil
	}

	t := NewTwin(id, twinType, ref)
	r.twins[id] = t
	return t, true, nil
}

// Suspend suspends the identified twin.
func (r *Registry) Suspend(id string) bool {
	if t, ok := r.Get(id); ok {
		return t.Suspend()
	}
	return false
}

// Retire retires the identified twin and returns it so the caller can
// cascade cleanup of its derived state. The twin stays in the registry in
// its terminal state.
func (r *Registry) Retire(id string) (*Twin, bool) {
	t, ok := r.Get(id)
	if !ok {
		return nil, false
	}
	return t, t.Retire()
}

// OfType returns all twins of the given kind, including suspended and
// retired ones.
func (r *Registry) OfType(twinType Type) []*Twin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Twin
	for _, t := range r.twins {
		if t.Type() == twinType {
			out = append(out, t)
		}
	}
	return out
}

// Size returns the number of twins in the registry.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.twins)
}
