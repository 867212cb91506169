package scenario

import (
	"fmt"
	"sort"
	"sync"
)

type entry struct {
	desc Descriptor
	body Body
}

// Registry maps scenario ids to bodies. Entries are checked for a name and
// a body at registration; id validity and uniqueness are reported by the
// validator so that every problem is listed at once.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a scenario.
func (r *Registry) Register(desc Descriptor, body Body) error {
	if desc.Name == "" {
		return fmt.Errorf("scenario %d: name is required", desc.ID)
	}
	if body == nil {
		return fmt.Errorf("scenario %q: body is required", desc.Name)
	}
	if desc.Timeout <= 0 {
		desc.Timeout = DefaultTimeout
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{desc: desc, body: body})
	return nil
}

// MustRegister is Register that panics on error, for package-level setup.
func (r *Registry) MustRegister(desc Descriptor, body Body) {
	if err := r.Register(desc, body); err != nil {
		panic(err)
	}
}

// Descriptors returns every registered descriptor in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.desc
	}
	return out
}

// Sorted returns every descriptor ordered by id.
func (r *Registry) Sorted() []Descriptor {
	out := r.Descriptors()
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup returns the first scenario registered under id.
func (r *Registry) Lookup(id int) (Descriptor, Body, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.desc.ID == id {
			return e.desc, e.body, true
		}
	}
	return Descriptor{}, nil, false
}

// LookupName returns the first scenario registered under name.
func (r *Registry) LookupName(name string) (Descriptor, Body, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.desc.Name == name {
			return e.desc, e.body, true
		}
	}
	return Descriptor{}, nil, false
}

// Clone returns a registry holding the same entries as r.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Registry{entries: append([]entry(nil), r.entries...)}
}

// Len returns the number of registered scenarios.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
