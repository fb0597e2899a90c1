// SPDX-License-Identifier: MPL-2.0

package modloader

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Registry maps mod identifiers to instances. Registering an identifier that
// is already present replaces the earlier instance. All methods are safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	mods  map[string]Mod
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{mods: map[string]Mod{}}
}

// Register stores m under m.ModID(). When the identifier was already bound
// the previous instance is returned with replaced set to true.
func (r *Registry) Register(m Mod) (prev Mod, replaced bool) {
	id := m.ModID()

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, replaced = r.mods[id]
	r.mods[id] = m
	if replaced {
		r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	}
	r.order = append(r.order, id)
	return prev, replaced
}

// Lookup returns the mod registered under id.
func (r *Registry) Lookup(id string) (Mod, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.mods[id]
	return m, ok
}

// Len returns the number of registered mods.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.mods)
}

// IDs returns the registered identifiers, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.mods))
}

// Descriptors returns the descriptors of all registered mods, sorted by ID.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.mods))
	for _, id := range slices.Sorted(maps.Keys(r.mods)) {
		out = append(out, Describe(r.mods[id]))
	}
	return out
}

// StartAll runs the Start hook of every mod that has one, in registration
// order. Every hook runs; failures are joined.
func (r *Registry) StartAll(ctx context.Context) error {
	var errs []error
	for _, m := range r.snapshot() {
		if s, ok := m.(Starter); ok {
			if err := s.Start(ctx); err != nil {
				errs = append(errs, fmt.Errorf("start %s: %w", m.ModID(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// UpdateAll runs the Update hook of every mod that has one, in registration
// order. Every hook runs; failures are joined.
func (r *Registry) UpdateAll(ctx context.Context) error {
	var errs []error
	for _, m := range r.snapshot() {
		if u, ok := m.(Updater); ok {
			if err := u.Update(ctx); err != nil {
				errs = append(errs, fmt.Errorf("update %s: %w", m.ModID(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// StopAll runs the Stop hook of every mod that has one, in reverse
// registration order. Every hook runs; failures are joined.
func (r *Registry) StopAll(ctx context.Context) error {
	mods := r.snapshot()
	slices.Reverse(mods)

	var errs []error
	for _, m := range mods {
		if s, ok := m.(Stopper); ok {
			if err := s.Stop(ctx); err != nil {
				errs = append(errs, fmt.Errorf("stop %s: %w", m.ModID(), err))
			}
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) snapshot() []Mod {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Mod, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.mods[id])
	}
	return out
}
