// SPDX-License-Identifier: MPL-2.0

package modloader

import (
	"context"
	"fmt"
	"sync"

	"github.com/modgate/modgate/pkg/metadata"
)

type (
	// Runtime turns an admitted capability type into a live Mod. It is only
	// ever called with modules that passed the scan.
	Runtime interface {
		Instantiate(ctx context.Context, module *metadata.Module, typeName string) (Mod, error)
	}

	// Factory constructs one mod instance.
	Factory func() Mod

	// StaticRuntime instantiates capability types from factories compiled
	// into the host and registered by module and type name. It is safe for
	// concurrent use.
	StaticRuntime struct {
		mu        sync.RWMutex
		factories map[factoryKey]Factory
	}

	factoryKey struct {
		module   string
		typeName string
	}
)

// NewStaticRuntime returns an empty StaticRuntime.
func NewStaticRuntime() *StaticRuntime {
	return &StaticRuntime{factories: map[factoryKey]Factory{}}
}

// Register binds f to typeName in the module named module. It returns an
// error if the pair already has a factory.
func (r *StaticRuntime) Register(module, typeName string, f Factory) error {
	if f == nil {
		return fmt.Errorf("register %s/%s: nil factory", module, typeName)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := factoryKey{module: module, typeName: typeName}
	if _, ok := r.factories[key]; ok {
		return fmt.Errorf("register %s/%s: factory already registered", module, typeName)
	}
	r.factories[key] = f
	return nil
}

// MustRegister is like Register but panics on error.
func (r *StaticRuntime) MustRegister(module, typeName string, f Factory) {
	if err := r.Register(module, typeName, f); err != nil {
		panic(err)
	}
}

// Instantiate calls the factory registered for typeName. A panicking factory
// is reported as an error.
func (r *StaticRuntime) Instantiate(ctx context.Context, module *metadata.Module, typeName string) (m Mod, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	f, ok := r.factories[factoryKey{module: module.Name, typeName: typeName}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", module.Name, typeName, ErrNoFactory)
	}

	defer func() {
		if rec := recover(); rec != nil {
			m = nil
			err = fmt.Errorf("constructor panic: %v", rec)
		}
	}()
	m = f()
	if m == nil {
		return nil, fmt.Errorf("%s/%s: factory returned nil", module.Name, typeName)
	}
	return m, nil
}
