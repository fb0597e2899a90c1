// SPDX-License-Identifier: MPL-2.0

package modloader

import (
	"errors"
	"fmt"
)

var (
	// ErrInstantiation is the sentinel wrapped by InstantiationError.
	ErrInstantiation = errors.New("mod instantiation failed")

	// ErrNoFactory is returned when no factory is registered for a capability type.
	ErrNoFactory = errors.New("no factory registered")

	// ErrNoConstructor is returned for capability types without a parameterless constructor.
	ErrNoConstructor = errors.New("no parameterless constructor")

	// ErrEmptyID is returned for instances that declare an empty identifier.
	ErrEmptyID = errors.New("mod declares an empty identifier")
)

// InstantiationError reports a capability type that could not be turned into
// a Mod instance. Sibling types in the same module are unaffected.
type InstantiationError struct {
	Path     string
	TypeName string
	Cause    error
}

// Error implements the error interface.
func (e *InstantiationError) Error() string {
	return fmt.Sprintf("instantiate %s from %s: %v", e.TypeName, e.Path, e.Cause)
}

// Unwrap returns ErrInstantiation and the cause.
func (e *InstantiationError) Unwrap() []error {
	return []error{ErrInstantiation, e.Cause}
}
