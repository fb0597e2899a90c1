// SPDX-License-Identifier: MPL-2.0

package modloader

import (
	"fmt"
	"strings"

	"github.com/modgate/modgate/pkg/metadata"
)

const (
	typeString  = "System.String"
	typeBoolean = "System.Boolean"
)

// capabilityAccessors is the mod capability contract: each accessor may be
// declared as a parameterless method, a "get_" getter or a property.
var capabilityAccessors = []struct {
	name     string
	typeName string
}{
	{"ModId", typeString},
	{"ModVersion", typeString},
	{"ModAuthor", typeString},
	{"IsMpCompatible", typeBoolean},
}

// ContractError reports a type that cannot be loaded as a mod.
type ContractError struct {
	TypeName string
	Reason   string
}

// Error implements the error interface.
func (e *ContractError) Error() string {
	return fmt.Sprintf("type %s does not satisfy the mod contract: %s", e.TypeName, e.Reason)
}

// CheckContract reports whether t declares every capability accessor with
// the expected type.
func CheckContract(t *metadata.TypeDef) error {
	var missing []string
	for _, acc := range capabilityAccessors {
		if !hasAccessor(t, acc.name, acc.typeName) {
			missing = append(missing, acc.name)
		}
	}
	if len(missing) > 0 {
		return &ContractError{TypeName: t.FullName, Reason: "missing accessors " + strings.Join(missing, ", ")}
	}
	return nil
}

// CapabilityTypes returns the types of m that the loader instantiates.
//
// When m has an export manifest only the listed types are considered, and a
// listed type that is undeclared, not concrete or not conforming produces a
// *ContractError. Without a manifest every exported concrete type that
// satisfies the contract is returned, and other types are ignored silently.
func CapabilityTypes(m *metadata.Module) ([]*metadata.TypeDef, []error) {
	if len(m.Exports) == 0 {
		var types []*metadata.TypeDef
		for _, t := range m.Types {
			if t != nil && t.Exported && t.Concrete() && CheckContract(t) == nil {
				types = append(types, t)
			}
		}
		return types, nil
	}

	var (
		types []*metadata.TypeDef
		errs  []error
		seen  = map[string]bool{}
	)
	for _, name := range m.Exports {
		if seen[name] {
			continue
		}
		seen[name] = true

		t, ok := m.Lookup(name)
		switch {
		case !ok:
			errs = append(errs, &ContractError{TypeName: name, Reason: "exported type is not declared in the module"})
		case !t.Concrete():
			errs = append(errs, &ContractError{TypeName: name, Reason: "exported type is abstract or an interface"})
		default:
			if err := CheckContract(t); err != nil {
				errs = append(errs, err)
				continue
			}
			types = append(types, t)
		}
	}
	return types, errs
}

func hasAccessor(t *metadata.TypeDef, name, typeName string) bool {
	for _, candidate := range []string{name, "get_" + name} {
		if md, ok := t.Method(candidate, 0); ok && isNamed(md.ReturnType, typeName) {
			return true
		}
	}
	if p, ok := t.Property(name); ok && isNamed(p.Type, typeName) {
		return true
	}
	return false
}

func hasDefaultConstructor(t *metadata.TypeDef) bool {
	_, ok := t.Method(metadata.ConstructorName, 0)
	return ok
}

func isNamed(ref *metadata.TypeRef, name string) bool {
	return ref != nil && ref.Kind == metadata.KindNamed && ref.Name == name
}
