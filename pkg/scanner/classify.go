// SPDX-License-Identifier: MPL-2.0

package scanner

import (
	"strings"

	"github.com/modgate/modgate/pkg/metadata"
	"github.com/modgate/modgate/pkg/policy"
)

// MaxTypeNesting bounds how deep IsDangerous unwraps a reference. Deeper
// references are classified as dangerous.
const MaxTypeNesting = metadata.MaxTypeNesting

// IsDangerous reports whether ref names a dangerous type under p.
//
// Generic instances are dangerous if their definition or any argument is, so
// List<System.IO.File> is dangerous although List<T> is not. Arrays, pointers
// and by-reference wrappers are dangerous iff their element is. The null
// reference and a nil policy are never dangerous.
func IsDangerous(ref *metadata.TypeRef, p *policy.Policy) bool {
	if p == nil {
		return false
	}
	return isDangerous(ref, p, 0)
}

func isDangerous(ref *metadata.TypeRef, p *policy.Policy, depth int) bool {
	if ref == nil {
		return false
	}
	if depth > MaxTypeNesting {
		return true
	}
	switch ref.Kind {
	case metadata.KindNamed:
		return p.MatchesTypeName(NormalizeTypeName(ref.Name))
	case metadata.KindGenericInstance:
		if isDangerous(ref.Elem, p, depth+1) {
			return true
		}
		for _, arg := range ref.Args {
			if isDangerous(arg, p, depth+1) {
				return true
			}
		}
		return false
	case metadata.KindArray, metadata.KindPointer, metadata.KindByReference:
		return isDangerous(ref.Elem, p, depth+1)
	default:
		return false
	}
}

// NormalizeTypeName reduces a full type name to the form policies match on:
// a leading "ReturnType " segment is dropped, generic argument lists and the
// generic arity marker are cut, and by-reference markers are removed.
//
//	"System.Void System.IO.File" -> "System.IO.File"
//	"System.Collections.Generic.List`1<X>" -> "System.Collections.Generic.List"
//	"System.IO.Stream&" -> "System.IO.Stream"
func NormalizeTypeName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, " \t\r\n"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '<'); i >= 0 {
		name = name[:i]
	}
	if i := strings.IndexByte(name, '`'); i >= 0 {
		name = name[:i]
	}
	return strings.ReplaceAll(name, "&", "")
}
