// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"strings"
)

// MaxTypeNesting bounds how many generic, array, pointer and by-reference
// levels a type reference may stack. The parser rejects deeper names and
// FullName elides levels past it.
const MaxTypeNesting = 256

// nestingElision replaces the levels FullName does not render.
const nestingElision = "..."

const (
	// KindNamed is a reference to a type by its full name.
	KindNamed TypeKind = iota
	// KindGenericInstance is a generic definition closed over type arguments.
	KindGenericInstance
	// KindArray is an array of the element type.
	KindArray
	// KindPointer is an unmanaged pointer to the element type.
	KindPointer
	// KindByReference is a managed reference to the element type.
	KindByReference
)

type (
	// TypeKind discriminates the shapes a TypeRef can take.
	TypeKind uint8

	// TypeRef is an immutable reference to a type. A nil *TypeRef is the null
	// reference (no type, e.g. a type without a base type).
	//
	// Named references carry Name. Generic instances carry the generic
	// definition in Elem and the ordered arguments in Args. Arrays, pointers
	// and by-reference wrappers carry the wrapped type in Elem.
	TypeRef struct {
		Kind TypeKind
		Name string
		Elem *TypeRef
		Args []*TypeRef
		// Rank is the array rank; 0 and 1 both denote a vector.
		Rank int
	}
)

// String returns the kind name.
func (k TypeKind) String() string {
	switch k {
	case KindNamed:
		return "named"
	case KindGenericInstance:
		return "generic"
	case KindArray:
		return "array"
	case KindPointer:
		return "pointer"
	case KindByReference:
		return "byref"
	default:
		return "unknown"
	}
}

// Named returns a reference to the type with the given full name.
func Named(fullName string) *TypeRef {
	return &TypeRef{Kind: KindNamed, Name: fullName}
}

// Generic returns def closed over args.
func Generic(def *TypeRef, args ...*TypeRef) *TypeRef {
	return &TypeRef{Kind: KindGenericInstance, Elem: def, Args: args}
}

// ArrayOf returns a vector of elem.
func ArrayOf(elem *TypeRef) *TypeRef {
	return &TypeRef{Kind: KindArray, Elem: elem, Rank: 1}
}

// ArrayOfRank returns a multi-dimensional array of elem.
func ArrayOfRank(elem *TypeRef, rank int) *TypeRef {
	return &TypeRef{Kind: KindArray, Elem: elem, Rank: rank}
}

// PointerTo returns an unmanaged pointer to elem.
func PointerTo(elem *TypeRef) *TypeRef {
	return &TypeRef{Kind: KindPointer, Elem: elem}
}

// ByRef returns a managed reference to elem.
func ByRef(elem *TypeRef) *TypeRef {
	return &TypeRef{Kind: KindByReference, Elem: elem}
}

// FullName renders the reference in canonical textual form, for example
// "System.Collections.Generic.List`1<System.IO.File>", "System.Byte[]",
// "System.Int32*" or "System.String&". The null reference renders as "".
// Levels nested deeper than MaxTypeNesting render as "...".
func (t *TypeRef) FullName() string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	t.writeName(&b, 0)
	return b.String()
}

// String implements fmt.Stringer.
func (t *TypeRef) String() string {
	return t.FullName()
}

func (t *TypeRef) writeName(b *strings.Builder, depth int) {
	if t == nil {
		return
	}
	if depth > MaxTypeNesting {
		b.WriteString(nestingElision)
		return
	}
	depth++
	switch t.Kind {
	case KindNamed:
		b.WriteString(t.Name)
	case KindGenericInstance:
		t.Elem.writeName(b, depth)
		b.WriteByte('<')
		for i, arg := range t.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			arg.writeName(b, depth)
		}
		b.WriteByte('>')
	case KindArray:
		t.Elem.writeName(b, depth)
		b.WriteByte('[')
		for i := 1; i < t.Rank; i++ {
			b.WriteByte(',')
		}
		b.WriteByte(']')
	case KindPointer:
		t.Elem.writeName(b, depth)
		b.WriteByte('*')
	case KindByReference:
		t.Elem.writeName(b, depth)
		b.WriteByte('&')
	}
}

func (*TypeRef) operand() {}
