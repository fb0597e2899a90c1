// SPDX-License-Identifier: MPL-2.0

package metadata

import "strings"

type (
	// Operand is the value an instruction acts upon. It is implemented by
	// *MethodRef, *TypeRef, *FieldRef and Literal.
	Operand interface {
		operand()
	}

	// MethodRef references a method, possibly declared outside the module.
	MethodRef struct {
		DeclaringType *TypeRef
		Name          string
		ReturnType    *TypeRef
		Params        []*TypeRef
	}

	// FieldRef references a field, possibly declared outside the module.
	FieldRef struct {
		DeclaringType *TypeRef
		FieldType     *TypeRef
		Name          string
	}

	// Literal is any operand that does not reference a type or member:
	// string and numeric constants, branch targets, locals.
	Literal struct {
		Value string
	}

	// Instruction is a single bytecode instruction. OpCode is carried for
	// diagnostics only and is not interpreted.
	Instruction struct {
		OpCode  string
		Operand Operand
	}
)

// FullName renders the method as "ReturnType DeclaringType::Name(P1,P2)".
func (m *MethodRef) FullName() string {
	if m == nil {
		return ""
	}
	var b strings.Builder
	if m.ReturnType != nil {
		b.WriteString(m.ReturnType.FullName())
		b.WriteByte(' ')
	}
	if m.DeclaringType != nil {
		b.WriteString(m.DeclaringType.FullName())
		b.WriteString("::")
	}
	b.WriteString(m.Name)
	b.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.FullName())
	}
	b.WriteByte(')')
	return b.String()
}

// FullName renders the field as "FieldType DeclaringType::Name".
func (f *FieldRef) FullName() string {
	if f == nil {
		return ""
	}
	var b strings.Builder
	if f.FieldType != nil {
		b.WriteString(f.FieldType.FullName())
		b.WriteByte(' ')
	}
	if f.DeclaringType != nil {
		b.WriteString(f.DeclaringType.FullName())
		b.WriteString("::")
	}
	b.WriteString(f.Name)
	return b.String()
}

func (*MethodRef) operand() {}
func (*FieldRef) operand()  {}
func (Literal) operand()    {}
