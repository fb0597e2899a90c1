// SPDX-License-Identifier: MPL-2.0

package metadata

// ConstructorName is the simple name of an instance constructor.
const ConstructorName = ".ctor"

type (
	// Module is the metadata graph of one compiled module file.
	Module struct {
		Name    string
		Version string
		// Types lists every type declared in the module, nested types included.
		Types []*TypeDef
		// Exports is the module's export manifest: the full names of the
		// types it offers as mods. Empty when the module has no manifest.
		Exports []string
	}

	// TypeDef is a type declared by the module itself.
	TypeDef struct {
		FullName   string
		Exported   bool
		Abstract   bool
		Interface  bool
		BaseType   *TypeRef
		Interfaces []*TypeRef
		Fields     []FieldDef
		Properties []PropertyDef
		Methods    []MethodDef
	}

	// FieldDef is a field declared on a TypeDef.
	FieldDef struct {
		Name string
		Type *TypeRef
	}

	// PropertyDef is a property declared on a TypeDef.
	PropertyDef struct {
		Name string
		Type *TypeRef
	}

	// ParamDef is a declared method parameter.
	ParamDef struct {
		Name string
		Type *TypeRef
	}

	// MethodDef is a method declared on a TypeDef. Body is nil for methods
	// without an instruction stream (abstract, extern).
	MethodDef struct {
		Name       string
		ReturnType *TypeRef
		Params     []ParamDef
		Body       *MethodBody
	}

	// MethodBody is a method's instruction stream.
	MethodBody struct {
		Instructions []Instruction
	}
)

// Lookup returns the declared type with the given full name.
func (m *Module) Lookup(fullName string) (*TypeDef, bool) {
	if m == nil {
		return nil, false
	}
	for _, t := range m.Types {
		if t != nil && t.FullName == fullName {
			return t, true
		}
	}
	return nil, false
}

// NodeCount returns how many nodes a complete scan of the module visits:
// one per declared type, one per method and one per instruction.
func (m *Module) NodeCount() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, t := range m.Types {
		if t == nil {
			continue
		}
		n++
		for i := range t.Methods {
			n++
			if body := t.Methods[i].Body; body != nil {
				n += len(body.Instructions)
			}
		}
	}
	return n
}

// IsConstructor reports whether the method is an instance constructor.
func (d *MethodDef) IsConstructor() bool {
	return d.Name == ConstructorName
}

// FullName renders the method as "ReturnType DeclaringType::Name(P1,P2)".
func (d *MethodDef) FullName(declaring string) string {
	ref := MethodRef{DeclaringType: Named(declaring), Name: d.Name, ReturnType: d.ReturnType}
	for _, p := range d.Params {
		ref.Params = append(ref.Params, p.Type)
	}
	return ref.FullName()
}

// Method returns the first declared method with the given name and
// parameter count.
func (t *TypeDef) Method(name string, params int) (*MethodDef, bool) {
	for i := range t.Methods {
		if t.Methods[i].Name == name && len(t.Methods[i].Params) == params {
			return &t.Methods[i], true
		}
	}
	return nil, false
}

// Property returns the declared property with the given name.
func (t *TypeDef) Property(name string) (*PropertyDef, bool) {
	for i := range t.Properties {
		if t.Properties[i].Name == name {
			return &t.Properties[i], true
		}
	}
	return nil, false
}

// Concrete reports whether the type can be instantiated.
func (t *TypeDef) Concrete() bool {
	return !t.Abstract && !t.Interface
}
