// SPDX-License-Identifier: MPL-2.0

package metadata

import "testing"

func TestTypeRefFullName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ref  *TypeRef
		want string
	}{
		{"null", nil, ""},
		{"named", Named("System.String"), "System.String"},
		{"vector", ArrayOf(Named("System.Byte")), "System.Byte[]"},
		{"rank 3", ArrayOfRank(Named("System.Byte"), 3), "System.Byte[,,]"},
		{"pointer", PointerTo(Named("System.Void")), "System.Void*"},
		{"byref", ByRef(Named("System.Int32")), "System.Int32&"},
		{
			"generic",
			Generic(Named("System.Func`2"), Named("System.String"), ArrayOf(Named("System.Byte"))),
			"System.Func`2<System.String,System.Byte[]>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.ref.FullName(); got != tt.want {
				t.Errorf("FullName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMemberFullName(t *testing.T) {
	t.Parallel()

	m := &MethodRef{
		DeclaringType: Named("System.IO.File"),
		Name:          "WriteAllText",
		ReturnType:    Named("System.Void"),
		Params:        []*TypeRef{Named("System.String"), Named("System.String")},
	}
	if got, want := m.FullName(), "System.Void System.IO.File::WriteAllText(System.String,System.String)"; got != want {
		t.Errorf("MethodRef.FullName() = %q, want %q", got, want)
	}

	f := &FieldRef{DeclaringType: Named("System.Console"), FieldType: Named("System.IO.TextWriter"), Name: "Out"}
	if got, want := f.FullName(), "System.IO.TextWriter System.Console::Out"; got != want {
		t.Errorf("FieldRef.FullName() = %q, want %q", got, want)
	}

	def := MethodDef{Name: "Run", ReturnType: Named("System.Void"), Params: []ParamDef{{Name: "n", Type: Named("System.Int32")}}}
	if got, want := def.FullName("Acme.Mod"), "System.Void Acme.Mod::Run(System.Int32)"; got != want {
		t.Errorf("MethodDef.FullName() = %q, want %q", got, want)
	}
}

func TestModuleNodeCount(t *testing.T) {
	t.Parallel()

	m := &Module{Types: []*TypeDef{
		{
			FullName: "A",
			Methods: []MethodDef{
				{Name: "One", Body: &MethodBody{Instructions: []Instruction{{OpCode: "nop"}, {OpCode: "ret"}}}},
				{Name: "Two"},
			},
		},
		{FullName: "B"},
		nil,
	}}

	// 2 types + 2 methods + 2 instructions
	if got := m.NodeCount(); got != 6 {
		t.Errorf("NodeCount() = %d, want 6", got)
	}
	if (*Module)(nil).NodeCount() != 0 {
		t.Error("nil module should count zero nodes")
	}
}

func TestModuleLookupAndAccessors(t *testing.T) {
	t.Parallel()

	td := &TypeDef{
		FullName:   "Acme.Mod",
		Properties: []PropertyDef{{Name: "ModId", Type: Named("System.String")}},
		Methods: []MethodDef{
			{Name: ConstructorName},
			{Name: "Run", Params: []ParamDef{{Type: Named("System.Int32")}}},
		},
	}
	m := &Module{Types: []*TypeDef{td}}

	got, ok := m.Lookup("Acme.Mod")
	if !ok || got != td {
		t.Fatalf("Lookup() = %v, %v", got, ok)
	}
	if _, ok := m.Lookup("Acme.Other"); ok {
		t.Error("Lookup() found a type that is not declared")
	}
	if ctor, ok := td.Method(ConstructorName, 0); !ok || !ctor.IsConstructor() {
		t.Error("expected parameterless constructor")
	}
	if _, ok := td.Method("Run", 0); ok {
		t.Error("Method() ignored the parameter count")
	}
	if _, ok := td.Property("ModId"); !ok {
		t.Error("Property() did not find ModId")
	}
	if !td.Concrete() {
		t.Error("plain class should be concrete")
	}
	if (&TypeDef{Abstract: true}).Concrete() || (&TypeDef{Interface: true}).Concrete() {
		t.Error("abstract types and interfaces are not concrete")
	}
}
