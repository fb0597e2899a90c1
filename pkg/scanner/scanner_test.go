// SPDX-License-Identifier: MPL-2.0

package scanner

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/modgate/modgate/pkg/metadata"
)

var (
	tString = metadata.Named("System.String")
	tVoid   = metadata.Named("System.Void")
	tFile   = metadata.Named("System.IO.File")
)

func call(decl *metadata.TypeRef, name string) metadata.Instruction {
	return metadata.Instruction{OpCode: "call", Operand: &metadata.MethodRef{DeclaringType: decl, Name: name, ReturnType: tVoid}}
}

func body(ins ...metadata.Instruction) *metadata.MethodBody {
	return &metadata.MethodBody{Instructions: ins}
}

func safeType(name string) *metadata.TypeDef {
	return &metadata.TypeDef{
		FullName: name,
		Exported: true,
		BaseType: metadata.Named("System.Object"),
		Fields:   []metadata.FieldDef{{Name: "label", Type: tString}},
		Methods: []metadata.MethodDef{
			{Name: ".ctor", ReturnType: tVoid, Body: body(call(metadata.Named("System.Object"), ".ctor"))},
			{Name: "ModId", ReturnType: tString, Body: body(metadata.Instruction{OpCode: "ldstr", Operand: metadata.Literal{Value: "id"}})},
		},
	}
}

func moduleOf(types ...*metadata.TypeDef) *metadata.Module {
	return &metadata.Module{Name: "Test", Types: types}
}

func TestScan_DeeplyNestedBaseTypeReason(t *testing.T) {
	t.Parallel()

	deep := metadata.Named("System.String")
	for range 100_000 {
		deep = metadata.PointerTo(deep)
	}
	cyclic := &metadata.TypeRef{Kind: metadata.KindPointer}
	cyclic.Elem = cyclic

	for name, base := range map[string]*metadata.TypeRef{"deep": deep, "cyclic": cyclic} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			td := safeType("Acme.Deep")
			td.BaseType = base
			v := New(testPolicy(t, true)).Scan(moduleOf(td))
			if v.Accepted || v.Unreadable() {
				t.Fatalf("verdict = %+v, want a policy rejection", v)
			}
			reason := v.FirstReason()
			if !strings.Contains(reason, "dangerous base type") || !strings.Contains(reason, "...") {
				t.Errorf("reason = %.120q", reason)
			}
		})
	}
}

func TestScan_Accepts(t *testing.T) {
	t.Parallel()

	s := New(testPolicy(t, true))
	v := s.Scan(moduleOf(safeType("Acme.A"), safeType("Acme.B")))
	if !v.Accepted {
		t.Fatalf("expected acceptance, got %v", v)
	}
	if len(v.Reasons) != 0 || v.Cause != nil || v.FirstReason() != "" {
		t.Errorf("accepted verdict carries reasons: %+v", v)
	}
	if v.String() != "accepted" {
		t.Errorf("String() = %q", v.String())
	}
}

func TestScan_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(td *metadata.TypeDef)
		reason string
	}{
		{
			name:   "dangerous base type",
			mutate: func(td *metadata.TypeDef) { td.BaseType = metadata.Named("System.IO.Stream") },
			reason: "inherits from dangerous base type: System.IO.Stream",
		},
		{
			name:   "dangerous interface",
			mutate: func(td *metadata.TypeDef) { td.Interfaces = append(td.Interfaces, metadata.Named("System.Net.ICredentials")) },
			reason: "implements dangerous interface: System.Net.ICredentials",
		},
		{
			name: "dangerous field type through generic argument",
			mutate: func(td *metadata.TypeDef) {
				td.Fields = append(td.Fields, metadata.FieldDef{Name: "files", Type: metadata.Generic(metadata.Named("System.Collections.Generic.List`1"), tFile)})
			},
			reason: "field 'Acme.Mod::files' uses dangerous type",
		},
		{
			name: "dangerous property type",
			mutate: func(td *metadata.TypeDef) {
				td.Properties = append(td.Properties, metadata.PropertyDef{Name: "Proc", Type: metadata.Named("System.Diagnostics.Process")})
			},
			reason: "property 'Acme.Mod::Proc' uses dangerous type: System.Diagnostics.Process",
		},
		{
			name: "dangerous return type",
			mutate: func(td *metadata.TypeDef) {
				td.Methods = append(td.Methods, metadata.MethodDef{Name: "Asm", ReturnType: metadata.Named("System.Reflection.Assembly")})
			},
			reason: "returns dangerous type: System.Reflection.Assembly",
		},
		{
			name: "dangerous parameter type",
			mutate: func(td *metadata.TypeDef) {
				td.Methods = append(td.Methods, metadata.MethodDef{
					Name: "Save", ReturnType: tVoid,
					Params: []metadata.ParamDef{{Name: "s", Type: metadata.ByRef(metadata.Named("System.IO.Stream"))}},
				})
			},
			reason: "has parameter 's' of dangerous type: System.IO.Stream&",
		},
		{
			name: "type token operand",
			mutate: func(td *metadata.TypeDef) {
				td.Methods[1].Body.Instructions = append(td.Methods[1].Body.Instructions,
					metadata.Instruction{OpCode: "ldtoken", Operand: metadata.ArrayOf(tFile)})
			},
			reason: "references dangerous type: System.IO.File[]",
		},
		{
			name: "field operand from dangerous type",
			mutate: func(td *metadata.TypeDef) {
				td.Methods[1].Body.Instructions = append(td.Methods[1].Body.Instructions,
					metadata.Instruction{OpCode: "ldsfld", Operand: &metadata.FieldRef{DeclaringType: metadata.Named("System.IO.Path"), FieldType: metadata.Named("System.Char"), Name: "DirectorySeparatorChar"}})
			},
			reason: "references field 'DirectorySeparatorChar' from dangerous type: System.IO.Path",
		},
		{
			name: "field operand of dangerous type",
			mutate: func(td *metadata.TypeDef) {
				td.Methods[1].Body.Instructions = append(td.Methods[1].Body.Instructions,
					metadata.Instruction{OpCode: "ldsfld", Operand: &metadata.FieldRef{DeclaringType: metadata.Named("System.Console"), FieldType: metadata.Named("System.IO.TextWriter"), Name: "Out"}})
			},
			reason: "references field 'Out' of dangerous type: System.IO.TextWriter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			td := safeType("Acme.Mod")
			tt.mutate(td)

			v := New(testPolicy(t, false)).Scan(moduleOf(td))
			if v.Accepted {
				t.Fatal("expected rejection")
			}
			if len(v.Reasons) != 1 || !strings.Contains(v.Reasons[0], tt.reason) {
				t.Errorf("reasons = %q, want one containing %q", v.Reasons, tt.reason)
			}
			if v.Unreadable() {
				t.Error("policy violation reported as unreadable")
			}
		})
	}
}

func TestScan_EnforcementModes(t *testing.T) {
	t.Parallel()

	socket := metadata.Named("System.Net.Sockets.Socket")
	tests := []struct {
		name     string
		banAll   bool
		callee   *metadata.TypeRef
		method   string
		accepted bool
	}{
		{"ban all rejects safe member name", true, socket, "get_Available", false},
		{"ban all rejects dangerous member name", true, socket, "Connect", false},
		{"co-occurrence permits safe member", false, socket, "get_Available", true},
		{"co-occurrence rejects dangerous member", false, tFile, "Delete", false},
		{"dangerous name on safe type is permitted", false, tString, "Delete", true},
		{"dangerous name on safe type is permitted under ban all", true, tString, "Start", true},
		{"generic declaring type", false, metadata.Generic(metadata.Named("System.Collections.Generic.List`1"), socket), "Connect", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			td := safeType("Acme.Mod")
			td.Methods = append(td.Methods, metadata.MethodDef{Name: "Run", ReturnType: tVoid, Body: body(call(tt.callee, tt.method))})

			v := New(testPolicy(t, tt.banAll)).Scan(moduleOf(td))
			if v.Accepted != tt.accepted {
				t.Fatalf("Accepted = %v, want %v (%v)", v.Accepted, tt.accepted, v)
			}
			if !v.Accepted && !strings.Contains(v.FirstReason(), tt.method) {
				t.Errorf("reason %q does not name the call target", v.FirstReason())
			}
		})
	}
}

func TestScan_ShortCircuits(t *testing.T) {
	t.Parallel()

	first := safeType("Acme.First")
	first.Methods = append(first.Methods, metadata.MethodDef{
		Name: "Wipe", ReturnType: tVoid,
		Body: body(call(tFile, "Delete"), call(tString, "Concat"), call(tString, "Concat")),
	}, metadata.MethodDef{Name: "Later", ReturnType: tVoid, Body: body(call(tString, "Concat"))})
	m := moduleOf(first, safeType("Acme.Second"), safeType("Acme.Third"))

	var visited []Node
	v := New(testPolicy(t, false), WithVisitor(func(n Node) { visited = append(visited, n) })).Scan(m)
	if v.Accepted {
		t.Fatal("expected rejection")
	}
	if len(visited) >= m.NodeCount() {
		t.Fatalf("visited %d of %d nodes, scan did not stop early", len(visited), m.NodeCount())
	}

	last := visited[len(visited)-1]
	if last.Kind != NodeInstruction || last.Method != "Wipe" || last.Index != 0 {
		t.Errorf("last visited node = %+v, want the violating instruction", last)
	}
	for _, n := range visited {
		if n.Type != "Acme.First" {
			t.Errorf("visited %+v after the violation", n)
		}
	}
}

func TestScan_VisitsEveryNodeWhenAccepted(t *testing.T) {
	t.Parallel()

	m := moduleOf(safeType("Acme.A"), safeType("Acme.B"))
	count := 0
	v := New(testPolicy(t, true), WithVisitor(func(Node) { count++ })).Scan(m)
	if !v.Accepted {
		t.Fatalf("expected acceptance, got %v", v)
	}
	if count != m.NodeCount() {
		t.Errorf("visited %d nodes, want %d", count, m.NodeCount())
	}
}

func TestScan_IgnoresOtherOperands(t *testing.T) {
	t.Parallel()

	td := safeType("Acme.Mod")
	td.Methods = append(td.Methods, metadata.MethodDef{Name: "Noise", ReturnType: tVoid, Body: body(
		metadata.Instruction{OpCode: "ldstr", Operand: metadata.Literal{Value: "System.IO.File.Delete"}},
		metadata.Instruction{OpCode: "nop"},
		metadata.Instruction{OpCode: "call", Operand: (*metadata.MethodRef)(nil)},
	)})

	if v := New(testPolicy(t, true)).Scan(moduleOf(td)); !v.Accepted {
		t.Errorf("string literals and empty operands must not reject: %v", v)
	}
}

func TestScan_NilModule(t *testing.T) {
	t.Parallel()

	v := New(nil).Scan(nil)
	if v.Accepted || !v.Unreadable() {
		t.Errorf("nil module verdict = %+v, want unreadable rejection", v)
	}
}

func TestScan_DoesNotMutateModule(t *testing.T) {
	t.Parallel()

	td := safeType("Acme.Mod")
	m := moduleOf(td)
	before := td.Methods[0].Body.Instructions[0].Operand.(*metadata.MethodRef).FullName()

	New(testPolicy(t, true)).Scan(m)

	if len(m.Types) != 1 || m.Types[0] != td {
		t.Error("Scan changed the type list")
	}
	if after := td.Methods[0].Body.Instructions[0].Operand.(*metadata.MethodRef).FullName(); after != before {
		t.Errorf("operand changed from %q to %q", before, after)
	}
}

func TestScanReader(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("bad image format")
	tests := []struct {
		name       string
		reader     metadata.Reader
		accepted   bool
		unreadable bool
	}{
		{
			name: "accepted",
			reader: metadata.ReaderFunc(func(context.Context, string, io.Reader) (*metadata.Module, error) {
				return moduleOf(safeType("Acme.A")), nil
			}),
			accepted: true,
		},
		{
			name: "reader error fails closed",
			reader: metadata.ReaderFunc(func(context.Context, string, io.Reader) (*metadata.Module, error) {
				return nil, sentinel
			}),
			unreadable: true,
		},
		{
			name: "reader panic fails closed",
			reader: metadata.ReaderFunc(func(context.Context, string, io.Reader) (*metadata.Module, error) {
				panic("index out of range")
			}),
			unreadable: true,
		},
		{
			name: "nil module fails closed",
			reader: metadata.ReaderFunc(func(context.Context, string, io.Reader) (*metadata.Module, error) {
				return nil, nil
			}),
			unreadable: true,
		},
		{
			name:       "corrupted image",
			reader:     metadata.ImageReader{},
			unreadable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, v := New(testPolicy(t, true)).ScanReader(context.Background(), tt.reader, "mod.modimg", strings.NewReader("\x7fELF garbage"))
			if v.Accepted != tt.accepted || v.Unreadable() != tt.unreadable {
				t.Fatalf("verdict = %+v, want accepted=%v unreadable=%v", v, tt.accepted, tt.unreadable)
			}
			if tt.unreadable {
				if m != nil {
					t.Error("unreadable verdict returned a module")
				}
				if !errors.Is(v.Cause, metadata.ErrUnreadable) {
					t.Errorf("Cause = %v, want ErrUnreadable", v.Cause)
				}
			}
		})
	}
}

func TestScanReader_PreservesCause(t *testing.T) {
	t.Parallel()

	_, v := New(nil).ScanReader(context.Background(), metadata.ReaderFunc(func(context.Context, string, io.Reader) (*metadata.Module, error) {
		return nil, io.ErrUnexpectedEOF
	}), "short.modimg", strings.NewReader(""))
	if !errors.Is(v.Cause, io.ErrUnexpectedEOF) {
		t.Errorf("Cause = %v, want io.ErrUnexpectedEOF", v.Cause)
	}
}
