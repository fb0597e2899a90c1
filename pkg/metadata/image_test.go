// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/modgate/modgate/pkg/cueutil"
)

const weatherImage = `
module:  "Acme.Weather"
version: "1.0.0"
exports: ["Acme.Weather.WeatherMod"]
types: [{
	name:       "Acme.Weather.WeatherMod"
	exported:   true
	base:       "System.Object"
	interfaces: ["Host.Modding.IMod"]
	fields: [{name: "cache", type: "System.Collections.Generic.List` + "`" + `1<System.String>"}]
	properties: [{name: "ModId", type: "System.String"}]
	methods: [{
		name: ".ctor"
		returns: "System.Void"
	}, {
		name:    "Forecast"
		returns: "System.String"
		params: [{name: "days", type: "System.Int32"}]
		body: [
			{op: "ldstr", value: "sunny"},
			{op: "call", method: {declaring: "System.String", name: "Concat", returns: "System.String", params: ["System.String", "System.String"]}},
			{op: "box", type: "System.Int32"},
			{op: "ldsfld", field: {declaring: "System.Console", name: "Out", type: "System.IO.TextWriter"}},
			{op: "ret"},
		]
	}]
}, {
	name:     "Acme.Weather.Helper"
	abstract: true
}]
`

func TestImageReader_Read(t *testing.T) {
	t.Parallel()

	m, err := ImageReader{}.Read(context.Background(), "weather.modimg", strings.NewReader(weatherImage))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if m.Name != "Acme.Weather" || m.Version != "1.0.0" {
		t.Errorf("module = %s@%s", m.Name, m.Version)
	}
	if len(m.Exports) != 1 || m.Exports[0] != "Acme.Weather.WeatherMod" {
		t.Errorf("Exports = %v", m.Exports)
	}
	if len(m.Types) != 2 {
		t.Fatalf("len(Types) = %d, want 2", len(m.Types))
	}

	mod := m.Types[0]
	if !mod.Exported || mod.BaseType.FullName() != "System.Object" {
		t.Errorf("type header = %+v", mod)
	}
	if len(mod.Interfaces) != 1 || mod.Interfaces[0].Name != "Host.Modding.IMod" {
		t.Errorf("Interfaces = %v", mod.Interfaces)
	}
	if mod.Fields[0].Type.Kind != KindGenericInstance {
		t.Errorf("field kind = %v, want generic", mod.Fields[0].Type.Kind)
	}

	ctor, ok := mod.Method(ConstructorName, 0)
	if !ok || ctor.Body != nil {
		t.Errorf("constructor = %+v, %v", ctor, ok)
	}

	forecast, ok := mod.Method("Forecast", 1)
	if !ok || forecast.Body == nil {
		t.Fatalf("Forecast not decoded: %+v", forecast)
	}
	ins := forecast.Body.Instructions
	if len(ins) != 5 {
		t.Fatalf("len(Instructions) = %d, want 5", len(ins))
	}
	if lit, ok := ins[0].Operand.(Literal); !ok || lit.Value != "sunny" {
		t.Errorf("ins[0] operand = %#v", ins[0].Operand)
	}
	if call, ok := ins[1].Operand.(*MethodRef); !ok || call.Name != "Concat" || len(call.Params) != 2 {
		t.Errorf("ins[1] operand = %#v", ins[1].Operand)
	}
	if typ, ok := ins[2].Operand.(*TypeRef); !ok || typ.Name != "System.Int32" {
		t.Errorf("ins[2] operand = %#v", ins[2].Operand)
	}
	if fld, ok := ins[3].Operand.(*FieldRef); !ok || fld.FieldType.Name != "System.IO.TextWriter" {
		t.Errorf("ins[3] operand = %#v", ins[3].Operand)
	}
	if ins[4].Operand != nil {
		t.Errorf("ins[4] operand = %#v, want nil", ins[4].Operand)
	}

	if !m.Types[1].Abstract {
		t.Error("Helper should be abstract")
	}
}

func TestImageReader_Unreadable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		image string
	}{
		{"garbage", "\x00\x01MZ\x90 not an image"},
		{"missing module name", `types: []`},
		{"unknown field", `module: "x", payload: "exec"`},
		{"malformed type name", `module: "x", types: [{name: "A", base: "List` + "`" + `1<"}]`},
		{"two operands", `module: "x", types: [{name: "A", methods: [{name: "M", body: [{op: "call", type: "A", value: 1}]}]}]`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := ImageReader{}.Read(context.Background(), "bad.modimg", strings.NewReader(tt.image))
			if err == nil {
				t.Fatalf("expected error, got module %+v", m)
			}
			if !errors.Is(err, ErrUnreadable) {
				t.Errorf("error %v does not wrap ErrUnreadable", err)
			}
			var ue *UnreadableError
			if !errors.As(err, &ue) || ue.Name != "bad.modimg" {
				t.Errorf("expected *UnreadableError for bad.modimg, got %T", err)
			}
		})
	}
}

func TestImageReader_RejectsDeeplyNestedTypeNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		typeName string
	}{
		{"generic", strings.Repeat("A`1<", 300) + "B" + strings.Repeat(">", 300)},
		{"pointer", "A" + strings.Repeat("*", 300)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			image := `module: "x", types: [{name: "T", fields: [{name: "f", type: "` + tt.typeName + `"}]}]`
			_, err := ImageReader{}.Read(context.Background(), "deep.modimg", strings.NewReader(image))
			if !errors.Is(err, ErrUnreadable) || !errors.Is(err, ErrInvalidTypeName) {
				t.Fatalf("Read() error = %v, want unreadable invalid type name", err)
			}
		})
	}
}

func TestImageReader_SizeLimit(t *testing.T) {
	t.Parallel()

	_, err := ImageReader{MaxSize: 32}.Read(context.Background(), "big.modimg", strings.NewReader(weatherImage))
	if !errors.Is(err, ErrUnreadable) || !errors.Is(err, cueutil.ErrFileTooLarge) {
		t.Fatalf("expected unreadable too-large error, got %v", err)
	}
}

func TestImageReader_ContextExpired(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := ImageReader{}.Read(ctx, "slow.modimg", strings.NewReader(weatherImage))
	if !errors.Is(err, ErrUnreadable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected unreadable deadline error, got %v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestImageBuild_StopsWhenContextDone(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := &imageDoc{
		Module: "x",
		Types: []typeDoc{{
			Name:    "A",
			Base:    "System.Object",
			Methods: []methodDoc{{Name: "M", Body: []instructionDoc{{Op: "ret"}}}},
		}},
	}
	if _, err := doc.build(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("build() error = %v, want context.Canceled", err)
	}
}

func TestImageReader_SourceError(t *testing.T) {
	t.Parallel()

	_, err := ImageReader{}.Read(context.Background(), "broken.modimg", failingReader{})
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected source error to be preserved, got %v", err)
	}
}

func TestDecodeImage(t *testing.T) {
	t.Parallel()

	m, err := DecodeImage("weather.json", []byte(`{"module": "Acme.Json", "types": [{"name": "A", "exported": true}]}`))
	if err != nil {
		t.Fatalf("DecodeImage() error = %v", err)
	}
	if m.Name != "Acme.Json" || len(m.Types) != 1 || !m.Types[0].Exported {
		t.Errorf("module = %+v", m)
	}
}

func TestUnreadableDoesNotDoubleWrap(t *testing.T) {
	t.Parallel()

	inner := Unreadable("a", errors.New("boom"))
	if outer := Unreadable("b", inner); outer != inner {
		t.Errorf("Unreadable re-wrapped an *UnreadableError")
	}
}
