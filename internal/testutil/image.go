// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"encoding/json"
	"testing"
)

type (
	// Image is a module image fixture. It marshals to JSON, which the image
	// reader accepts as CUE.
	Image struct {
		Module  string   `json:"module"`
		Version string   `json:"version,omitempty"`
		Exports []string `json:"exports,omitempty"`
		Types   []Type   `json:"types,omitempty"`
	}

	// Type is a declared type fixture.
	Type struct {
		Name       string   `json:"name"`
		Exported   bool     `json:"exported,omitempty"`
		Base       string   `json:"base,omitempty"`
		Interfaces []string `json:"interfaces,omitempty"`
		Fields     []Member `json:"fields,omitempty"`
		Properties []Member `json:"properties,omitempty"`
		Methods    []Method `json:"methods,omitempty"`
	}

	// Member is a field or property fixture.
	Member struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}

	// Method is a method fixture.
	Method struct {
		Name    string        `json:"name"`
		Returns string        `json:"returns,omitempty"`
		Body    []Instruction `json:"body,omitempty"`
	}

	// Instruction is a method body instruction fixture.
	Instruction struct {
		Op     string     `json:"op"`
		Method *MethodRef `json:"method,omitempty"`
		Type   string     `json:"type,omitempty"`
	}

	// MethodRef is a call target fixture.
	MethodRef struct {
		Declaring string `json:"declaring"`
		Name      string `json:"name"`
		Returns   string `json:"returns,omitempty"`
	}
)

// ModType returns an exported type that satisfies the mod capability
// contract through properties and declares a default constructor.
func ModType(name string, methods ...Method) Type {
	return Type{
		Name:     name,
		Exported: true,
		Base:     "System.Object",
		Properties: []Member{
			{Name: "ModId", Type: "System.String"},
			{Name: "ModVersion", Type: "System.String"},
			{Name: "ModAuthor", Type: "System.String"},
			{Name: "IsMpCompatible", Type: "System.Boolean"},
		},
		Methods: append([]Method{{Name: ".ctor", Returns: "System.Void"}}, methods...),
	}
}

// Calls returns a method whose body calls declaring::method.
func Calls(name, declaring, method string) Method {
	return Method{
		Name:    name,
		Returns: "System.Void",
		Body: []Instruction{
			{Op: "call", Method: &MethodRef{Declaring: declaring, Name: method, Returns: "System.Void"}},
			{Op: "ret"},
		},
	}
}

// Encode renders the image document.
func (img Image) Encode(t testing.TB) string {
	t.Helper()
	data, err := json.MarshalIndent(img, "", "  ")
	if err != nil {
		t.Fatalf("failed to encode image %s: %v", img.Module, err)
	}
	return string(data)
}

// MustWriteImage writes img to dir/name and returns the full path.
func MustWriteImage(t testing.TB, dir, name string, img Image) string {
	t.Helper()
	return MustWriteFile(t, dir, name, img.Encode(t))
}
