// SPDX-License-Identifier: MPL-2.0

package modloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

type testMod struct {
	id      string
	version string
	author  string
	mp      bool

	events *[]string
}

func (m *testMod) ModID() string        { return m.id }
func (m *testMod) ModVersion() string   { return m.version }
func (m *testMod) ModAuthor() string    { return m.author }
func (m *testMod) IsMPCompatible() bool { return m.mp }

func (m *testMod) Start(context.Context) error {
	if m.events != nil {
		*m.events = append(*m.events, "start "+m.id)
	}
	return nil
}

func (m *testMod) Update(context.Context) error {
	if m.events != nil {
		*m.events = append(*m.events, "update "+m.id)
	}
	if m.id == "fails-update" {
		return fmt.Errorf("update failed")
	}
	return nil
}

func (m *testMod) Stop(context.Context) error {
	if m.events != nil {
		*m.events = append(*m.events, "stop "+m.id)
	}
	if m.id == "fails-stop" {
		return fmt.Errorf("stop failed")
	}
	return nil
}

// modType renders a type that satisfies the capability contract. extra is
// appended to its method list.
func modType(name string, extra ...string) string {
	methods := append([]string{`{name: ".ctor", returns: "System.Void"}`}, extra...)
	return fmt.Sprintf(`{
	name:     %q
	exported: true
	base:     "System.Object"
	properties: [
		{name: "ModId", type: "System.String"},
		{name: "ModVersion", type: "System.String"},
		{name: "ModAuthor", type: "System.String"},
		{name: "IsMpCompatible", type: "System.Boolean"},
	]
	methods: [%s]
}`, name, strings.Join(methods, ",\n"))
}

// callMethod renders a method whose body calls declaring::method.
func callMethod(name, declaring, method string) string {
	return fmt.Sprintf(`{name: %q, returns: "System.Void", body: [{op: "call", method: {declaring: %q, name: %q, returns: "System.Void"}}, {op: "ret"}]}`,
		name, declaring, method)
}

func image(module string, types ...string) string {
	return fmt.Sprintf("module: %q\nversion: \"1.0.0\"\ntypes: [%s]\n", module, strings.Join(types, ",\n"))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// countingFactory returns a factory that counts its calls.
func countingFactory(calls *atomic.Int32, m *testMod) Factory {
	return func() Mod {
		calls.Add(1)
		clone := *m
		return &clone
	}
}

type recordingAuditor struct {
	entries []AuditEntry
	err     error
}

func (a *recordingAuditor) Record(_ context.Context, e AuditEntry) error {
	a.entries = append(a.entries, e)
	return a.err
}
