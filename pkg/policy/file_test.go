// SPDX-License-Identifier: MPL-2.0

package policy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		data    string
		check   func(t *testing.T, p *Policy)
		wantErr error
	}{
		{
			name: "cue append",
			file: "policy.cue",
			data: `
types: ["Host.Save.Unsafe"]
namespaces: ["Host.Debug."]
methods: ["Eval"]
`,
			check: func(t *testing.T, p *Policy) {
				t.Helper()
				if !p.MatchesTypeName("Host.Save.Unsafe") || !p.MatchesTypeName("Host.Debug.Console") {
					t.Error("appended entries missing")
				}
				if !p.MatchesTypeName("System.IO.File") || !p.IsDangerousMethodName("Delete") || !p.IsDangerousMethodName("Eval") {
					t.Error("append dropped default entries")
				}
			},
		},
		{
			name: "json replace",
			file: "policy.json",
			data: `{"mode": "replace", "namespaces": ["Host.Net."], "ban_all_in_namespace": false}`,
			check: func(t *testing.T, p *Policy) {
				t.Helper()
				if p.MatchesTypeName("System.IO.File") {
					t.Error("replace kept default namespaces")
				}
				if !p.MatchesTypeName("Host.Net.Client") {
					t.Error("replacement namespace missing")
				}
				if !p.MatchesTypeName("System.Diagnostics.Process") {
					t.Error("replace dropped a set the file does not list")
				}
				if p.BanAllInNamespace() {
					t.Error("ban_all_in_namespace not applied")
				}
			},
		},
		{
			name: "yaml replace with empty methods",
			file: "policy.yaml",
			data: "mode: replace\nmethods: []\n",
			check: func(t *testing.T, p *Policy) {
				t.Helper()
				if len(p.Methods()) != 0 {
					t.Errorf("methods = %v, want none", p.Methods())
				}
				if !p.MatchesTypeName("System.IO.File") {
					t.Error("replace dropped namespaces the file does not list")
				}
			},
		},
		{
			name: "empty yaml is a no-op",
			file: "policy.yml",
			data: "",
			check: func(t *testing.T, p *Policy) {
				t.Helper()
				if p.Fingerprint() != Default().Fingerprint() {
					t.Error("empty file changed the policy")
				}
			},
		},
		{
			name:    "cue namespace without separator",
			file:    "policy.cue",
			data:    `namespaces: ["System.IO"]`,
			wantErr: nil,
		},
		{
			name:    "yaml namespace without separator",
			file:    "policy.yaml",
			data:    "namespaces: [System.IO]\n",
			wantErr: ErrInvalidPolicy,
		},
		{
			name:    "yaml bad mode",
			file:    "policy.yaml",
			data:    "mode: merge\n",
			wantErr: ErrInvalidPolicy,
		},
		{
			name:    "unknown extension",
			file:    "policy.toml",
			data:    `types = []`,
			wantErr: ErrUnsupportedFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f, err := ParseFile(tt.file, []byte(tt.data))
			if err == nil {
				var p *Policy
				p, err = f.Apply(Default())
				if err == nil && tt.check != nil {
					tt.check(t, p)
					return
				}
			}

			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseFile_YAMLUnknownField(t *testing.T) {
	t.Parallel()

	if _, err := ParseFile("policy.yaml", []byte("typez: [A]\n")); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(path, []byte("types: [Host.Unsafe]\nban_all_in_namespace: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if f.BanAllInNamespace == nil || *f.BanAllInNamespace {
		t.Errorf("BanAllInNamespace = %v, want false", f.BanAllInNamespace)
	}
	if len(f.Types) != 1 || f.Types[0] != "Host.Unsafe" {
		t.Errorf("Types = %v", f.Types)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}
