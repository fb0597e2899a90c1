// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

const testSchema = `
#Manifest: {
	name:     string & !=""
	workers:  int & >=0
	enabled:  bool
	exports?: [...string]
}
`

type testManifest struct {
	Name    string   `json:"name"`
	Workers int      `json:"workers"`
	Enabled bool     `json:"enabled"`
	Exports []string `json:"exports,omitempty"`
}

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		opts    []Option
		want    testManifest
		wantErr string
	}{
		{
			name: "valid CUE document",
			data: `
name:    "weather"
workers: 4
enabled: true
exports: ["Acme.Weather.WeatherMod"]
`,
			want: testManifest{Name: "weather", Workers: 4, Enabled: true, Exports: []string{"Acme.Weather.WeatherMod"}},
		},
		{
			name: "JSON is accepted",
			data: `{"name": "json", "workers": 0, "enabled": false}`,
			want: testManifest{Name: "json"},
		},
		{
			name:    "schema violation reports the field path",
			data:    `name: "x", workers: -1, enabled: true`,
			opts:    []Option{WithFilename("manifest.cue")},
			wantErr: "manifest.cue: workers",
		},
		{
			name:    "syntax error",
			data:    `name: "unterminated`,
			opts:    []Option{WithFilename("broken.cue")},
			wantErr: "broken.cue",
		},
		{
			name:    "missing field is not concrete",
			data:    `name: "x", workers: 1`,
			wantErr: "<input>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := ParseAndDecode[testManifest]([]byte(testSchema), []byte(tt.data), "#Manifest", tt.opts...)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error %q does not contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAndDecode() error = %v", err)
			}
			got := *result.Value
			if got.Name != tt.want.Name || got.Workers != tt.want.Workers || got.Enabled != tt.want.Enabled {
				t.Errorf("decoded %+v, want %+v", got, tt.want)
			}
			if len(got.Exports) != len(tt.want.Exports) {
				t.Errorf("exports = %v, want %v", got.Exports, tt.want.Exports)
			}
		})
	}
}

func TestParseAndDecode_FileTooLarge(t *testing.T) {
	t.Parallel()

	data := []byte(`name: "` + strings.Repeat("a", 128) + `", workers: 1, enabled: true`)
	_, err := ParseAndDecode[testManifest]([]byte(testSchema), data, "#Manifest", WithMaxFileSize(64))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestParseAndDecode_UnknownDefinition(t *testing.T) {
	t.Parallel()

	_, err := ParseAndDecode[testManifest]([]byte(testSchema), []byte(`name: "x"`), "#Missing")
	if err == nil || !strings.Contains(err.Error(), "#Missing") {
		t.Fatalf("expected missing definition error, got %v", err)
	}
}

func TestParseAndDecodeContext_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ParseAndDecodeContext[testManifest](ctx, []byte(testSchema), []byte(`name: "x", workers: 1, enabled: true`), "#Manifest")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReadLimited(t *testing.T) {
	t.Parallel()

	t.Run("within limit", func(t *testing.T) {
		t.Parallel()

		data, err := ReadLimited(bytes.NewReader([]byte("abcd")), 4, "small")
		if err != nil {
			t.Fatalf("ReadLimited() error = %v", err)
		}
		if string(data) != "abcd" {
			t.Errorf("data = %q, want %q", data, "abcd")
		}
	})

	t.Run("over limit", func(t *testing.T) {
		t.Parallel()

		_, err := ReadLimited(bytes.NewReader([]byte("abcde")), 4, "big")
		if !errors.Is(err, ErrFileTooLarge) {
			t.Fatalf("expected ErrFileTooLarge, got %v", err)
		}
	})
}
