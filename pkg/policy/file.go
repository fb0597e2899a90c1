// SPDX-License-Identifier: MPL-2.0

package policy

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/modgate/modgate/pkg/cueutil"
)

const (
	// ModeAppend adds file entries to the base policy.
	ModeAppend Mode = "append"
	// ModeReplace swaps every set the file lists; unlisted sets keep the base entries.
	ModeReplace Mode = "replace"
)

//go:embed policy_schema.cue
var policySchema []byte

// ErrUnsupportedFormat is returned for policy files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported policy file format")

type (
	// Mode selects how a File combines with a base policy.
	Mode string

	// File is a decoded policy file.
	File struct {
		Mode              Mode     `json:"mode,omitempty" yaml:"mode"`
		BanAllInNamespace *bool    `json:"ban_all_in_namespace,omitempty" yaml:"ban_all_in_namespace"`
		Types             []string `json:"types,omitempty" yaml:"types"`
		Namespaces        []string `json:"namespaces,omitempty" yaml:"namespaces"`
		Methods           []string `json:"methods,omitempty" yaml:"methods"`
	}
)

// IsValid returns whether the mode is one of the defined modes.
// The empty mode is treated as ModeAppend.
func (m Mode) IsValid() bool {
	switch m {
	case "", ModeAppend, ModeReplace:
		return true
	}
	return false
}

// LoadFile reads a policy file. ".cue" and ".json" files are validated
// against the embedded schema; ".yaml" and ".yml" files are decoded strictly.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParseFile(path, data)
}

// ParseFile decodes policy file contents; the format follows name's extension.
func ParseFile(name string, data []byte) (*File, error) {
	var (
		f   *File
		err error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".cue", ".json":
		f, err = parseCUE(name, data)
	case ".yaml", ".yml":
		f, err = parseYAML(name, data)
	default:
		return nil, fmt.Errorf("%s: %w (want .cue, .json, .yaml or .yml)", name, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}
	if !f.Mode.IsValid() {
		return nil, fmt.Errorf("%s: %w", name, &InvalidPolicyError{Field: "mode", Value: string(f.Mode), Hint: `must be "append" or "replace"`})
	}
	return f, nil
}

func parseCUE(name string, data []byte) (*File, error) {
	res, err := cueutil.ParseAndDecode[File](policySchema, data, "#Policy", cueutil.WithFilename(name))
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

func parseYAML(name string, data []byte) (*File, error) {
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, name); err != nil {
		return nil, err
	}
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &f, nil
}

// Options converts the file into policy options for its mode.
func (f *File) Options() []Option {
	var opts []Option
	replace := f.Mode == ModeReplace
	if f.Types != nil {
		opts = append(opts, pick(replace, WithTypes, AddTypes)(f.Types...))
	}
	if f.Namespaces != nil {
		opts = append(opts, pick(replace, WithNamespaces, AddNamespaces)(f.Namespaces...))
	}
	if f.Methods != nil {
		opts = append(opts, pick(replace, WithMethods, AddMethods)(f.Methods...))
	}
	if f.BanAllInNamespace != nil {
		opts = append(opts, WithBanAllInNamespace(*f.BanAllInNamespace))
	}
	return opts
}

// Apply derives a policy from base with the file's entries.
func (f *File) Apply(base *Policy) (*Policy, error) {
	return base.With(f.Options()...)
}

func pick(replace bool, with, add func(...string) Option) func(...string) Option {
	if replace {
		return with
	}
	return add
}
