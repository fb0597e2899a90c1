// SPDX-License-Identifier: MPL-2.0

package modloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type (
	// Enumerator lists candidate module files.
	Enumerator interface {
		Enumerate(ctx context.Context, dir string) ([]string, error)
	}

	// DirEnumerator lists the regular files directly inside a directory whose
	// extension matches Extension (case-insensitive), sorted by name. The
	// directory is created when it does not exist.
	DirEnumerator struct {
		Extension string
	}
)

// Enumerate implements Enumerator.
func (e DirEnumerator) Enumerate(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create mods directory: %w", err)
	}

	// os.ReadDir returns entries sorted by filename.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list mods directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if e.Extension != "" && !strings.EqualFold(filepath.Ext(entry.Name()), e.Extension) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths, nil
}
