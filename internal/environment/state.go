// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/botvelocity/bv/internal/fsutil"

	"github.com/pelletier/go-toml/v2"
)

const (
	// StateFile records the toolchain and installed packages inside the environment.
	StateFile = "bvenv.toml"
	// ManifestFile is the project-level dependency manifest.
	ManifestFile = "environment.toml"
)

type (
	// Toolchain identifies the base Go toolchain an environment was created from.
	Toolchain struct {
		Base      string `toml:"base"`
		GoRoot    string `toml:"goroot"`
		GoVersion string `toml:"go_version"`
	}

	// Package is one module installed into the environment.
	Package struct {
		Path    string `toml:"path"`
		Version string `toml:"version"`
		Sum     string `toml:"sum,omitempty"`
	}

	// State is the persisted content of StateFile.
	State struct {
		Toolchain Toolchain `toml:"toolchain"`
		Packages  []Package `toml:"packages"`
	}

	// Manifest is the project's declared dependency list (environment.toml).
	Manifest struct {
		// Toolchain is an optional minimum Go version, informational only.
		Toolchain    string   `toml:"toolchain,omitempty"`
		Dependencies []string `toml:"dependencies"`
	}
)

// Upsert records pkg, replacing any entry with the same module path, and
// keeps Packages sorted by path.
func (s *State) Upsert(pkg Package) {
	i := slices.IndexFunc(s.Packages, func(p Package) bool { return p.Path == pkg.Path })
	if i >= 0 {
		s.Packages[i] = pkg
	} else {
		s.Packages = append(s.Packages, pkg)
	}
	slices.SortFunc(s.Packages, func(a, b Package) int { return strings.Compare(a.Path, b.Path) })
}

func readState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading environment state: %w", err)
	}
	var st State
	if err := toml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &st, nil
}

func writeState(path string, st *State) error {
	data, err := toml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding environment state: %w", err)
	}
	return fsutil.WriteFileAtomic(path, data, 0o644)
}

// ReadManifest loads the dependency manifest at path. A missing manifest is
// an empty dependency list.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &m, nil
}

// MarshalManifest renders m as TOML.
func MarshalManifest(m *Manifest) ([]byte, error) {
	if m.Dependencies == nil {
		m = &Manifest{Toolchain: m.Toolchain, Dependencies: []string{}}
	}
	data, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding dependency manifest: %w", err)
	}
	return data, nil
}
