// SPDX-License-Identifier: MPL-2.0

package invoke

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/botvelocity/bv/pkg/entrypoint"
)

// rootPackage is the import path the package at the project root is loaded
// under. Packages in subdirectories keep their directory as import path.
const rootPackage = "bv.project"

// searchPath is the GOPATH handed to the interpreter. It does not exist on
// disk: searchFS serves its src tree from the project root first and the
// environment's src tree second.
var searchPath = filepath.Join(string(filepath.Separator), "bv-search")

// searchFS is the interpreter's source filesystem for one call.
type searchFS struct {
	project string
	trees   []string
}

var _ fs.FS = (*searchFS)(nil)

func newSearchFS(projectRoot, goPath string) *searchFS {
	trees := []string{projectRoot}
	if goPath != "" {
		trees = append(trees, filepath.Join(goPath, "src"))
	}
	return &searchFS{project: projectRoot, trees: trees}
}

// Open maps paths below the search GOPATH onto the first tree that has them.
// Other absolute paths are opened as is; relative ones never resolve, so the
// working directory cannot leak into import resolution.
func (s *searchFS) Open(name string) (fs.File, error) {
	if rel, ok := s.underSearchPath(name); ok {
		return s.openMapped(rel)
	}
	if !filepath.IsAbs(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return os.Open(name)
}

func (s *searchFS) underSearchPath(name string) (string, bool) {
	rel, err := filepath.Rel(filepath.Join(searchPath, "src"), filepath.Clean(name))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

func (s *searchFS) openMapped(rel string) (fs.File, error) {
	if first, rest, _ := strings.Cut(filepath.ToSlash(rel), "/"); first == rootPackage {
		return os.Open(filepath.Join(s.project, filepath.FromSlash(rest)))
	}

	var firstErr error
	for _, tree := range s.trees {
		f, err := os.Open(filepath.Join(tree, rel))
		if err == nil {
			return f, nil
		}
		if firstErr == nil || (errors.Is(firstErr, fs.ErrNotExist) && !errors.Is(err, fs.ErrNotExist)) {
			firstErr = err
		}
	}
	return nil, firstErr
}

// packageImportPath is the import path of the package holding target's
// module file.
func packageImportPath(target entrypoint.Target) string {
	dir := path.Dir(target.File())
	if dir == "." {
		return rootPackage
	}
	return dir
}
