// SPDX-License-Identifier: MPL-2.0

package invoke

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/botvelocity/bv/pkg/entrypoint"
)

func TestSearchFS(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	env := t.TempDir()
	write := func(path, content string) {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(filepath.Join(root, "main.go"), "root")
	write(filepath.Join(root, "util", "util.go"), "project")
	write(filepath.Join(env, "src", "util", "util.go"), "environment")
	write(filepath.Join(env, "src", "example.com", "lib", "lib.go"), "library")

	sfs := newSearchFS(root, env)
	src := filepath.Join(searchPath, "src")

	tests := []struct {
		name string
		path string
		want string
	}{
		{"root package", filepath.Join(src, rootPackage, "main.go"), "root"},
		{"project shadows environment", filepath.Join(src, "util", "util.go"), "project"},
		{"environment package", filepath.Join(src, "example.com", "lib", "lib.go"), "library"},
		{"real absolute path", filepath.Join(env, "src", "util", "util.go"), "environment"},
	}
	for _, tt := range tests {
		got, err := fs.ReadFile(sfs, tt.path)
		if err != nil {
			t.Errorf("%s: ReadFile() error = %v", tt.name, err)
			continue
		}
		if string(got) != tt.want {
			t.Errorf("%s: ReadFile() = %q, want %q", tt.name, got, tt.want)
		}
	}

	if _, err := sfs.Open(filepath.Join(src, "missing")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open(missing) error = %v, want not exist", err)
	}
	if f, err := sfs.Open("util"); !errors.Is(err, fs.ErrNotExist) {
		if f != nil {
			_ = f.Close()
		}
		t.Errorf("Open(relative) error = %v, want not exist", err)
	}
}

func TestPackageImportPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		module string
		want   string
	}{
		{"main", rootPackage},
		{"app", rootPackage},
		{"jobs.nightly", "jobs"},
		{"handlers.billing.invoice", "handlers/billing"},
	}
	for _, tt := range tests {
		if got := packageImportPath(entrypoint.Target{Module: tt.module, Function: "Run"}); got != tt.want {
			t.Errorf("packageImportPath(%q) = %q, want %q", tt.module, got, tt.want)
		}
	}
}
