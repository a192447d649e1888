// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/botvelocity/bv/pkg/project"

	"github.com/klauspost/compress/zip"
)

type staticLocker []byte

func (l staticLocker) Lock(context.Context) ([]byte, error) { return l, nil }

func setupProject(t *testing.T) (string, *project.Config) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"main.go":                "package main\n",
		"bvproject.yaml":         "name: demo\n",
		"bindings.json":          "{}\n",
		"entry-points.json":      `{"stale": true}`,
		"data/input.csv":         "a,b\n",
		"data/nested/deep.txt":   "deep\n",
		".bvenv/src/lib/lib.go":  "package lib\n",
		"data/.bvenv-like/x.txt": "kept\n",
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := project.NewDefault("demo")
	cfg.Version = "1.2.3"
	return root, cfg
}

func memberNames(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer func() { _ = r.Close() }()
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

func TestBuildAndVerify(t *testing.T) {
	t.Parallel()

	root, cfg := setupProject(t)
	b := NewBuilder("bv-test", nil)

	res, err := b.Build(context.Background(), Request{
		Root:    root,
		Config:  cfg,
		Target:  filepath.Join(root, "dist", "demo-1.2.3"),
		Sources: []string{"main.go", "bvproject.yaml", "bindings.json", "entry-points.json", "data", "."},
		Exclude: []string{".bvenv", "dist"},
		Locker:  staticLocker("# go go1.25.0\n"),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !strings.HasSuffix(res.Path, "demo-1.2.3"+Extension) {
		t.Errorf("Path = %q, want %s suffix", res.Path, Extension)
	}
	if res.Size <= 0 {
		t.Errorf("Size = %d", res.Size)
	}

	names := memberNames(t, res.Path)
	for _, want := range []string{ManifestName, EntryPointsName, LockName, "main.go", "data/nested/deep.txt", "data/.bvenv-like/x.txt"} {
		if !slices.Contains(names, want) {
			t.Errorf("archive missing %q; members = %v", want, names)
		}
	}
	for _, name := range names {
		if strings.HasPrefix(name, ".bvenv/") {
			t.Errorf("environment directory leaked into archive: %s", name)
		}
	}

	if err := Verify(res.Path, "demo", "1.2.3"); err != nil {
		t.Errorf("Verify() error = %v", err)
	}

	leftovers, _ := filepath.Glob(filepath.Join(root, "dist", ".bv-tmp-*"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestBuild_ReproducibleAcrossIncludeOrder(t *testing.T) {
	t.Parallel()

	root, cfg := setupProject(t)
	b := NewBuilder("bv-test", nil)

	build := func(target string, sources []string) []byte {
		res, err := b.Build(context.Background(), Request{
			Root: root, Config: cfg, Target: filepath.Join(root, "out", target),
			Sources: sources, Exclude: []string{".bvenv"},
		})
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		data, err := os.ReadFile(res.Path)
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	first := build("a", []string{"main.go", "data", "bindings.json", "main.go"})
	second := build("b", []string{"bindings.json", "data", "main.go"})
	if !bytes.Equal(first, second) {
		t.Error("archives differ when only include order changes")
	}
}

func TestBuild_DryRunWritesNothing(t *testing.T) {
	t.Parallel()

	root, cfg := setupProject(t)
	target := filepath.Join(root, "dist", "demo-1.2.3")

	res, err := NewBuilder("bv-test", nil).Build(context.Background(), Request{
		Root: root, Config: cfg, Target: target, Sources: []string{"main.go"}, DryRun: true,
		Locker: staticLocker("unused"),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if res.Path != target+Extension {
		t.Errorf("Path = %q, want %q", res.Path, target+Extension)
	}
	if _, err := os.Stat(filepath.Join(root, "dist")); !os.IsNotExist(err) {
		t.Errorf("dry run created output directory: %v", err)
	}
}

func TestBuild_MissingSource(t *testing.T) {
	t.Parallel()

	root, cfg := setupProject(t)
	_, err := NewBuilder("bv-test", nil).Build(context.Background(), Request{
		Root: root, Config: cfg, Target: filepath.Join(root, "x"), Sources: []string{"nope.go"},
	})
	if !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("Build() error = %v, want ErrSourceNotFound", err)
	}
}

func writeRawArchive(t *testing.T, members map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raw"+Extension)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, content := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVerify_Failures(t *testing.T) {
	t.Parallel()

	goodIndex := `{"entryPoints":[{"name":"main","function":"Main"}]}`
	tests := []struct {
		name    string
		members map[string]string
		want    string
	}{
		{
			name:    "version mismatch",
			members: map[string]string{ManifestName: `{"name":"demo","version":"1.0.0"}`, EntryPointsName: goodIndex},
			want:    "Package version mismatch: expected '1.2.3', found '1.0.0'",
		},
		{
			name:    "name mismatch",
			members: map[string]string{ManifestName: `{"name":"other","version":"1.2.3"}`, EntryPointsName: goodIndex},
			want:    "Package name mismatch: expected 'demo', found 'other'",
		},
		{
			name:    "empty entry list",
			members: map[string]string{ManifestName: `{"name":"demo","version":"1.2.3"}`, EntryPointsName: `{"entryPoints":[]}`},
			want:    "Package entry-points.json missing or empty",
		},
		{
			name:    "missing index",
			members: map[string]string{ManifestName: `{"name":"demo","version":"1.2.3"}`},
			want:    "Package entry-points.json missing or empty",
		},
		{
			name:    "entry without function",
			members: map[string]string{ManifestName: `{"name":"demo","version":"1.2.3"}`, EntryPointsName: `{"entryPoints":[{"name":"main"}]}`},
			want:    "Entrypoint at index 0 missing name or function",
		},
		{
			name:    "manifest not an object",
			members: map[string]string{ManifestName: `[1,2]`, EntryPointsName: goodIndex},
			want:    "Package manifest.json is not a valid JSON object",
		},
		{
			name:    "missing manifest",
			members: map[string]string{EntryPointsName: goodIndex},
			want:    "Package manifest.json missing",
		},
		{
			name: "digest mismatch",
			members: map[string]string{
				ManifestName:    `{"name":"demo","version":"1.2.3","files":{"main.go":"blake3:00"}}`,
				EntryPointsName: goodIndex,
				"main.go":       "package main\n",
			},
			want: "Package member 'main.go' digest mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Verify(writeRawArchive(t, tt.members), "demo", "1.2.3")
			if !errors.Is(err, ErrIntegrity) {
				t.Fatalf("Verify() error = %v, want ErrIntegrity", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Verify() error = %q, want %q", err.Error(), tt.want)
			}
		})
	}
}

func TestVerify_NotAZip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "junk"+Extension)
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	var integrityErr *IntegrityError
	if err := Verify(path, "demo", "1.0.0"); !errors.As(err, &integrityErr) {
		t.Errorf("Verify() error = %v, want *IntegrityError", err)
	}
}

func TestTargetPath(t *testing.T) {
	t.Parallel()

	if got := TargetPath("dist/demo-1.0.0"); got != "dist/demo-1.0.0"+Extension {
		t.Errorf("TargetPath() = %q", got)
	}
	if got := TargetPath("x" + Extension); got != "x"+Extension {
		t.Errorf("TargetPath() double-appended: %q", got)
	}
}
