// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
)

// fakeExecutor answers the driver subcommands the manager issues without
// running a real toolchain.
type fakeExecutor struct {
	mu      sync.Mutex
	goroot  string
	modules map[string]moduleInfo // keyed by "path@version" as requested
	failOn  string                // substring of the joined args that triggers failure
	calls   []Command
}

func newFakeExecutor(t *testing.T) *fakeExecutor {
	t.Helper()
	goroot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(goroot, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(goroot, "bin", DriverName()), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return &fakeExecutor{goroot: goroot, modules: map[string]moduleInfo{}}
}

func (f *fakeExecutor) Run(_ context.Context, c Command) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)

	joined := strings.Join(c.Args, " ")
	if f.failOn != "" && strings.Contains(joined, f.failOn) {
		return nil, &CommandError{Name: c.Name, Args: c.Args, Err: errors.New("exit status 1")}
	}

	switch {
	case strings.HasPrefix(joined, "env -json"):
		return json.Marshal(map[string]string{"GOROOT": f.goroot, "GOVERSION": "go1.25.0"})
	case strings.HasPrefix(joined, "env -w"):
		return nil, nil
	case strings.HasPrefix(joined, "mod download -json"):
		spec := c.Args[len(c.Args)-1]
		info, ok := f.modules[spec]
		if !ok {
			out, _ := json.Marshal(moduleInfo{Error: "module " + spec + ": not found"})
			return out, &CommandError{Name: c.Name, Args: c.Args, Err: errors.New("exit status 1")}
		}
		return json.Marshal(info)
	}
	return nil, errors.New("unexpected command: " + joined)
}

func (f *fakeExecutor) addModule(t *testing.T, spec, path, version string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lib.go"), []byte("package lib\n"), 0o444); err != nil {
		t.Fatal(err)
	}
	f.modules[spec] = moduleInfo{Path: path, Version: version, Dir: dir, Sum: "h1:" + version}
}

func TestCreate(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor(t)
	dir := filepath.Join(t.TempDir(), ".bvenv")
	m := NewManager(dir, exec, nil)

	if m.Exists() {
		t.Fatal("Exists() = true before Create")
	}
	if err := m.Create(context.Background(), ""); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !m.Exists() {
		t.Fatal("Exists() = false after Create")
	}

	for _, sub := range []string{"bin", "src", filepath.Join("pkg", "mod")} {
		if info, err := os.Stat(filepath.Join(dir, sub)); err != nil || !info.IsDir() {
			t.Errorf("layout directory %s missing", sub)
		}
	}

	st, err := readState(filepath.Join(dir, StateFile))
	if err != nil {
		t.Fatalf("readState() error = %v", err)
	}
	if st.Toolchain.GoRoot != exec.goroot || st.Toolchain.GoVersion != "go1.25.0" || st.Toolchain.Base != DefaultBaseToolchain {
		t.Errorf("toolchain = %+v", st.Toolchain)
	}

	if len(exec.calls) != 2 {
		t.Fatalf("executor calls = %d, want 2 (probe, configure)", len(exec.calls))
	}
	configure := exec.calls[1]
	if configure.Name != m.DriverPath() {
		t.Errorf("configure ran %q, want environment driver", configure.Name)
	}
	if !slices.Contains(configure.Env, "GOENV="+filepath.Join(dir, "go.env")) {
		t.Errorf("configure env = %v, missing GOENV", configure.Env)
	}
}

func TestCreate_FailureRemovesNewDirectory(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor(t)
	exec.failOn = "env -w"
	dir := filepath.Join(t.TempDir(), ".bvenv")
	m := NewManager(dir, exec, nil)

	err := m.Create(context.Background(), "go")
	var envErr *EnvironmentError
	if !errors.As(err, &envErr) {
		t.Fatalf("Create() error = %v, want *EnvironmentError", err)
	}
	if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
		t.Errorf("environment directory left behind after failed create: %v", statErr)
	}
}

func TestEnsure(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor(t)
	dir := filepath.Join(t.TempDir(), ".bvenv")
	m := NewManager(dir, exec, nil)

	if _, err := m.Ensure(context.Background(), false, ""); !errors.Is(err, ErrEnvironmentMissing) {
		t.Fatalf("Ensure(create=false) error = %v, want ErrEnvironmentMissing", err)
	}
	if len(exec.calls) != 0 {
		t.Errorf("Ensure(create=false) invoked the toolchain %d times", len(exec.calls))
	}

	got, err := m.Ensure(context.Background(), true, "")
	if err != nil || got != dir {
		t.Fatalf("Ensure(create=true) = %q, %v", got, err)
	}

	calls := len(exec.calls)
	if _, err := m.Ensure(context.Background(), true, ""); err != nil {
		t.Fatal(err)
	}
	if len(exec.calls) != calls {
		t.Error("Ensure on existing environment re-created it")
	}
}

func TestInstallAndFreeze(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor(t)
	exec.addModule(t, "example.com/zeta@latest", "example.com/zeta", "v1.2.0")
	exec.addModule(t, "example.com/alpha@v0.3.1", "example.com/alpha", "v0.3.1")
	exec.addModule(t, "example.com/zeta@v1.2.0", "example.com/zeta", "v1.2.0")

	root := t.TempDir()
	m := NewManager(filepath.Join(root, ".bvenv"), exec, nil)
	if err := m.Create(context.Background(), ""); err != nil {
		t.Fatal(err)
	}

	manifest := filepath.Join(root, ManifestFile)
	if err := os.WriteFile(manifest, []byte("dependencies = [\"example.com/zeta\", \"example.com/alpha@v0.3.1\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	pkgs, err := m.Install(context.Background(), InstallOptions{ManifestPath: manifest})
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if len(pkgs) != 2 {
		t.Fatalf("installed %d packages, want 2", len(pkgs))
	}
	if _, err := os.Stat(filepath.Join(m.Dir, "src", "example.com", "zeta", "lib.go")); err != nil {
		t.Errorf("module source not placed under src/: %v", err)
	}

	out := filepath.Join(root, "requirements.lock")
	data, err := m.Freeze(context.Background(), out)
	if err != nil {
		t.Fatalf("Freeze() error = %v", err)
	}
	want := "# go go1.25.0\nexample.com/alpha v0.3.1 h1:v0.3.1\nexample.com/zeta v1.2.0 h1:v1.2.0\n"
	if string(data) != want {
		t.Errorf("Freeze() =\n%s\nwant\n%s", data, want)
	}
	written, err := os.ReadFile(out)
	if err != nil || string(written) != want {
		t.Errorf("freeze file = %q, %v", written, err)
	}
}

func TestInstall_ReportsDownloadError(t *testing.T) {
	t.Parallel()

	exec := newFakeExecutor(t)
	m := NewManager(filepath.Join(t.TempDir(), ".bvenv"), exec, nil)
	if err := m.Create(context.Background(), ""); err != nil {
		t.Fatal(err)
	}

	_, err := m.Install(context.Background(), InstallOptions{Packages: []string{"example.com/missing@v9.9.9"}})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Install() error = %v, want download failure", err)
	}
}

func TestInstallRequiresEnvironment(t *testing.T) {
	t.Parallel()

	m := NewManager(filepath.Join(t.TempDir(), ".bvenv"), newFakeExecutor(t), nil)
	if _, err := m.Install(context.Background(), InstallOptions{Packages: []string{"x"}}); !errors.Is(err, ErrEnvironmentMissing) {
		t.Errorf("Install() error = %v, want ErrEnvironmentMissing", err)
	}
	if _, err := m.Freeze(context.Background(), ""); !errors.Is(err, ErrEnvironmentMissing) {
		t.Errorf("Freeze() error = %v, want ErrEnvironmentMissing", err)
	}
}

func TestReadManifest_Missing(t *testing.T) {
	t.Parallel()

	m, err := ReadManifest(filepath.Join(t.TempDir(), ManifestFile))
	if err != nil {
		t.Fatalf("ReadManifest() error = %v", err)
	}
	if len(m.Dependencies) != 0 {
		t.Errorf("Dependencies = %v, want empty", m.Dependencies)
	}
}
