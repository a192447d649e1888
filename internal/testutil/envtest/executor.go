// SPDX-License-Identifier: MPL-2.0

// Package envtest fakes the go toolchain for tests of environment-managing code.
package envtest

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/botvelocity/bv/internal/environment"
)

type (
	// Executor answers the driver subcommands the environment manager issues.
	Executor struct {
		// GoRoot is a temporary GOROOT holding a placeholder driver.
		GoRoot string
		// FailOn makes any command whose joined args contain it fail.
		FailOn string

		mu      sync.Mutex
		modules map[string]module
		calls   []environment.Command
	}

	module struct {
		Path    string `json:",omitempty"`
		Version string `json:",omitempty"`
		Dir     string `json:",omitempty"`
		Sum     string `json:",omitempty"`
		Error   string `json:",omitempty"`
	}
)

var _ environment.Executor = (*Executor)(nil)

// New returns an executor with a fresh fake GOROOT.
func New(t testing.TB) *Executor {
	t.Helper()
	goroot := t.TempDir()
	bin := filepath.Join(goroot, "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bin, environment.DriverName()), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return &Executor{GoRoot: goroot, modules: map[string]module{}}
}

// AddModule makes "mod download" of spec, and of path@version, resolve to
// a module with one source file. A spec without a version is requested as
// "@latest".
func (e *Executor) AddModule(t testing.TB, spec, path, version string) {
	t.Helper()
	dir := t.TempDir()
	name := filepath.Base(path)
	src := "package " + name + "\n\nfunc Hello() string { return \"hello from " + name + "\" }\n"
	if err := os.WriteFile(filepath.Join(dir, name+".go"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	m := module{Path: path, Version: version, Dir: dir, Sum: "h1:" + version}
	if !strings.Contains(spec, "@") {
		spec += "@latest"
	}
	e.modules[spec] = m
	e.modules[path+"@"+version] = m
}

// Calls returns the commands run so far.
func (e *Executor) Calls() []environment.Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]environment.Command(nil), e.calls...)
}

// Run implements environment.Executor.
func (e *Executor) Run(_ context.Context, c environment.Command) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, c)

	joined := strings.Join(c.Args, " ")
	if e.FailOn != "" && strings.Contains(joined, e.FailOn) {
		return nil, &environment.CommandError{Name: c.Name, Args: c.Args, Err: errors.New("exit status 1")}
	}

	switch {
	case strings.HasPrefix(joined, "env -json"):
		return json.Marshal(map[string]string{"GOROOT": e.GoRoot, "GOVERSION": "go1.25.0"})
	case strings.HasPrefix(joined, "env -w"):
		return nil, nil
	case strings.HasPrefix(joined, "mod download -json"):
		spec := c.Args[len(c.Args)-1]
		m, ok := e.modules[spec]
		if !ok {
			out, _ := json.Marshal(module{Error: "module " + spec + ": not found"})
			return out, &environment.CommandError{Name: c.Name, Args: c.Args, Err: errors.New("exit status 1")}
		}
		return json.Marshal(m)
	}
	return nil, errors.New("unexpected command: " + joined)
}
