// SPDX-License-Identifier: MPL-2.0

package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/botvelocity/bv/internal/invoke"
	"github.com/botvelocity/bv/internal/orchestrator"
	"github.com/botvelocity/bv/internal/testutil"
	"github.com/botvelocity/bv/pkg/entrypoint"
	"github.com/botvelocity/bv/pkg/project"
	"github.com/botvelocity/bv/sdk"
)

const runModule = `package main

import (
	"os"

	"github.com/botvelocity/bv/sdk"
)

func Main(input map[string]any) (map[string]any, error) {
	name, _ := input["name"].(string)
	if name == "" {
		name = "World"
	}
	return map[string]any{"result": "Hello " + name, "managed": sdk.Managed()}, nil
}

func Pair(a, b map[string]any) string { return "pair" }

func Quiet() string { return "quiet" }

func Markers() map[string]any {
	return map[string]any{
		"marker": os.Getenv("BV_SDK_RUN"),
		"url":    sdk.OrchestratorURL(),
	}
}
`

// runProject writes a project with several entrypoints without creating an environment.
func runProject(t *testing.T, orchestratorURL string) string {
	t.Helper()
	root := t.TempDir()
	descriptor := filepath.Join(root, project.DescriptorFile)
	cfg := project.NewDefault(projectName)
	cfg.Entrypoints = append(cfg.Entrypoints,
		project.EntryPoint{Name: "pair", Command: "main:Pair"},
		project.EntryPoint{Name: "quiet", Command: "main:Quiet", Input: project.InputNone},
		project.EntryPoint{Name: "markers", Command: "main:Markers"},
	)
	if orchestratorURL != "" {
		cfg.Orchestrator = &project.OrchestratorConfig{URL: orchestratorURL}
	}
	if err := project.Save(descriptor, cfg); err != nil {
		t.Fatal(err)
	}
	testutil.MustWriteFile(t, filepath.Join(root, "main.go"), runModule)
	return descriptor
}

func TestRun_DefaultEntrypoint(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	descriptor := runProject(t, "")
	input := filepath.Join(t.TempDir(), "input.json")
	testutil.MustWriteFile(t, input, `{"name": "Ada"}`)

	got, err := svc.Run(context.Background(), RunOptions{Descriptor: descriptor, InputPath: input})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := map[string]any{"result": "Hello Ada", "managed": true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Run() = %v, want %v", got, want)
	}

	got, err = svc.Run(context.Background(), RunOptions{Descriptor: descriptor})
	if err != nil {
		t.Fatalf("Run() without input error = %v", err)
	}
	if m, _ := got.(map[string]any); m["result"] != "Hello World" {
		t.Errorf("Run() without input = %v", got)
	}
}

func TestRun_ScaffoldedProject(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	descriptor := initProject(t, svc)

	got, err := svc.Run(context.Background(), RunOptions{Descriptor: descriptor})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if m, _ := got.(map[string]any); m["result"] != "Hello World" || m["managed"] != true {
		t.Errorf("Run() = %v", got)
	}
}

func TestRun_BindingFailures(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	descriptor := runProject(t, "")
	input := filepath.Join(t.TempDir(), "input.json")
	testutil.MustWriteFile(t, input, `{"k": 1}`)

	tests := []struct {
		entry string
		input string
		kind  invoke.Kind
	}{
		{"pair", input, invoke.KindAmbiguousSignature},
		{"pair", "", invoke.KindArityMismatch},
		{"quiet", input, invoke.KindNoInputAccepted},
	}
	for _, tt := range tests {
		_, err := svc.Run(context.Background(), RunOptions{Descriptor: descriptor, Entry: tt.entry, InputPath: tt.input})
		if !invoke.IsKind(err, tt.kind) {
			t.Errorf("Run(%s, input=%v) error = %v, want %s", tt.entry, tt.input != "", err, tt.kind)
		}
	}

	got, err := svc.Run(context.Background(), RunOptions{Descriptor: descriptor, Entry: "quiet"})
	if err != nil || got != "quiet" {
		t.Errorf("Run(quiet) = %v, %v", got, err)
	}
}

func TestRun_EmptyInputBindsAsNoInput(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	descriptor := runProject(t, "")
	dir := t.TempDir()

	for _, content := range []string{`{}`, `null`, "\ufeff{ /* nothing */ }"} {
		input := filepath.Join(dir, "input.json")
		testutil.MustWriteFile(t, input, content)

		got, err := svc.Run(context.Background(), RunOptions{Descriptor: descriptor, Entry: "quiet", InputPath: input})
		if err != nil || got != "quiet" {
			t.Errorf("Run(quiet, %s) = %v, %v", content, got, err)
		}
		got, err = svc.Run(context.Background(), RunOptions{Descriptor: descriptor, Entry: "markers", InputPath: input})
		if err != nil {
			t.Errorf("Run(markers, %s) error = %v", content, err)
		} else if m, _ := got.(map[string]any); m["marker"] != "1" {
			t.Errorf("Run(markers, %s) = %v", content, got)
		}
		if _, err := svc.Run(context.Background(), RunOptions{Descriptor: descriptor, Entry: "pair", InputPath: input}); !invoke.IsKind(err, invoke.KindArityMismatch) {
			t.Errorf("Run(pair, %s) error = %v, want %s", content, err, invoke.KindArityMismatch)
		}
	}
}

func TestRun_ProjectPackages(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	root := t.TempDir()
	descriptor := filepath.Join(root, project.DescriptorFile)
	cfg := project.NewDefault(projectName)
	cfg.Entrypoints[0].Command = "jobs.nightly:Run"
	if err := project.Save(descriptor, cfg); err != nil {
		t.Fatal(err)
	}
	testutil.MustWriteFile(t, filepath.Join(root, "jobs", "nightly.go"), `package jobs

import "report"

func Run(input map[string]any) string { return report.Title(label(input)) }
`)
	testutil.MustWriteFile(t, filepath.Join(root, "jobs", "label.go"), `package jobs

func label(input map[string]any) string {
	if s, ok := input["label"].(string); ok {
		return s
	}
	return "nightly"
}
`)
	testutil.MustWriteFile(t, filepath.Join(root, "report", "report.go"), `package report

func Title(s string) string { return "report: " + s }
`)

	if res := svc.Validate(context.Background(), ValidateOptions{Descriptor: descriptor}); !res.OK {
		t.Fatalf("Validate() errors = %v", res.Errors)
	}
	got, err := svc.Run(context.Background(), RunOptions{Descriptor: descriptor})
	if err != nil || got != "report: nightly" {
		t.Errorf("Run() = %v, %v", got, err)
	}
}

func TestRun_Resolution(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	descriptor := runProject(t, "")

	if _, err := svc.Run(context.Background(), RunOptions{Descriptor: descriptor, Entry: "missing"}); !errors.Is(err, entrypoint.ErrUnknownEntrypoint) {
		t.Errorf("Run(missing) error = %v, want ErrUnknownEntrypoint", err)
	}

	noConfig := filepath.Join(t.TempDir(), project.DescriptorFile)
	_, err := svc.Run(context.Background(), RunOptions{Descriptor: noConfig})
	if !errors.Is(err, os.ErrNotExist) || !strings.Contains(err.Error(), "Config not found at") {
		t.Errorf("Run(no config) error = %v", err)
	}

	root := filepath.Dir(descriptor)
	if err := os.Remove(filepath.Join(root, "main.go")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Run(context.Background(), RunOptions{Descriptor: descriptor}); !invoke.IsKind(err, invoke.KindModuleNotFound) {
		t.Errorf("Run(no module) error = %v, want %s", err, invoke.KindModuleNotFound)
	}
}

// Run must not leave any trace in the process environment, whether the call
// succeeds or fails.
func TestRun_ProcessEnvironmentUnchanged(t *testing.T) {
	t.Setenv(sdk.EnvManaged, "outer")
	t.Setenv(sdk.EnvOrchestratorURL, "https://outer.example.com")

	var requested []string
	svc := New(Options{
		Exec: nil,
		NewRequester: func(url string) (orchestrator.Requester, error) {
			requested = append(requested, url)
			return nil, errors.New("offline")
		},
	})
	descriptor := runProject(t, "orchestrator.example.com/")
	before := os.Environ()
	slices.Sort(before)

	got, err := svc.Run(context.Background(), RunOptions{Descriptor: descriptor, Entry: "markers"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := map[string]any{"marker": "1", "url": "https://orchestrator.example.com"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Run() = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(requested, []string{"https://orchestrator.example.com"}) {
		t.Errorf("requester built for %v", requested)
	}

	_, _ = svc.Run(context.Background(), RunOptions{Descriptor: descriptor, Entry: "pair"})

	after := os.Environ()
	slices.Sort(after)
	if !reflect.DeepEqual(before, after) {
		t.Error("process environment changed across Run")
	}
	if os.Getenv(sdk.EnvManaged) != "outer" || os.Getenv(sdk.EnvOrchestratorURL) != "https://outer.example.com" {
		t.Error("run markers leaked into the process environment")
	}
}

func TestRun_UnusableOrchestratorURL(t *testing.T) {
	t.Parallel()

	called := false
	svc := New(Options{NewRequester: func(string) (orchestrator.Requester, error) {
		called = true
		return nil, nil
	}})
	descriptor := runProject(t, "ftp://files.example.com")

	got, err := svc.Run(context.Background(), RunOptions{Descriptor: descriptor, Entry: "markers"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if m, _ := got.(map[string]any); m["url"] != "" {
		t.Errorf("url = %v, want empty", m["url"])
	}
	if called {
		t.Error("requester built for an unusable URL")
	}
}

func TestLoadInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		testutil.MustWriteFile(t, path, content)
		return path
	}

	tests := []struct {
		name    string
		path    string
		want    map[string]any
		wantErr string
	}{
		{"object", write("obj.json", `{"a": 1}`), map[string]any{"a": float64(1)}, ""},
		{"byte order mark", write("bom.json", "\ufeff{\"a\": \"b\"}"), map[string]any{"a": "b"}, ""},
		{"comments", write("jsonc.json", "{\n  // who to greet\n  \"name\": \"Ada\", /* trailing */\n}"), map[string]any{"name": "Ada"}, ""},
		{"null", write("null.json", "null"), map[string]any{}, ""},
		{"array", write("array.json", "[1, 2]"), nil, "Input JSON must be an object (mapping)"},
		{"scalar", write("scalar.json", `"text"`), nil, "Input JSON must be an object (mapping)"},
		{"malformed", write("bad.json", `{"a": }`), nil, "Invalid JSON in '" + filepath.Join(dir, "bad.json") + "'"},
		{"missing", filepath.Join(dir, "nope.json"), nil, "Unable to read input JSON file '" + filepath.Join(dir, "nope.json") + "'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := LoadInput(tt.path)
			if tt.wantErr != "" {
				if !errors.Is(err, ErrInvalidInput) || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("LoadInput() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadInput() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("LoadInput() = %v, want %v", got, tt.want)
			}
		})
	}
}
