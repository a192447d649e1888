// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeDescriptor(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, DescriptorFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write descriptor: %v", err)
	}
	return path
}

func problemsOf(t *testing.T, err error) []string {
	t.Helper()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v (%T), want *ConfigError", err, err)
	}
	return cfgErr.Problems
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := writeDescriptor(t, t.TempDir(), `
name: demo
version: 0.1.0
entrypoints:
  - name: main
    command: main:Main
    default: true
  - name: report
    command: reports.daily:Run
    workdir: data
    input: none
orchestrator:
  url: https://orchestrator.example.com
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Name != "demo" || cfg.Version != "0.1.0" {
		t.Errorf("name/version = %q/%q", cfg.Name, cfg.Version)
	}
	if cfg.EnvironmentDir != DefaultEnvironmentDir {
		t.Errorf("EnvironmentDir = %q, want %q", cfg.EnvironmentDir, DefaultEnvironmentDir)
	}
	if len(cfg.Entrypoints) != 2 {
		t.Fatalf("len(Entrypoints) = %d, want 2", len(cfg.Entrypoints))
	}
	if cfg.Entrypoints[1].Workdir != "data" || cfg.Entrypoints[1].Input != InputNone {
		t.Errorf("second entrypoint = %+v", cfg.Entrypoints[1])
	}
	if got := cfg.OrchestratorURL(); got != "https://orchestrator.example.com" {
		t.Errorf("OrchestratorURL() = %q", got)
	}
	def, ok := cfg.Default()
	if !ok || def.Name != "main" {
		t.Errorf("Default() = %+v, %v", def, ok)
	}
}

func TestLoad_LegacyEnvironmentKey(t *testing.T) {
	t.Parallel()

	path := writeDescriptor(t, t.TempDir(), `
name: demo
version: 1.0.0
venv_dir: .env-legacy
entrypoints:
  - {name: main, command: "main:Main", default: true}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.EnvironmentDir != ".env-legacy" {
		t.Errorf("EnvironmentDir = %q, want %q", cfg.EnvironmentDir, ".env-legacy")
	}
}

func TestLoad_NotFound(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), DescriptorFile))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v, want fs.ErrNotExist in chain", err)
	}
	if !strings.Contains(err.Error(), "Config not found at") {
		t.Errorf("error message = %q", err.Error())
	}
}

func TestLoad_StructuralErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"root not mapping", "- a\n- b\n", "Configuration root must be a mapping"},
		{"missing name", "version: 1.0.0\nentrypoints: []\n", "Missing required field 'name'"},
		{"missing version", "name: x\nentrypoints: []\n", "Missing required field 'version'"},
		{"entrypoints not list", "name: x\nversion: 1.0.0\nentrypoints: nope\n", "entrypoints must be a list"},
		{"entry not mapping", "name: x\nversion: 1.0.0\nentrypoints: [oops]\n", "project.entrypoints[0] must be a mapping"},
		{"environment dir not string", "name: x\nversion: 1.0.0\nenvironment_dir: [a]\nentrypoints: []\n", "environment_dir must be a string"},
		{"invalid yaml", "name: [unclosed\n", "invalid YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeDescriptor(t, t.TempDir(), tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.want)
			}
		})
	}
}

func TestValidate_DefaultCount(t *testing.T) {
	t.Parallel()

	none := NewDefault("demo")
	none.Entrypoints[0].Default = false
	if got := problemsOf(t, none.Validate("")); !slices.Contains(got, "one entrypoint must be marked default") {
		t.Errorf("zero defaults problems = %v", got)
	}

	two := NewDefault("demo")
	two.Entrypoints = append(two.Entrypoints, EntryPoint{Name: "other", Command: "other:Run", Default: true})
	if got := problemsOf(t, two.Validate("")); !slices.Contains(got, "only one entrypoint may be marked default") {
		t.Errorf("two defaults problems = %v", got)
	}
}

func TestValidate_AggregatesProblems(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Name:           "",
		Version:        "1.2",
		EnvironmentDir: DefaultEnvironmentDir,
		Entrypoints: []EntryPoint{
			{Name: "a", Command: "", Input: "stream"},
			{Name: "a", Command: "a:b"},
		},
	}

	got := problemsOf(t, cfg.Validate(""))
	want := []string{
		"project.name is required",
		"project.version must be SemVer (e.g., 1.2.3, 1.2.3-alpha.1)",
		"project.entrypoints[0].command is required",
		"project.entrypoints[0].input must be one of: none, object",
		"project.entrypoints[1] duplicates entrypoint name 'a' (first at index 0)",
		"one entrypoint must be marked default",
	}
	if !slices.Equal(got, want) {
		t.Errorf("problems =\n%q\nwant\n%q", got, want)
	}
}

func TestValidate_NameUsableAsFileName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"team/bot", "nul", "bot."} {
		cfg := NewDefault(name)
		want := "project.name '" + name + "' cannot be used as a file name"
		if got := problemsOf(t, cfg.Validate("")); !slices.Equal(got, []string{want}) {
			t.Errorf("Validate(%q) problems = %q, want %q", name, got, want)
		}
	}
}

func TestValidate_EmptyEntrypoints(t *testing.T) {
	t.Parallel()

	cfg := NewDefault("demo")
	cfg.Entrypoints = nil
	got := problemsOf(t, cfg.Validate(""))
	if !slices.Contains(got, "project.entrypoints must include at least one entrypoint") {
		t.Errorf("problems = %v", got)
	}
}

func TestValidate_Workdir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := NewDefault("demo")
	cfg.Entrypoints[0].Workdir = "data"

	if err := cfg.Validate(""); err != nil {
		t.Errorf("Validate(\"\") should skip workdir existence, got %v", err)
	}

	err := cfg.Validate(root)
	if err == nil || !strings.Contains(err.Error(), "workdir for entrypoint 'main' does not exist") {
		t.Errorf("Validate(root) error = %v", err)
	}

	if err := os.Mkdir(filepath.Join(root, "data"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(root); err != nil {
		t.Errorf("Validate(root) after mkdir error = %v", err)
	}
}

func TestSaveLoadPreservesOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, DescriptorFile)

	cfg := NewDefault("demo")
	cfg.Entrypoints = append(cfg.Entrypoints,
		EntryPoint{Name: "zeta", Command: "z:Run"},
		EntryPoint{Name: "alpha", Command: "a:Run", Workdir: "assets"},
	)
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "name: demo\nversion: 0.0.0\n") {
		t.Errorf("descriptor does not start with name/version:\n%s", data)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	var names []string
	for _, ep := range got.Entrypoints {
		names = append(names, ep.Name)
	}
	if !slices.Equal(names, []string{"main", "zeta", "alpha"}) {
		t.Errorf("entrypoint order = %v", names)
	}
}

func TestClone(t *testing.T) {
	t.Parallel()

	cfg := NewDefault("demo")
	cfg.Orchestrator = &OrchestratorConfig{URL: "http://a"}
	c := cfg.Clone()
	c.Entrypoints[0].Name = "changed"
	c.Orchestrator.URL = "http://b"

	if cfg.Entrypoints[0].Name != "main" || cfg.Orchestrator.URL != "http://a" {
		t.Error("Clone() shares state with original")
	}
}
