// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/botvelocity/bv/internal/fsutil"
	"github.com/botvelocity/bv/pkg/platform"
)

const (
	// DescriptorFile is the conventional project descriptor name.
	DescriptorFile = "bvproject.yaml"
	// DefaultEnvironmentDir is the environment directory used when the descriptor omits one.
	DefaultEnvironmentDir = ".bvenv"

	// InputUndeclared leaves the input contract to runtime signature binding.
	InputUndeclared InputMode = ""
	// InputNone declares an entrypoint that takes no arguments.
	InputNone InputMode = "none"
	// InputObject declares an entrypoint that takes one structured argument.
	InputObject InputMode = "object"
)

// ErrInvalidConfig is the sentinel error wrapped by ConfigError.
var ErrInvalidConfig = errors.New("invalid project config")

type (
	// InputMode is the declared input contract of an entrypoint.
	InputMode string

	// EntryPoint is one named, invokable unit of a project.
	EntryPoint struct {
		// Name identifies the entrypoint within the project.
		Name string `yaml:"name"`
		// Command is "module-path:function-name".
		Command string `yaml:"command"`
		// Workdir is an optional project-relative directory packaged alongside the entrypoint.
		Workdir string `yaml:"workdir,omitempty"`
		// Default marks the entrypoint run when none is named.
		Default bool `yaml:"default,omitempty"`
		// Input is the declared input contract.
		Input InputMode `yaml:"input,omitempty"`
	}

	// OrchestratorConfig holds the optional declared control-plane location.
	OrchestratorConfig struct {
		URL string `yaml:"url,omitempty"`
	}

	// Config is the in-memory form of the project descriptor.
	Config struct {
		Name           string              `yaml:"name"`
		Version        string              `yaml:"version"`
		Entrypoints    []EntryPoint        `yaml:"entrypoints"`
		EnvironmentDir string              `yaml:"environment_dir"`
		Orchestrator   *OrchestratorConfig `yaml:"orchestrator,omitempty"`
	}

	// ConfigError carries every problem found while loading or validating a descriptor.
	// It wraps ErrInvalidConfig, and Err when the failure came from I/O or parsing.
	ConfigError struct {
		Path     string
		Problems []string
		Err      error
	}
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// Unwrap returns ErrInvalidConfig and the underlying cause, if any.
func (e *ConfigError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidConfig, e.Err}
	}
	return []error{ErrInvalidConfig}
}

// IsValid reports whether m is a recognized input contract.
func (m InputMode) IsValid() bool {
	switch m {
	case InputUndeclared, InputNone, InputObject:
		return true
	default:
		return false
	}
}

// NewDefault returns the configuration written by project initialization.
func NewDefault(name string) *Config {
	return &Config{
		Name:    name,
		Version: "0.0.0",
		Entrypoints: []EntryPoint{{
			Name:    "main",
			Command: "main:Main",
			Default: true,
			Input:   InputObject,
		}},
		EnvironmentDir: DefaultEnvironmentDir,
	}
}

// Default returns the entrypoint marked default.
func (c *Config) Default() (EntryPoint, bool) {
	for _, ep := range c.Entrypoints {
		if ep.Default {
			return ep, true
		}
	}
	return EntryPoint{}, false
}

// Find returns the entrypoint with the given name.
func (c *Config) Find(name string) (EntryPoint, bool) {
	for _, ep := range c.Entrypoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return EntryPoint{}, false
}

// OrchestratorURL returns the declared control-plane URL, or "".
func (c *Config) OrchestratorURL() string {
	if c.Orchestrator == nil {
		return ""
	}
	return c.Orchestrator.URL
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Entrypoints = append([]EntryPoint(nil), c.Entrypoints...)
	if c.Orchestrator != nil {
		o := *c.Orchestrator
		out.Orchestrator = &o
	}
	return &out
}

// Validate checks the configuration. Workdir existence is only checked when
// root is non-empty. All problems are reported together in one *ConfigError.
func (c *Config) Validate(root string) error {
	if problems := c.Problems(root); len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

// Problems returns every validation problem in c, in descriptor order.
func (c *Config) Problems(root string) []string {
	var problems []string

	switch {
	case strings.TrimSpace(c.Name) == "":
		problems = append(problems, "project.name is required")
	case !platform.IsPortableFileName(c.Name):
		// The name becomes the archive file name and a publish store directory.
		problems = append(problems, fmt.Sprintf("project.name '%s' cannot be used as a file name", c.Name))
	}
	switch {
	case c.Version == "":
		problems = append(problems, "project.version is required")
	case !IsValidSemVer(c.Version):
		problems = append(problems, "project.version must be SemVer (e.g., 1.2.3, 1.2.3-alpha.1)")
	}
	if strings.TrimSpace(c.EnvironmentDir) == "" {
		problems = append(problems, "project.environment_dir must not be empty")
	}

	if len(c.Entrypoints) == 0 {
		return append(problems, "project.entrypoints must include at least one entrypoint")
	}

	seen := make(map[string]int, len(c.Entrypoints))
	defaults := 0
	for i, ep := range c.Entrypoints {
		if ep.Name == "" {
			problems = append(problems, fmt.Sprintf("project.entrypoints[%d].name is required", i))
		} else if first, dup := seen[ep.Name]; dup {
			problems = append(problems, fmt.Sprintf("project.entrypoints[%d] duplicates entrypoint name '%s' (first at index %d)", i, ep.Name, first))
		} else {
			seen[ep.Name] = i
		}
		if ep.Command == "" {
			problems = append(problems, fmt.Sprintf("project.entrypoints[%d].command is required", i))
		}
		if !ep.Input.IsValid() {
			problems = append(problems, fmt.Sprintf("project.entrypoints[%d].input must be one of: none, object", i))
		}
		if ep.Workdir != "" {
			problems = append(problems, workdirProblems(root, ep)...)
		}
		if ep.Default {
			defaults++
		}
	}

	switch {
	case defaults == 0:
		problems = append(problems, "one entrypoint must be marked default")
	case defaults > 1:
		problems = append(problems, "only one entrypoint may be marked default")
	}

	return problems
}

func workdirProblems(root string, ep EntryPoint) []string {
	if filepath.IsAbs(ep.Workdir) {
		return []string{fmt.Sprintf("workdir for entrypoint '%s' must be relative to the project root: %s", ep.Name, ep.Workdir)}
	}
	if root == "" {
		return nil
	}
	p := filepath.Join(root, ep.Workdir)
	if !fsutil.IsDir(p) {
		return []string{fmt.Sprintf("workdir for entrypoint '%s' does not exist: %s", ep.Name, p)}
	}
	return nil
}
