// SPDX-License-Identifier: MPL-2.0

package entrypoint

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/botvelocity/bv/internal/fsutil"
	"github.com/botvelocity/bv/pkg/project"
)

var (
	// ErrEntrypoint is the sentinel error wrapped by every EntrypointError.
	ErrEntrypoint = errors.New("entrypoint error")
	// ErrUnknownEntrypoint is returned when a named entrypoint does not exist.
	ErrUnknownEntrypoint = errors.New("entrypoint not found")
	// ErrDuplicateEntrypoint is returned when adding a name that already exists.
	ErrDuplicateEntrypoint = errors.New("entrypoint already exists")
	// ErrNoDefault is returned when no entrypoint is marked default.
	ErrNoDefault = errors.New("no default entrypoint")
)

type (
	// EntrypointError reports a registry operation that failed for one entrypoint.
	//
	//nolint:revive // EntrypointError reads better than Error at call sites
	EntrypointError struct {
		Name string
		Err  error
	}

	// InputChecker verifies a declared input contract against the callable it names.
	InputChecker interface {
		CheckInput(root string, ep project.EntryPoint) error
	}

	// Registry mutates the entrypoint list of one descriptor. Every mutation
	// validates the whole configuration against the descriptor's directory
	// and rewrites the descriptor atomically.
	Registry struct {
		path string
		cfg  *project.Config
	}
)

// Error implements the error interface.
func (e *EntrypointError) Error() string {
	if e.Name == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("entrypoint '%s': %v", e.Name, e.Err)
}

// Unwrap returns ErrEntrypoint and the specific cause.
func (e *EntrypointError) Unwrap() []error { return []error{ErrEntrypoint, e.Err} }

// Open loads the descriptor at path.
func Open(path string) (*Registry, error) {
	cfg, err := project.Load(path)
	if err != nil {
		return nil, err
	}
	return &Registry{path: path, cfg: cfg}, nil
}

// Config returns a copy of the current configuration.
func (r *Registry) Config() *project.Config { return r.cfg.Clone() }

// List returns entrypoint names in descriptor order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.cfg.Entrypoints))
	for _, ep := range r.cfg.Entrypoints {
		names = append(names, ep.Name)
	}
	return names
}

// Get returns the named entrypoint.
func (r *Registry) Get(name string) (project.EntryPoint, error) {
	ep, ok := r.cfg.Find(name)
	if !ok {
		return project.EntryPoint{}, &EntrypointError{Name: name, Err: ErrUnknownEntrypoint}
	}
	return ep, nil
}

// Default returns the entrypoint marked default.
func (r *Registry) Default() (project.EntryPoint, error) {
	ep, ok := r.cfg.Default()
	if !ok {
		return project.EntryPoint{}, &EntrypointError{Err: ErrNoDefault}
	}
	return ep, nil
}

// Resolve returns the named entrypoint, or the default one when name is "".
func (r *Registry) Resolve(name string) (project.EntryPoint, error) {
	if name == "" {
		return r.Default()
	}
	return r.Get(name)
}

// Add appends ep. With setDefault the new entry becomes the only default.
func (r *Registry) Add(ep project.EntryPoint, setDefault bool) error {
	if _, exists := r.cfg.Find(ep.Name); exists {
		return &EntrypointError{Name: ep.Name, Err: ErrDuplicateEntrypoint}
	}
	if _, err := ParseCommand(ep.Command); err != nil {
		return &EntrypointError{Name: ep.Name, Err: err}
	}

	next := r.cfg.Clone()
	if setDefault {
		for i := range next.Entrypoints {
			next.Entrypoints[i].Default = false
		}
	}
	ep.Default = setDefault || ep.Default
	next.Entrypoints = append(next.Entrypoints, ep)
	return r.commit(next)
}

// SetDefault makes name the only default entrypoint.
func (r *Registry) SetDefault(name string) error {
	if _, ok := r.cfg.Find(name); !ok {
		return &EntrypointError{Name: name, Err: ErrUnknownEntrypoint}
	}
	next := r.cfg.Clone()
	for i := range next.Entrypoints {
		next.Entrypoints[i].Default = next.Entrypoints[i].Name == name
	}
	return r.commit(next)
}

func (r *Registry) commit(next *project.Config) error {
	if err := next.Validate(filepath.Dir(r.path)); err != nil {
		return err
	}
	if err := project.Save(r.path, next); err != nil {
		return err
	}
	r.cfg = next
	return nil
}

// Validate checks the configuration against the project root: descriptor
// rules, command syntax, module file presence and, when checker is set, each
// declared input contract. Every problem is returned.
func (r *Registry) Validate(root string, checker InputChecker) []string {
	problems := r.cfg.Problems(root)

	for _, ep := range r.cfg.Entrypoints {
		if ep.Command == "" {
			continue
		}
		target, err := ParseCommand(ep.Command)
		if err != nil {
			problems = append(problems, fmt.Sprintf("entrypoint '%s': %v", ep.Name, err))
			continue
		}
		if root == "" {
			continue
		}
		file := filepath.Join(root, filepath.FromSlash(target.File()))
		if !fsutil.IsFile(file) {
			problems = append(problems, fmt.Sprintf("module for entrypoint '%s' does not exist: %s", ep.Name, file))
			continue
		}
		if checker != nil && ep.Input != project.InputUndeclared {
			if err := checker.CheckInput(root, ep); err != nil {
				problems = append(problems, fmt.Sprintf("entrypoint '%s': %v", ep.Name, err))
			}
		}
	}
	return problems
}
