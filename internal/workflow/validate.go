// SPDX-License-Identifier: MPL-2.0

package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/botvelocity/bv/internal/fsutil"
	"github.com/botvelocity/bv/internal/invoke"
	"github.com/botvelocity/bv/pkg/entrypoint"
	"github.com/botvelocity/bv/pkg/project"
)

type (
	// ValidateOptions configures Validate.
	ValidateOptions struct {
		// Descriptor is the descriptor path; bvproject.yaml in the working directory when empty.
		Descriptor string
		// ProjectRoot overrides the directory entry modules and workdirs resolve from.
		ProjectRoot string
	}

	// ValidationResult is the outcome of one validation.
	ValidationResult struct {
		OK       bool
		Errors   []string
		Warnings []string
		// Config is nil when the descriptor could not be loaded.
		Config *project.Config
		// Root is the project root the checks ran against.
		Root string
	}
)

// Validate inspects a project without changing it. A missing or unloadable
// descriptor is reported as a single error and nothing else is checked;
// otherwise every entrypoint problem is collected into one error entry.
func (s *Service) Validate(_ context.Context, opts ValidateOptions) *ValidationResult {
	descriptor, root, err := resolveDescriptor(opts.Descriptor)
	if err != nil {
		return &ValidationResult{Errors: []string{err.Error()}}
	}
	if opts.ProjectRoot != "" {
		if root, err = filepath.Abs(opts.ProjectRoot); err != nil {
			return &ValidationResult{Errors: []string{err.Error()}}
		}
	}
	res := &ValidationResult{Root: root}

	if !fsutil.Exists(descriptor) {
		res.Errors = append(res.Errors, fmt.Sprintf("Config not found at %s", descriptor))
		return res
	}
	reg, err := entrypoint.Open(descriptor)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Invalid config: %v", err))
		return res
	}
	cfg := reg.Config()
	res.Config = cfg

	env := s.environment(root, cfg)
	if problems := reg.Validate(root, invoke.InputChecker{}); len(problems) > 0 {
		res.Errors = append(res.Errors, "Entrypoints invalid: "+strings.Join(problems, "; "))
	}

	if !fsutil.IsFile(filepath.Join(root, BindingsFile)) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s not found in %s; the package will carry no bindings", BindingsFile, root))
	}
	if !env.Exists() {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Environment not found at %s; run 'bv env create' before building", env.Dir))
	}

	res.OK = len(res.Errors) == 0
	s.logger.Debug("validated project", "descriptor", descriptor, "errors", len(res.Errors), "warnings", len(res.Warnings))
	return res
}

// mustValidate runs Validate and converts a failed result into a
// *ValidationFailedError.
func (s *Service) mustValidate(ctx context.Context, descriptor string) (*ValidationResult, error) {
	res := s.Validate(ctx, ValidateOptions{Descriptor: descriptor})
	if !res.OK || res.Config == nil {
		return nil, &ValidationFailedError{Problems: res.Errors}
	}
	return res, nil
}
