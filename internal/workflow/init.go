// SPDX-License-Identifier: MPL-2.0

package workflow

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/botvelocity/bv/internal/environment"
	"github.com/botvelocity/bv/internal/fsutil"
	"github.com/botvelocity/bv/internal/txn"
	"github.com/botvelocity/bv/pkg/archive"
	"github.com/botvelocity/bv/pkg/entrypoint"
	"github.com/botvelocity/bv/pkg/project"
)

//go:embed templates/main.go.tmpl
var mainTemplateText string

var mainTemplate = template.Must(template.New("main.go").Parse(mainTemplateText))

// ErrNoProjectName is returned when Init cannot derive a project name.
var ErrNoProjectName = errors.New("Project name could not be determined; pass --name explicitly") //nolint:staticcheck // user-facing sentence

type (
	// InitOptions configures Init.
	InitOptions struct {
		// Dir is the project root; the working directory when empty.
		Dir string
		// Name is the project name; the root's base name when empty.
		Name string
		// Interpreter is the base toolchain the environment is created from.
		Interpreter string
	}

	// InitResult lists what Init created.
	InitResult struct {
		Descriptor  string
		Environment string
		// Files are the scaffold files written, in creation order.
		Files []string
	}
)

// Init scaffolds a project: descriptor, template entry module, entrypoint
// and bindings manifests, dependency manifest and environment. It refuses to
// touch an already initialized project. When any step fails, everything
// created so far is removed again and the original error is returned.
// Scaffold files that already exist are left untouched and not recorded.
func (s *Service) Init(ctx context.Context, opts InitOptions) (*InitResult, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}
	descriptor := filepath.Join(root, project.DescriptorFile)
	if fsutil.Exists(descriptor) {
		return nil, &ConflictError{
			Path:    descriptor,
			Message: fmt.Sprintf("Project already initialized: config exists at %s. Remove it to re-initialize.", descriptor),
		}
	}

	name := strings.TrimSpace(opts.Name)
	if opts.Name == "" {
		name = filepath.Base(root)
		if name == string(filepath.Separator) || name == "." {
			name = ""
		}
	}
	if name == "" {
		return nil, ErrNoProjectName
	}

	cfg := project.NewDefault(name)
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	target, err := entrypoint.ParseCommand(cfg.Entrypoints[0].Command)
	if err != nil {
		return nil, err
	}

	return txn.RunValue(s.logger, func(scope *txn.Scope) (*InitResult, error) {
		res := &InitResult{Descriptor: descriptor}

		for _, d := range []string{root, underRoot(root, s.settings.OutputDir)} {
			if err := mkdirTracked(scope, d); err != nil {
				return nil, err
			}
		}

		descriptorData, err := project.Marshal(cfg)
		if err != nil {
			return nil, err
		}
		mainData, err := renderMainModule(name, target.Function)
		if err != nil {
			return nil, err
		}
		idx, err := archive.NewEntryPointsIndex(cfg)
		if err != nil {
			return nil, err
		}
		idxData, err := json.MarshalIndent(idx, "", "  ")
		if err != nil {
			return nil, err
		}
		manifestData, err := environment.MarshalManifest(&environment.Manifest{Dependencies: []string{}})
		if err != nil {
			return nil, err
		}

		files := []struct {
			name string
			data []byte
		}{
			{project.DescriptorFile, descriptorData},
			{target.File(), mainData},
			{archive.EntryPointsName, append(idxData, '\n')},
			{BindingsFile, []byte("{}\n")},
			{environment.ManifestFile, manifestData},
		}
		for _, f := range files {
			path := filepath.Join(root, filepath.FromSlash(f.name))
			written, err := writeTracked(scope, path, f.data)
			if err != nil {
				return nil, err
			}
			if written {
				res.Files = append(res.Files, path)
			}
			s.logger.Debug("scaffold file", "path", path, "written", written)
		}

		env := s.environment(root, cfg)
		if !fsutil.Exists(env.Dir) {
			scope.Defer("remove environment", func() error { return os.RemoveAll(env.Dir) })
		}
		if _, err := env.Ensure(ctx, true, s.interpreter(opts.Interpreter)); err != nil {
			return nil, err
		}
		res.Environment = env.Dir
		return res, nil
	})
}

func renderMainModule(projectName, function string) ([]byte, error) {
	var buf bytes.Buffer
	data := struct{ Project, Function string }{projectName, function}
	if err := mainTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", MainModuleFile, err)
	}
	return buf.Bytes(), nil
}

// mkdirTracked creates dir when missing and registers its removal. Removal
// uses os.Remove, so a directory that gained foreign content survives.
func mkdirTracked(scope *txn.Scope, dir string) error {
	if fsutil.IsDir(dir) {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	scope.Defer("remove "+dir, func() error { return os.Remove(dir) })
	return nil
}

// writeTracked writes a new file atomically and registers its removal. An
// existing file is kept and reported as not written.
func writeTracked(scope *txn.Scope, path string, data []byte) (bool, error) {
	if fsutil.Exists(path) {
		return false, nil
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	scope.Defer("remove "+path, func() error { return os.Remove(path) })
	return true, nil
}
