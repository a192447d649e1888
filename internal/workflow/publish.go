// SPDX-License-Identifier: MPL-2.0

package workflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/botvelocity/bv/internal/fsutil"
	"github.com/botvelocity/bv/internal/txn"
	"github.com/botvelocity/bv/pkg/archive"
	"github.com/botvelocity/bv/pkg/project"
)

// ErrNotPackage is returned when publish is given something other than a package archive.
var ErrNotPackage = errors.New("Publish requires a " + archive.Extension + " artifact") //nolint:staticcheck // user-facing sentence

// PublishOptions configures Publish.
type PublishOptions struct {
	Descriptor string
	// Package is an existing archive. When empty or absent a fresh one is
	// built (at Package, if given).
	Package string
	// PublishDir is the store root; the publish_dir setting when empty.
	PublishDir string
	// Include are extra sources for a triggered build.
	Include []string
	// Bump selects the version part incremented; patch when empty.
	Bump project.BumpPart
	// Move moves the archive instead of copying it.
	Move bool
	// Overwrite permits replacing an already published artifact.
	Overwrite bool
	// DryRun returns the destination without changing anything.
	DryRun bool
}

// Publish bumps the project version, builds if needed, verifies the archive
// and places it at <publish_dir>/<name>/<version>/. The bumped version is
// persisted and reloaded before building. If a later step fails, the
// descriptor is restored and a triggered build's archive is removed, or its
// previous content put back when the build replaced an existing file.
func (s *Service) Publish(ctx context.Context, opts PublishOptions) (string, error) {
	res, err := s.mustValidate(ctx, opts.Descriptor)
	if err != nil {
		return "", err
	}
	descriptor, _, err := resolveDescriptor(opts.Descriptor)
	if err != nil {
		return "", err
	}
	root, cfg := res.Root, res.Config

	part := opts.Bump
	if part == "" {
		part = project.BumpPatch
	}
	next, err := project.BumpSemVer(cfg.Version, part)
	if err != nil {
		return "", err
	}

	publishDir := opts.PublishDir
	if publishDir == "" {
		publishDir = underRoot(root, s.settings.PublishDir)
	}

	if opts.DryRun {
		base := cfg.Name + "-" + next + archive.Extension
		if opts.Package != "" {
			base = strings.TrimSuffix(filepath.Base(opts.Package), filepath.Ext(opts.Package)) + archive.Extension
		}
		return filepath.Abs(filepath.Join(publishDir, cfg.Name, next, base))
	}

	return txn.RunValue(s.logger, func(scope *txn.Scope) (string, error) {
		if err := preserveTracked(scope, descriptor); err != nil {
			return "", err
		}
		bumped := cfg.Clone()
		bumped.Version = next
		if err := project.Save(descriptor, bumped); err != nil {
			return "", err
		}
		s.logger.Debug("version bumped", "from", cfg.Version, "to", next, "part", part)

		// The build must see exactly what was persisted.
		cfg, err := project.Load(descriptor)
		if err != nil {
			return "", err
		}

		pkg := opts.Package
		if pkg == "" || !fsutil.Exists(pkg) {
			target, err := filepath.Abs(s.buildTarget(root, cfg, pkg))
			if err != nil {
				return "", err
			}
			if err := preserveTracked(scope, target); err != nil {
				return "", err
			}
			built, err := s.build(ctx, descriptor, root, cfg, BuildOptions{Output: target, Include: opts.Include})
			if err != nil {
				return "", err
			}
			pkg = built.Path
		}
		if !fsutil.IsFile(pkg) {
			return "", fmt.Errorf("Package not found at %s", pkg) //nolint:staticcheck // user-facing sentence
		}
		if !strings.HasSuffix(pkg, archive.Extension) {
			return "", ErrNotPackage
		}
		if err := archive.Verify(pkg, cfg.Name, cfg.Version); err != nil {
			return "", err
		}

		destDir := filepath.Join(publishDir, cfg.Name, cfg.Version)
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return "", fmt.Errorf("creating %s: %w", destDir, err)
		}
		dest, err := filepath.Abs(filepath.Join(destDir, filepath.Base(pkg)))
		if err != nil {
			return "", err
		}
		if fsutil.Exists(dest) && !opts.Overwrite {
			return "", &ConflictError{
				Path:    dest,
				Message: fmt.Sprintf("Published artifact already exists: %s. Use --overwrite to replace.", dest),
			}
		}

		if opts.Move {
			err = fsutil.MoveFile(pkg, dest)
		} else {
			err = fsutil.CopyFileAtomic(pkg, dest)
		}
		if err != nil {
			return "", err
		}
		s.logger.Debug("published", "dest", dest, "move", opts.Move)
		return dest, nil
	})
}

// preserveTracked registers the restoration of path's current content, or
// its removal when path does not exist yet.
func preserveTracked(scope *txn.Scope, path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		scope.Defer("remove "+path, func() error {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			return nil
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	mode := info.Mode().Perm()
	scope.Defer("restore "+path, func() error { return fsutil.WriteFileAtomic(path, data, mode) })
	return nil
}
