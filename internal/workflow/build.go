// SPDX-License-Identifier: MPL-2.0

package workflow

import (
	"context"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/botvelocity/bv/internal/environment"
	"github.com/botvelocity/bv/internal/fsutil"
	"github.com/botvelocity/bv/pkg/archive"
	"github.com/botvelocity/bv/pkg/entrypoint"
	"github.com/botvelocity/bv/pkg/project"
)

// gitDir is never packaged.
const gitDir = ".git"

// scaffoldFiles are packaged whenever they exist in the project root.
var scaffoldFiles = []string{
	MainModuleFile,
	archive.EntryPointsName,
	BindingsFile,
	environment.ManifestFile,
}

// BuildOptions configures Build.
type BuildOptions struct {
	Descriptor string
	// Output is the archive path; <output_dir>/<name>-<version> when empty.
	Output string
	// Include are extra project-relative files or directories.
	Include []string
	DryRun  bool
}

// Build validates the project and packages it. The environment must already
// exist; Build never creates one.
func (s *Service) Build(ctx context.Context, opts BuildOptions) (*archive.Result, error) {
	res, err := s.mustValidate(ctx, opts.Descriptor)
	if err != nil {
		return nil, err
	}
	descriptor, _, err := resolveDescriptor(opts.Descriptor)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, descriptor, res.Root, res.Config, opts)
}

func (s *Service) build(ctx context.Context, descriptor, root string, cfg *project.Config, opts BuildOptions) (*archive.Result, error) {
	env := s.environment(root, cfg)
	if _, err := env.Ensure(ctx, false, ""); err != nil {
		return nil, err
	}

	target := s.buildTarget(root, cfg, opts.Output)
	sources := SourceSet(root, descriptor, cfg, opts.Include)
	s.logger.Debug("building package", "target", target, "sources", len(sources), "dry_run", opts.DryRun)

	return s.builder.Build(ctx, archive.Request{
		Root:    root,
		Config:  cfg,
		Target:  target,
		Sources: sources,
		Exclude: s.excluded(root, cfg),
		Locker:  env,
		DryRun:  opts.DryRun,
	})
}

// buildTarget is the archive path a build with the given output writes.
func (s *Service) buildTarget(root string, cfg *project.Config, output string) string {
	if output == "" {
		output = filepath.Join(underRoot(root, s.settings.OutputDir), cfg.Name+"-"+cfg.Version)
	}
	return archive.TargetPath(output)
}

// excluded lists the project-relative directories never walked into.
func (s *Service) excluded(root string, cfg *project.Config) []string {
	out := []string{filepath.ToSlash(filepath.Clean(cfg.EnvironmentDir)), gitDir}
	for _, dir := range []string{s.settings.OutputDir, s.settings.PublishDir} {
		if rel, ok := relativeTo(root, underRoot(root, dir)); ok {
			out = append(out, rel)
		}
	}
	return out
}

// SourceSet computes the project-relative paths packaged for cfg: existing
// scaffold files, the descriptor, each entrypoint's module file and workdir,
// and includes. The result is deduplicated and sorted, so it does not depend
// on the order includes are given in.
func SourceSet(root, descriptor string, cfg *project.Config, includes []string) []string {
	set := make(map[string]struct{})
	add := func(p string) {
		if p == "" {
			return
		}
		if filepath.IsAbs(p) {
			rel, ok := relativeTo(root, p)
			if !ok {
				set[filepath.ToSlash(filepath.Clean(p))] = struct{}{}
				return
			}
			p = rel
		}
		set[filepath.ToSlash(filepath.Clean(filepath.FromSlash(p)))] = struct{}{}
	}

	for _, f := range scaffoldFiles {
		if fsutil.IsFile(filepath.Join(root, f)) {
			add(f)
		}
	}
	add(descriptor)
	for _, ep := range cfg.Entrypoints {
		if target, err := entrypoint.ParseCommand(ep.Command); err == nil {
			add(target.File())
		}
		add(ep.Workdir)
	}
	for _, inc := range includes {
		add(inc)
	}
	return slices.Sorted(maps.Keys(set))
}

// relativeTo returns path relative to root when it lies inside root.
func relativeTo(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
