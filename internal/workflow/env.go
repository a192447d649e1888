// SPDX-License-Identifier: MPL-2.0

package workflow

import (
	"context"
	"io"
	"path/filepath"

	"github.com/botvelocity/bv/internal/environment"
	"github.com/botvelocity/bv/pkg/project"
)

// projectEnvironment loads the descriptor and returns its environment manager
// with the project root.
func (s *Service) projectEnvironment(descriptor string) (*environment.Manager, string, error) {
	path, root, err := resolveDescriptor(descriptor)
	if err != nil {
		return nil, "", err
	}
	cfg, err := project.Load(path)
	if err != nil {
		return nil, "", err
	}
	return s.environment(root, cfg), root, nil
}

// CreateEnvironment creates the project's environment if it is missing and
// returns its path.
func (s *Service) CreateEnvironment(ctx context.Context, descriptor, interpreter string) (string, error) {
	env, _, err := s.projectEnvironment(descriptor)
	if err != nil {
		return "", err
	}
	return env.Ensure(ctx, true, s.interpreter(interpreter))
}

// InstallPackages installs specs into the existing environment, or the
// project's environment.toml dependencies when specs is empty.
func (s *Service) InstallPackages(ctx context.Context, descriptor string, specs []string, progress io.Writer) ([]environment.Package, error) {
	env, root, err := s.projectEnvironment(descriptor)
	if err != nil {
		return nil, err
	}
	return env.Install(ctx, environment.InstallOptions{
		Packages:     specs,
		ManifestPath: filepath.Join(root, environment.ManifestFile),
		Progress:     progress,
	})
}

// FreezeEnvironment returns the environment lock listing, also writing it to
// output when set.
func (s *Service) FreezeEnvironment(ctx context.Context, descriptor, output string) ([]byte, error) {
	env, _, err := s.projectEnvironment(descriptor)
	if err != nil {
		return nil, err
	}
	return env.Freeze(ctx, output)
}
