// SPDX-License-Identifier: MPL-2.0

package workflow

import (
	"github.com/botvelocity/bv/pkg/entrypoint"
	"github.com/botvelocity/bv/pkg/project"
)

// AddEntrypoint appends ep to the descriptor, optionally making it the default.
func (s *Service) AddEntrypoint(descriptor string, ep project.EntryPoint, setDefault bool) error {
	reg, err := s.registry(descriptor)
	if err != nil {
		return err
	}
	if err := reg.Add(ep, setDefault); err != nil {
		return err
	}
	s.logger.Debug("entrypoint added", "name", ep.Name, "command", ep.Command, "default", setDefault)
	return nil
}

// ListEntrypoints returns entrypoint names in descriptor order.
func (s *Service) ListEntrypoints(descriptor string) ([]string, error) {
	reg, err := s.registry(descriptor)
	if err != nil {
		return nil, err
	}
	return reg.List(), nil
}

// SetDefaultEntrypoint marks name as the only default entrypoint.
func (s *Service) SetDefaultEntrypoint(descriptor, name string) error {
	reg, err := s.registry(descriptor)
	if err != nil {
		return err
	}
	return reg.SetDefault(name)
}

func (s *Service) registry(descriptor string) (*entrypoint.Registry, error) {
	path, _, err := resolveDescriptor(descriptor)
	if err != nil {
		return nil, err
	}
	return entrypoint.Open(path)
}
