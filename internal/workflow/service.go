// SPDX-License-Identifier: MPL-2.0

package workflow

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/botvelocity/bv/internal/config"
	"github.com/botvelocity/bv/internal/environment"
	"github.com/botvelocity/bv/internal/invoke"
	"github.com/botvelocity/bv/internal/logging"
	"github.com/botvelocity/bv/internal/orchestrator"
	"github.com/botvelocity/bv/pkg/archive"
	"github.com/botvelocity/bv/pkg/project"

	"github.com/charmbracelet/log"
)

const (
	// MainModuleFile is the template entry module written by Init.
	MainModuleFile = "main.go"
	// BindingsFile is the bindings manifest written by Init.
	BindingsFile = "bindings.json"
)

var (
	// ErrConflict is the sentinel error wrapped by ConflictError.
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput is the sentinel error wrapped by InputError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrValidationFailed is the sentinel error wrapped by ValidationFailedError.
	ErrValidationFailed = errors.New("validation failed")
)

type (
	// RequesterFactory builds a control-plane client for a resolved URL.
	RequesterFactory func(url string) (orchestrator.Requester, error)

	// Options configures a Service. Nil fields get working defaults.
	Options struct {
		// Settings are the tool settings; DefaultConfig when nil.
		Settings *config.Config
		// Exec runs toolchain subprocesses for environment management.
		Exec environment.Executor
		// Invoker loads and calls entry modules.
		Invoker *invoke.Invoker
		Logger  *log.Logger
		// Generator is recorded in archive manifests.
		Generator string
		// NewRequester is used by Run when a control-plane URL resolves.
		NewRequester RequesterFactory

		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// Service runs the project workflows. It holds no project state between
	// calls; every operation reloads the descriptor.
	Service struct {
		settings     *config.Config
		exec         environment.Executor
		invoker      *invoke.Invoker
		logger       *log.Logger
		builder      *archive.Builder
		newRequester RequesterFactory

		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer
	}

	// ConflictError reports a target that already exists.
	ConflictError struct {
		Path    string
		Message string
	}

	// InputError reports an unusable run input payload.
	InputError struct {
		Path    string
		Message string
		Err     error
	}

	// ValidationFailedError aborts a mutating workflow whose project did not validate.
	ValidationFailedError struct {
		Problems []string
	}
)

// Error implements the error interface.
func (e *ConflictError) Error() string { return e.Message }

// Unwrap returns ErrConflict.
func (e *ConflictError) Unwrap() error { return ErrConflict }

// Error implements the error interface.
func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns ErrInvalidInput and the underlying cause, if any.
func (e *InputError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidInput, e.Err}
	}
	return []error{ErrInvalidInput}
}

// Error implements the error interface.
func (e *ValidationFailedError) Error() string {
	return "Validation failed: " + strings.Join(e.Problems, "; ")
}

// Unwrap returns ErrValidationFailed.
func (e *ValidationFailedError) Unwrap() error { return ErrValidationFailed }

// New creates a Service from opts.
func New(opts Options) *Service {
	s := &Service{
		settings:     opts.Settings,
		exec:         opts.Exec,
		invoker:      opts.Invoker,
		logger:       opts.Logger,
		newRequester: opts.NewRequester,
		stdin:        opts.Stdin,
		stdout:       opts.Stdout,
		stderr:       opts.Stderr,
	}
	if s.settings == nil {
		s.settings = config.DefaultConfig()
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.exec == nil {
		s.exec = environment.ExecExecutor{}
	}
	if s.invoker == nil {
		s.invoker = invoke.New(s.logger)
	}
	if s.newRequester == nil {
		s.newRequester = s.defaultRequester
	}
	if s.stdin == nil {
		s.stdin = os.Stdin
	}
	if s.stdout == nil {
		s.stdout = os.Stdout
	}
	if s.stderr == nil {
		s.stderr = os.Stderr
	}
	generator := opts.Generator
	if generator == "" {
		generator = "bv"
	}
	s.builder = archive.NewBuilder(generator, s.logger)
	return s
}

// Settings returns the tool settings in effect.
func (s *Service) Settings() *config.Config { return s.settings }

func (s *Service) defaultRequester(url string) (orchestrator.Requester, error) {
	o := s.settings.Orchestrator
	return orchestrator.New(orchestrator.Settings{
		URL:     url,
		Token:   os.Getenv(o.TokenEnv),
		Timeout: o.Timeout(),
		Retries: 2,
	}, s.logger)
}

// environment returns the manager for cfg's environment under root.
func (s *Service) environment(root string, cfg *project.Config) *environment.Manager {
	return environment.NewManager(filepath.Join(root, filepath.FromSlash(cfg.EnvironmentDir)), s.exec, s.logger)
}

// interpreter picks the base toolchain: explicit, then settings, then default.
func (s *Service) interpreter(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if s.settings.Interpreter != "" {
		return s.settings.Interpreter
	}
	return environment.DefaultBaseToolchain
}

// resolveDescriptor returns the absolute descriptor path and its project
// root. An empty path means the descriptor in the working directory.
func resolveDescriptor(path string) (descriptor, root string, err error) {
	if path == "" {
		path = project.DescriptorFile
	}
	descriptor, err = filepath.Abs(path)
	if err != nil {
		return "", "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return descriptor, filepath.Dir(descriptor), nil
}

// underRoot resolves a settings directory against root unless it is absolute.
func underRoot(root, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, filepath.FromSlash(dir))
}
