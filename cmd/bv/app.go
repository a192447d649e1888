// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/botvelocity/bv/internal/config"
	"github.com/botvelocity/bv/internal/logging"
	"github.com/botvelocity/bv/internal/workflow"

	"github.com/charmbracelet/log"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root for
	// the CLI layer: all Cobra command handlers receive an App reference and delegate
	// business logic to the workflow.Service it builds.
	App struct {
		Config ConfigProvider
		// Workflows builds the service a command runs against.
		Workflows WorkflowFactory

		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer

		// Global flag values, bound by the root command.
		verbose      bool
		settingsPath string
	}

	// Dependencies defines the injection points for building an App. Nil fields are
	// replaced with production defaults by NewApp.
	Dependencies struct {
		Config    ConfigProvider
		Workflows WorkflowFactory
		Stdin     io.Reader
		Stdout    io.Writer
		Stderr    io.Writer
	}

	// ConfigProvider loads tool settings using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
		Source(ctx context.Context, opts config.LoadOptions) (string, error)
	}

	// WorkflowFactory builds a workflow service from the resolved settings.
	WorkflowFactory func(opts workflow.Options) *workflow.Service
)

// NewApp creates the CLI composition root.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Workflows == nil {
		deps.Workflows = workflow.New
	}

	return &App{
		Config:    deps.Config,
		Workflows: deps.Workflows,
		stdin:     deps.Stdin,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}, nil
}

// loadOptions returns the settings load options selected by the global flags.
func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: a.settingsPath}
}

// settings loads the tool settings. A load failure is reported as a warning
// and the defaults apply.
func (a *App) settings(ctx context.Context) *config.Config {
	cfg, err := a.Config.Load(ctx, a.loadOptions())
	if err != nil {
		a.warn(formatErrorForDisplay(err, a.verbose))
		return config.DefaultConfig()
	}
	return cfg
}

// logger builds the stderr logger for one command.
func (a *App) logger(cfg *config.Config) *log.Logger {
	return logging.New(a.stderr, logging.Options{Verbose: a.isVerbose(cfg)})
}

func (a *App) isVerbose(cfg *config.Config) bool {
	return a.verbose || (cfg != nil && cfg.UI.Verbose)
}

// workflows builds the workflow service for one command invocation.
func (a *App) workflows(ctx context.Context) *workflow.Service {
	cfg := a.settings(ctx)
	return a.Workflows(workflow.Options{
		Settings:  cfg,
		Logger:    a.logger(cfg),
		Generator: "bv " + Version,
		Stdin:     a.stdin,
		Stdout:    a.stdout,
		Stderr:    a.stderr,
	})
}

// warn prints one WARN line to stderr.
func (a *App) warn(msg string) {
	_, _ = io.WriteString(a.stderr, WarningStyle.Render(warningPrefix)+msg+"\n")
}
