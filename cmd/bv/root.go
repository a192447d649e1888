// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/botvelocity/bv/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the bv command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bv",
		Short: "Project lifecycle manager for automation units",
		Long: TitleStyle.Render("bv") + SubtitleStyle.Render(" - Project lifecycle manager for automation units") + `

bv scaffolds an automation project, validates its bvproject.yaml,
packages it into a versioned .bvpackage archive, publishes the archive
into a version-keyed store, and runs any configured entrypoint locally.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Scaffold a project:  bv init --name invoice-bot
  2. Check it:            bv validate
  3. Try it locally:      bv run --input input.json

` + SubtitleStyle.Render("Examples:") + `
  bv entry add nightly --command jobs:Nightly   Add an entrypoint
  bv build                                      Package the project
  bv publish --minor                            Bump, build and publish
  bv env install example.com/greet@v1.0.0       Install a package`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.settingsPath, "bv-config", "", "settings file (default is the bv config directory's config.cue)")

	rootCmd.AddCommand(
		newInitCommand(app),
		newEntryCommand(app),
		newValidateCommand(app),
		newBuildCommand(app),
		newPublishCommand(app),
		newRunCommand(app),
		newEnvCommand(app),
		newSettingsCommand(app),
		newVersionCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the command tree and runs it. This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render(errorPrefix)+err.Error())
		os.Exit(1)
	}
	rootCmd := NewRootCommand(app)

	// fang overrides rootCmd.Version, so the version goes through its option.
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			reportError(w, err, app.verbose)
		}),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
