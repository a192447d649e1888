// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/botvelocity/bv/internal/config"
	"github.com/botvelocity/bv/internal/issue"

	"github.com/spf13/cobra"
)

// newSettingsCommand creates the `bv settings` command tree.
// Subcommands that read settings use the App's ConfigProvider.
func newSettingsCommand(app *App) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage bv tool settings",
		Long: `Manage bv tool settings.

Settings are stored in:
  - Linux: ~/.config/bv/config.cue
  - macOS: ~/Library/Application Support/bv/config.cue
  - Windows: %APPDATA%\bv\config.cue

They are distinct from a project's bvproject.yaml.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showSettings(cmd.Context(), app)
		},
	})

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default settings file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return issue.NewErrorContext().
					WithOperation("create settings file").
					WithSuggestion("Check that the config directory is writable").
					Wrap(err).
					BuildError()
			}
			fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("Settings file:"), path)
			return nil
		},
	})

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the settings file path",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path := app.settingsPath
			if path == "" {
				var err error
				if path, err = config.ConfigFilePath(); err != nil {
					return err
				}
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	settingsCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective settings as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Config.Load(cmd.Context(), app.loadOptions())
			if err != nil {
				return newServiceError(err, issue.ConfigLoadFailedId, "")
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return settingsCmd
}

func showSettings(ctx context.Context, app *App) error {
	opts := app.loadOptions()
	cfg, err := app.Config.Load(ctx, opts)
	if err != nil {
		return newServiceError(err, issue.ConfigLoadFailedId, "")
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	unset := SubtitleStyle.Render("(unset)")

	fmt.Fprintln(app.stdout, TitleStyle.Render("Current Settings"))
	fmt.Fprintln(app.stdout)

	source, _ := app.Config.Source(ctx, opts)
	if source == "" {
		source = SubtitleStyle.Render("(using defaults)")
	}
	fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("Settings file"), source)
	fmt.Fprintln(app.stdout)

	value := func(s string) string {
		if s == "" {
			return unset
		}
		return valueStyle.Render(s)
	}
	rows := []struct{ key, val string }{
		{"output_dir", value(cfg.OutputDir)},
		{"publish_dir", value(cfg.PublishDir)},
		{"interpreter", value(cfg.Interpreter)},
		{"orchestrator.url", value(cfg.Orchestrator.URL)},
		{"orchestrator.token_env", value(cfg.Orchestrator.TokenEnv)},
		{"orchestrator.timeout_seconds", value(strconv.Itoa(cfg.Orchestrator.TimeoutSeconds))},
		{"ui.verbose", value(strconv.FormatBool(cfg.UI.Verbose))},
		{"ui.color_scheme", value(string(cfg.UI.ColorScheme))},
	}
	for _, r := range rows {
		fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render(r.key), r.val)
	}
	return nil
}
