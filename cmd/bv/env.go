// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/botvelocity/bv/pkg/project"

	"github.com/spf13/cobra"
)

// newEnvCommand creates the `bv env` command tree.
func newEnvCommand(app *App) *cobra.Command {
	var descriptor string

	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Manage the project environment",
		Long: `Manage the project environment.

The environment is an isolated GOPATH, module cache and toolchain link
under the project's environment_dir. Builds embed its package listing as
environment.lock.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	envCmd.PersistentFlags().StringVar(&descriptor, "config", project.DescriptorFile, "path to bvproject.yaml")

	var interpreter string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create the environment if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := app.workflows(cmd.Context()).CreateEnvironment(cmd.Context(), descriptor, interpreter)
			if err != nil {
				return failure(err)
			}
			fmt.Fprintf(app.stdout, "Environment ready: %s\n", dir)
			return nil
		},
	}
	createCmd.Flags().StringVar(&interpreter, "interpreter", "", "base go toolchain (default: interpreter setting, then go on PATH)")

	installCmd := &cobra.Command{
		Use:   "install [module@version...]",
		Short: "Install packages into the environment",
		Long: `Install packages into the environment.

Without arguments, the dependencies listed in environment.toml are
installed. A module without @version resolves to its latest version.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var progress = cmd.ErrOrStderr()
			if !app.verbose {
				progress = nil
			}
			pkgs, err := app.workflows(cmd.Context()).InstallPackages(cmd.Context(), descriptor, args, progress)
			if err != nil {
				return failure(err)
			}
			if len(pkgs) == 0 {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("Nothing to install"))
				return nil
			}
			for _, p := range pkgs {
				fmt.Fprintf(app.stdout, "Installed %s %s\n", CmdStyle.Render(p.Path), p.Version)
			}
			return nil
		},
	}

	var output string
	freezeCmd := &cobra.Command{
		Use:   "freeze",
		Short: "Print the environment lock listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := app.workflows(cmd.Context()).FreezeEnvironment(cmd.Context(), descriptor, output)
			if err != nil {
				return failure(err)
			}
			if output != "" {
				fmt.Fprintf(app.stdout, "Wrote %s\n", output)
				return nil
			}
			_, err = app.stdout.Write(data)
			return err
		},
	}
	freezeCmd.Flags().StringVar(&output, "output", "", "write the listing to this file instead of stdout")

	envCmd.AddCommand(createCmd, installCmd, freezeCmd)
	return envCmd
}
