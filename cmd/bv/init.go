// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/botvelocity/bv/internal/workflow"

	"github.com/spf13/cobra"
)

func newInitCommand(app *App) *cobra.Command {
	var opts workflow.InitOptions

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new project (descriptor, scaffold and environment)",
		Long: `Initialize a new project.

Writes bvproject.yaml with one default entrypoint, a template entry module,
entry-points.json, an empty bindings.json and environment.toml, then creates
the project environment. Nothing is left behind if any step fails, and an
existing bvproject.yaml is never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := app.workflows(cmd.Context()).Init(cmd.Context(), opts)
			if err != nil {
				return failure(err)
			}

			fmt.Fprintln(app.stdout, SuccessStyle.Render("Initialized project config and environment")+" in "+CmdStyle.Render(res.Descriptor))
			if app.verbose {
				for _, f := range res.Files {
					fmt.Fprintln(app.stdout, VerboseStyle.Render("  created "+f))
				}
				fmt.Fprintln(app.stdout, VerboseStyle.Render("  environment "+res.Environment))
			}
			return nil
		},
	}

	initCmd.Flags().StringVar(&opts.Name, "name", "", "project name (defaults to the directory name)")
	initCmd.Flags().StringVar(&opts.Interpreter, "interpreter", "", "base go toolchain for the environment")
	initCmd.Flags().StringVar(&opts.Dir, "dir", "", "project directory (defaults to the current directory)")
	return initCmd
}
