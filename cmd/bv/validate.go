// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/botvelocity/bv/internal/workflow"
	"github.com/botvelocity/bv/pkg/project"

	"github.com/spf13/cobra"
)

func newValidateCommand(app *App) *cobra.Command {
	var opts workflow.ValidateOptions

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate project configuration",
		Long: `Validate project configuration without changing anything.

Every problem is printed to stderr as an ERROR line and the command exits
with status 1. Warnings are printed as WARN lines and do not fail validation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result := app.workflows(cmd.Context()).Validate(cmd.Context(), opts)
			if !result.OK {
				for _, msg := range result.Errors {
					fmt.Fprintln(app.stderr, ErrorStyle.Render(errorPrefix)+msg)
				}
				return reported()
			}
			for _, msg := range result.Warnings {
				fmt.Fprintln(app.stdout, WarningStyle.Render(warningPrefix)+msg)
			}
			fmt.Fprintln(app.stdout, SuccessStyle.Render("Project configuration is valid."))
			return nil
		},
	}

	validateCmd.Flags().StringVar(&opts.Descriptor, "config", project.DescriptorFile, "path to bvproject.yaml")
	validateCmd.Flags().StringVar(&opts.ProjectRoot, "project-root", "", "project root for resolving paths (defaults to the descriptor's directory)")
	return validateCmd
}
