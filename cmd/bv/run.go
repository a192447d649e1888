// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/botvelocity/bv/internal/workflow"
	"github.com/botvelocity/bv/pkg/project"

	"github.com/spf13/cobra"
)

func newRunCommand(app *App) *cobra.Command {
	var opts workflow.RunOptions

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a configured entrypoint locally",
		Long: `Run a configured entrypoint locally and print its result as JSON.

The entrypoint runs in-process. It observes a managed run through the sdk
package (BV_SDK_RUN) and sees the resolved orchestrator URL; neither is
set in the bv process environment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := app.workflows(cmd.Context()).Run(cmd.Context(), opts)
			if err != nil {
				return failure(err)
			}
			fmt.Fprintln(app.stdout, formatResult(result))
			return nil
		},
	}

	runCmd.Flags().StringVar(&opts.Entry, "entry", "", "entrypoint name (defaults to the project default)")
	runCmd.Flags().StringVar(&opts.InputPath, "input", "", "path to a JSON file passed as input")
	runCmd.Flags().StringVar(&opts.Descriptor, "config", project.DescriptorFile, "path to bvproject.yaml")
	return runCmd
}

// formatResult renders an entrypoint result as indented JSON, falling back
// to its Go representation when it cannot be encoded.
func formatResult(result any) string {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Sprintf("%#v", result)
	}
	return string(data)
}
