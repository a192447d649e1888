// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/botvelocity/bv/internal/workflow"
	"github.com/botvelocity/bv/pkg/project"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newBuildCommand(app *App) *cobra.Command {
	var opts workflow.BuildOptions

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build a .bvpackage from the project",
		Long: `Build a .bvpackage from the project.

The project must validate and its environment must exist. The archive is
written to <output_dir>/<name>-<version>.bvpackage unless --output is set.
Building the same project state twice yields byte-identical archives.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := app.workflows(cmd.Context()).Build(cmd.Context(), opts)
			if err != nil {
				return failure(err)
			}

			if opts.DryRun {
				fmt.Fprintf(app.stdout, "Package ready: %s\n", res.Path)
			} else {
				fmt.Fprintf(app.stdout, "Package ready: %s %s\n", res.Path, SubtitleStyle.Render("("+humanize.Bytes(uint64(res.Size))+")"))
			}
			if app.verbose {
				for _, f := range res.Files {
					fmt.Fprintln(app.stdout, VerboseStyle.Render("  "+f))
				}
			}
			return nil
		},
	}

	buildCmd.Flags().StringVar(&opts.Descriptor, "config", project.DescriptorFile, "path to bvproject.yaml")
	buildCmd.Flags().StringVar(&opts.Output, "output", "", "destination .bvpackage path (default: <output_dir>/<name>-<version>.bvpackage)")
	buildCmd.Flags().StringArrayVar(&opts.Include, "include", nil, "additional project-relative file or directory to package (repeatable)")
	buildCmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "compute the target path and members without writing")
	return buildCmd
}
