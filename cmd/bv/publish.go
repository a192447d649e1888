// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/botvelocity/bv/internal/workflow"
	"github.com/botvelocity/bv/pkg/project"

	"github.com/spf13/cobra"
)

func newPublishCommand(app *App) *cobra.Command {
	var (
		opts                workflow.PublishOptions
		major, minor, patch bool
	)

	publishCmd := &cobra.Command{
		Use:   "publish [archive]",
		Short: "Publish a .bvpackage into the local store",
		Long: `Publish a .bvpackage into the local store.

The project version is bumped (patch unless --major or --minor is given)
and persisted first. Without an archive argument, or when the archive does
not exist yet, the project is built. The archive is verified and placed at
<publish_dir>/<name>/<version>/. If any step fails, the descriptor is
restored and the build output put back as it was.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bump, ok := selectBump(major, minor, patch)
			if !ok {
				fmt.Fprintln(app.stderr, ErrorStyle.Render(errorPrefix)+"Only one of --major/--minor/--patch may be set")
				return reported()
			}
			opts.Bump = bump
			if len(args) == 1 {
				opts.Package = args[0]
			}

			dest, err := app.workflows(cmd.Context()).Publish(cmd.Context(), opts)
			if err != nil {
				return failure(err)
			}
			fmt.Fprintf(app.stdout, "Published to %s\n", dest)
			return nil
		},
	}

	publishCmd.Flags().StringVar(&opts.Descriptor, "config", project.DescriptorFile, "path to bvproject.yaml for validation and build")
	publishCmd.Flags().StringVar(&opts.PublishDir, "output-dir", "", "store root for published artifacts (default: publish_dir setting)")
	publishCmd.Flags().StringArrayVar(&opts.Include, "include", nil, "additional project-relative path to package if a build is triggered (repeatable)")
	publishCmd.Flags().BoolVar(&major, "major", false, "increment the MAJOR version")
	publishCmd.Flags().BoolVar(&minor, "minor", false, "increment the MINOR version")
	publishCmd.Flags().BoolVar(&patch, "patch", false, "increment the PATCH version (default)")
	publishCmd.Flags().BoolVar(&opts.Move, "move", false, "move instead of copy the artifact into the store")
	publishCmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "allow replacing an already published artifact")
	publishCmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "compute the destination without changing anything")
	return publishCmd
}

// selectBump returns the version part chosen by the bump flags. It reports
// false when more than one is set.
func selectBump(major, minor, patch bool) (project.BumpPart, bool) {
	count := 0
	for _, set := range []bool{major, minor, patch} {
		if set {
			count++
		}
	}
	switch {
	case count > 1:
		return "", false
	case major:
		return project.BumpMajor, true
	case minor:
		return project.BumpMinor, true
	default:
		return project.BumpPatch, true
	}
}
