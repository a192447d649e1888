// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/botvelocity/bv/pkg/project"

	"github.com/spf13/cobra"
)

// newEntryCommand creates the `bv entry` command tree.
func newEntryCommand(app *App) *cobra.Command {
	entryCmd := &cobra.Command{
		Use:   "entry",
		Short: "Manage project entrypoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	entryCmd.AddCommand(newEntryAddCommand(app), newEntryListCommand(app), newEntrySetDefaultCommand(app))
	return entryCmd
}

func newEntryAddCommand(app *App) *cobra.Command {
	var (
		descriptor string
		ep         project.EntryPoint
		input      string
		setDefault bool
	)

	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an entrypoint definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ep.Name = args[0]
			ep.Input = project.InputMode(input)
			if err := app.workflows(cmd.Context()).AddEntrypoint(descriptor, ep, setDefault); err != nil {
				return failure(err)
			}
			fmt.Fprintf(app.stdout, "Added entrypoint '%s'\n", ep.Name)
			return nil
		},
	}

	addCmd.Flags().StringVar(&ep.Command, "command", "", "callable to run, as module:Function")
	addCmd.Flags().StringVar(&ep.Workdir, "workdir", "", "working directory, relative to the project root")
	addCmd.Flags().BoolVar(&setDefault, "set-default", false, "mark this entrypoint as the default")
	addCmd.Flags().StringVar(&input, "input", "", "declared input contract (none or object)")
	addCmd.Flags().StringVar(&descriptor, "config", project.DescriptorFile, "path to bvproject.yaml")
	_ = addCmd.MarkFlagRequired("command")
	return addCmd
}

func newEntryListCommand(app *App) *cobra.Command {
	var descriptor string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List entrypoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := app.workflows(cmd.Context()).ListEntrypoints(descriptor)
			if err != nil {
				return failure(err)
			}
			for _, name := range names {
				fmt.Fprintln(app.stdout, name)
			}
			return nil
		},
	}

	listCmd.Flags().StringVar(&descriptor, "config", project.DescriptorFile, "path to bvproject.yaml")
	return listCmd
}

func newEntrySetDefaultCommand(app *App) *cobra.Command {
	var descriptor string

	setCmd := &cobra.Command{
		Use:   "set-default <name>",
		Short: "Set the default entrypoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.workflows(cmd.Context()).SetDefaultEntrypoint(descriptor, args[0]); err != nil {
				return failure(err)
			}
			fmt.Fprintf(app.stdout, "Default entrypoint set to '%s'\n", args[0])
			return nil
		},
	}

	setCmd.Flags().StringVar(&descriptor, "config", project.DescriptorFile, "path to bvproject.yaml")
	return setCmd
}
