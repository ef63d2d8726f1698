package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type projectOut struct {
	Name    string `yaml:"name"`
	Path    string `yaml:"path"`
	Created string `yaml:"created"`
}

func projectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create and list projects",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a project with its own database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.projects.Create(cmd.Context(), operator, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created project %s at %s\n", p.Name, p.Path)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := a.projects.List(cmd.Context())
			if err != nil {
				return err
			}
			out := make([]projectOut, 0, len(projects))
			for _, p := range projects {
				out = append(out, projectOut{Name: p.Name, Path: p.Path, Created: p.CreatedAt.Format(dateLayout)})
			}
			return a.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				for _, p := range out {
					fmt.Fprintf(w, "%-24s %s\n", p.Name, p.Path)
				}
			})
		},
	})
	return cmd
}
