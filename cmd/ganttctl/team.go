package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"gantt-tracker/internal/service"
)

type memberOut struct {
	ID   uint   `yaml:"id"`
	Name string `yaml:"name"`
}

type resourceOut struct {
	ID          uint   `yaml:"id"`
	Name        string `yaml:"name"`
	Role        string `yaml:"role,omitempty"`
	Color       string `yaml:"color,omitempty"`
	Utilization int    `yaml:"utilization"`
}

func memberCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage project members",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := a.scope(cmd.Context())
			if err != nil {
				return err
			}
			m, err := a.members.Create(cmd.Context(), scope, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added member %d %s\n", m.ID, m.Name)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := a.scope(cmd.Context())
			if err != nil {
				return err
			}
			members, err := a.members.List(cmd.Context(), scope)
			if err != nil {
				return err
			}
			out := make([]memberOut, 0, len(members))
			for _, m := range members {
				out = append(out, memberOut{ID: m.ID, Name: m.Name})
			}
			return a.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				for _, m := range out {
					fmt.Fprintf(w, "%4d  %s\n", m.ID, m.Name)
				}
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a member and unassign its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			scope, err := a.scope(cmd.Context())
			if err != nil {
				return err
			}
			n, err := a.members.Delete(cmd.Context(), scope, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted member %d, unassigned %d task(s)\n", id, n)
			return nil
		},
	})
	return cmd
}

func resourceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resource",
		Short: "Manage resource pools",
	}

	var role, color string
	var utilization int
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := a.scope(cmd.Context())
			if err != nil {
				return err
			}
			input := service.ResourceInput{Name: args[0], Role: role, Color: color}
			if cmd.Flags().Changed("utilization") {
				input.Utilization = &utilization
			}
			r, err := a.resources.Create(cmd.Context(), scope, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added resource %d %s\n", r.ID, r.Name)
			return nil
		},
	}
	addCmd.Flags().StringVar(&role, "role", "", "role of the resource")
	addCmd.Flags().StringVar(&color, "color", "", "chart color, #rrggbb")
	addCmd.Flags().IntVar(&utilization, "utilization", 100, "utilization in percent")
	cmd.AddCommand(addCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := a.scope(cmd.Context())
			if err != nil {
				return err
			}
			resources, err := a.resources.List(cmd.Context(), scope)
			if err != nil {
				return err
			}
			out := make([]resourceOut, 0, len(resources))
			for _, r := range resources {
				out = append(out, resourceOut{ID: r.ID, Name: r.Name, Role: r.Role, Color: r.Color, Utilization: r.Utilization})
			}
			return a.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				for _, r := range out {
					fmt.Fprintf(w, "%4d  %-20s %-12s %-8s %3d%%\n", r.ID, r.Name, r.Role, r.Color, r.Utilization)
				}
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a resource and release its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			scope, err := a.scope(cmd.Context())
			if err != nil {
				return err
			}
			n, err := a.resources.Delete(cmd.Context(), scope, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted resource %d, released %d task(s)\n", id, n)
			return nil
		},
	})
	return cmd
}
