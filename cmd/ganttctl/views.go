package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gantt-tracker/internal/export"
	"gantt-tracker/internal/service"
)

func ganttCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "gantt",
		Short: "Show Gantt rows of the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := a.scope(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := a.views.GanttRows(cmd.Context(), scope)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), rows, func(w io.Writer) {
				for _, r := range rows {
					label := strings.Repeat("  ", r.Depth) + r.Label
					fmt.Fprintf(w, "%4d  %-32s %s  %s  %3d%%  %-12s %s\n",
						r.TaskID, label, r.Start.Format(dateLayout), r.End.Format(dateLayout),
						r.PercentComplete, r.ResourceLabel, r.DependencyLabel)
				}
			})
		},
	}
}

func burndownCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "burndown",
		Short: "Show remaining work per day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := a.scope(cmd.Context())
			if err != nil {
				return err
			}
			b, err := a.views.Burndown(cmd.Context(), scope)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), b, func(w io.Writer) {
				fmt.Fprintf(w, "%-10s %9s %6s\n", "date", "remaining", "ideal")
				for _, p := range b.Points {
					fmt.Fprintf(w, "%-10s %9.2f %6.2f\n", p.Date.Format(dateLayout), p.Remaining, p.Ideal)
				}
			})
		},
	}
}

func overviewCmd(a *app) *cobra.Command {
	var today string
	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Show project metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if today != "" {
				var err error
				if now, err = service.ParseDate(today); err != nil {
					return err
				}
			}
			scope, err := a.scope(cmd.Context())
			if err != nil {
				return err
			}
			o, err := a.views.Overview(cmd.Context(), scope, now)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), o, func(w io.Writer) {
				fmt.Fprintf(w, "tasks:           %d\n", o.Total)
				fmt.Fprintf(w, "completed:       %d\n", o.Completed)
				fmt.Fprintf(w, "overdue:         %d\n", o.Overdue)
				fmt.Fprintf(w, "avg progress:    %d%%\n", o.AvgProgress)
				fmt.Fprintf(w, "completion rate: %d%%\n", o.ProgressRate)
			})
		},
	}
	cmd.Flags().StringVar(&today, "today", "", "evaluate as of this date (YYYY-MM-DD)")
	return cmd
}

type treeOut struct {
	ID       uint   `yaml:"id"`
	Name     string `yaml:"name"`
	Depth    int    `yaml:"depth"`
	Progress int    `yaml:"progress"`
}

func treeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Show the task tree with rolled-up progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := a.scope(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := a.views.Tree(cmd.Context(), scope)
			if err != nil {
				return err
			}
			out := make([]treeOut, 0, len(rows))
			for _, r := range rows {
				out = append(out, treeOut{ID: r.Task.ID, Name: r.Task.Name, Depth: r.Depth, Progress: r.Progress})
			}
			return a.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				for _, r := range out {
					fmt.Fprintf(w, "%s%d %s (%d%%)\n", strings.Repeat("  ", r.Depth), r.ID, r.Name, r.Progress)
				}
			})
		},
	}
}

func exportCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the Gantt rows, burndown and resource legend to an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := a.scope(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := a.views.GanttRows(cmd.Context(), scope)
			if err != nil {
				return err
			}
			b, err := a.views.Burndown(cmd.Context(), scope)
			if err != nil {
				return err
			}
			legend, err := a.views.ResourceColors(cmd.Context(), scope)
			if err != nil {
				return err
			}
			if file == "" {
				file = strings.ReplaceAll(strings.ToLower(scope.Project.Name), " ", "_") + ".xlsx"
			}
			f, err := os.Create(file)
			if err != nil {
				return err
			}
			if err := export.WriteXLSX(f, rows, b, legend); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", len(rows), file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "output path (default <project>.xlsx)")
	return cmd
}
