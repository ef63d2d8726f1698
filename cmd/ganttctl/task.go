package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gantt-tracker/internal/model"
	"gantt-tracker/internal/service"
)

const dateLayout = "2006-01-02"

type taskOut struct {
	ID           uint   `yaml:"id"`
	Name         string `yaml:"name"`
	Start        string `yaml:"start"`
	End          string `yaml:"end"`
	Progress     int    `yaml:"progress"`
	Milestone    bool   `yaml:"milestone,omitempty"`
	ParentID     *uint  `yaml:"parent_id,omitempty"`
	AssigneeID   *uint  `yaml:"assignee_id,omitempty"`
	ResourceID   *uint  `yaml:"resource_id,omitempty"`
	Predecessors []uint `yaml:"predecessors,omitempty"`
	Remarks      string `yaml:"remarks,omitempty"`
}

// taskFlags are shared by task add and task update.
type taskFlags struct {
	name      string
	start     string
	end       string
	progress  int
	milestone bool
	remarks   string
	parent    uint
	assignee  uint
	resource  uint
	after     []string
}

func (f *taskFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "task name")
	fs.StringVar(&f.start, "start", "", "start date (YYYY-MM-DD)")
	fs.StringVar(&f.end, "end", "", "end date (YYYY-MM-DD)")
	fs.IntVar(&f.progress, "progress", 0, "progress in percent")
	fs.BoolVar(&f.milestone, "milestone", false, "mark as milestone")
	fs.StringVar(&f.remarks, "remarks", "", "free text remarks")
	fs.UintVar(&f.parent, "parent", 0, "parent task id, 0 for none")
	fs.UintVar(&f.assignee, "assignee", 0, "member id, 0 for none")
	fs.UintVar(&f.resource, "resource", 0, "resource id, 0 for none")
	fs.StringSliceVar(&f.after, "after", nil, "predecessor task ids")
}

// apply copies every flag the user set onto input.
func (f *taskFlags) apply(fs *pflag.FlagSet, input *service.TaskInput) error {
	var err error
	fs.Visit(func(flag *pflag.Flag) {
		if err != nil {
			return
		}
		switch flag.Name {
		case "name":
			input.Name = f.name
		case "start":
			input.StartDate, err = service.ParseDate(f.start)
		case "end":
			input.EndDate, err = service.ParseDate(f.end)
		case "progress":
			input.Progress = f.progress
		case "milestone":
			input.IsMilestone = f.milestone
		case "remarks":
			input.Remarks = f.remarks
		case "parent":
			input.ParentID = optionalID(f.parent)
		case "assignee":
			input.AssigneeID = optionalID(f.assignee)
		case "resource":
			input.ResourceID = optionalID(f.resource)
		case "after":
			input.Predecessors = append([]string{}, f.after...)
		}
	})
	return err
}

func optionalID(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}

func taskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Add, change and remove tasks",
	}

	var add taskFlags
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := a.scope(cmd.Context())
			if err != nil {
				return err
			}
			var input service.TaskInput
			if err := add.apply(cmd.Flags(), &input); err != nil {
				return err
			}
			task, err := a.tasks.CreateTask(cmd.Context(), scope, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added task %d %s\n", task.ID, task.Name)
			return nil
		},
	}
	add.register(addCmd.Flags())
	cmd.AddCommand(addCmd)

	var upd taskFlags
	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the given fields of a task",
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
			task, err := a.tasks.Get(cmd.Context(), scope, id)
			if err != nil {
				return err
			}
			input := service.InputFromTask(*task)
			if err := upd.apply(cmd.Flags(), &input); err != nil {
				return err
			}
			task, err = a.tasks.UpdateTask(cmd.Context(), scope, id, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated task %d %s\n", task.ID, task.Name)
			return nil
		},
	}
	upd.register(updateCmd.Flags())
	cmd.AddCommand(updateCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task and its dependencies",
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
			if err := a.tasks.DeleteTask(cmd.Context(), scope, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted task %d\n", id)
			return nil
		},
	})

	var order string
	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks with their predecessors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := a.scope(cmd.Context())
			if err != nil {
				return err
			}
			tasks, err := a.tasks.List(cmd.Context(), scope)
			if err != nil {
				return err
			}
			g, err := a.tasks.Graph(cmd.Context(), scope)
			if err != nil {
				return err
			}
			switch order {
			case "id":
			case "deps":
				ids, err := g.TopoOrder()
				if err != nil {
					return err
				}
				tasks = orderByIDs(tasks, ids)
			default:
				return fmt.Errorf("unknown order %q (want id or deps)", order)
			}
			out := make([]taskOut, 0, len(tasks))
			for _, t := range tasks {
				out = append(out, newTaskOut(t, g.PredecessorsOf(t.ID)))
			}
			return a.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				for _, t := range out {
					fmt.Fprintf(w, "%4d  %-30s %s  %s  %3d%%", t.ID, t.Name, t.Start, t.End, t.Progress)
					if len(t.Predecessors) > 0 {
						fmt.Fprintf(w, "  after %v", t.Predecessors)
					}
					fmt.Fprintln(w)
				}
			})
		},
	}
	list.Flags().StringVar(&order, "order", "id", "sort by id, or deps to put predecessors first")
	cmd.AddCommand(list)

	for _, link := range []bool{true, false} {
		link := link
		use, short := "link <predecessor> <successor>", "Make a task wait for another"
		if !link {
			use, short = "unlink <predecessor> <successor>", "Remove a dependency"
		}
		cmd.AddCommand(&cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				pred, err := parseID(args[0])
				if err != nil {
					return err
				}
				succ, err := parseID(args[1])
				if err != nil {
					return err
				}
				scope, err := a.scope(cmd.Context())
				if err != nil {
					return err
				}
				if link {
					err = a.tasks.AddDependency(cmd.Context(), scope, pred, succ)
				} else {
					err = a.tasks.RemoveDependency(cmd.Context(), scope, pred, succ)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d -> %d\n", cmd.Name(), pred, succ)
				return nil
			},
		})
	}
	return cmd
}

func newTaskOut(t model.Task, preds []uint) taskOut {
	return taskOut{
		ID:           t.ID,
		Name:         t.Name,
		Start:        t.StartDate.Format(dateLayout),
		End:          t.EndDate.Format(dateLayout),
		Progress:     t.Progress,
		Milestone:    t.IsMilestone,
		ParentID:     t.ParentID,
		AssigneeID:   t.AssigneeID,
		ResourceID:   t.ResourceID,
		Predecessors: preds,
		Remarks:      t.Remarks,
	}
}

// orderByIDs returns tasks in the order of ids. Tasks missing from ids are dropped.
func orderByIDs(tasks []model.Task, ids []uint) []model.Task {
	byID := make(map[uint]model.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	out := make([]model.Task, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out
}
