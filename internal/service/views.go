package service

import (
	"sort"
	"strings"
	"time"

	"gantt-tracker/internal/graph"
	"gantt-tracker/internal/model"
)

// RowKind tells a Gantt renderer how to draw a row.
type RowKind string

const (
	RowTask      RowKind = "Task"
	RowMilestone RowKind = "Milestone"
)

const (
	MilestoneMarker = "◆ "
	UnassignedLabel = "Unassigned"
)

// GanttRow is one line of the Gantt chart.
type GanttRow struct {
	TaskID          uint      `yaml:"task_id"`
	ParentID        *uint     `yaml:"parent_id,omitempty"`
	Depth           int       `yaml:"depth"`
	Label           string    `yaml:"label"`
	Start           time.Time `yaml:"start"`
	End             time.Time `yaml:"end"`
	PercentComplete int       `yaml:"percent_complete"`
	ResourceLabel   string    `yaml:"resource"`
	DependencyLabel string    `yaml:"depends_on,omitempty"`
	BlocksLabel     string    `yaml:"blocks,omitempty"`
	Kind            RowKind   `yaml:"kind"`
	Color           string    `yaml:"color,omitempty"`
}

// BurndownPoint is the remaining work on one calendar day.
type BurndownPoint struct {
	Date      time.Time `yaml:"date"`
	Remaining float64   `yaml:"remaining"`
	Ideal     float64   `yaml:"ideal"`
}

type Burndown struct {
	Points []BurndownPoint `yaml:"points"`
}

// Overview holds the headline numbers of a project.
type Overview struct {
	Total        int `yaml:"total"`
	Completed    int `yaml:"completed"`
	Overdue      int `yaml:"overdue"`
	AvgProgress  int `yaml:"avg_progress"`
	ProgressRate int `yaml:"progress_rate"`
}

// TreeRow is a task placed in the parent/child tree with its rolled-up progress.
type TreeRow struct {
	Task     model.Task
	Depth    int
	Progress int
}

// ResourceColors maps resource names to their configured colors for a legend.
// Resources without a color are left out.
func ResourceColors(resources []model.Resource) map[string]string {
	colors := make(map[string]string, len(resources))
	for _, r := range resources {
		if r.Color != "" {
			colors[r.Name] = r.Color
		}
	}
	return colors
}

// BuildGanttRows emits one row per task ordered by start date, then id.
// Milestones end on their start date and carry the milestone marker.
func BuildGanttRows(tasks []model.Task, edges []model.TaskDependency, members []model.Member, resources []model.Resource) []GanttRow {
	sorted := append([]model.Task(nil), tasks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].StartDate.Equal(sorted[j].StartDate) {
			return sorted[i].StartDate.Before(sorted[j].StartDate)
		}
		return sorted[i].ID < sorted[j].ID
	})

	g := graph.Build(tasks, edges, false)
	names := make(map[uint]string, len(tasks))
	for _, t := range tasks {
		names[t.ID] = t.Name
	}
	memberNames := make(map[uint]string, len(members))
	for _, m := range members {
		memberNames[m.ID] = m.Name
	}
	resourceByID := make(map[uint]model.Resource, len(resources))
	for _, r := range resources {
		resourceByID[r.ID] = r
	}

	rows := make([]GanttRow, 0, len(sorted))
	for _, t := range sorted {
		row := GanttRow{
			TaskID:          t.ID,
			ParentID:        t.ParentID,
			Depth:           g.Depth(t.ID),
			Label:           t.Name,
			Start:           t.StartDate,
			End:             t.EndDate,
			PercentComplete: t.Progress,
			ResourceLabel:   UnassignedLabel,
			Kind:            RowTask,
		}
		if t.IsMilestone {
			row.Kind = RowMilestone
			row.Label = MilestoneMarker + t.Name
			row.End = t.StartDate
		}
		if t.ResourceID != nil {
			if r, ok := resourceByID[*t.ResourceID]; ok {
				row.ResourceLabel = r.Name
				row.Color = r.Color
			}
		}
		if row.ResourceLabel == UnassignedLabel && t.AssigneeID != nil {
			if name, ok := memberNames[*t.AssigneeID]; ok {
				row.ResourceLabel = name
			}
		}

		row.DependencyLabel = joinNames(g.PredecessorsOf(t.ID), names)
		row.BlocksLabel = joinNames(g.SuccessorsOf(t.ID), names)

		rows = append(rows, row)
	}
	return rows
}

func joinNames(ids []uint, names map[uint]string) string {
	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		labels = append(labels, names[id])
	}
	return strings.Join(labels, ", ")
}

// BuildBurndown computes remaining work for every day from the earliest start to the latest end.
// A task contributes (100-progress)/100 on every day up to and including its end date.
func BuildBurndown(tasks []model.Task) Burndown {
	if len(tasks) == 0 {
		return Burndown{}
	}
	first, last := Day(tasks[0].StartDate), Day(tasks[0].EndDate)
	for _, t := range tasks[1:] {
		if s := Day(t.StartDate); s.Before(first) {
			first = s
		}
		if e := Day(t.EndDate); e.After(last) {
			last = e
		}
	}
	if last.Before(first) {
		last = first
	}

	var points []BurndownPoint
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		remaining := 0.0
		for _, t := range tasks {
			if !Day(t.EndDate).Before(d) {
				remaining += float64(100-t.Progress) / 100
			}
		}
		points = append(points, BurndownPoint{Date: d, Remaining: remaining})
	}

	start := points[0].Remaining
	n := len(points)
	for i := range points {
		if n == 1 {
			points[i].Ideal = start
			continue
		}
		points[i].Ideal = start * float64(n-1-i) / float64(n-1)
	}
	return Burndown{Points: points}
}

// At returns the point for day d and whether d is inside the range.
func (b Burndown) At(d time.Time) (BurndownPoint, bool) {
	d = Day(d)
	for _, p := range b.Points {
		if p.Date.Equal(d) {
			return p, true
		}
	}
	return BurndownPoint{}, false
}

// BuildOverview computes project metrics as of today.
func BuildOverview(tasks []model.Task, today time.Time) Overview {
	var o Overview
	o.Total = len(tasks)
	if o.Total == 0 {
		return o
	}
	today = Day(today)
	sum := 0
	for _, t := range tasks {
		sum += t.Progress
		if t.Progress == 100 {
			o.Completed++
		} else if Day(t.EndDate).Before(today) {
			o.Overdue++
		}
	}
	o.AvgProgress = sum / o.Total
	o.ProgressRate = o.Completed * 100 / o.Total
	return o
}

// BuildTree lists tasks depth first along the parent/child tree.
// A task with children reports the mean progress of its leaf descendants.
func BuildTree(tasks []model.Task) []TreeRow {
	g := graph.Build(tasks, nil, false)
	byID := make(map[uint]model.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	rolled := func(id uint) int {
		var sum, leaves int
		for _, d := range g.Descendants(id) {
			if len(g.Children(d)) == 0 {
				sum += byID[d].Progress
				leaves++
			}
		}
		if leaves == 0 {
			return byID[id].Progress
		}
		return sum / leaves
	}

	var rows []TreeRow
	var walk func(id uint, depth int)
	walk = func(id uint, depth int) {
		rows = append(rows, TreeRow{Task: byID[id], Depth: depth, Progress: rolled(id)})
		for _, c := range g.Children(id) {
			walk(c, depth+1)
		}
	}
	for _, r := range g.Roots() {
		walk(r, 0)
	}
	return rows
}
