package service

import (
	"testing"

	"gantt-tracker/internal/model"
)

func TestBuildBurndown_SingleTask(t *testing.T) {
	tasks := []model.Task{{ID: 1, Name: "A", StartDate: date("2024-01-01"), EndDate: date("2024-01-05")}}
	b := BuildBurndown(tasks)

	if len(b.Points) != 5 {
		t.Fatalf("points = %d, want 5", len(b.Points))
	}
	for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"} {
		p, ok := b.At(date(d))
		if !ok {
			t.Fatalf("%s missing from burndown", d)
		}
		if p.Remaining != 1.0 {
			t.Errorf("%s remaining = %v, want 1.0", d, p.Remaining)
		}
	}
	for _, d := range []string{"2023-12-31", "2024-01-06"} {
		if _, ok := b.At(date(d)); ok {
			t.Errorf("%s should be outside the range", d)
		}
	}

	wantIdeal := []float64{1, 0.75, 0.5, 0.25, 0}
	for i, p := range b.Points {
		if p.Ideal != wantIdeal[i] {
			t.Errorf("ideal[%d] = %v, want %v", i, p.Ideal, wantIdeal[i])
		}
	}
}

func TestBuildBurndown_ProgressAndEndDates(t *testing.T) {
	tasks := []model.Task{
		{ID: 1, StartDate: date("2024-01-01"), EndDate: date("2024-01-02"), Progress: 50},
		{ID: 2, StartDate: date("2024-01-01"), EndDate: date("2024-01-04")},
	}
	b := BuildBurndown(tasks)

	want := map[string]float64{
		"2024-01-01": 1.5,
		"2024-01-02": 1.5,
		"2024-01-03": 1.0,
		"2024-01-04": 1.0,
	}
	for d, remaining := range want {
		p, ok := b.At(date(d))
		if !ok {
			t.Fatalf("%s missing", d)
		}
		if p.Remaining != remaining {
			t.Errorf("%s remaining = %v, want %v", d, p.Remaining, remaining)
		}
	}
}

func TestBuildBurndown_Empty(t *testing.T) {
	if b := BuildBurndown(nil); len(b.Points) != 0 {
		t.Errorf("points = %d, want 0", len(b.Points))
	}
}

func TestBuildOverview(t *testing.T) {
	if o := BuildOverview(nil, date("2024-01-10")); o != (Overview{}) {
		t.Errorf("empty overview = %+v, want zeros", o)
	}

	tasks := []model.Task{
		{ID: 1, EndDate: date("2024-01-05"), Progress: 100},
		{ID: 2, EndDate: date("2024-01-05"), Progress: 50},
		{ID: 3, EndDate: date("2024-01-10"), Progress: 25},
	}
	o := BuildOverview(tasks, date("2024-01-10"))
	want := Overview{Total: 3, Completed: 1, Overdue: 1, AvgProgress: 58, ProgressRate: 33}
	if o != want {
		t.Errorf("overview = %+v, want %+v", o, want)
	}
}

func TestBuildGanttRows(t *testing.T) {
	alice := model.Member{ID: 1, Name: "Alice"}
	dev := model.Resource{ID: 1, Name: "Dev", Color: "#1f77b4"}
	tasks := []model.Task{
		{ID: 3, Name: "Launch", StartDate: date("2024-03-01"), EndDate: date("2024-03-04"), IsMilestone: true},
		{ID: 1, Name: "Design", StartDate: date("2024-01-01"), EndDate: date("2024-01-10"), ResourceID: &dev.ID, AssigneeID: &alice.ID},
		{ID: 2, Name: "Build", StartDate: date("2024-01-11"), EndDate: date("2024-02-20"), Progress: 40, AssigneeID: &alice.ID},
		{ID: 4, Name: "Docs", StartDate: date("2024-01-11"), EndDate: date("2024-01-20")},
	}
	edges := []model.TaskDependency{
		{PredecessorID: 1, SuccessorID: 2},
		{PredecessorID: 1, SuccessorID: 3},
		{PredecessorID: 2, SuccessorID: 3},
	}

	rows := BuildGanttRows(tasks, edges, []model.Member{alice}, []model.Resource{dev})
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}

	order := []uint{1, 2, 4, 3}
	for i, id := range order {
		if rows[i].TaskID != id {
			t.Fatalf("row %d task = %d, want %d", i, rows[i].TaskID, id)
		}
	}

	design := rows[0]
	if design.ResourceLabel != "Dev" || design.Color != "#1f77b4" {
		t.Errorf("design resource = %q/%q, want Dev/#1f77b4", design.ResourceLabel, design.Color)
	}
	if design.Kind != RowTask || design.DependencyLabel != "" {
		t.Errorf("design kind/deps = %s/%q", design.Kind, design.DependencyLabel)
	}

	build := rows[1]
	if build.ResourceLabel != "Alice" || build.Color != "" {
		t.Errorf("build resource = %q/%q, want assignee fallback", build.ResourceLabel, build.Color)
	}
	if build.PercentComplete != 40 || build.DependencyLabel != "Design" {
		t.Errorf("build = %+v", build)
	}

	if rows[2].ResourceLabel != UnassignedLabel {
		t.Errorf("docs resource = %q, want %q", rows[2].ResourceLabel, UnassignedLabel)
	}

	launch := rows[3]
	if launch.Kind != RowMilestone || launch.Label != MilestoneMarker+"Launch" {
		t.Errorf("launch kind/label = %s/%q", launch.Kind, launch.Label)
	}
	if !launch.End.Equal(date("2024-03-01")) {
		t.Errorf("milestone end = %v, want 2024-03-01", launch.End)
	}
	if launch.DependencyLabel != "Design, Build" {
		t.Errorf("launch deps = %q, want %q", launch.DependencyLabel, "Design, Build")
	}

	blocks := map[uint]string{1: "Build, Launch", 2: "Launch", 4: "", 3: ""}
	for _, r := range rows {
		if r.BlocksLabel != blocks[r.TaskID] {
			t.Errorf("task %d blocks = %q, want %q", r.TaskID, r.BlocksLabel, blocks[r.TaskID])
		}
	}
}

func TestBuildGanttRows_ColorFollowsResourceNotName(t *testing.T) {
	day1, day2 := model.Resource{ID: 1, Name: "Crew", Color: "#111111"}, model.Resource{ID: 2, Name: "Crew", Color: "#222222"}
	tasks := []model.Task{
		{ID: 1, Name: "Morning", StartDate: date("2024-01-01"), EndDate: date("2024-01-01"), ResourceID: &day1.ID},
		{ID: 2, Name: "Evening", StartDate: date("2024-01-02"), EndDate: date("2024-01-02"), ResourceID: &day2.ID},
	}
	rows := BuildGanttRows(tasks, nil, nil, []model.Resource{day1, day2})
	if rows[0].Color != "#111111" || rows[1].Color != "#222222" {
		t.Errorf("colors = %q, %q, want #111111, #222222", rows[0].Color, rows[1].Color)
	}
}

func TestBuildTree_RollsUpLeafProgress(t *testing.T) {
	tasks := []model.Task{
		{ID: 1, Name: "Phase", Progress: 0},
		{ID: 2, Name: "Spec", Progress: 100, ParentID: uintPtr(1)},
		{ID: 3, Name: "Code", Progress: 10, ParentID: uintPtr(1)},
		{ID: 4, Name: "Unit", Progress: 0, ParentID: uintPtr(3)},
		{ID: 5, Name: "Integration", Progress: 50, ParentID: uintPtr(3)},
		{ID: 6, Name: "Orphan", Progress: 30, ParentID: uintPtr(99)},
	}
	rows := BuildTree(tasks)

	want := []struct {
		id       uint
		depth    int
		progress int
	}{
		{1, 0, 50},
		{2, 1, 100},
		{3, 1, 25},
		{4, 2, 0},
		{5, 2, 50},
		{6, 0, 30},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(rows), len(want))
	}
	for i, w := range want {
		r := rows[i]
		if r.Task.ID != w.id || r.Depth != w.depth || r.Progress != w.progress {
			t.Errorf("row %d = {id %d depth %d progress %d}, want %+v", i, r.Task.ID, r.Depth, r.Progress, w)
		}
	}
}

func TestResourceColors_SkipsEmpty(t *testing.T) {
	colors := ResourceColors([]model.Resource{{Name: "Dev", Color: "#000000"}, {Name: "QA"}})
	if len(colors) != 1 || colors["Dev"] != "#000000" {
		t.Errorf("colors = %v", colors)
	}
}
