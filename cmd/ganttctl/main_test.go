package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"gantt-tracker/internal/service"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("MASTER_DATABASE_URL", filepath.Join(dir, "master.db"))
	t.Setenv("PROJECTS_DIR", filepath.Join(dir, "projects"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("GANTT_PROJECT", "")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, a := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	a.close()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("ganttctl %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestGanttctl_TaskLifecycle(t *testing.T) {
	dir := setupEnv(t)

	mustRun(t, "project", "create", "Apollo")
	if out := mustRun(t, "project", "list"); !strings.Contains(out, "Apollo") {
		t.Errorf("project list = %q", out)
	}

	mustRun(t, "-p", "Apollo", "resource", "add", "Dev", "--color", "#1f77b4")
	mustRun(t, "-p", "Apollo", "task", "add", "--name", "Design", "--start", "2024-01-01", "--end", "2024-01-05", "--resource", "1")
	mustRun(t, "-p", "Apollo", "task", "add", "--name", "Launch", "--start", "2024-01-08", "--milestone", "--after", "1")
	mustRun(t, "-p", "Apollo", "task", "update", "1", "--progress", "50")

	var rows []service.GanttRow
	if err := yaml.Unmarshal([]byte(mustRun(t, "-p", "Apollo", "gantt", "-o", "yaml")), &rows); err != nil {
		t.Fatalf("decode gantt yaml: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Label != "Design" || rows[0].PercentComplete != 50 || rows[0].ResourceLabel != "Dev" || rows[0].Color != "#1f77b4" {
		t.Errorf("design row = %+v", rows[0])
	}
	if rows[1].Kind != service.RowMilestone || rows[1].DependencyLabel != "Design" || !rows[1].End.Equal(rows[1].Start) {
		t.Errorf("launch row = %+v", rows[1])
	}

	if out := mustRun(t, "-p", "Apollo", "overview", "--today", "2024-01-10"); !strings.Contains(out, "overdue:         2") {
		t.Errorf("overview = %q", out)
	}

	if _, err := run(t, "-p", "Apollo", "task", "link", "2", "1"); !errors.Is(err, service.ErrInvalidEdge) {
		t.Errorf("cyclic link err = %v, want ErrInvalidEdge", err)
	}

	file := filepath.Join(dir, "apollo.xlsx")
	mustRun(t, "-p", "Apollo", "export", "-f", file)
	if info, err := os.Stat(file); err != nil || info.Size() == 0 {
		t.Errorf("export file: %v", err)
	}

	mustRun(t, "-p", "Apollo", "task", "delete", "1")
	out := mustRun(t, "-p", "Apollo", "task", "list")
	if strings.Contains(out, "Design") || !strings.Contains(out, "Launch") {
		t.Errorf("task list after delete = %q", out)
	}
}

func TestGanttctl_Errors(t *testing.T) {
	setupEnv(t)

	if _, err := run(t, "task", "list"); err == nil || !strings.Contains(err.Error(), "no project") {
		t.Errorf("missing project err = %v", err)
	}
	if _, err := run(t, "-p", "nope", "task", "list"); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("unknown project err = %v, want ErrNotFound", err)
	}
	if _, err := run(t, "-o", "xml", "project", "list"); err == nil {
		t.Error("unknown output format should fail")
	}

	mustRun(t, "project", "create", "Apollo")
	if _, err := run(t, "project", "create", "Apollo"); !errors.Is(err, service.ErrConflict) {
		t.Errorf("duplicate project err = %v, want ErrConflict", err)
	}
	if _, err := run(t, "-p", "Apollo", "task", "add", "--name", "Bad", "--start", "2024-01-05", "--end", "2024-01-01"); !errors.Is(err, service.ErrValidation) {
		t.Errorf("end before start err = %v, want ErrValidation", err)
	}
}

func TestGanttctl_ListInDependencyOrder(t *testing.T) {
	setupEnv(t)
	mustRun(t, "project", "create", "Apollo")
	for _, name := range []string{"Ship", "Build", "Plan"} {
		mustRun(t, "-p", "Apollo", "task", "add", "--name", name, "--start", "2024-01-01", "--end", "2024-01-05")
	}
	mustRun(t, "-p", "Apollo", "task", "link", "3", "2")
	mustRun(t, "-p", "Apollo", "task", "link", "2", "1")

	var listed []taskOut
	if err := yaml.Unmarshal([]byte(mustRun(t, "-p", "Apollo", "task", "list", "--order", "deps", "-o", "yaml")), &listed); err != nil {
		t.Fatalf("decode task list: %v", err)
	}
	var names []string
	for _, task := range listed {
		names = append(names, task.Name)
	}
	if strings.Join(names, ",") != "Plan,Build,Ship" {
		t.Errorf("order = %v, want Plan,Build,Ship", names)
	}

	if _, err := run(t, "-p", "Apollo", "task", "list", "--order", "name"); err == nil {
		t.Error("unknown order should fail")
	}
}
