package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"gantt-tracker/internal/model"
	"gantt-tracker/internal/repository"
)

func newProjectServices(t *testing.T) (*ProjectService, *SessionService) {
	t.Helper()
	master, err := repository.NewMasterDB(memoryDSN(t), quietLogger())
	if err != nil {
		t.Fatalf("open master db: %v", err)
	}
	t.Cleanup(func() { _ = repository.Close(master) })

	projects := NewProjectService(repository.NewProjectRepository(master), t.TempDir(), quietLogger())
	t.Cleanup(func() { _ = projects.Close() })
	sessions := NewSessionService(repository.NewSessionRepository(master), projects)
	return projects, sessions
}

var (
	admin  = Actor{UserID: 1, Name: "root", Role: model.RoleAdmin}
	editor = Actor{UserID: 2, Name: "dev", Role: model.RoleEditor}
)

func TestProjectService_CreateIsAdminOnly(t *testing.T) {
	ctx := context.Background()
	projects, _ := newProjectServices(t)

	if _, err := projects.Create(ctx, editor, "Apollo"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("editor create err = %v, want ErrForbidden", err)
	}

	p, err := projects.Create(ctx, admin, "Apollo Moon")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if want := fmt.Sprintf("%d-apollo_moon.db", p.ID); filepath.Base(p.Path) != want {
		t.Errorf("path = %q, want %s", p.Path, want)
	}

	if _, err := projects.Create(ctx, admin, "Apollo Moon"); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate err = %v, want ErrConflict", err)
	}
	if _, err := projects.Create(ctx, admin, "../escape"); !errors.Is(err, ErrValidation) {
		t.Errorf("bad name err = %v, want ErrValidation", err)
	}

	list, err := projects.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Apollo Moon" {
		t.Errorf("projects = %+v", list)
	}
}

func TestProjectService_StoresAreIsolated(t *testing.T) {
	ctx := context.Background()
	projects, _ := newProjectServices(t)
	tasks := newTaskService(DefaultTaskOptions())

	for _, name := range []string{"alpha", "beta"} {
		if _, err := projects.Create(ctx, admin, name); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}
	alpha, err := projects.Scope(ctx, editor, "alpha")
	if err != nil {
		t.Fatalf("Scope alpha: %v", err)
	}
	beta, err := projects.Scope(ctx, editor, "beta")
	if err != nil {
		t.Fatalf("Scope beta: %v", err)
	}
	mustCreate(t, tasks, alpha, basicInput("only in alpha"))

	list, err := tasks.List(ctx, beta)
	if err != nil {
		t.Fatalf("List beta: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("beta sees %d tasks, want 0", len(list))
	}
	if _, err := projects.Scope(ctx, editor, "gamma"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown project err = %v, want ErrNotFound", err)
	}
}

func TestProjectService_SimilarNamesGetSeparateStores(t *testing.T) {
	ctx := context.Background()
	projects, _ := newProjectServices(t)
	tasks := newTaskService(DefaultTaskOptions())

	names := []string{"Alpha", "alpha", "a b", "a_b"}
	paths := make(map[string]string)
	for _, name := range names {
		p, err := projects.Create(ctx, admin, name)
		if err != nil {
			t.Fatalf("Create %q: %v", name, err)
		}
		if other, ok := paths[p.Path]; ok {
			t.Fatalf("%q and %q share %s", name, other, p.Path)
		}
		paths[p.Path] = name
	}

	upper, err := projects.Scope(ctx, editor, "Alpha")
	if err != nil {
		t.Fatalf("Scope Alpha: %v", err)
	}
	mustCreate(t, tasks, upper, basicInput("upper only"))

	for _, name := range names[1:] {
		scope, err := projects.Scope(ctx, editor, name)
		if err != nil {
			t.Fatalf("Scope %q: %v", name, err)
		}
		list, err := tasks.List(ctx, scope)
		if err != nil {
			t.Fatalf("List %q: %v", name, err)
		}
		if len(list) != 0 {
			t.Errorf("%q sees %d tasks, want 0", name, len(list))
		}
	}
}

func TestProjectService_CreateRollsBackWhenStoreFails(t *testing.T) {
	ctx := context.Background()
	master, err := repository.NewMasterDB(memoryDSN(t), quietLogger())
	if err != nil {
		t.Fatalf("open master db: %v", err)
	}
	t.Cleanup(func() { _ = repository.Close(master) })

	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("not a directory"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	projects := NewProjectService(repository.NewProjectRepository(master), blocker, quietLogger())
	t.Cleanup(func() { _ = projects.Close() })

	if _, err := projects.Create(ctx, admin, "Apollo"); err == nil {
		t.Fatal("Create succeeded without a usable project directory")
	}
	list, err := projects.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("projects = %+v, want none after failed create", list)
	}
	if _, err := projects.Scope(ctx, editor, "Apollo"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Scope err = %v, want ErrNotFound", err)
	}
}

func TestSessionService_SelectAndResolve(t *testing.T) {
	ctx := context.Background()
	projects, sessions := newProjectServices(t)

	if _, err := sessions.Resolve(ctx, editor); !errors.Is(err, ErrNoProject) {
		t.Fatalf("Resolve before select err = %v, want ErrNoProject", err)
	}
	if _, err := sessions.Select(ctx, editor, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Select missing err = %v, want ErrNotFound", err)
	}

	if _, err := projects.Create(ctx, admin, "alpha"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := sessions.Select(ctx, editor, "alpha"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	scope, err := sessions.Resolve(ctx, editor)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if scope.Project.Name != "alpha" || scope.Actor != editor || scope.Store == nil {
		t.Errorf("scope = %+v", scope)
	}

	selected, err := sessions.Selected(ctx)
	if err != nil {
		t.Fatalf("Selected: %v", err)
	}
	if len(selected) != 1 || selected[0].UserID != editor.UserID {
		t.Errorf("selected = %+v", selected)
	}
}
