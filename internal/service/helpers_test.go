package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"gantt-tracker/internal/model"
	"gantt-tracker/internal/repository"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func memoryDSN(t *testing.T) string {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return "file:" + name + "?mode=memory&cache=shared"
}

func newScope(t *testing.T, role model.Role) Scope {
	t.Helper()
	db, err := repository.NewProjectDB(memoryDSN(t), quietLogger())
	if err != nil {
		t.Fatalf("open project db: %v", err)
	}
	t.Cleanup(func() { _ = repository.Close(db) })
	return Scope{
		Project: model.Project{Name: "test"},
		Store:   repository.NewStore(db),
		Actor:   Actor{UserID: 1, Name: "tester", Role: role},
	}
}

func newTaskService(opts TaskOptions) *TaskService {
	return NewTaskService(opts, quietLogger(), nil)
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func mustCreate(t *testing.T, svc *TaskService, scope Scope, input TaskInput) *model.Task {
	t.Helper()
	task, err := svc.CreateTask(context.Background(), scope, input)
	if err != nil {
		t.Fatalf("CreateTask(%s): %v", input.Name, err)
	}
	return task
}

func basicInput(name string) TaskInput {
	return TaskInput{Name: name, StartDate: date("2024-01-01"), EndDate: date("2024-01-05")}
}

func uintPtr(v uint) *uint { return &v }
