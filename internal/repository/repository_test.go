package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"gantt-tracker/internal/model"
)

func memoryDSN(t *testing.T) string {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return "file:" + name + "?mode=memory&cache=shared"
}

func setupProjectStore(t *testing.T) *Store {
	t.Helper()
	db, err := NewProjectDB(memoryDSN(t), logrus.New())
	if err != nil {
		t.Fatalf("open project db: %v", err)
	}
	t.Cleanup(func() {
		if err := Close(db); err != nil {
			t.Logf("close db: %v", err)
		}
	})
	return NewStore(db)
}

func insertTask(t *testing.T, s *Store, name string) *model.Task {
	t.Helper()
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	task := &model.Task{Name: name, StartDate: day, EndDate: day.AddDate(0, 0, 2)}
	if err := s.Tasks.Create(context.Background(), task); err != nil {
		t.Fatalf("create task %s: %v", name, err)
	}
	return task
}

func TestTaskRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	s := setupProjectStore(t)

	task := insertTask(t, s, "Design")
	got, err := s.Tasks.FindByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Name != "Design" {
		t.Errorf("Name = %q", got.Name)
	}

	before := got.UpdatedAt
	time.Sleep(5 * time.Millisecond)
	got.Progress = 40
	if err := s.Tasks.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	after, _ := s.Tasks.FindByID(ctx, task.ID)
	if after.Progress != 40 || !after.UpdatedAt.After(before) {
		t.Errorf("Save did not apply: %+v", after)
	}

	if err := s.Tasks.Delete(ctx, task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Tasks.Delete(ctx, task.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("second Delete err = %v, want ErrRecordNotFound", err)
	}
}

func TestDependencyRepository_UniquePair(t *testing.T) {
	ctx := context.Background()
	s := setupProjectStore(t)
	a := insertTask(t, s, "A")
	b := insertTask(t, s, "B")

	if err := s.Dependencies.Add(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Dependencies.Add(ctx, a.ID, b.ID); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("duplicate Add err = %v, want ErrDuplicatedKey", err)
	}
}

func TestDependencyRepository_ReplaceAndDelete(t *testing.T) {
	ctx := context.Background()
	s := setupProjectStore(t)
	a := insertTask(t, s, "A")
	b := insertTask(t, s, "B")
	c := insertTask(t, s, "C")

	if err := s.Dependencies.ReplaceForSuccessor(ctx, c.ID, []uint{a.ID, b.ID}); err != nil {
		t.Fatalf("ReplaceForSuccessor: %v", err)
	}
	if err := s.Dependencies.ReplaceForSuccessor(ctx, c.ID, []uint{a.ID, b.ID}); err != nil {
		t.Fatalf("ReplaceForSuccessor again: %v", err)
	}
	edges, err := s.Dependencies.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("got %d edges, want 2", len(edges))
	}

	if err := s.Dependencies.Add(ctx, c.ID, a.ID); err != nil {
		t.Fatalf("Add: %v", err)
	}
	n, err := s.Dependencies.DeleteForTask(ctx, a.ID)
	if err != nil {
		t.Fatalf("DeleteForTask: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d edges, want 2", n)
	}
	left, err := s.Dependencies.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, e := range left {
		if e.PredecessorID == a.ID || e.SuccessorID == a.ID {
			t.Errorf("edge still references task: %+v", e)
		}
	}
}

func TestTaskRepository_ClearReferences(t *testing.T) {
	ctx := context.Background()
	s := setupProjectStore(t)

	member := &model.Member{Name: "Alice"}
	if err := s.Members.Create(ctx, member); err != nil {
		t.Fatalf("create member: %v", err)
	}
	task := insertTask(t, s, "A")
	task.AssigneeID = &member.ID
	if err := s.Tasks.Save(ctx, task); err != nil {
		t.Fatalf("Save: %v", err)
	}

	n, err := s.Tasks.ClearAssignee(ctx, member.ID)
	if err != nil || n != 1 {
		t.Fatalf("ClearAssignee = %d, %v", n, err)
	}
	got, _ := s.Tasks.FindByID(ctx, task.ID)
	if got.AssigneeID != nil {
		t.Errorf("assignee not cleared: %v", *got.AssigneeID)
	}
}

func TestTransaction_RollsBack(t *testing.T) {
	ctx := context.Background()
	s := setupProjectStore(t)
	task := insertTask(t, s, "A")

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx *Store) error {
		if err := tx.Tasks.Delete(ctx, task.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction err = %v", err)
	}
	if _, err := s.Tasks.FindByID(ctx, task.ID); err != nil {
		t.Errorf("task should survive rollback: %v", err)
	}
}

func TestSessionRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	db, err := NewMasterDB(memoryDSN(t), logrus.New())
	if err != nil {
		t.Fatalf("open master db: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	sessions := NewSessionRepository(db)

	name, err := sessions.Get(ctx, 1)
	if err != nil || name != "" {
		t.Fatalf("Get unset = %q, %v", name, err)
	}
	if err := sessions.Set(ctx, 1, "alpha"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := sessions.Set(ctx, 1, "beta"); err != nil {
		t.Fatalf("Set again: %v", err)
	}
	name, _ = sessions.Get(ctx, 1)
	if name != "beta" {
		t.Errorf("Get = %q, want beta", name)
	}
}

func TestUserRepository_UpsertRaisesRole(t *testing.T) {
	ctx := context.Background()
	db, err := NewMasterDB(memoryDSN(t), logrus.New())
	if err != nil {
		t.Fatalf("open master db: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	users := NewUserRepository(db)

	u, err := users.UpsertFromTelegram(ctx, 10, "Ann", "", "ann", model.RoleViewer)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if u.Role != model.RoleViewer {
		t.Errorf("new user role = %v", u.Role)
	}
	u, _ = users.UpsertFromTelegram(ctx, 10, "Ann", "", "ann", model.RoleAdmin)
	if u.Role != model.RoleAdmin {
		t.Errorf("role not raised: %v", u.Role)
	}
	u, _ = users.UpsertFromTelegram(ctx, 10, "Ann", "", "ann", model.RoleViewer)
	if u.Role != model.RoleAdmin {
		t.Errorf("role lowered by upsert: %v", u.Role)
	}
}
