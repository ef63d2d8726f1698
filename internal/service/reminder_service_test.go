package service

import (
	"context"
	"strings"
	"testing"

	"gantt-tracker/internal/model"
)

func TestReminderService_ProjectDigest(t *testing.T) {
	ctx := context.Background()
	scope := newScope(t, model.RoleViewer)
	editorScope := scope
	editorScope.Actor.Role = model.RoleEditor
	tasks := newTaskService(DefaultTaskOptions())

	late := TaskInput{Name: "Late <report>", StartDate: date("2024-01-01"), EndDate: date("2024-01-05")}
	soon := TaskInput{Name: "Review", StartDate: date("2024-01-08"), EndDate: date("2024-01-11")}
	later := TaskInput{Name: "Release", StartDate: date("2024-01-20"), EndDate: date("2024-01-25")}
	done := TaskInput{Name: "Kickoff", StartDate: date("2024-01-01"), EndDate: date("2024-01-02"), Progress: 100}
	gate := TaskInput{Name: "Gate", StartDate: date("2024-01-20"), IsMilestone: true}
	far := TaskInput{Name: "Audit", StartDate: date("2024-03-01"), IsMilestone: true}
	for _, in := range []TaskInput{late, soon, later, done, gate, far} {
		mustCreate(t, tasks, editorScope, in)
	}

	digest, err := NewReminderService(NewViewService(nil)).ProjectDigest(ctx, scope, date("2024-01-10"))
	if err != nil {
		t.Fatalf("ProjectDigest: %v", err)
	}

	for _, want := range []string{
		"<b>test</b>",
		"Tasks: 6 · done: 1 · overdue: 1",
		"Late &lt;report&gt;",
		"Review · due 2024-01-11",
	} {
		if !strings.Contains(digest, want) {
			t.Errorf("digest missing %q:\n%s", want, digest)
		}
	}
	for _, unwanted := range []string{"Release", "Kickoff", "Audit"} {
		if strings.Contains(digest, unwanted) {
			t.Errorf("digest should not mention %q:\n%s", unwanted, digest)
		}
	}

	overdueAt := strings.Index(digest, "Overdue</b>")
	dueAt := strings.Index(digest, "Due in the next 48h")
	if lateAt := strings.Index(digest, "Late"); lateAt < overdueAt || lateAt > dueAt {
		t.Errorf("late task is not listed under Overdue:\n%s", digest)
	}
	milestonesAt := strings.Index(digest, "Upcoming milestones")
	if reviewAt := strings.Index(digest, "Review"); reviewAt < dueAt || reviewAt > milestonesAt {
		t.Errorf("review task is not listed under due soon:\n%s", digest)
	}
	if gateAt := strings.Index(digest, MilestoneMarker+"Gate · due 2024-01-20"); gateAt < milestonesAt {
		t.Errorf("gate milestone is not listed under upcoming milestones:\n%s", digest)
	}
}

func TestReminderService_EmptyProject(t *testing.T) {
	scope := newScope(t, model.RoleViewer)
	digest, err := NewReminderService(NewViewService(nil)).ProjectDigest(context.Background(), scope, date("2024-01-10"))
	if err != nil {
		t.Fatalf("ProjectDigest: %v", err)
	}
	if !strings.Contains(digest, "nothing overdue") || !strings.Contains(digest, "nothing due") || !strings.Contains(digest, "none in the next two weeks") {
		t.Errorf("empty digest:\n%s", digest)
	}
}
