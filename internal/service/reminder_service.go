package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"gantt-tracker/internal/model"
)

// milestoneHorizon is how far ahead the digest looks for milestones.
const milestoneHorizon = 14 * 24 * time.Hour

// ReminderService builds the HTML digest sent to users about their current project.
type ReminderService struct {
	views *ViewService
}

func NewReminderService(views *ViewService) *ReminderService {
	return &ReminderService{views: views}
}

// ProjectDigest summarises metrics, overdue work, work due within 48 hours and
// milestones coming up after that.
func (s *ReminderService) ProjectDigest(ctx context.Context, scope Scope, now time.Time) (string, error) {
	tasks, err := s.views.Tasks(ctx, scope)
	if err != nil {
		return "", err
	}
	overview := BuildOverview(tasks, now)

	today := Day(now)
	soon := today.AddDate(0, 0, 2)
	horizon := today.Add(milestoneHorizon)
	var overdue, due, milestones []model.Task
	for _, t := range tasks {
		if t.Progress == 100 {
			continue
		}
		end := Day(t.EndDate)
		switch {
		case end.Before(today):
			overdue = append(overdue, t)
		case !end.After(soon):
			due = append(due, t)
		case t.IsMilestone && !end.After(horizon):
			milestones = append(milestones, t)
		}
	}
	byEnd := func(list []model.Task) {
		sort.SliceStable(list, func(i, j int) bool {
			if !list[i].EndDate.Equal(list[j].EndDate) {
				return list[i].EndDate.Before(list[j].EndDate)
			}
			return list[i].ID < list[j].ID
		})
	}
	byEnd(overdue)
	byEnd(due)
	byEnd(milestones)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>%s</b>\n", html.EscapeString(scope.Project.Name)))
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("2006-01-02")))
	builder.WriteString(fmt.Sprintf("Tasks: %d · done: %d · overdue: %d\n", overview.Total, overview.Completed, overview.Overdue))
	builder.WriteString(fmt.Sprintf("Average progress: %d%% · completion rate: %d%%\n\n", overview.AvgProgress, overview.ProgressRate))

	builder.WriteString("⚠️ <b>Overdue</b>\n")
	if len(overdue) == 0 {
		builder.WriteString("— nothing overdue\n")
	} else {
		for _, t := range overdue {
			builder.WriteString(formatDigestTask(t, today))
		}
	}

	builder.WriteString("\n⏳ <b>Due in the next 48h</b>\n")
	if len(due) == 0 {
		builder.WriteString("— nothing due\n")
	} else {
		for _, t := range due {
			builder.WriteString(formatDigestTask(t, today))
		}
	}

	builder.WriteString("\n◆ <b>Upcoming milestones</b>\n")
	if len(milestones) == 0 {
		builder.WriteString("— none in the next two weeks\n")
	} else {
		for _, t := range milestones {
			builder.WriteString(formatDigestTask(t, today))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func formatDigestTask(task model.Task, today time.Time) string {
	icon := "🟢"
	end := Day(task.EndDate)
	switch {
	case end.Before(today):
		icon = "⚠️"
	case !end.After(today.AddDate(0, 0, 2)):
		icon = "⏳"
	}
	name := html.EscapeString(strings.TrimSpace(task.Name))
	if task.IsMilestone {
		name = MilestoneMarker + name
	}
	return fmt.Sprintf("%s #%d %s · due %s · %d%%\n", icon, task.ID, name, end.Format("2006-01-02"), task.Progress)
}
