package bot

import (
	"fmt"
	"strings"
	"time"

	"gantt-tracker/internal/model"
	"gantt-tracker/internal/service"
)

const (
	dateLayout  = "2006-01-02"
	iconDefault = "🟢"
	iconDue     = "⏳"
	iconOverdue = "⚠️"
	iconDone    = "✅"
)

// statusIcon follows the digest: overdue, due within 48h, done or on track.
func statusIcon(percent int, end, today time.Time) string {
	end = service.Day(end)
	switch {
	case percent == 100:
		return iconDone
	case end.Before(today):
		return iconOverdue
	case !end.After(today.AddDate(0, 0, 2)):
		return iconDue
	default:
		return iconDefault
	}
}

func formatGanttRow(row service.GanttRow, today time.Time) string {
	var b strings.Builder
	indent := strings.Repeat("   ", row.Depth)
	b.WriteString(fmt.Sprintf("%s%s <b>#%d</b> %s\n", indent, statusIcon(row.PercentComplete, row.End, today), row.TaskID, escape(row.Label)))
	if row.Kind == service.RowMilestone {
		b.WriteString(fmt.Sprintf("%s   📅 %s", indent, row.Start.Format(dateLayout)))
	} else {
		b.WriteString(fmt.Sprintf("%s   📅 %s → %s", indent, row.Start.Format(dateLayout), row.End.Format(dateLayout)))
	}
	b.WriteString(fmt.Sprintf(" · %d%% · %s\n", row.PercentComplete, escape(row.ResourceLabel)))
	if row.DependencyLabel != "" {
		b.WriteString(fmt.Sprintf("%s   ⛓ after %s\n", indent, escape(row.DependencyLabel)))
	}
	if row.BlocksLabel != "" {
		b.WriteString(fmt.Sprintf("%s   🚧 blocks %s\n", indent, escape(row.BlocksLabel)))
	}
	return b.String()
}

func formatTree(project string, rows []service.TreeRow) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🌳 <b>%s</b>\n", escape(project)))
	for _, r := range rows {
		name := r.Task.Name
		if r.Task.IsMilestone {
			name = service.MilestoneMarker + name
		}
		b.WriteString(fmt.Sprintf("%s• #%d %s · %d%%\n", strings.Repeat("   ", r.Depth), r.Task.ID, escape(name), r.Progress))
	}
	return strings.TrimSpace(b.String())
}

func formatBurndown(project string, burndown service.Burndown, today time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📉 <b>%s</b> burndown\n", escape(project)))
	if p, ok := burndown.At(today); ok {
		b.WriteString(fmt.Sprintf("Today: %.2f remaining, ideal %.2f\n", p.Remaining, p.Ideal))
	}
	b.WriteString("<pre>")
	b.WriteString(fmt.Sprintf("%-10s %9s %6s\n", "date", "remaining", "ideal"))
	for _, p := range burndown.Points {
		b.WriteString(fmt.Sprintf("%-10s %9.2f %6.2f\n", p.Date.Format(dateLayout), p.Remaining, p.Ideal))
		if b.Len() > maxMessageLen {
			b.WriteString("…\n")
			break
		}
	}
	b.WriteString("</pre>")
	return b.String()
}

func formatOverview(project string, o service.Overview) string {
	return fmt.Sprintf("📋 <b>%s</b>\n"+
		"Tasks: %d\n"+
		"Done: %d\n"+
		"Overdue: %d\n"+
		"Average progress: %d%%\n"+
		"Completion rate: %d%%",
		escape(project), o.Total, o.Completed, o.Overdue, o.AvgProgress, o.ProgressRate)
}

func formatTaskSummary(title string, task model.Task) string {
	var b strings.Builder
	b.WriteString(title + "\n")
	b.WriteString(fmt.Sprintf("• <b>ID:</b> %d\n", task.ID))
	name := task.Name
	if task.IsMilestone {
		name = service.MilestoneMarker + name
	}
	b.WriteString(fmt.Sprintf("• <b>Name:</b> %s\n", escape(name)))
	if task.IsMilestone {
		b.WriteString(fmt.Sprintf("• <b>Date:</b> %s\n", task.StartDate.Format(dateLayout)))
	} else {
		b.WriteString(fmt.Sprintf("• <b>Dates:</b> %s → %s\n", task.StartDate.Format(dateLayout), task.EndDate.Format(dateLayout)))
	}
	b.WriteString(fmt.Sprintf("• <b>Progress:</b> %d%%\n", task.Progress))
	if task.ParentID != nil {
		b.WriteString(fmt.Sprintf("• <b>Parent:</b> #%d\n", *task.ParentID))
	}
	if task.Remarks != "" {
		b.WriteString(fmt.Sprintf("• <b>Remarks:</b> %s\n", escape(task.Remarks)))
	}
	return strings.TrimSpace(b.String())
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func exportFileName(project string, now time.Time) string {
	slug := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', '.':
			return '_'
		}
		return r
	}, strings.ToLower(strings.TrimSpace(project)))
	return fmt.Sprintf("%s-%s.xlsx", slug, now.Format(dateLayout))
}
