package bot

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"gantt-tracker/internal/export"
	"gantt-tracker/internal/model"
	"gantt-tracker/internal/service"
)

const maxMessageLen = 3800

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	actor, err := b.actor(ctx, msg.From)
	if err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	current := "none yet, see /projects"
	if scope, err := b.svc.Sessions.Resolve(ctx, actor); err == nil {
		current = "<b>" + escape(scope.Project.Name) + "</b>"
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I keep your project plans: tasks, dependencies, Gantt charts and burndown.</b>\n\n"+
			"Your role: %s\nCurrent project: %s\n\nSee /help for the command list.",
		escape(name), actor.Role, current,
	)
	if roleAtLeast(actor, model.RoleAdmin) {
		text += "\nAs an admin you can /newproject and change roles with /role."
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"<b>Projects</b>\n" +
		"• /projects — list projects\n" +
		"• /use &lt;name&gt; — switch the current project\n" +
		"• /newproject &lt;name&gt; — create a project (admin)\n" +
		"<b>Tasks</b>\n" +
		"• /tasks — Gantt view of the current project\n" +
		"• /tree — parent/child tree with rolled-up progress\n" +
		"• /newtask — add a task step by step\n" +
		"• /edit &lt;id&gt; key=value… — change fields: name, start, end, progress, remarks, milestone, parent, assignee, resource, after\n" +
		"• /progress &lt;id&gt; &lt;0-100&gt; — update progress\n" +
		"• /delete &lt;id&gt; — delete a task\n" +
		"• /link &lt;pred&gt; &lt;succ&gt;, /unlink &lt;pred&gt; &lt;succ&gt; — manage dependencies\n" +
		"<b>Views</b>\n" +
		"• /burndown, /overview, /report, /export\n" +
		"<b>Team</b>\n" +
		"• /members, /addmember &lt;name&gt;, /delmember &lt;id&gt;\n" +
		"• /resources, /addresource &lt;name&gt; role=… color=#rrggbb utilization=…, /delresource &lt;id&gt;\n" +
		"• /role [&lt;telegram_id&gt; &lt;viewer|editor|admin&gt;]\n" +
		"• /cancel — cancel the current input"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleProjects(ctx context.Context, msg *tgbotapi.Message) error {
	actor, err := b.actor(ctx, msg.From)
	if err != nil {
		return err
	}
	projects, err := b.svc.Projects.List(ctx)
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	if len(projects) == 0 {
		if roleAtLeast(actor, model.RoleAdmin) {
			return b.sendText(msg.Chat.ID, "No projects yet. Create one with /newproject &lt;name&gt;.")
		}
		return b.sendText(msg.Chat.ID, "No projects yet. Ask an admin to create one.")
	}
	current := ""
	if scope, err := b.svc.Sessions.Resolve(ctx, actor); err == nil {
		current = scope.Project.Name
	}

	var builder strings.Builder
	builder.WriteString("📁 <b>Projects</b>\n")
	for _, p := range projects {
		marker := "•"
		if p.Name == current {
			marker = "▶"
		}
		builder.WriteString(fmt.Sprintf("%s %s\n", marker, escape(p.Name)))
	}
	builder.WriteString("\nSwitch with /use &lt;name&gt;.")
	return b.sendText(msg.Chat.ID, builder.String())
}

func (b *Bot) handleUse(ctx context.Context, msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		return b.sendText(msg.Chat.ID, "Name the project: /use Apollo")
	}
	actor, err := b.actor(ctx, msg.From)
	if err != nil {
		return err
	}
	project, err := b.svc.Sessions.Select(ctx, actor, name)
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("▶ Current project: <b>%s</b>", escape(project.Name)))
}

func (b *Bot) handleNewProject(ctx context.Context, msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		return b.sendText(msg.Chat.ID, "Name the project: /newproject Apollo")
	}
	actor, err := b.actor(ctx, msg.From)
	if err != nil {
		return err
	}
	project, err := b.svc.Projects.Create(ctx, actor, name)
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	if _, err := b.svc.Sessions.Select(ctx, actor, project.Name); err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Project <b>%s</b> created and selected.", escape(project.Name)))
}

func (b *Bot) handleTasks(ctx context.Context, msg *tgbotapi.Message) error {
	scope, ok, err := b.scope(ctx, msg.Chat.ID, msg.From)
	if !ok {
		return err
	}
	return b.sendTaskList(ctx, msg.Chat.ID, scope)
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, scope service.Scope) error {
	rows, err := b.svc.Views.GanttRows(ctx, scope)
	if err != nil {
		return b.replyError(ctx, chatID, err)
	}
	if len(rows) == 0 {
		return b.sendText(chatID, fmt.Sprintf("<b>%s</b> has no tasks yet. Add one with /newtask.", escape(scope.Project.Name)))
	}

	today := service.Day(b.now())
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📊 <b>%s</b>\n\n", escape(scope.Project.Name)))

	var buttons [][]tgbotapi.InlineKeyboardButton
	canEdit := roleAtLeast(scope.Actor, model.RoleEditor)
	for i, row := range rows {
		line := formatGanttRow(row, today)
		if builder.Len()+len(line) > maxMessageLen {
			builder.WriteString(fmt.Sprintf("… and %d more, see /export", len(rows)-i))
			break
		}
		builder.WriteString(line)
		if canEdit && row.PercentComplete < 100 && len(buttons) < 20 {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ #%d · %s", row.TaskID, shortTitle(row.Label, 20)), fmt.Sprintf("%s%d", cbCompletePrefix, row.TaskID)),
				tgbotapi.NewInlineKeyboardButtonData("🗑", fmt.Sprintf("%s%d", cbDeletePrefix, row.TaskID)),
			))
		}
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	if len(buttons) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	}
	_, err = b.out.Send(msg)
	return err
}

func (b *Bot) handleTree(ctx context.Context, msg *tgbotapi.Message) error {
	scope, ok, err := b.scope(ctx, msg.Chat.ID, msg.From)
	if !ok {
		return err
	}
	rows, err := b.svc.Views.Tree(ctx, scope)
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	if len(rows) == 0 {
		return b.sendText(msg.Chat.ID, "No tasks yet. Add one with /newtask.")
	}
	return b.sendText(msg.Chat.ID, formatTree(scope.Project.Name, rows))
}

func (b *Bot) handleEdit(ctx context.Context, msg *tgbotapi.Message) error {
	idRaw, rest, _ := strings.Cut(strings.TrimSpace(msg.CommandArguments()), " ")
	taskID, err := parseID(idRaw)
	if err != nil || strings.TrimSpace(rest) == "" {
		return b.sendText(msg.Chat.ID, "Usage: /edit &lt;id&gt; key=value…, for example /edit 3 progress=50 end=2024-03-01")
	}
	fields, err := parseFields(rest, "", editKeys)
	if err != nil {
		return b.sendText(msg.Chat.ID, "⚠️ "+escape(err.Error()))
	}

	scope, ok, err := b.scope(ctx, msg.Chat.ID, msg.From)
	if !ok {
		return err
	}
	task, err := b.svc.Tasks.Get(ctx, scope, taskID)
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	input := service.InputFromTask(*task)
	if err := applyEdits(&input, fields); err != nil {
		return b.sendText(msg.Chat.ID, "⚠️ "+escape(err.Error()))
	}
	updated, err := b.svc.Tasks.UpdateTask(ctx, scope, taskID, input)
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	loggerFrom(ctx).WithFields(logrus.Fields{"project": scope.Project.Name, "task_id": taskID}).Info("task edited")
	return b.sendText(msg.Chat.ID, formatTaskSummary("✏️ <b>Task updated</b>", *updated))
}

func (b *Bot) handleProgress(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return b.sendText(msg.Chat.ID, "Usage: /progress &lt;id&gt; &lt;0-100&gt;")
	}
	taskID, err := parseID(args[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, "Task id must be a number.")
	}
	progress, err := strconv.Atoi(strings.TrimSuffix(args[1], "%"))
	if err != nil {
		return b.sendText(msg.Chat.ID, "Progress must be a number from 0 to 100.")
	}
	scope, ok, err := b.scope(ctx, msg.Chat.ID, msg.From)
	if !ok {
		return err
	}
	task, err := b.svc.Tasks.SetProgress(ctx, scope, taskID, progress)
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("📈 #%d %s is at %d%%.", task.ID, escape(task.Name), task.Progress))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /delete 12")
	}
	return b.askDeleteConfirmation(ctx, msg.Chat.ID, msg.From, taskID)
}

func (b *Bot) handleLink(ctx context.Context, msg *tgbotapi.Message, link bool) error {
	args := strings.Fields(msg.CommandArguments())
	usage := "Usage: /link &lt;predecessor id&gt; &lt;successor id&gt;"
	if !link {
		usage = "Usage: /unlink &lt;predecessor id&gt; &lt;successor id&gt;"
	}
	if len(args) != 2 {
		return b.sendText(msg.Chat.ID, usage)
	}
	pred, err1 := parseID(args[0])
	succ, err2 := parseID(args[1])
	if err1 != nil || err2 != nil {
		return b.sendText(msg.Chat.ID, usage)
	}
	scope, ok, err := b.scope(ctx, msg.Chat.ID, msg.From)
	if !ok {
		return err
	}
	if link {
		err = b.svc.Tasks.AddDependency(ctx, scope, pred, succ)
	} else {
		err = b.svc.Tasks.RemoveDependency(ctx, scope, pred, succ)
	}
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	if link {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("⛓ #%d now waits for #%d.", succ, pred))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✂️ #%d no longer waits for #%d.", succ, pred))
}

func (b *Bot) handleBurndown(ctx context.Context, msg *tgbotapi.Message) error {
	scope, ok, err := b.scope(ctx, msg.Chat.ID, msg.From)
	if !ok {
		return err
	}
	burndown, err := b.svc.Views.Burndown(ctx, scope)
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	if len(burndown.Points) == 0 {
		return b.sendText(msg.Chat.ID, "No tasks yet, nothing to burn down.")
	}
	return b.sendText(msg.Chat.ID, formatBurndown(scope.Project.Name, burndown, b.now()))
}

func (b *Bot) handleOverview(ctx context.Context, msg *tgbotapi.Message) error {
	scope, ok, err := b.scope(ctx, msg.Chat.ID, msg.From)
	if !ok {
		return err
	}
	overview, err := b.svc.Views.Overview(ctx, scope, b.now())
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, formatOverview(scope.Project.Name, overview))
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	scope, ok, err := b.scope(ctx, msg.Chat.ID, msg.From)
	if !ok {
		return err
	}
	text, err := b.svc.Reminders.ProjectDigest(ctx, scope, b.now())
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleExport(ctx context.Context, msg *tgbotapi.Message) error {
	scope, ok, err := b.scope(ctx, msg.Chat.ID, msg.From)
	if !ok {
		return err
	}
	rows, err := b.svc.Views.GanttRows(ctx, scope)
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	burndown, err := b.svc.Views.Burndown(ctx, scope)
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	legend, err := b.svc.Views.ResourceColors(ctx, scope)
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, rows, burndown, legend); err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{
		Name:  exportFileName(scope.Project.Name, b.now()),
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("%s · %d tasks", scope.Project.Name, len(rows))
	_, err = b.out.Send(doc)
	return err
}

func (b *Bot) handleMembers(ctx context.Context, msg *tgbotapi.Message) error {
	scope, ok, err := b.scope(ctx, msg.Chat.ID, msg.From)
	if !ok {
		return err
	}
	members, err := b.svc.Members.List(ctx, scope)
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	if len(members) == 0 {
		return b.sendText(msg.Chat.ID, "No members yet. Add one with /addmember &lt;name&gt;.")
	}
	var builder strings.Builder
	builder.WriteString("👥 <b>Members</b>\n")
	for _, m := range members {
		builder.WriteString(fmt.Sprintf("• #%d %s\n", m.ID, escape(m.Name)))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleAddMember(ctx context.Context, msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		return b.sendText(msg.Chat.ID, "Usage: /addmember Alice")
	}
	scope, ok, err := b.scope(ctx, msg.Chat.ID, msg.From)
	if !ok {
		return err
	}
	member, err := b.svc.Members.Create(ctx, scope, name)
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Member #%d %s added.", member.ID, escape(member.Name)))
}

func (b *Bot) handleDeleteMember(ctx context.Context, msg *tgbotapi.Message) error {
	id, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /delmember &lt;id&gt;")
	}
	scope, ok, err := b.scope(ctx, msg.Chat.ID, msg.From)
	if !ok {
		return err
	}
	cleared, err := b.svc.Members.Delete(ctx, scope, id)
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Member #%d removed, %d task(s) unassigned.", id, cleared))
}

func (b *Bot) handleResources(ctx context.Context, msg *tgbotapi.Message) error {
	scope, ok, err := b.scope(ctx, msg.Chat.ID, msg.From)
	if !ok {
		return err
	}
	resources, err := b.svc.Resources.List(ctx, scope)
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	if len(resources) == 0 {
		return b.sendText(msg.Chat.ID, "No resources yet. Add one with /addresource &lt;name&gt;.")
	}
	var builder strings.Builder
	builder.WriteString("🧰 <b>Resources</b>\n")
	for _, r := range resources {
		builder.WriteString(fmt.Sprintf("• #%d %s", r.ID, escape(r.Name)))
		if r.Role != "" {
			builder.WriteString(" · " + escape(r.Role))
		}
		if r.Color != "" {
			builder.WriteString(" · " + escape(r.Color))
		}
		builder.WriteString(fmt.Sprintf(" · %d%%\n", r.Utilization))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleAddResource(ctx context.Context, msg *tgbotapi.Message) error {
	fields, err := parseFields(msg.CommandArguments(), "name", resourceKeys)
	if err != nil || fields["name"] == "" {
		return b.sendText(msg.Chat.ID, "Usage: /addresource Backend role=dev color=#1f77b4 utilization=80")
	}
	input := service.ResourceInput{Name: fields["name"], Role: fields["role"], Color: fields["color"]}
	if raw, ok := fields["utilization"]; ok {
		value, err := strconv.Atoi(strings.TrimSuffix(raw, "%"))
		if err != nil {
			return b.sendText(msg.Chat.ID, "Utilization must be a number from 0 to 100.")
		}
		input.Utilization = &value
	}
	scope, ok, err := b.scope(ctx, msg.Chat.ID, msg.From)
	if !ok {
		return err
	}
	resource, err := b.svc.Resources.Create(ctx, scope, input)
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Resource #%d %s added.", resource.ID, escape(resource.Name)))
}

func (b *Bot) handleDeleteResource(ctx context.Context, msg *tgbotapi.Message) error {
	id, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /delresource &lt;id&gt;")
	}
	scope, ok, err := b.scope(ctx, msg.Chat.ID, msg.From)
	if !ok {
		return err
	}
	cleared, err := b.svc.Resources.Delete(ctx, scope, id)
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Resource #%d removed, %d task(s) released.", id, cleared))
}

func (b *Bot) handleRole(ctx context.Context, msg *tgbotapi.Message) error {
	actor, err := b.actor(ctx, msg.From)
	if err != nil {
		return err
	}
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Your role: <b>%s</b>. Your Telegram id: <code>%d</code>.", actor.Role, msg.From.ID))
	}
	if len(args) != 2 {
		return b.sendText(msg.Chat.ID, "Usage: /role &lt;telegram_id&gt; &lt;viewer|editor|admin&gt;")
	}
	telegramID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Telegram id must be a number.")
	}
	role, err := model.ParseRole(args[1])
	if err != nil {
		return b.sendText(msg.Chat.ID, "⚠️ "+escape(err.Error()))
	}
	user, err := b.svc.Users.SetRole(ctx, actor, telegramID, role)
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	loggerFrom(ctx).WithFields(logrus.Fields{"actor": actor.Name, "target": telegramID, "role": role}).Info("role changed")
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ %s is now %s.", escape(displayName(user)), role))
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		b.metrics.Command("newtask")
		return true, b.startNewTaskConversation(ctx, msg)
	case strings.ToLower(menuLabelTasks):
		b.metrics.Command("tasks")
		return true, b.handleTasks(ctx, msg)
	case strings.ToLower(menuLabelTree):
		b.metrics.Command("tree")
		return true, b.handleTree(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		b.metrics.Command("help")
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func displayName(u *model.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return strconv.FormatInt(u.TelegramID, 10)
	}
	return name
}
