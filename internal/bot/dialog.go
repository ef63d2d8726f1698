package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"gantt-tracker/internal/model"
	"gantt-tracker/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageName
	stageStart
	stageMilestone
	stageEnd
	stageProgress
	stagePredecessors
	stageParent
)

type conversationState struct {
	project string
	stage   conversationStage
	input   service.TaskInput
}

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	scope, ok, err := b.scope(ctx, msg.Chat.ID, msg.From)
	if !ok {
		return err
	}
	if !roleAtLeast(scope.Actor, model.RoleEditor) {
		return b.replyError(ctx, msg.Chat.ID, service.Authorize(scope.Actor, model.RoleEditor))
	}
	loggerFrom(ctx).WithField("project", scope.Project.Name).Info("start new task conversation")
	b.setConversation(msg.From.ID, &conversationState{project: scope.Project.Name, stage: stageName})
	return b.sendWithReplyMarkup(msg.Chat.ID,
		fmt.Sprintf("🆕 New task in <b>%s</b>.\n<b>Step 1:</b> what is it called?", escape(scope.Project.Name)),
		cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	text := strings.TrimSpace(msg.Text)
	chatID := msg.Chat.ID

	switch state.stage {
	case stageName:
		if text == "" {
			return b.sendWithReplyMarkup(chatID, "The name cannot be empty.", cancelKeyboard())
		}
		state.input.Name = text
		state.stage = stageStart
		return b.sendWithReplyMarkup(chatID, "📅 Start date, e.g. <code>2024-03-01</code>.", cancelKeyboard())
	case stageStart:
		start, err := service.ParseDate(text)
		if err != nil {
			return b.sendWithReplyMarkup(chatID, "Cannot read that date. Use <code>2024-03-01</code>.", cancelKeyboard())
		}
		state.input.StartDate = start
		state.stage = stageMilestone
		return b.sendWithReplyMarkup(chatID, "◆ Is it a milestone (a single point in time)?", yesNoKeyboard())
	case stageMilestone:
		switch {
		case isYesInput(text):
			state.input.IsMilestone = true
			state.input.EndDate = state.input.StartDate
			state.stage = stageProgress
			return b.sendWithReplyMarkup(chatID, "📈 Progress in percent (0–100), or skip.", skipKeyboard())
		case isNoInput(text):
			state.stage = stageEnd
			return b.sendWithReplyMarkup(chatID, "🏁 End date, e.g. <code>2024-03-15</code>.", cancelKeyboard())
		default:
			return b.sendWithReplyMarkup(chatID, "Answer «Yes» or «No».", yesNoKeyboard())
		}
	case stageEnd:
		end, err := service.ParseDate(text)
		if err != nil {
			return b.sendWithReplyMarkup(chatID, "Cannot read that date. Use <code>2024-03-15</code>.", cancelKeyboard())
		}
		if end.Before(state.input.StartDate) {
			return b.sendWithReplyMarkup(chatID,
				fmt.Sprintf("The end cannot be before the start (%s).", state.input.StartDate.Format(dateLayout)),
				cancelKeyboard())
		}
		state.input.EndDate = end
		state.stage = stageProgress
		return b.sendWithReplyMarkup(chatID, "📈 Progress in percent (0–100), or skip.", skipKeyboard())
	case stageProgress:
		if !isSkipInput(text) {
			progress, err := strconv.Atoi(strings.TrimSuffix(text, "%"))
			if err != nil || progress < 0 || progress > 100 {
				return b.sendWithReplyMarkup(chatID, "Progress is a number from 0 to 100.", skipKeyboard())
			}
			state.input.Progress = progress
		}
		state.stage = stagePredecessors
		return b.sendWithReplyMarkup(chatID, "⛓ Ids of tasks it waits for, comma separated, or skip.", skipKeyboard())
	case stagePredecessors:
		if !isSkipInput(text) {
			state.input.Predecessors = splitIDs(text)
		}
		state.stage = stageParent
		return b.sendWithReplyMarkup(chatID, "🌳 Id of the parent task, or skip.", skipKeyboard())
	case stageParent:
		if !isSkipInput(text) {
			parent, err := parseID(text)
			if err != nil {
				return b.sendWithReplyMarkup(chatID, "The parent is a task id, for example 4.", skipKeyboard())
			}
			state.input.ParentID = &parent
		}
		b.clearConversation(msg.From.ID)
		return b.finishTaskCreation(ctx, msg, state.project, state.input)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(chatID, "The dialog was reset. Try /newtask again.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, msg *tgbotapi.Message, project string, input service.TaskInput) error {
	scope, ok, err := b.projectScope(ctx, msg.Chat.ID, msg.From, project)
	if !ok {
		return err
	}
	task, err := b.svc.Tasks.CreateTask(ctx, scope, input)
	if err != nil {
		return b.replyError(ctx, msg.Chat.ID, err)
	}
	loggerFrom(ctx).WithFields(logrus.Fields{"project": scope.Project.Name, "task_id": task.ID}).Info("task created")

	if err := b.sendWithReplyMarkup(msg.Chat.ID, formatTaskSummary("✅ <b>Task saved</b>", *task), tgbotapi.NewRemoveKeyboard(true)); err != nil {
		return err
	}
	return b.sendTaskList(ctx, msg.Chat.ID, scope)
}

// splitIDs splits a comma or space separated id list.
func splitIDs(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == ' '
	})
}
