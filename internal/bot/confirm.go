package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const (
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	log := loggerFrom(ctx).WithFields(logrus.Fields{"user": cb.From.ID, "data": cb.Data})
	if _, err := b.out.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.WithError(err).Warn("callback ack")
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, cbCompletePrefix):
		log.Info("callback complete request")
		taskID, err := parseTaskID(data, cbCompletePrefix)
		if err != nil {
			return nil
		}
		b.metrics.Command("complete")
		return b.askCompleteConfirmation(ctx, cb.Message.Chat.ID, cb.From, taskID)
	case strings.HasPrefix(data, cbDeletePrefix):
		log.Info("callback delete request")
		taskID, err := parseTaskID(data, cbDeletePrefix)
		if err != nil {
			return nil
		}
		b.metrics.Command("delete")
		return b.askDeleteConfirmation(ctx, cb.Message.Chat.ID, cb.From, taskID)
	default:
		return nil
	}
}

func (b *Bot) askCompleteConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint) error {
	scope, ok, err := b.scope(ctx, chatID, from)
	if !ok {
		return err
	}
	task, err := b.svc.Tasks.Get(ctx, scope, taskID)
	if err != nil {
		return b.replyError(ctx, chatID, err)
	}
	if task.Progress == 100 {
		return b.sendText(chatID, "This task is already done.")
	}

	text := fmt.Sprintf("Mark «%s» (#%d) as 100%% done?", escape(task.Name), task.ID)
	b.setConfirmation(from.ID, confirmationRequest{project: scope.Project.Name, taskID: task.ID, action: actionComplete})
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint) error {
	scope, ok, err := b.scope(ctx, chatID, from)
	if !ok {
		return err
	}
	task, err := b.svc.Tasks.Get(ctx, scope, taskID)
	if err != nil {
		return b.replyError(ctx, chatID, err)
	}

	text := fmt.Sprintf("Delete «%s» (#%d)? Its dependencies are removed too.", escape(task.Name), task.ID)
	b.setConfirmation(from.ID, confirmationRequest{project: scope.Project.Name, taskID: task.ID, action: actionDelete})
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		if req.action == actionDelete {
			return b.deleteTaskAndRefresh(ctx, msg.Chat.ID, msg.From, req)
		}
		return b.completeTaskAndRefresh(ctx, msg.Chat.ID, msg.From, req)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendMenuPlaceholder(msg.Chat.ID)
	default:
		prompt := "Confirm or cancel marking the task done."
		if req.action == actionDelete {
			prompt = "Confirm or cancel deleting the task."
		}
		return b.sendWithReplyMarkup(msg.Chat.ID, prompt, confirmKeyboard())
	}
}

func (b *Bot) completeTaskAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, req confirmationRequest) error {
	scope, ok, err := b.projectScope(ctx, chatID, from, req.project)
	if !ok {
		return err
	}
	task, err := b.svc.Tasks.SetProgress(ctx, scope, req.taskID, 100)
	if err != nil {
		return b.replyError(ctx, chatID, err)
	}
	loggerFrom(ctx).WithFields(logrus.Fields{"project": scope.Project.Name, "task_id": task.ID}).Info("task completed")
	if err := b.sendTextWithRemove(chatID, fmt.Sprintf("✅ «%s» is done.", escape(task.Name))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, scope)
}

func (b *Bot) deleteTaskAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, req confirmationRequest) error {
	scope, ok, err := b.projectScope(ctx, chatID, from, req.project)
	if !ok {
		return err
	}
	task, err := b.svc.Tasks.Get(ctx, scope, req.taskID)
	if err != nil {
		return b.replyError(ctx, chatID, err)
	}
	if err := b.svc.Tasks.DeleteTask(ctx, scope, req.taskID); err != nil {
		return b.replyError(ctx, chatID, err)
	}
	loggerFrom(ctx).WithFields(logrus.Fields{"project": scope.Project.Name, "task_id": req.taskID}).Info("task deleted")
	if err := b.sendTextWithRemove(chatID, fmt.Sprintf("🗑 «%s» deleted from <b>%s</b>.", escape(task.Name), escape(scope.Project.Name))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, scope)
}

func parseTaskID(data, prefix string) (uint, error) {
	return parseID(strings.TrimPrefix(data, prefix))
}

func parseID(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "#")), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}
