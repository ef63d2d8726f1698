package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gantt-tracker/internal/metrics"
	"gantt-tracker/internal/model"
	"gantt-tracker/internal/service"
)

// sender is the part of the Telegram API the handlers need.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Services groups the core services the bot drives.
type Services struct {
	Users     *service.UserService
	Projects  *service.ProjectService
	Sessions  *service.SessionService
	Tasks     *service.TaskService
	Members   *service.MemberService
	Resources *service.ResourceService
	Views     *service.ViewService
	Reminders *service.ReminderService
}

type confirmationAction int

const (
	actionComplete confirmationAction = iota
	actionDelete
)

// confirmationRequest is pinned to the project the task was picked in.
type confirmationRequest struct {
	project string
	taskID  uint
	action  confirmationAction
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api     *tgbotapi.BotAPI
	out     sender
	svc     Services
	log     *logrus.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu            sync.Mutex
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
}

func New(token string, svc Services, log *logrus.Logger, m *metrics.Metrics) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	b := newBot(api, svc, log, m)
	b.api = api
	b.log.WithField("account", api.Self.UserName).Info("bot authorized")
	return b, nil
}

func newBot(out sender, svc Services, log *logrus.Logger, m *metrics.Metrics) *Bot {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Bot{
		out:           out,
		svc:           svc,
		log:           log,
		metrics:       m,
		now:           time.Now,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.HandleUpdate(ctx, update)
	}
	return nil
}

// HandleUpdate routes one update. Errors are logged, never returned to the poller.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	entry := b.log.WithFields(logrus.Fields{"update_id": update.UpdateID, "req": uuid.NewString()})
	ctx = withLogger(ctx, entry)

	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			entry.WithError(err).Error("handle callback")
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			entry.WithError(err).Error("handle message")
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	log := loggerFrom(ctx).WithField("user", msg.From.ID)

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		log.WithFields(logrus.Fields{"command": msg.Command(), "args": msg.CommandArguments()}).Info("command")
		b.metrics.Command(msg.Command())
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if state := b.getConversation(msg.From.ID); state != nil {
		log.WithField("stage", state.stage).Debug("conversation step")
		return b.handleConversation(ctx, msg, state)
	}

	return b.sendText(msg.Chat.ID, "I did not get that. Use /newtask to add a task or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "projects":
		return b.handleProjects(ctx, msg)
	case "use":
		return b.handleUse(ctx, msg)
	case "newproject":
		return b.handleNewProject(ctx, msg)
	case "tasks":
		return b.handleTasks(ctx, msg)
	case "tree":
		return b.handleTree(ctx, msg)
	case "newtask":
		return b.startNewTaskConversation(ctx, msg)
	case "edit":
		return b.handleEdit(ctx, msg)
	case "progress":
		return b.handleProgress(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "link":
		return b.handleLink(ctx, msg, true)
	case "unlink":
		return b.handleLink(ctx, msg, false)
	case "burndown":
		return b.handleBurndown(ctx, msg)
	case "overview":
		return b.handleOverview(ctx, msg)
	case "members":
		return b.handleMembers(ctx, msg)
	case "addmember":
		return b.handleAddMember(ctx, msg)
	case "delmember":
		return b.handleDeleteMember(ctx, msg)
	case "resources":
		return b.handleResources(ctx, msg)
	case "addresource":
		return b.handleAddResource(ctx, msg)
	case "delresource":
		return b.handleDeleteResource(ctx, msg)
	case "export":
		return b.handleExport(ctx, msg)
	case "role":
		return b.handleRole(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

// actor upserts the Telegram user and returns who is acting.
func (b *Bot) actor(ctx context.Context, from *tgbotapi.User) (service.Actor, error) {
	user, err := b.svc.Users.EnsureTelegramUser(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
	if err != nil {
		return service.Actor{}, err
	}
	return service.ActorFromUser(user), nil
}

// scope resolves the current project of the sender. When ok is false the user was
// already told what to do and the handler should stop.
func (b *Bot) scope(ctx context.Context, chatID int64, from *tgbotapi.User) (scope service.Scope, ok bool, err error) {
	actor, err := b.actor(ctx, from)
	if err != nil {
		return service.Scope{}, false, err
	}
	scope, err = b.svc.Sessions.Resolve(ctx, actor)
	switch {
	case errors.Is(err, service.ErrNoProject):
		return service.Scope{}, false, b.sendText(chatID, "No project selected. Pick one with /projects and /use &lt;name&gt;.")
	case errors.Is(err, service.ErrNotFound):
		return service.Scope{}, false, b.sendText(chatID, "Your current project no longer exists. Pick another one with /projects.")
	case err != nil:
		return service.Scope{}, false, err
	}
	return scope, true, nil
}

// projectScope resolves a scope for a named project instead of the current one,
// for flows that started before the user switched projects.
func (b *Bot) projectScope(ctx context.Context, chatID int64, from *tgbotapi.User, project string) (service.Scope, bool, error) {
	actor, err := b.actor(ctx, from)
	if err != nil {
		return service.Scope{}, false, err
	}
	scope, err := b.svc.Projects.Scope(ctx, actor, project)
	switch {
	case errors.Is(err, service.ErrNotFound):
		return service.Scope{}, false, b.sendText(chatID, fmt.Sprintf("Project <b>%s</b> no longer exists.", escape(project)))
	case err != nil:
		return service.Scope{}, false, err
	}
	return scope, true, nil
}

// replyError tells the user why an operation was refused. Unexpected errors are logged.
func (b *Bot) replyError(ctx context.Context, chatID int64, err error) error {
	var text string
	switch {
	case errors.Is(err, service.ErrForbidden):
		text = "⛔ Your role does not allow this."
	case errors.Is(err, service.ErrInvalidEdge):
		text = "🚫 Invalid dependency: " + escape(err.Error())
	case errors.Is(err, service.ErrValidation):
		text = "⚠️ " + escape(err.Error())
	case errors.Is(err, service.ErrNotFound):
		text = "🔍 Not found: " + escape(err.Error())
	case errors.Is(err, service.ErrConflict):
		text = "⚠️ " + escape(err.Error())
	default:
		loggerFrom(ctx).WithError(err).Error("operation failed")
		text = "Something went wrong, please try again later."
	}
	return b.sendText(chatID, text)
}

// SendDigests sends the project digest to every user with a current project.
func (b *Bot) SendDigests(ctx context.Context) error {
	sessions, err := b.svc.Sessions.Selected(ctx)
	if err != nil {
		return err
	}
	now := b.now()
	for _, session := range sessions {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		log := b.log.WithFields(logrus.Fields{"user_id": session.UserID, "project": session.ProjectName})
		user, err := b.svc.Users.FindByID(ctx, session.UserID)
		if err != nil {
			log.WithError(err).Warn("digest: load user")
			continue
		}
		scope, err := b.svc.Projects.Scope(ctx, service.ActorFromUser(user), session.ProjectName)
		if err != nil {
			log.WithError(err).Warn("digest: open project")
			continue
		}
		text, err := b.svc.Reminders.ProjectDigest(ctx, scope, now)
		if err != nil {
			log.WithError(err).Warn("digest: build")
			continue
		}
		if err := b.sendText(user.TelegramID, text); err != nil {
			log.WithError(err).Warn("digest: send")
		}
	}
	return nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := b.out.Send(msg); err != nil {
		return err
	}
	return b.sendMenuPlaceholder(chatID)
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendMenuPlaceholder(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "🔹 Main menu")
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

type loggerKey struct{}

func withLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, entry)
}

func loggerFrom(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func escape(s string) string {
	return html.EscapeString(s)
}

func roleAtLeast(actor service.Actor, role model.Role) bool {
	return service.Authorize(actor, role) == nil
}
