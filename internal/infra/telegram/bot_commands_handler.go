// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"budget_alert_bot/internal/app"
	"budget_alert_bot/internal/domain/budget"
	"budget_alert_bot/internal/domain/expense"
	"budget_alert_bot/internal/domain/user"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// UserDirectory registers and identifies bot users.
type UserDirectory interface {
	Register(ctx context.Context, telegramID int64, username, email string) (*user.User, error)
	Identify(ctx context.Context, telegramID int64) (*user.User, error)
}

// BudgetOperations is the budget and expense surface the commands drive.
type BudgetOperations interface {
	SetBudget(ctx context.Context, userID int64, limit float64) (*budget.Snapshot, error)
	UpdateBudget(ctx context.Context, userID int64, limit float64) (*budget.Snapshot, error)
	DeleteBudget(ctx context.Context, userID int64) error
	AddExpense(ctx context.Context, userID int64, e *expense.Expense) (*budget.Snapshot, error)
	EditExpense(ctx context.Context, userID, expenseID int64, amount float64) (*budget.Snapshot, error)
	DeleteExpense(ctx context.Context, userID, expenseID int64) (*budget.Snapshot, error)
	DeleteAllExpenses(ctx context.Context, userID int64) (*budget.Snapshot, error)
	ListExpenses(ctx context.Context, userID int64) ([]*expense.Expense, error)
	Status(ctx context.Context, userID int64) (*budget.Snapshot, error)
}

type CommandHandlers struct {
	users   UserDirectory
	budgets BudgetOperations
	logger  *logrus.Entry
}

func NewCommandHandlers(users UserDirectory, budgets BudgetOperations, baseLogger *logrus.Entry) *CommandHandlers {
	return &CommandHandlers{users: users, budgets: budgets, logger: baseLogger}
}

// commandFunc handles one command and returns the reply text.
type commandFunc func(ctx context.Context, logCtx *logrus.Entry, sender *telebot.User, args []string) string

// RegisterBotCommands binds every command to the bot.
func RegisterBotCommands(ctx context.Context, b *telebot.Bot, h *CommandHandlers) {
	commands := map[string]commandFunc{
		"/start":          h.start,
		"/help":           h.help,
		"/register":       h.register,
		"/budget":         h.status,
		"/set_budget":     h.setBudget,
		"/update_budget":  h.updateBudget,
		"/delete_budget":  h.deleteBudget,
		"/expenses":       h.listExpenses,
		"/add_expense":    h.addExpense,
		"/edit_expense":   h.editExpense,
		"/delete_expense": h.deleteExpense,
		"/clear_expenses": h.clearExpenses,
	}
	for command, fn := range commands {
		b.Handle(command, h.wrap(ctx, command, fn))
	}
}

func (h *CommandHandlers) wrap(ctx context.Context, command string, fn commandFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}
		logCtx := h.logger.WithFields(logrus.Fields{
			"handler":   command,
			"sender_id": sender.ID,
		})
		logCtx.Info("Command received")
		return c.Send(fn(ctx, logCtx, sender, c.Args()))
	}
}

const helpText = `Available commands:

/register <email> - create your account; budget alerts go to this address
/budget - show your budget and spending
/set_budget <limit> - set your monthly limit
/update_budget <limit> - change the monthly limit
/delete_budget - remove your budget
/expenses - list your expenses with totals per category
/add_expense <amount> <category> <name> - log an expense
/edit_expense <id> <amount> - change an expense amount
/delete_expense <id> - remove an expense
/clear_expenses - remove all your expenses
/help - show this message`

func (h *CommandHandlers) start(ctx context.Context, logCtx *logrus.Entry, sender *telebot.User, _ []string) string {
	u, err := h.users.Identify(ctx, sender.ID)
	if err == nil {
		logCtx.WithField("user_id", u.ID).Info("Known user started the bot")
		return fmt.Sprintf("Welcome back, %s! Use /budget to see where you stand.", u.Username)
	}
	if !errors.Is(err, user.ErrUserNotFound) {
		logCtx.WithError(err).Error("Error identifying user for /start command")
		return msgInternalError
	}
	logCtx.Info("User is unknown")
	return "Hi! I track your monthly spending and warn you when you go over budget.\n" +
		"Register with /register <email> to get started."
}

func (h *CommandHandlers) help(_ context.Context, _ *logrus.Entry, _ *telebot.User, _ []string) string {
	return helpText
}

func (h *CommandHandlers) register(ctx context.Context, logCtx *logrus.Entry, sender *telebot.User, args []string) string {
	if len(args) != 1 {
		return "Usage: /register <email>"
	}
	u, err := h.users.Register(ctx, sender.ID, sender.Username, args[0])
	switch {
	case errors.Is(err, app.ErrInvalidEmail):
		return "That does not look like a valid email address."
	case errors.Is(err, user.ErrUserAlreadyExists):
		return "You are already registered."
	case err != nil:
		logCtx.WithError(err).Error("Failed to register user")
		return msgInternalError
	}
	logCtx.WithField("user_id", u.ID).Info("User registered successfully")
	return fmt.Sprintf("Registered as %s. Alerts will go to %s.\nNext: /set_budget <limit>", u.Username, u.Email)
}

func (h *CommandHandlers) status(ctx context.Context, logCtx *logrus.Entry, sender *telebot.User, _ []string) string {
	userID, reply, ok := h.identify(ctx, logCtx, sender)
	if !ok {
		return reply
	}
	snap, err := h.budgets.Status(ctx, userID)
	if err != nil {
		return h.replyForError(logCtx, err)
	}
	return FormatSnapshot(snap)
}

// identify maps the sender to a registered user id, or returns the reply to send instead.
func (h *CommandHandlers) identify(ctx context.Context, logCtx *logrus.Entry, sender *telebot.User) (int64, string, bool) {
	u, err := h.users.Identify(ctx, sender.ID)
	if err != nil {
		return 0, h.replyForError(logCtx, err), false
	}
	return u.ID, "", true
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
