package telegram

import (
	"context"
	"fmt"

	"budget_alert_bot/internal/domain/expense"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func (h *CommandHandlers) setBudget(ctx context.Context, logCtx *logrus.Entry, sender *telebot.User, args []string) string {
	if len(args) != 1 {
		return "Usage: /set_budget <limit>"
	}
	limit, err := parseAmount(args[0])
	if err != nil {
		return "The limit must be a number, e.g. /set_budget 500"
	}
	userID, reply, ok := h.identify(ctx, logCtx, sender)
	if !ok {
		return reply
	}
	snap, err := h.budgets.SetBudget(ctx, userID, limit)
	if err != nil {
		return h.replyForError(logCtx, err)
	}
	return "Budget set.\n\n" + FormatSnapshot(snap)
}

func (h *CommandHandlers) updateBudget(ctx context.Context, logCtx *logrus.Entry, sender *telebot.User, args []string) string {
	if len(args) != 1 {
		return "Usage: /update_budget <limit>"
	}
	limit, err := parseAmount(args[0])
	if err != nil {
		return "The limit must be a number, e.g. /update_budget 750"
	}
	userID, reply, ok := h.identify(ctx, logCtx, sender)
	if !ok {
		return reply
	}
	snap, err := h.budgets.UpdateBudget(ctx, userID, limit)
	if err != nil {
		return h.replyForError(logCtx, err)
	}
	return "Budget updated.\n\n" + FormatSnapshot(snap)
}

func (h *CommandHandlers) deleteBudget(ctx context.Context, logCtx *logrus.Entry, sender *telebot.User, _ []string) string {
	userID, reply, ok := h.identify(ctx, logCtx, sender)
	if !ok {
		return reply
	}
	if err := h.budgets.DeleteBudget(ctx, userID); err != nil {
		return h.replyForError(logCtx, err)
	}
	return "Budget deleted."
}

func (h *CommandHandlers) addExpense(ctx context.Context, logCtx *logrus.Entry, sender *telebot.User, args []string) string {
	if len(args) < 3 {
		return "Usage: /add_expense <amount> <category> <name>"
	}
	amount, err := parseAmount(args[0])
	if err != nil {
		return "The amount must be a number, e.g. /add_expense 12.50 Food Lunch"
	}
	userID, reply, ok := h.identify(ctx, logCtx, sender)
	if !ok {
		return reply
	}
	e := &expense.Expense{
		Amount:   amount,
		Category: args[1],
		Name:     joinArgs(args[2:]),
	}
	snap, err := h.budgets.AddExpense(ctx, userID, e)
	if err != nil {
		return h.replyForError(logCtx, err)
	}
	logCtx.WithFields(logrus.Fields{"user_id": userID, "expense_id": e.ID}).Info("Expense added")
	return fmt.Sprintf("Expense #%d added: %s $%s (%s).\n\n%s", e.ID, e.Name, FormatMoney(e.Amount), e.Category, FormatSnapshot(snap))
}

func (h *CommandHandlers) editExpense(ctx context.Context, logCtx *logrus.Entry, sender *telebot.User, args []string) string {
	if len(args) != 2 {
		return "Usage: /edit_expense <id> <amount>"
	}
	expenseID, err := parseID(args[0])
	if err != nil {
		return "The expense id must be a positive number."
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return "The amount must be a number."
	}
	userID, reply, ok := h.identify(ctx, logCtx, sender)
	if !ok {
		return reply
	}
	snap, err := h.budgets.EditExpense(ctx, userID, expenseID, amount)
	if err != nil {
		return h.replyForError(logCtx, err)
	}
	return fmt.Sprintf("Expense #%d updated.\n\n%s", expenseID, FormatSnapshot(snap))
}

func (h *CommandHandlers) deleteExpense(ctx context.Context, logCtx *logrus.Entry, sender *telebot.User, args []string) string {
	if len(args) != 1 {
		return "Usage: /delete_expense <id>"
	}
	expenseID, err := parseID(args[0])
	if err != nil {
		return "The expense id must be a positive number."
	}
	userID, reply, ok := h.identify(ctx, logCtx, sender)
	if !ok {
		return reply
	}
	snap, err := h.budgets.DeleteExpense(ctx, userID, expenseID)
	if err != nil {
		return h.replyForError(logCtx, err)
	}
	return fmt.Sprintf("Expense #%d deleted.\n\n%s", expenseID, FormatSnapshot(snap))
}

func (h *CommandHandlers) clearExpenses(ctx context.Context, logCtx *logrus.Entry, sender *telebot.User, _ []string) string {
	userID, reply, ok := h.identify(ctx, logCtx, sender)
	if !ok {
		return reply
	}
	snap, err := h.budgets.DeleteAllExpenses(ctx, userID)
	if err != nil {
		return h.replyForError(logCtx, err)
	}
	return "All expenses deleted.\n\n" + FormatSnapshot(snap)
}

func (h *CommandHandlers) listExpenses(ctx context.Context, logCtx *logrus.Entry, sender *telebot.User, _ []string) string {
	userID, reply, ok := h.identify(ctx, logCtx, sender)
	if !ok {
		return reply
	}
	items, err := h.budgets.ListExpenses(ctx, userID)
	if err != nil {
		return h.replyForError(logCtx, err)
	}
	return FormatExpenses(items)
}
