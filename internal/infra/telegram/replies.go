package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"budget_alert_bot/internal/domain/budget"
	"budget_alert_bot/internal/domain/expense"
	"budget_alert_bot/internal/domain/user"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	msgInternalError = "Something went wrong. Please try again later."

	// maxListedExpenses keeps /expenses replies well under the Telegram message size limit.
	maxListedExpenses = 30
)

var errInvalidNumber = errors.New("not a number")

// parseAmount parses a money amount and rounds it to cents.
func parseAmount(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if err != nil {
		return 0, errInvalidNumber
	}
	return d.Round(2).InexactFloat64(), nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidNumber
	}
	return id, nil
}

func FormatMoney(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

// FormatSnapshot renders a budget view for chat.
func FormatSnapshot(s *budget.Snapshot) string {
	if s == nil || s.State() == budget.StateNoBudget {
		return "No budget set. Use /set_budget <limit> to start tracking."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Monthly limit: $%s\n", FormatMoney(s.Limit))
	fmt.Fprintf(&b, "Spent: $%s\n", FormatMoney(s.CurrentTotal))
	if s.State() == budget.StateOverLimit {
		fmt.Fprintf(&b, "Over budget by $%s", FormatMoney(-s.Remaining()))
	} else {
		fmt.Fprintf(&b, "Remaining: $%s", FormatMoney(s.Remaining()))
	}
	return b.String()
}

// FormatExpenses lists the newest expenses with their ids, followed by the totals of all of them.
func FormatExpenses(items []*expense.Expense) string {
	if len(items) == 0 {
		return "No expenses yet. Use /add_expense <amount> <category> <name> to log one."
	}
	var b strings.Builder
	shown := items
	if len(shown) > maxListedExpenses {
		shown = shown[:maxListedExpenses]
	}
	for _, e := range shown {
		fmt.Fprintf(&b, "#%d %s %s: $%s (%s)\n", e.ID, e.Date.Format("2006-01-02"), e.Name, FormatMoney(e.Amount), e.Category)
	}
	if len(shown) < len(items) {
		fmt.Fprintf(&b, "...showing the latest %d of %d\n", len(shown), len(items))
	}

	summary := expense.Summarize(items)
	fmt.Fprintf(&b, "\nTotal: $%s\n\nBy category:", FormatMoney(summary.Total))
	for _, c := range summary.ByCategory {
		fmt.Fprintf(&b, "\n%s: $%s", c.Category, FormatMoney(c.Total))
	}
	return b.String()
}

// replyForError turns service errors into chat replies. Unexpected errors are logged.
func (h *CommandHandlers) replyForError(logCtx *logrus.Entry, err error) string {
	switch {
	case errors.Is(err, user.ErrUserNotFound), budget.IsConfigurationError(err):
		return "You are not registered yet. Use /register <email> first."
	case errors.Is(err, budget.ErrBudgetNotFound):
		return "You have no budget yet. Use /set_budget <limit> first."
	case errors.Is(err, budget.ErrNegativeLimit):
		return "The limit must not be negative."
	case errors.Is(err, expense.ErrExpenseNotFound), errors.Is(err, expense.ErrNotOwner):
		return "Expense not found."
	case errors.Is(err, expense.ErrInvalidAmount):
		return "The amount must be a finite number."
	case errors.Is(err, expense.ErrEmptyName):
		return "The expense needs a name."
	case errors.Is(err, expense.ErrNameTooLong):
		return "The expense name is too long (100 characters max)."
	}
	logCtx.WithError(err).Error("Command failed")
	return msgInternalError
}
