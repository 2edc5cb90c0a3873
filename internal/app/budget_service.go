package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"budget_alert_bot/internal/domain/budget"
	"budget_alert_bot/internal/domain/expense"

	"github.com/sirupsen/logrus"
)

const (
	defaultPersistRetries = 3
	defaultRetryDelay     = 200 * time.Millisecond
)

// BudgetService commits budget and expense changes and then synchronizes the budget cache.
// It owns persisting the alert flag whenever synchronization flips it.
type BudgetService struct {
	budgets        budget.Repository
	expenses       expense.Repository
	monitor        *BudgetMonitor
	logger         *logrus.Entry
	persistRetries int
	retryDelay     time.Duration
}

type BudgetServiceConfig struct {
	PersistRetries int
	RetryDelay     time.Duration
}

func NewBudgetService(
	budgets budget.Repository,
	expenses expense.Repository,
	monitor *BudgetMonitor,
	logger *logrus.Entry,
	cfg BudgetServiceConfig,
) *BudgetService {
	if cfg.PersistRetries <= 0 {
		cfg.PersistRetries = defaultPersistRetries
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &BudgetService{
		budgets:        budgets,
		expenses:       expenses,
		monitor:        monitor,
		logger:         logger,
		persistRetries: cfg.PersistRetries,
		retryDelay:     cfg.RetryDelay,
	}
}

// SetBudget creates or replaces the user's budget. The total is recomputed from the
// user's expenses and the alert flag starts cleared.
func (s *BudgetService) SetBudget(ctx context.Context, userID int64, limit float64) (*budget.Snapshot, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	total, err := s.expenses.SumByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum expenses: %w", err)
	}

	rec := &budget.Record{
		UserID:       userID,
		MonthlyLimit: limit,
		CurrentTotal: total,
		AlertSent:    false,
	}
	if err := s.budgets.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save budget: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"user_id": userID, "limit": limit, "current_total": total}).Info("Budget set")
	return s.synchronize(ctx, rec)
}

// UpdateBudget changes the limit of an existing budget and clears the alert flag.
func (s *BudgetService) UpdateBudget(ctx context.Context, userID int64, limit float64) (*budget.Snapshot, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	rec, err := s.budgets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	rec.MonthlyLimit = limit
	rec.AlertSent = false
	if err := s.budgets.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to update budget: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"user_id": userID, "limit": limit}).Info("Budget updated")
	return s.synchronize(ctx, rec)
}

func (s *BudgetService) DeleteBudget(ctx context.Context, userID int64) error {
	if err := s.budgets.Delete(ctx, userID); err != nil {
		return err
	}
	if err := s.monitor.ClearBudget(ctx, userID); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Budget deleted but cache entry could not be cleared")
		return nil
	}
	s.logger.WithField("user_id", userID).Info("Budget deleted")
	return nil
}

// AddExpense stores a new expense and applies its amount to the budget, if one exists.
func (s *BudgetService) AddExpense(ctx context.Context, userID int64, e *expense.Expense) (*budget.Snapshot, error) {
	e.UserID = userID
	if e.Date.IsZero() {
		e.Date = time.Now()
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := s.expenses.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to save expense: %w", err)
	}
	return s.applyDelta(ctx, userID, e.Amount)
}

func (s *BudgetService) EditExpense(ctx context.Context, userID, expenseID int64, amount float64) (*budget.Snapshot, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, expense.ErrInvalidAmount
	}
	e, err := s.ownedExpense(ctx, userID, expenseID)
	if err != nil {
		return nil, err
	}
	if err := s.expenses.UpdateAmount(ctx, expenseID, amount); err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}
	return s.applyDelta(ctx, userID, amount-e.Amount)
}

func (s *BudgetService) DeleteExpense(ctx context.Context, userID, expenseID int64) (*budget.Snapshot, error) {
	e, err := s.ownedExpense(ctx, userID, expenseID)
	if err != nil {
		return nil, err
	}
	if err := s.expenses.Delete(ctx, expenseID); err != nil {
		return nil, fmt.Errorf("failed to delete expense: %w", err)
	}
	return s.applyDelta(ctx, userID, -e.Amount)
}

// DeleteAllExpenses removes the user's expenses and zeroes the budget total.
func (s *BudgetService) DeleteAllExpenses(ctx context.Context, userID int64) (*budget.Snapshot, error) {
	removed, err := s.expenses.DeleteAllByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete expenses: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"user_id": userID, "removed": removed}).Info("All expenses deleted")

	rec, err := s.budgets.GetByUserID(ctx, userID)
	if errors.Is(err, budget.ErrBudgetNotFound) {
		return s.monitor.GetOrCreate(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	rec.CurrentTotal = 0
	if err := s.budgets.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to reset budget total: %w", err)
	}
	return s.synchronize(ctx, rec)
}

// ListExpenses returns the user's expenses, newest first.
func (s *BudgetService) ListExpenses(ctx context.Context, userID int64) ([]*expense.Expense, error) {
	items, err := s.expenses.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return items, nil
}

// Status resynchronizes the cache with the stored budget and returns the current view.
func (s *BudgetService) Status(ctx context.Context, userID int64) (*budget.Snapshot, error) {
	rec, err := s.budgets.GetByUserID(ctx, userID)
	if errors.Is(err, budget.ErrBudgetNotFound) {
		return s.monitor.GetOrCreate(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return s.synchronize(ctx, rec)
}

// Resync reloads the stored budgets of the given users and reconciles their cache entries.
// Users without a stored budget are left untouched. Returns how many records were reconciled.
func (s *BudgetService) Resync(ctx context.Context, userIDs []int64) (int, error) {
	records, err := s.budgets.ListByUserIDs(ctx, userIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to load budgets: %w", err)
	}
	synced := 0
	for _, rec := range records {
		result, err := s.monitor.Resynchronize(ctx, rec)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", rec.UserID).Warn("Budget resync failed")
			continue
		}
		if result.Transition != budget.TransitionNone || result.FlagRepaired {
			s.commitAlertFlag(ctx, rec.UserID)
		}
		if !result.Skipped || result.FlagRepaired {
			synced++
		}
	}
	return synced, nil
}

func (s *BudgetService) ownedExpense(ctx context.Context, userID, expenseID int64) (*expense.Expense, error) {
	e, err := s.expenses.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if e.UserID != userID {
		return nil, expense.ErrNotOwner
	}
	return e, nil
}

// applyDelta commits the total change, mirrors it into the cache and synchronizes.
// The entry is loaded first so it is hydrated from the pre-change total.
func (s *BudgetService) applyDelta(ctx context.Context, userID int64, delta float64) (*budget.Snapshot, error) {
	if _, err := s.monitor.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}
	rec, err := s.budgets.AdjustTotal(ctx, userID, delta)
	if errors.Is(err, budget.ErrBudgetNotFound) {
		return s.monitor.GetOrCreate(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to adjust budget total: %w", err)
	}
	if err := s.monitor.UpdateTotal(ctx, userID, delta); err != nil {
		return nil, err
	}
	return s.synchronize(ctx, rec)
}

func (s *BudgetService) synchronize(ctx context.Context, rec *budget.Record) (*budget.Snapshot, error) {
	result, err := s.monitor.Synchronize(ctx, rec)
	if err != nil {
		return nil, err
	}
	if result.Transition != budget.TransitionNone || result.FlagRepaired {
		s.commitAlertFlag(ctx, rec.UserID)
	}
	return s.monitor.GetOrCreate(ctx, rec.UserID)
}

// commitAlertFlag persists the cached alert flag under the user's entry lock.
// Failures are logged inside; the user-facing action still succeeds.
func (s *BudgetService) commitAlertFlag(ctx context.Context, userID int64) {
	err := s.monitor.WithAlertFlag(ctx, userID, func(alertSent bool) error {
		return s.persistAlertFlag(ctx, userID, alertSent)
	})
	if err != nil && !budget.IsInconsistentStateError(err) {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Could not load cache entry to persist alert flag")
	}
}

// persistAlertFlag writes a flipped alert flag back to storage, retrying with a linear backoff.
// The flip is never rolled back in the cache.
func (s *BudgetService) persistAlertFlag(ctx context.Context, userID int64, alertSent bool) error {
	var err error
	attempts := 0
	for attempts < s.persistRetries {
		attempts++
		if err = s.budgets.SetAlertSent(ctx, userID, alertSent); err == nil {
			return nil
		}
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":    userID,
			"alert_sent": alertSent,
			"attempt":    attempts,
		}).Warn("Failed to persist alert flag")
		if attempts < s.persistRetries {
			if waitErr := sleepContext(ctx, s.retryDelay*time.Duration(attempts)); waitErr != nil {
				err = waitErr
				break
			}
		}
	}

	stateErr := &budget.InconsistentStateError{UserID: userID, AlertSent: alertSent, Attempts: attempts, Err: err}
	s.logger.WithError(stateErr).WithField("user_id", userID).Error("Budget cache and storage disagree on alert flag")
	return stateErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func validateLimit(limit float64) error {
	if math.IsNaN(limit) || math.IsInf(limit, 0) || limit < 0 {
		return budget.ErrNegativeLimit
	}
	return nil
}
