package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"budget_alert_bot/internal/domain/budget"

	"github.com/lib/pq"
)

const budgetColumns = `id, user_id, monthly_limit, current_total, alert_sent, created_at, updated_at`

type PostgresBudgetRepository struct {
	db *sql.DB
}

func NewPostgresBudgetRepository(db *sql.DB) *PostgresBudgetRepository {
	return &PostgresBudgetRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBudget(row rowScanner) (*budget.Record, error) {
	rec := &budget.Record{}
	err := row.Scan(&rec.ID, &rec.UserID, &rec.MonthlyLimit, &rec.CurrentTotal, &rec.AlertSent, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

func (r *PostgresBudgetRepository) GetByUserID(ctx context.Context, userID int64) (*budget.Record, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE user_id = $1`
	rec, err := scanBudget(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, budget.ErrBudgetNotFound
		}
		return nil, fmt.Errorf("error getting budget for user %d: %w", userID, err)
	}
	return rec, nil
}

// ListByUserIDs returns the budgets of the given users. Users without a budget are absent from the result.
func (r *PostgresBudgetRepository) ListByUserIDs(ctx context.Context, userIDs []int64) ([]*budget.Record, error) {
	records := make([]*budget.Record, 0, len(userIDs))
	if len(userIDs) == 0 {
		return records, nil
	}

	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE user_id = ANY($1) ORDER BY user_id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("error listing budgets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning budget: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating budgets: %w", err)
	}
	return records, nil
}

// Upsert creates the user's budget or replaces limit, total and alert flag of the existing one.
func (r *PostgresBudgetRepository) Upsert(ctx context.Context, rec *budget.Record) error {
	query := `INSERT INTO budgets (user_id, monthly_limit, current_total, alert_sent)
               VALUES ($1, $2, $3, $4)
               ON CONFLICT (user_id) DO UPDATE
               SET monthly_limit = EXCLUDED.monthly_limit,
                   current_total = EXCLUDED.current_total,
                   alert_sent = EXCLUDED.alert_sent,
                   updated_at = NOW()
               RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, rec.UserID, rec.MonthlyLimit, rec.CurrentTotal, rec.AlertSent).
		Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error saving budget: %w", err)
	}
	return nil
}

func (r *PostgresBudgetRepository) Update(ctx context.Context, rec *budget.Record) error {
	query := `UPDATE budgets
               SET monthly_limit = $1, current_total = $2, alert_sent = $3, updated_at = NOW()
               WHERE user_id = $4
               RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, rec.MonthlyLimit, rec.CurrentTotal, rec.AlertSent, rec.UserID).Scan(&rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return budget.ErrBudgetNotFound
		}
		return fmt.Errorf("error updating budget: %w", err)
	}
	return nil
}

func (r *PostgresBudgetRepository) AdjustTotal(ctx context.Context, userID int64, delta float64) (*budget.Record, error) {
	query := `UPDATE budgets
               SET current_total = current_total + $1, updated_at = NOW()
               WHERE user_id = $2
               RETURNING ` + budgetColumns

	rec, err := scanBudget(r.db.QueryRowContext(ctx, query, delta, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, budget.ErrBudgetNotFound
		}
		return nil, fmt.Errorf("error adjusting budget total: %w", err)
	}
	return rec, nil
}

func (r *PostgresBudgetRepository) SetAlertSent(ctx context.Context, userID int64, alertSent bool) error {
	query := `UPDATE budgets SET alert_sent = $1, updated_at = NOW() WHERE user_id = $2`
	return r.execAffectingOne(ctx, "setting alert flag", query, alertSent, userID)
}

func (r *PostgresBudgetRepository) Delete(ctx context.Context, userID int64) error {
	query := `DELETE FROM budgets WHERE user_id = $1`
	return r.execAffectingOne(ctx, "deleting budget", query, userID)
}

func (r *PostgresBudgetRepository) execAffectingOne(ctx context.Context, action, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error %s: %w", action, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking affected rows after %s: %w", action, err)
	}
	if rowsAffected == 0 {
		return budget.ErrBudgetNotFound
	}
	return nil
}
